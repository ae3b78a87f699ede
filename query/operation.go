package query

// Operation is the comparison applied by a QueryField.
type Operation int

// Comparison operations.
const (
	OpEqual Operation = iota
	OpNotEqual
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqual
	OpGreaterThanOrEqual
	OpLike
	OpNotLike
	OpBetween
	OpNotBetween
	OpIn
	OpNotIn
)

var operationText = [...]string{
	OpEqual:              "=",
	OpNotEqual:           "<>",
	OpLessThan:           "<",
	OpGreaterThan:        ">",
	OpLessThanOrEqual:    "<=",
	OpGreaterThanOrEqual: ">=",
	OpLike:               "LIKE",
	OpNotLike:            "NOT LIKE",
	OpBetween:            "BETWEEN",
	OpNotBetween:         "NOT BETWEEN",
	OpIn:                 "IN",
	OpNotIn:              "NOT IN",
}

// String returns the SQL text of the operation.
func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationText) {
		return "="
	}
	return operationText[o]
}

// Conjunction joins the members of a QueryGroup.
type Conjunction int

// Conjunctions.
const (
	ConjAnd Conjunction = iota
	ConjOr
)

// String implements fmt.Stringer.
func (c Conjunction) String() string {
	if c == ConjOr {
		return "OR"
	}
	return "AND"
}
