package query

// Column is a typed column reference. It builds QueryFields whose values
// are checked at compile time.
//
// Usage:
//
//	var Age = query.Column[int]("Age")
//	repodb.Query[Person](ctx, db, query.And(Age.Gte(18), Age.Lt(65)))
type Column[T any] string

// Name returns the column name.
func (c Column[T]) Name() string { return string(c) }

// Eq returns a predicate that checks if the column equals the given value.
func (c Column[T]) Eq(v T) *QueryField { return Eq(string(c), v) }

// NotEq returns a predicate that checks if the column does not equal the given value.
func (c Column[T]) NotEq(v T) *QueryField { return NotEq(string(c), v) }

// Lt returns a predicate that checks if the column is less than the given value.
func (c Column[T]) Lt(v T) *QueryField { return Lt(string(c), v) }

// Lte returns a predicate that checks if the column is less than or equal to the given value.
func (c Column[T]) Lte(v T) *QueryField { return Lte(string(c), v) }

// Gt returns a predicate that checks if the column is greater than the given value.
func (c Column[T]) Gt(v T) *QueryField { return Gt(string(c), v) }

// Gte returns a predicate that checks if the column is greater than or equal to the given value.
func (c Column[T]) Gte(v T) *QueryField { return Gte(string(c), v) }

// Between returns a predicate that checks if the column is within the given range.
func (c Column[T]) Between(left, right T) *QueryField { return Between(string(c), left, right) }

// NotBetween returns a predicate that checks if the column is outside the given range.
func (c Column[T]) NotBetween(left, right T) *QueryField {
	return NotBetween(string(c), left, right)
}

// In returns a predicate that checks if the column value is in the given list.
func (c Column[T]) In(vs ...T) *QueryField {
	return NewQueryField(string(c), OpIn, anySlice(vs))
}

// NotIn returns a predicate that checks if the column value is not in the given list.
func (c Column[T]) NotIn(vs ...T) *QueryField {
	return NewQueryField(string(c), OpNotIn, anySlice(vs))
}

// IsNull returns a predicate that checks if the column is NULL.
func (c Column[T]) IsNull() *QueryField { return IsNull(string(c)) }

// IsNotNull returns a predicate that checks if the column is not NULL.
func (c Column[T]) IsNotNull() *QueryField { return IsNotNull(string(c)) }

// Asc orders by the column in ascending order.
func (c Column[T]) Asc() OrderField { return Asc(string(c)) }

// Desc orders by the column in descending order.
func (c Column[T]) Desc() OrderField { return Desc(string(c)) }

// StringColumn is a string column reference with pattern predicates.
type StringColumn string

// Name returns the column name.
func (c StringColumn) Name() string { return string(c) }

// Eq returns a predicate that checks if the column equals the given value.
func (c StringColumn) Eq(v string) *QueryField { return Eq(string(c), v) }

// NotEq returns a predicate that checks if the column does not equal the given value.
func (c StringColumn) NotEq(v string) *QueryField { return NotEq(string(c), v) }

// In returns a predicate that checks if the column value is in the given list.
func (c StringColumn) In(vs ...string) *QueryField {
	return NewQueryField(string(c), OpIn, anySlice(vs))
}

// NotIn returns a predicate that checks if the column value is not in the given list.
func (c StringColumn) NotIn(vs ...string) *QueryField {
	return NewQueryField(string(c), OpNotIn, anySlice(vs))
}

// Like returns a predicate that matches the column against a LIKE pattern.
func (c StringColumn) Like(pattern string) *QueryField { return Like(string(c), pattern) }

// NotLike returns a predicate that checks the column does not match a LIKE pattern.
func (c StringColumn) NotLike(pattern string) *QueryField { return NotLike(string(c), pattern) }

// Contains returns a predicate that checks if the column contains the given
// substring. Wildcards in v are not escaped.
func (c StringColumn) Contains(v string) *QueryField {
	return Like(string(c), "%"+v+"%")
}

// HasPrefix returns a predicate that checks if the column has the given prefix.
func (c StringColumn) HasPrefix(v string) *QueryField {
	return Like(string(c), v+"%")
}

// HasSuffix returns a predicate that checks if the column has the given suffix.
func (c StringColumn) HasSuffix(v string) *QueryField {
	return Like(string(c), "%"+v)
}

// IsNull returns a predicate that checks if the column is NULL.
func (c StringColumn) IsNull() *QueryField { return IsNull(string(c)) }

// IsNotNull returns a predicate that checks if the column is not NULL.
func (c StringColumn) IsNotNull() *QueryField { return IsNotNull(string(c)) }

// Asc orders by the column in ascending order.
func (c StringColumn) Asc() OrderField { return Asc(string(c)) }

// Desc orders by the column in descending order.
func (c StringColumn) Desc() OrderField { return Desc(string(c)) }

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
