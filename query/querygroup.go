package query

import (
	"fmt"
	"strings"

	"github.com/mikependon/repodb/dialect"
)

// Expr is either a *QueryField or a *QueryGroup.
type Expr interface {
	expr()
}

// QueryGroup is a tree of comparisons joined by a conjunction.
type QueryGroup struct {
	Fields      []*QueryField
	Groups      []*QueryGroup
	Conjunction Conjunction
	IsNot       bool

	prefix string
}

func (*QueryGroup) expr() {}

// And joins the expressions with AND.
func And(exprs ...Expr) *QueryGroup { return newGroup(ConjAnd, exprs) }

// Or joins the expressions with OR.
func Or(exprs ...Expr) *QueryGroup { return newGroup(ConjOr, exprs) }

// Not negates the expression.
func Not(e Expr) *QueryGroup {
	switch e := e.(type) {
	case *QueryGroup:
		if e == nil {
			return nil
		}
		c := *e
		c.IsNot = !c.IsNot
		return &c
	case *QueryField:
		if e == nil {
			return nil
		}
		return &QueryGroup{Fields: []*QueryField{e}, IsNot: true}
	}
	return nil
}

func newGroup(c Conjunction, exprs []Expr) *QueryGroup {
	g := &QueryGroup{Conjunction: c}
	for _, e := range exprs {
		switch e := e.(type) {
		case *QueryField:
			if e != nil {
				g.Fields = append(g.Fields, e)
			}
		case *QueryGroup:
			if e != nil {
				g.Groups = append(g.Groups, e)
			}
		}
	}
	return g
}

// WithPrefix returns a copy of the group whose parameter names carry the
// given prefix.
func (g *QueryGroup) WithPrefix(prefix string) *QueryGroup {
	if g == nil {
		return nil
	}
	c := *g
	c.prefix = prefix
	return &c
}

// IsEmpty reports whether the group holds no comparison.
func (g *QueryGroup) IsEmpty() bool {
	if g == nil {
		return true
	}
	for _, f := range g.Fields {
		if f != nil {
			return false
		}
	}
	for _, sub := range g.Groups {
		if !sub.IsEmpty() {
			return false
		}
	}
	return true
}

// FieldNames returns the distinct column names referenced by the group in
// traversal order.
func (g *QueryGroup) FieldNames() []string {
	var (
		names []string
		seen  = map[string]bool{}
		walk  func(*QueryGroup)
	)
	walk = func(g *QueryGroup) {
		if g == nil {
			return
		}
		for _, f := range g.Fields {
			if f != nil && !seen[f.Field.Name] {
				seen[f.Field.Name] = true
				names = append(names, f.Field.Name)
			}
		}
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	walk(g)
	return names
}

// Build renders the group for the given dialect. Values are referenced by
// named placeholders; see Params.
func (g *QueryGroup) Build(s dialect.Setting) (string, error) {
	text, _, err := g.Compile(s)
	return text, err
}

// Params returns the parameters named by Build.
func (g *QueryGroup) Params() map[string]any {
	_, params, _ := g.Compile(dialect.Setting{})
	return params
}

// Compile renders the group and returns it with its parameters.
func (g *QueryGroup) Compile(s dialect.Setting) (string, map[string]any, error) {
	c := &compiler{
		setting: s,
		params:  map[string]any{},
		used:    map[string]bool{},
		counts:  map[string]int{},
	}
	if g == nil {
		return "", c.params, nil
	}
	c.prefix = g.prefix
	text, err := c.group(g)
	if err != nil {
		return "", nil, err
	}
	return text, c.params, nil
}

type compiler struct {
	setting dialect.Setting
	prefix  string
	params  map[string]any
	used    map[string]bool
	counts  map[string]int
}

// name returns the next unused parameter name for the column. The first
// occurrence keeps the column name, later ones get a _N suffix.
func (c *compiler) name(column string) string {
	base := c.prefix + dialect.ParamName(column)
	for n := c.counts[base]; ; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		if !c.used[name] {
			c.counts[base] = n + 1
			c.used[name] = true
			return name
		}
	}
}

func (c *compiler) bind(name string, v any) string {
	c.used[name] = true
	c.params[name] = v
	return ":" + name
}

func (c *compiler) group(g *QueryGroup) (string, error) {
	var parts []string
	for _, f := range g.Fields {
		if f == nil {
			continue
		}
		text, err := c.field(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	for _, sub := range g.Groups {
		if sub == nil {
			continue
		}
		text, err := c.group(sub)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	text := "(" + strings.Join(parts, " "+g.Conjunction.String()+" ") + ")"
	if g.IsNot {
		text = "NOT " + text
	}
	return text, nil
}

func (c *compiler) field(f *QueryField) (string, error) {
	col := c.setting.Quote(f.Field.Name)
	op := f.Operation
	switch op {
	case OpEqual, OpNotEqual:
		if IsNullValue(f.Value) {
			if op == OpEqual {
				return col + " IS NULL", nil
			}
			return col + " IS NOT NULL", nil
		}
	case OpIn, OpNotIn:
		vs := f.Values()
		if len(vs) == 0 {
			if op == OpIn {
				return "(1 = 0)", nil
			}
			return "(1 = 1)", nil
		}
		base := c.name(f.Field.Name)
		ps := make([]string, len(vs))
		for i, v := range vs {
			ps[i] = c.bind(fmt.Sprintf("%s_In_%d", base, i), v)
		}
		return col + " " + op.String() + " (" + strings.Join(ps, ", ") + ")", nil
	case OpBetween, OpNotBetween:
		vs := f.Values()
		if len(vs) != 2 {
			return "", fmt.Errorf("query: %s on %q requires 2 values, got %d", op, f.Field.Name, len(vs))
		}
		base := c.name(f.Field.Name)
		left := c.bind(base+"_Left", vs[0])
		right := c.bind(base+"_Right", vs[1])
		return col + " " + op.String() + " " + left + " AND " + right, nil
	}
	return col + " " + op.String() + " " + c.bind(c.name(f.Field.Name), f.Value), nil
}
