package statement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/query"
)

// QueryBuilder writes statement text token by token. Tokens are separated
// by a single space; commas, closing parentheses and the terminating
// semicolon are attached to the previous token.
//
// The first error raised by a method is kept and returned by Build.
type QueryBuilder struct {
	setting dialect.Setting
	sb      strings.Builder
	err     error
}

// NewQueryBuilder returns a QueryBuilder quoting identifiers with the
// given setting.
func NewQueryBuilder(s dialect.Setting) *QueryBuilder {
	return &QueryBuilder{setting: s}
}

// Setting returns the dialect setting of the builder.
func (b *QueryBuilder) Setting() dialect.Setting { return b.setting }

// WriteText appends a raw token.
func (b *QueryBuilder) WriteText(s string) *QueryBuilder {
	if s == "" {
		return b
	}
	if b.sb.Len() > 0 {
		last := b.sb.String()[b.sb.Len()-1]
		switch {
		case last == '(' || last == ' ':
		case s[0] == ')' || s[0] == ',' || s[0] == ';':
		default:
			b.sb.WriteByte(' ')
		}
	}
	b.sb.WriteString(s)
	return b
}

// Select writes SELECT.
func (b *QueryBuilder) Select() *QueryBuilder { return b.WriteText("SELECT") }

// Top writes TOP (n) when n is positive.
func (b *QueryBuilder) Top(n int) *QueryBuilder {
	if n > 0 {
		b.WriteText("TOP (" + strconv.Itoa(n) + ")")
	}
	return b
}

// FieldsFrom writes the quoted, comma separated fields.
func (b *QueryBuilder) FieldsFrom(fields []string) *QueryBuilder {
	return b.AsAliasFieldsFrom(fields, "")
}

// AsAliasFieldsFrom writes the fields prefixed with a table alias.
func (b *QueryBuilder) AsAliasFieldsFrom(fields []string, alias string) *QueryBuilder {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = b.column(f, alias)
	}
	return b.WriteText(strings.Join(parts, ", "))
}

// From writes FROM.
func (b *QueryBuilder) From() *QueryBuilder { return b.WriteText("FROM") }

// TableNameFrom writes the quoted table name.
func (b *QueryBuilder) TableNameFrom(table string) *QueryBuilder {
	return b.WriteText(b.setting.Quote(table))
}

// HintsFrom writes the table hints, if any.
func (b *QueryBuilder) HintsFrom(hints string) *QueryBuilder {
	return b.WriteText(strings.TrimSpace(hints))
}

// WhereFrom writes WHERE followed by the rendered group. Nothing is written
// for an empty group.
func (b *QueryBuilder) WhereFrom(g *query.QueryGroup) *QueryBuilder {
	text, err := g.Build(b.setting)
	if err != nil {
		b.setErr(err)
		return b
	}
	if text != "" {
		b.WriteText("WHERE").WriteText(text)
	}
	return b
}

// OrderByFrom writes ORDER BY with the given fields. Nothing is written
// when orders is empty.
func (b *QueryBuilder) OrderByFrom(orders []query.OrderField) *QueryBuilder {
	if len(orders) == 0 {
		return b
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = b.setting.Quote(o.Name) + " " + o.Order.String()
	}
	return b.WriteText("ORDER BY").WriteText(strings.Join(parts, ", "))
}

// Limit writes LIMIT n when n is positive.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if n > 0 {
		b.WriteText("LIMIT " + strconv.Itoa(n))
	}
	return b
}

// Offset writes OFFSET n.
func (b *QueryBuilder) Offset(n int) *QueryBuilder {
	return b.WriteText("OFFSET " + strconv.Itoa(n))
}

// InsertInto writes INSERT INTO.
func (b *QueryBuilder) InsertInto() *QueryBuilder { return b.WriteText("INSERT INTO") }

// Values writes VALUES.
func (b *QueryBuilder) Values() *QueryBuilder { return b.WriteText("VALUES") }

// Update writes UPDATE.
func (b *QueryBuilder) Update() *QueryBuilder { return b.WriteText("UPDATE") }

// Set writes SET.
func (b *QueryBuilder) Set() *QueryBuilder { return b.WriteText("SET") }

// Delete writes DELETE.
func (b *QueryBuilder) Delete() *QueryBuilder { return b.WriteText("DELETE") }

// Truncate writes TRUNCATE TABLE.
func (b *QueryBuilder) Truncate() *QueryBuilder { return b.WriteText("TRUNCATE TABLE") }

// OpenParen writes an opening parenthesis.
func (b *QueryBuilder) OpenParen() *QueryBuilder { return b.WriteText("(") }

// CloseParen writes a closing parenthesis.
func (b *QueryBuilder) CloseParen() *QueryBuilder { return b.WriteText(")") }

// Comma writes a comma.
func (b *QueryBuilder) Comma() *QueryBuilder { return b.WriteText(",") }

// ParametersFrom writes the placeholders of the fields for the given batch
// row index.
func (b *QueryBuilder) ParametersFrom(fields []string, index int) *QueryBuilder {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = Placeholder(f, index)
	}
	return b.WriteText(strings.Join(parts, ", "))
}

// ParametersAsFieldsFrom writes "placeholder AS column" pairs.
func (b *QueryBuilder) ParametersAsFieldsFrom(fields []string, index int) *QueryBuilder {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = Placeholder(f, index) + " AS " + b.setting.Quote(f)
	}
	return b.WriteText(strings.Join(parts, ", "))
}

// FieldsAndParametersFrom writes "column = placeholder" pairs separated by
// sep. Placeholder names carry the given prefix.
func (b *QueryBuilder) FieldsAndParametersFrom(fields []string, index int, prefix, sep string) *QueryBuilder {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = b.setting.Quote(f) + " = " + Placeholder(prefix+dialect.ParamName(f), index)
	}
	return b.WriteText(strings.Join(parts, sep))
}

// FieldsAndAliasFieldsFrom writes "left.column = right.column" pairs
// separated by sep.
func (b *QueryBuilder) FieldsAndAliasFieldsFrom(fields []string, left, right, sep string) *QueryBuilder {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = b.column(f, left) + " = " + b.column(f, right)
	}
	return b.WriteText(strings.Join(parts, sep))
}

// End terminates the statement with a semicolon.
func (b *QueryBuilder) End() *QueryBuilder { return b.WriteText(";") }

// Err returns the first error raised while writing.
func (b *QueryBuilder) Err() error { return b.err }

// String returns the text written so far.
func (b *QueryBuilder) String() string { return b.sb.String() }

// Build returns the statement text or the first error raised while writing.
func (b *QueryBuilder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.sb.String(), nil
}

// Clear resets the builder for reuse.
func (b *QueryBuilder) Clear() *QueryBuilder {
	b.sb.Reset()
	b.err = nil
	return b
}

func (b *QueryBuilder) column(f, alias string) string {
	if alias == "" {
		return b.setting.Quote(f)
	}
	return alias + "." + b.setting.Quote(f)
}

func (b *QueryBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// ParamName returns the parameter name of a field for the given batch row
// index. Row 0 keeps the plain name, later rows are suffixed with _index.
func ParamName(field string, index int) string {
	name := dialect.ParamName(field)
	if index > 0 {
		name = fmt.Sprintf("%s_%d", name, index)
	}
	return name
}

// Placeholder returns the named placeholder of a field for the given batch
// row index.
func Placeholder(field string, index int) string {
	return ":" + ParamName(field, index)
}
