package gen

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/schema"
)

// Table is a table to generate an entity for.
type Table struct {
	Name   string
	Fields schema.Fields
}

var bytesType = reflect.TypeOf([]byte(nil))

// StructName returns the entity name of a table: the singular, camel cased
// table name without its schema.
func StructName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	name := dialect.ParamName(table)
	return exported(inflect.Camelize(inflect.Singularize(name)))
}

// FieldName returns the Go field name of a column.
func FieldName(column string) string {
	name := exported(inflect.Camelize(dialect.ParamName(column)))
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

// FileName returns the file name of the entity of a table.
func FileName(table string) string {
	return inflect.Underscore(StructName(table)) + ".go"
}

// exported makes name a valid exported identifier.
func exported(name string) string {
	name = strings.ReplaceAll(name, "_", "")
	if name == "" {
		return "X"
	}
	r := []rune(name)
	if !unicode.IsLetter(r[0]) {
		return "X" + name
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// goType returns the Jennifer code of the Go type holding a column.
// Nullable columns are pointers, except for slices and interfaces.
func goType(dialectName string, f *schema.Field) jen.Code {
	t := f.GoType(dialectName)
	var base *jen.Statement
	switch {
	case t == bytesType:
		return jen.Index().Byte()
	case t.Kind() == reflect.Interface:
		return jen.Any()
	case t.PkgPath() != "":
		base = jen.Qual(t.PkgPath(), t.Name())
	default:
		base = jen.Id(t.String())
	}
	if f.IsNullable && !f.IsPrimary {
		return jen.Op("*").Add(base)
	}
	return base
}

// tag returns the db tag of a column.
func tag(f *schema.Field) string {
	parts := []string{f.Name}
	if f.IsPrimary {
		parts = append(parts, "primary")
	}
	if f.IsIdentity {
		parts = append(parts, "identity")
	}
	return strings.Join(parts, ",")
}

// File builds the Jennifer file of a table.
func File(c *Config, t Table) (*jen.File, error) {
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("table %s has no fields", t.Name)
	}
	name := StructName(t.Name)
	f := jen.NewFile(c.Package)
	if c.Header != "" {
		f.HeaderComment(c.Header)
	}
	seen := make(map[string]bool, len(t.Fields))
	fields := make([]jen.Code, 0, len(t.Fields))
	for _, fd := range t.Fields {
		id := FieldName(fd.Name)
		for seen[id] {
			id += "_"
		}
		seen[id] = true
		fields = append(fields, jen.Id(id).Add(goType(c.Dialect, fd)).Tag(map[string]string{"db": tag(fd)}))
	}
	f.Commentf("%s maps the %s table.", name, t.Name)
	f.Type().Id(name).Struct(fields...)
	f.Line()
	f.Comment("TableName returns the table of " + name + ".")
	f.Func().Params(jen.Id(name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(t.Name)),
	)
	return f, nil
}

// Render returns the formatted source of the entity of a table.
func Render(c *Config, t Table) ([]byte, error) {
	f, err := File(c, t)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
