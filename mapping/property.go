package mapping

import (
	"reflect"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx/reflectx"
)

// Property is a mapped field of an entity.
type Property struct {
	// Name is the column name: the first part of the db tag, or the Go
	// field name.
	Name string
	// FieldName is the Go field name.
	FieldName string
	Index     []int
	Type      reflect.Type
	Primary   bool
	Identity  bool
}

// Value returns the value of the property in the struct v. Nil embedded
// pointers yield nil.
func (p *Property) Value(v reflect.Value) any {
	v = reflect.Indirect(v)
	for _, i := range p.Index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return v.Interface()
}

// Set assigns src to the property of the struct v, converting it when
// needed. Nil embedded pointers are allocated.
func (p *Property) Set(v reflect.Value, src any) error {
	return Assign(reflectx.FieldByIndexes(reflect.Indirect(v), p.Index), src)
}

// Properties is the ordered list of the properties of an entity.
type Properties []*Property

// Names returns the column names of the properties.
func (ps Properties) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Find returns the property whose column or field name matches name,
// compared case-insensitively.
func (ps Properties) Find(name string) *Property {
	key := fold(name)
	for _, p := range ps {
		if fold(p.Name) == key {
			return p
		}
	}
	for _, p := range ps {
		if fold(p.FieldName) == key {
			return p
		}
	}
	return nil
}

var (
	mapper     = reflectx.NewMapperFunc("db", func(s string) string { return s })
	properties sync.Map // reflect.Type -> Properties
)

// PropertiesOf returns the properties of a struct type. Fields of embedded
// structs are flattened; fields of nested named structs are not mapped.
// Fields tagged db:"-" and unexported fields are ignored.
func PropertiesOf(t reflect.Type) Properties {
	t = indirect(t)
	if v, ok := properties.Load(t); ok {
		return v.(Properties)
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	sm := mapper.TypeMap(t)
	var props Properties
	seen := make(map[string]bool)
	for _, fi := range sm.Index {
		if fi.Embedded || !topLevel(sm, fi) {
			continue
		}
		name, opts := parseTag(fi)
		if name == "-" || seen[fold(name)] {
			continue
		}
		seen[fold(name)] = true
		props = append(props, &Property{
			Name:      name,
			FieldName: fi.Field.Name,
			Index:     fi.Index,
			Type:      fi.Field.Type,
			Primary:   opts["primary"],
			Identity:  opts["identity"],
		})
	}
	v, _ := properties.LoadOrStore(t, props)
	return v.(Properties)
}

// topLevel reports whether the field belongs to the struct itself or to
// one of its embedded structs.
func topLevel(sm *reflectx.StructMap, fi *reflectx.FieldInfo) bool {
	for p := fi.Parent; p != nil && p != sm.Tree; p = p.Parent {
		if !p.Embedded {
			return false
		}
	}
	return true
}

// parseTag returns the column name and the options of a db tag such as
// db:"Id,primary,identity".
func parseTag(fi *reflectx.FieldInfo) (string, map[string]bool) {
	parts := strings.Split(fi.Field.Tag.Get("db"), ",")
	opts := make(map[string]bool, len(parts)-1)
	for _, o := range parts[1:] {
		opts[strings.ToLower(strings.TrimSpace(o))] = true
	}
	if name := strings.TrimSpace(parts[0]); name != "" {
		return name, opts
	}
	return fi.Field.Name, opts
}
