package repodb

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/schema"
)

// binding maps the properties of an entity type, or the keys of records,
// onto the columns of a table.
type binding struct {
	table  string
	fields schema.Fields
	// columns are the column names written by the operation.
	columns []string
	// matched are every column matching a property or a record key.
	matched  []string
	primary  string
	identity string

	typ   reflect.Type
	props map[string]*mapping.Property
	// primaryProp and identityProp are set for entity types.
	primaryProp  *mapping.Property
	identityProp *mapping.Property
}

// bindType binds the entity type t to its table.
func bindType(ctx context.Context, s Session, t reflect.Type) (*binding, error) {
	table := mapping.TableNameOf(t)
	fields, err := s.DB().tableFields(ctx, s.querier(), table)
	if err != nil {
		return nil, err
	}
	b := &binding{table: table, fields: fields, typ: t, props: make(map[string]*mapping.Property)}
	props := mapping.PropertiesOf(t)
	for _, p := range props {
		f := fields.Find(p.Name)
		if f == nil {
			f = fields.Find(p.FieldName)
		}
		if f == nil || b.props[f.Name] != nil {
			continue
		}
		b.props[f.Name] = p
		b.matched = append(b.matched, f.Name)
	}
	if p := mapping.PrimaryOf(t); p != nil {
		b.primary, b.primaryProp = b.columnOf(p), p
	} else if f := fields.Primary(); f != nil {
		b.primary, b.primaryProp = f.Name, b.props[f.Name]
	}
	if p := mapping.IdentityOf(t); p != nil {
		b.identity, b.identityProp = b.columnOf(p), p
	} else if f := fields.Identity(); f != nil {
		b.identity, b.identityProp = f.Name, b.props[f.Name]
	}
	return b, nil
}

// columnOf returns the column of a property, or its name when the table
// has no such column.
func (b *binding) columnOf(p *mapping.Property) string {
	for name, bp := range b.props {
		if bp == p {
			return name
		}
	}
	return p.Name
}

// bindRecords binds records to a table. The columns are the keys of the
// first record that match a column.
func bindRecords(ctx context.Context, s Session, table string, records []Record) (*binding, error) {
	fields, err := s.DB().tableFields(ctx, s.querier(), table)
	if err != nil {
		return nil, err
	}
	b := &binding{table: table, fields: fields}
	if len(records) > 0 {
		keys := make([]string, 0, len(records[0]))
		for k := range records[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		seen := make(map[string]bool)
		for _, k := range keys {
			if f := fields.Find(k); f != nil && !seen[f.Name] {
				seen[f.Name] = true
				b.matched = append(b.matched, f.Name)
			}
		}
	}
	if f := fields.Primary(); f != nil {
		b.primary = f.Name
	}
	if f := fields.Identity(); f != nil {
		b.identity = f.Name
	}
	return b, nil
}

// restrict sets the columns written by the operation, applying
// WithFields. It fails when nothing is left to write.
func (b *binding) restrict(o *options) error {
	b.columns = b.matched
	if len(o.fields) > 0 {
		b.columns = nil
		for _, c := range b.matched {
			if containsFold(o.fields, c) {
				b.columns = append(b.columns, c)
			}
		}
	}
	if len(b.columns) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, b.table)
	}
	return nil
}

// qualifiers resolves the names given with WithQualifiers to columns.
func (b *binding) qualifiers(o *options) ([]string, error) {
	out := make([]string, 0, len(o.qualifiers))
	for _, q := range o.qualifiers {
		f := b.fields.Find(q)
		if f == nil {
			return nil, NewValidationError("qualifier", fmt.Errorf("%s is not a column of %s", q, b.table))
		}
		out = append(out, f.Name)
	}
	return out, nil
}

// entityRow extracts the matched columns of an entity.
func (b *binding) entityRow(v reflect.Value) Record {
	v = reflect.Indirect(v)
	row := make(Record, len(b.matched)+1)
	for _, c := range b.matched {
		row[c] = b.props[c].Value(v)
	}
	if b.primaryProp != nil {
		if _, ok := row[b.primary]; !ok {
			row[b.primary] = b.primaryProp.Value(v)
		}
	}
	return row
}

// recordRow rekeys a record by column name.
func (b *binding) recordRow(rec Record) Record {
	row := make(Record, len(rec))
	for k, v := range rec {
		if f := b.fields.Find(k); f != nil {
			row[f.Name] = v
		}
	}
	return row
}

// setIdentity writes an identity value back into an entity.
func (b *binding) setIdentity(v reflect.Value, id any) error {
	if b.identityProp == nil || id == nil {
		return nil
	}
	return b.identityProp.Set(v, id)
}

// where converts the where argument of an operation into a group. Query
// expressions and maps are parsed; entities and other values are compared
// with the primary key.
func (b *binding) where(w any) (*query.QueryGroup, error) {
	switch w.(type) {
	case nil, *query.QueryGroup, query.QueryGroup, *query.QueryField, query.QueryField,
		[]*query.QueryField, []query.Expr, map[string]any:
		return query.Parse(w)
	}
	v := reflect.ValueOf(w)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	if b.primary == "" {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyNotFound, b.table)
	}
	key, err := b.keyOf(w)
	if err != nil {
		return nil, err
	}
	return query.And(query.Eq(b.primary, key)), nil
}

// keyOf returns the primary key value of an entity, or k itself when it is
// not an entity.
func (b *binding) keyOf(k any) (any, error) {
	if k == nil {
		return nil, nil
	}
	v := reflect.ValueOf(k)
	if !mapping.IsEntity(v.Type()) {
		return k, nil
	}
	p := b.primaryProp
	if t := indirectType(v.Type()); t != b.typ {
		p = mapping.PrimaryOf(t)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyNotFound, b.table)
	}
	return p.Value(v), nil
}

// keyWhere filters the given row on the primary key.
func (b *binding) keyWhere(row Record) (*query.QueryGroup, error) {
	key, ok := row[b.primary]
	if b.primary == "" || !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyNotFound, b.table)
	}
	return query.And(query.Eq(b.primary, key)), nil
}

// selectFields returns the columns read by queries: the WithFields
// selection, the mapped properties, or every column.
func (b *binding) selectFields(o *options) []string {
	if len(o.fields) > 0 {
		var out []string
		for _, name := range o.fields {
			if f := b.fields.Find(name); f != nil {
				out = append(out, f.Name)
			}
		}
		return out
	}
	if b.typ != nil && mapping.IsEntity(b.typ) {
		return b.matched
	}
	return b.fields.Names()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
