package mapping

import (
	"reflect"
	"sync"

	"golang.org/x/text/cases"
)

// Tabler is implemented by entities that name their own table.
type Tabler interface {
	TableName() string
}

var registry = struct {
	sync.RWMutex
	tables     map[reflect.Type]string
	primaries  map[reflect.Type]string
	identities map[reflect.Type]string
}{
	tables:     make(map[reflect.Type]string),
	primaries:  make(map[reflect.Type]string),
	identities: make(map[reflect.Type]string),
}

// MapTable maps the entity type T onto the given table.
func MapTable[T any](table string) {
	registry.Lock()
	defer registry.Unlock()
	registry.tables[typeOf[T]()] = table
}

// MapPrimary marks the given property of T as its primary key. The name is
// either the column or the Go field name.
func MapPrimary[T any](name string) {
	registry.Lock()
	defer registry.Unlock()
	registry.primaries[typeOf[T]()] = name
}

// MapIdentity marks the given property of T as its identity.
func MapIdentity[T any](name string) {
	registry.Lock()
	defer registry.Unlock()
	registry.identities[typeOf[T]()] = name
}

// Unmap removes every mapping registered for T.
func Unmap[T any]() {
	t := typeOf[T]()
	registry.Lock()
	defer registry.Unlock()
	delete(registry.tables, t)
	delete(registry.primaries, t)
	delete(registry.identities, t)
}

// TableName returns the table of the entity type T.
func TableName[T any]() string {
	return TableNameOf(typeOf[T]())
}

// TableNameOf resolves the table of an entity type: a mapped name first,
// then the Tabler implementation, then the type name.
func TableNameOf(t reflect.Type) string {
	t = indirect(t)
	registry.RLock()
	name, ok := registry.tables[t]
	registry.RUnlock()
	if ok {
		return name
	}
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	if tb, ok := reflect.Zero(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	return t.Name()
}

// PrimaryOf resolves the primary property of an entity type: a mapped or
// tagged property, then a property named Id, then one named <Type>Id.
// It returns nil when none matches; the caller falls back to the primary
// key of the table.
func PrimaryOf(t reflect.Type) *Property {
	t = indirect(t)
	props := PropertiesOf(t)
	registry.RLock()
	name, ok := registry.primaries[t]
	registry.RUnlock()
	if ok {
		return props.Find(name)
	}
	for _, p := range props {
		if p.Primary {
			return p
		}
	}
	if p := props.Find("Id"); p != nil {
		return p
	}
	return props.Find(t.Name() + "Id")
}

// IdentityOf resolves the identity property of an entity type from the
// mappings and tags. It returns nil when none is declared.
func IdentityOf(t reflect.Type) *Property {
	t = indirect(t)
	props := PropertiesOf(t)
	registry.RLock()
	name, ok := registry.identities[t]
	registry.RUnlock()
	if ok {
		return props.Find(name)
	}
	for _, p := range props {
		if p.Identity {
			return p
		}
	}
	return nil
}

func typeOf[T any]() reflect.Type {
	return indirect(reflect.TypeOf((*T)(nil)).Elem())
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// fold returns the key used for case-insensitive name lookups.
func fold(s string) string {
	return cases.Fold().String(s)
}
