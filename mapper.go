package liteorm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// CompositeKeyError indicates a mapped type with more than one field marked
// as primary key. Raised once, when the type's accessor cache is first
// built.
type CompositeKeyError struct {
	Type string
}

func (e *CompositeKeyError) Error() string {
	return fmt.Sprintf("liteorm: type '%s' marks more than one primary key field (composite keys are not supported)", e.Type)
}

// fieldAccessor bundles everything the engine needs to read and write one
// mapped field: its column name, its declared type, and getter/setter
// closures bound to the field index.
type fieldAccessor struct {
	name  string // column name
	index int    // struct field index
	typ   reflect.Type
	get   func(rv reflect.Value) interface{}
	set   func(field reflect.Value, raw interface{}) error
}

// mapping is the per-type accessor cache plus the inferred table schema.
// Built exactly once per mapped type and retained for the process lifetime.
// 缓存按类型只构建一次，不会失效也不会淘汰
type mapping struct {
	typ    reflect.Type
	table  *Table
	fields []*fieldAccessor          // declaration order
	byName map[string]*fieldAccessor // lower-case column name -> accessor
	pk     *fieldAccessor            // nil when the table has no primary key
}

// mappings is the process-wide registry: reflect.Type -> *mapping.
// Entries are only published after being fully built, so concurrent first
// use of the same type is safe; racers converge on a single entry through
// LoadOrStore.
var mappings sync.Map

func mappingOf(t reflect.Type) (*mapping, error) {
	if v, ok := mappings.Load(t); ok {
		return v.(*mapping), nil
	}
	m, err := buildMapping(t)
	if err != nil {
		return nil, err
	}
	actual, _ := mappings.LoadOrStore(t, m)
	return actual.(*mapping), nil
}

// parseFieldTag parses a `db` struct tag.
// Supported forms: "-", "name", ",pk", "name,pk".
func parseFieldTag(tag string) (name string, pk bool, ignore bool, err error) {
	if tag == "" {
		return "", false, false, nil
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		ignore = true
	} else {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "pk" {
			pk = true
		}
	}
	if ignore && pk {
		return "", false, false, fmt.Errorf("a primary key field cannot be ignored")
	}
	return name, pk, ignore, nil
}

// buildMapping derives the accessor cache and the table schema for a type.
//
// Instances are constructed with reflect.New: Go zero-value allocation
// stands in for "allocate without running a constructor", so a mapped type
// never needs an explicit constructor. Fields a result row does not cover
// keep their zero values.
func buildMapping(t reflect.Type) (*mapping, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("liteorm: cannot map type %s: not a struct", t)
	}

	m := &mapping{
		typ:    t,
		byName: make(map[string]*fieldAccessor),
	}
	table := NewTable(t.Name())

	var explicitPK *fieldAccessor
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" || sf.Anonymous {
			continue
		}

		name, pk, ignore, err := parseFieldTag(sf.Tag.Get("db"))
		if err != nil {
			return nil, fmt.Errorf("liteorm: type '%s' field '%s': %v", t.Name(), sf.Name, err)
		}
		if ignore {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		acc := &fieldAccessor{
			name:  name,
			index: i,
			typ:   sf.Type,
			get:   makeGetter(i),
			set:   makeSetter(sf.Type),
		}
		m.fields = append(m.fields, acc)
		m.byName[strings.ToLower(name)] = acc
		table.AddColumn(inferColumn(name, sf.Type))

		if pk {
			if explicitPK != nil {
				return nil, &CompositeKeyError{Type: t.Name()}
			}
			explicitPK = acc
		}
	}

	// Resolve the primary key once, at inference time. It is stored on the
	// table, so a mapper's key is fixed from here on instead of being
	// re-derived per DDL call the way a hand-built Table's is.
	if explicitPK != nil {
		m.pk = explicitPK
		table.PrimaryKey = explicitPK.name
	} else if idx, _ := table.resolvePrimaryKey(); idx >= 0 {
		name := table.Columns[idx].Name
		m.pk = m.byName[strings.ToLower(name)]
		table.PrimaryKey = name
	}

	m.table = table
	return m, nil
}

func makeGetter(index int) func(rv reflect.Value) interface{} {
	return func(rv reflect.Value) interface{} {
		f := rv.Field(index)
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				return nil
			}
			f = f.Elem()
		}
		return f.Interface()
	}
}

var byteSliceType = reflect.TypeOf([]byte(nil))

// inferColumn applies the type-to-column rule. The rule is pure and
// deterministic: it depends only on the field's declared type, never on a
// value.
//
//	integer widths      -> INTEGER NOT NULL
//	floats              -> REAL NOT NULL
//	bool                -> INTEGER NOT NULL CHECK(col IN (0, 1))
//	*integer            -> INTEGER
//	*float              -> REAL
//	*bool               -> INTEGER CHECK(col IN (0, 1, NULL))
//	[]byte              -> BLOB
//	anything else       -> TEXT
func inferColumn(name string, t reflect.Type) *Column {
	c := NewColumn(name)

	nullable := false
	if t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		c.Type = ColumnInteger
		c.NotNull = !nullable
	case reflect.Float32, reflect.Float64:
		c.Type = ColumnReal
		c.NotNull = !nullable
	case reflect.Bool:
		c.Type = ColumnInteger
		c.NotNull = !nullable
		if nullable {
			c.Check = "IN (0, 1, NULL)"
		} else {
			c.Check = "IN (0, 1)"
		}
	default:
		if t == byteSliceType {
			c.Type = ColumnBlob
		} else {
			c.Type = ColumnText
		}
	}
	return c
}
