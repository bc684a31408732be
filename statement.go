package liteorm

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
)

// Error definitions for statement synthesis
var (
	// ErrNoPrimaryKey is returned when an operation that needs a primary key
	// (update, select by id, delete by id) runs against a keyless table.
	ErrNoPrimaryKey = fmt.Errorf("liteorm: table has no primary key")

	// ErrNotFound is returned by SelectByID when no row matches the id.
	ErrNotFound = fmt.Errorf("liteorm: no row matches the given id")

	// ErrMultipleRows is returned by SelectByID when more than one row
	// matches the id.
	ErrMultipleRows = fmt.Errorf("liteorm: more than one row matches the given id")
)

// InvalidIDTypeError indicates that the id supplied to SelectByID is not
// compatible with the mapped primary key field's type.
type InvalidIDTypeError struct {
	Table    string
	Expected reflect.Type
	Supplied reflect.Type
}

func (e *InvalidIDTypeError) Error() string {
	supplied := "nil"
	if e.Supplied != nil {
		supplied = e.Supplied.String()
	}
	return fmt.Sprintf("liteorm: invalid id for table '%s': expected %s, got %s", e.Table, e.Expected, supplied)
}

// Statement is a single-use SQL statement with its bound parameters.
// Statements are ephemeral values: every CRUD call builds a fresh one, so
// they carry no shared state between concurrent calls.
type Statement struct {
	SQL  string
	Args []interface{}
}

// String returns the statement text.
func (s *Statement) String() string {
	return s.SQL
}

// bindValue applies the parameter binding rule to a single field value.
//
// Booleans always bind as integers (true→1, false→0) regardless of the
// declared column type; nil pointers bind as NULL; everything else binds
// with its natural representation.
// 指针字段先解引用再应用布尔规则，所以 *bool 也会被绑定成 0/1/NULL
func bindValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// insertStatement builds INSERT INTO {table} (cols...) VALUES (@col...),
// one named parameter per column sourced from the instance.
func (m *mapping) insertStatement(rv reflect.Value) *Statement {
	names := make([]string, len(m.fields))
	params := make([]string, len(m.fields))
	args := make([]interface{}, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.name
		params[i] = "@" + f.name
		args[i] = sql.Named(f.name, bindValue(f.get(rv)))
	}

	return &Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			m.table.Name, strings.Join(names, ", "), strings.Join(params, ", ")),
		Args: args,
	}
}

// updateStatement builds a full-row replace:
// UPDATE {table} SET col = @col, ... WHERE {pk} = @value.
// All columns are re-set, including the primary key column.
func (m *mapping) updateStatement(rv reflect.Value) (*Statement, error) {
	if m.pk == nil {
		return nil, fmt.Errorf("liteorm: table '%s': %w", m.table.Name, ErrNoPrimaryKey)
	}

	sets := make([]string, len(m.fields))
	args := make([]interface{}, 0, len(m.fields)+1)
	for i, f := range m.fields {
		sets[i] = fmt.Sprintf("%s = @%s", f.name, f.name)
		args = append(args, sql.Named(f.name, bindValue(f.get(rv))))
	}
	args = append(args, sql.Named("value", bindValue(m.pk.get(rv))))

	return &Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = @value",
			m.table.Name, strings.Join(sets, ", "), m.pk.name),
		Args: args,
	}, nil
}

// deleteStatement builds DELETE FROM {table} WHERE {pk} = @value when a
// primary key exists.
//
// Without a primary key it falls back to an all-columns equality match.
// That fallback can delete more than one row when duplicate rows exist;
// this is the documented behavior, not something the engine second-guesses.
func (m *mapping) deleteStatement(rv reflect.Value) *Statement {
	if m.pk != nil {
		return &Statement{
			SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s = @value", m.table.Name, m.pk.name),
			Args: []interface{}{sql.Named("value", bindValue(m.pk.get(rv)))},
		}
	}

	conds := make([]string, len(m.fields))
	args := make([]interface{}, len(m.fields))
	for i, f := range m.fields {
		conds[i] = fmt.Sprintf("%s = @%s", f.name, f.name)
		args[i] = sql.Named(f.name, bindValue(f.get(rv)))
	}
	return &Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", m.table.Name, strings.Join(conds, " AND ")),
		Args: args,
	}
}

// selectAllStatement builds SELECT * FROM {table}.
func (m *mapping) selectAllStatement() *Statement {
	return &Statement{SQL: fmt.Sprintf("SELECT * FROM %s", m.table.Name)}
}

// selectByIDStatement builds SELECT * FROM {table} WHERE {pk} = {id}.
//
// The id literal is interpolated directly. That is acceptable only because
// the id's type has been validated against the mapped key field first —
// untyped caller text never reaches this point.
func (m *mapping) selectByIDStatement(id interface{}) (*Statement, error) {
	if m.pk == nil {
		return nil, fmt.Errorf("liteorm: table '%s': %w", m.table.Name, ErrNoPrimaryKey)
	}
	if err := m.checkIDType(id); err != nil {
		return nil, err
	}

	return &Statement{
		SQL: fmt.Sprintf("SELECT * FROM %s WHERE %s = %s",
			m.table.Name, m.pk.name, formatLiteral(bindValue(id))),
	}, nil
}

// checkIDType verifies the supplied id against the mapped primary key
// field's type. Exact or assignable types pass, as do values within the
// same numeric kind family (an int64 id for an int key).
func (m *mapping) checkIDType(id interface{}) error {
	if id == nil {
		return &InvalidIDTypeError{Table: m.table.Name, Expected: m.pk.typ}
	}
	idType := reflect.TypeOf(id)
	if idType == m.pk.typ || idType.AssignableTo(m.pk.typ) {
		return nil
	}
	if sameKindFamily(idType.Kind(), m.pk.typ.Kind()) {
		return nil
	}
	return &InvalidIDTypeError{Table: m.table.Name, Expected: m.pk.typ, Supplied: idType}
}

func sameKindFamily(a, b reflect.Kind) bool {
	return kindFamily(a) != 0 && kindFamily(a) == kindFamily(b)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return 1
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return 2
	case reflect.Float32, reflect.Float64:
		return 3
	default:
		return 0
	}
}

// formatLiteral renders a validated value as a SQL literal.
func formatLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case []byte:
		return "x'" + hex.EncodeToString(val) + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}
