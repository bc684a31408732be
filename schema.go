package liteorm

import (
	"fmt"
	"strings"
)

// ColumnType represents one of the four SQLite storage classes a column
// can be declared with.
type ColumnType string

const (
	ColumnInteger ColumnType = "Integer"
	ColumnReal    ColumnType = "Real"
	ColumnText    ColumnType = "Text"
	ColumnBlob    ColumnType = "Blob"
)

// SchemaError indicates a table definition that is missing required input
// (blank name, no columns, or a primary key that names no column).
// Not retryable; the schema definition itself must be fixed.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("liteorm: invalid table definition: %s", e.Reason)
	}
	return fmt.Sprintf("liteorm: invalid table definition '%s': %s", e.Table, e.Reason)
}

// DuplicateColumnError indicates two columns whose names differ only by
// case. This is a schema design mistake rather than a missing input, so it
// gets its own error kind.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("liteorm: table '%s' defines column '%s' more than once (column names are case-insensitive)", e.Table, e.Column)
}

// Column describes a single table column. Name and Type are fixed at
// construction; the remaining fields may be set before DDL generation.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	Default string // literal inserted verbatim, caller quotes if needed
	Check   string // expression body, emitted as CHECK({Name} {Check})
}

// NewColumn creates a column. The type is optional and defaults to Text.
func NewColumn(name string, colType ...ColumnType) *Column {
	t := ColumnText
	if len(colType) > 0 {
		t = colType[0]
	}
	return &Column{Name: name, Type: t}
}

// Table describes a table: its name, its columns in declaration order, and
// an optional explicit primary key column name.
//
// A Table built by schema inference is cached per mapped type; tables built
// by hand belong to the caller. Tables are not supposed to be mutated after
// DDL generation — that is a caller responsibility, not something this
// package enforces.
type Table struct {
	Name       string
	Columns    []*Column
	PrimaryKey string // explicit primary key column (exact name); empty means auto-detect
}

// NewTable creates a table from columns in declaration order.
func NewTable(name string, columns ...*Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// AddColumn appends a column, keeping declaration order.
func (t *Table) AddColumn(c *Column) *Table {
	t.Columns = append(t.Columns, c)
	return t
}

// resolvePrimaryKey returns the index of the primary key column, or -1.
//
// If an explicit primary key is set it must match a column name exactly
// (case-sensitive); otherwise a column named Id, then {TableName}Id, is
// picked case-insensitively, first match in declaration order.
// 显式主键的匹配是精确的，自动识别才是大小写不敏感的
func (t *Table) resolvePrimaryKey() (int, error) {
	if t.PrimaryKey != "" {
		for i, c := range t.Columns {
			if c.Name == t.PrimaryKey {
				return i, nil
			}
		}
		return -1, &SchemaError{Table: t.Name, Reason: fmt.Sprintf("primary key '%s' does not name a column", t.PrimaryKey)}
	}

	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, "Id") {
			return i, nil
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, t.Name+"Id") {
			return i, nil
		}
	}
	return -1, nil
}

// CreateSQL renders the table into a CREATE TABLE statement. It performs no
// I/O and does not touch any store.
//
// Validation happens here, at generation time: a blank table name or an
// empty column list is a SchemaError, two columns whose names collide
// case-insensitively are a DuplicateColumnError, and an explicit primary
// key that names no column is a SchemaError.
func (t *Table) CreateSQL(ifNotExists bool) (*Statement, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, &SchemaError{Reason: "table name cannot be blank"}
	}
	if err := validateIdentifier(t.Name); err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, &SchemaError{Table: t.Name, Reason: "table has no columns"}
	}

	pkIndex, err := t.resolvePrimaryKey()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(t.Name)
	sb.WriteString("\n(\n")

	// 大小写不敏感的已见列名集合，用于重复列检测
	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		if err := validateIdentifier(c.Name); err != nil {
			return nil, err
		}
		lower := strings.ToLower(c.Name)
		if _, dup := seen[lower]; dup {
			return nil, &DuplicateColumnError{Table: t.Name, Column: c.Name}
		}
		seen[lower] = struct{}{}

		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString(c.Name)
		sb.WriteString(" ")
		sb.WriteString(strings.ToUpper(string(c.Type)))
		if i == pkIndex {
			sb.WriteString(" PRIMARY KEY")
		}
		if c.NotNull {
			sb.WriteString(" NOT NULL")
		}
		if c.Default != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(c.Default)
		}
		if c.Check != "" {
			sb.WriteString(fmt.Sprintf(" CHECK(%s %s)", c.Name, c.Check))
		}
	}
	sb.WriteString("\n)")

	return &Statement{SQL: sb.String()}, nil
}
