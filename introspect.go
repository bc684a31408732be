package liteorm

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// checkClauseRe recognizes the per-column CHECK clauses this package's own
// DDL generator emits, so a schema round-trips with its boolean columns
// intact. Hand-written checks in other shapes are not recovered.
var checkClauseRe = regexp.MustCompile(`CHECK\((\w+) (IN \([^)]+\))\)`)

// ReadSchema recovers the schema of every user table in the store, in the
// shape this package's own DDL generator produces. It is the inverse
// direction of CreateSQL: tables come back as *Table values that can be
// fed to GenerateModel or compared against inferred schemas.
//
// SQLite internal tables (sqlite_*) are skipped. A table with a composite
// primary key cannot be represented and is reported as a SchemaError.
func ReadSchema(ctx context.Context, s *Store) ([]*Table, error) {
	names, err := readTableNames(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("liteorm: failed to read schema: %w", err)
	}

	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		table, err := readTable(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// ReadTable recovers the schema of a single table.
func ReadTable(ctx context.Context, s *Store, name string) (*Table, error) {
	if err := ValidateTableName(name); err != nil {
		return nil, err
	}
	return readTable(ctx, s.db, name)
}

func readTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func readTable(ctx context.Context, db *sql.DB, name string) (*Table, error) {
	checks, err := readColumnChecks(ctx, db, name)
	if err != nil {
		return nil, fmt.Errorf("liteorm: failed to read schema of table '%s': %w", name, err)
	}

	// name 来自 sqlite_master 或已通过标识符校验，可以安全拼接
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name))
	if err != nil {
		return nil, fmt.Errorf("liteorm: failed to read schema of table '%s': %w", name, err)
	}
	defer rows.Close()

	table := NewTable(name)
	var pkColumns []string

	for rows.Next() {
		var cid int
		var colName, declType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &colName, &declType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("liteorm: failed to read schema of table '%s': %w", name, err)
		}

		c := NewColumn(colName, columnTypeOf(declType))
		c.NotNull = notNull != 0
		if defaultValue.Valid {
			c.Default = defaultValue.String
		}
		c.Check = checks[strings.ToLower(colName)]
		table.AddColumn(c)

		if pk > 0 {
			pkColumns = append(pkColumns, colName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("liteorm: failed to read schema of table '%s': %w", name, err)
	}

	if len(table.Columns) == 0 {
		return nil, &SchemaError{Table: name, Reason: "table does not exist"}
	}
	if len(pkColumns) > 1 {
		return nil, &SchemaError{Table: name, Reason: "composite primary keys are not supported"}
	}
	if len(pkColumns) == 1 {
		table.PrimaryKey = pkColumns[0]
	}
	return table, nil
}

// readColumnChecks parses this package's CHECK clauses back out of the
// table's stored CREATE TABLE text. PRAGMA table_info does not report
// check constraints, so without this a boolean column would read back as
// a plain integer.
func readColumnChecks(ctx context.Context, db *sql.DB, name string) (map[string]string, error) {
	var createSQL sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&createSQL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !createSQL.Valid {
		return nil, nil
	}

	checks := make(map[string]string)
	for _, m := range checkClauseRe.FindAllStringSubmatch(createSQL.String, -1) {
		checks[strings.ToLower(m[1])] = m[2]
	}
	return checks, nil
}

// columnTypeOf maps a declared SQL type back to a storage class following
// SQLite's own affinity rules: INT anywhere means integer, then
// CHAR/CLOB/TEXT, then BLOB, then REAL/FLOA/DOUB.
func columnTypeOf(declType string) ColumnType {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "INT"):
		return ColumnInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return ColumnText
	case strings.Contains(t, "BLOB"), t == "":
		return ColumnBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return ColumnReal
	default:
		return ColumnText
	}
}
