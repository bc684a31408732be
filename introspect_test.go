package liteorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSchema(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	type product struct {
		Id    int64
		Title string
		Price *float64
		Sold  bool
	}
	require.NoError(t, CreateTable[product](store))

	t.Run("recovers the inferred shape", func(t *testing.T) {
		tables, err := ReadSchema(ctx, store)
		require.NoError(t, err)
		require.Len(t, tables, 1)

		table := tables[0]
		assert.Equal(t, "product", table.Name)
		assert.Equal(t, "Id", table.PrimaryKey)
		require.Len(t, table.Columns, 4)

		byName := make(map[string]*Column)
		for _, c := range table.Columns {
			byName[c.Name] = c
		}
		assert.Equal(t, ColumnInteger, byName["Id"].Type)
		assert.Equal(t, ColumnText, byName["Title"].Type)
		assert.False(t, byName["Title"].NotNull, "text columns stay nullable")
		assert.Equal(t, ColumnReal, byName["Price"].Type)
		assert.False(t, byName["Price"].NotNull)
		assert.Equal(t, ColumnInteger, byName["Sold"].Type)
	})

	t.Run("recovered schema regenerates valid DDL", func(t *testing.T) {
		table, err := ReadTable(ctx, store, "product")
		require.NoError(t, err)

		stmt, err := table.CreateSQL(false)
		require.NoError(t, err)
		assert.Contains(t, stmt.SQL, "CREATE TABLE product")
		assert.Contains(t, stmt.SQL, "Id INTEGER PRIMARY KEY")
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := ReadTable(ctx, store, "nope")
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
	})

	t.Run("invalid table name", func(t *testing.T) {
		_, err := ReadTable(ctx, store, "x; DROP TABLE product")
		var idErr *ErrInvalidIdentifier
		require.ErrorAs(t, err, &idErr)
	})
}

func TestReadSchemaCompositeKey(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, err := store.Execute(&Statement{
		SQL: "CREATE TABLE pair\n(\nA INTEGER,\nB INTEGER,\nPRIMARY KEY (A, B)\n)",
	})
	require.NoError(t, err)

	_, err = ReadSchema(context.Background(), store)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "composite")
}

func TestColumnTypeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ColumnInteger, columnTypeOf("INTEGER"))
	assert.Equal(t, ColumnInteger, columnTypeOf("bigint"))
	assert.Equal(t, ColumnText, columnTypeOf("VARCHAR(30)"))
	assert.Equal(t, ColumnText, columnTypeOf("TEXT"))
	assert.Equal(t, ColumnReal, columnTypeOf("DOUBLE PRECISION"))
	assert.Equal(t, ColumnBlob, columnTypeOf("BLOB"))
	assert.Equal(t, ColumnBlob, columnTypeOf(""))
	assert.Equal(t, ColumnText, columnTypeOf("DATETIME"))
}
