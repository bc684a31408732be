package liteorm

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stmtSample struct {
	Id     int64
	Name   string
	Active bool
	Flag   *bool
}

func stmtMapping(t *testing.T) *mapping {
	t.Helper()
	m, err := mappingOf(reflect.TypeOf(stmtSample{}))
	require.NoError(t, err)
	return m
}

func namedArgs(t *testing.T, args []interface{}) map[string]interface{} {
	t.Helper()
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		named, ok := a.(sql.NamedArg)
		require.True(t, ok, "expected sql.NamedArg, got %T", a)
		out[named.Name] = named.Value
	}
	return out
}

func TestInsertStatement(t *testing.T) {
	t.Parallel()
	m := stmtMapping(t)

	flag := true
	v := stmtSample{Id: 7, Name: "pad", Active: false, Flag: &flag}
	stmt := m.insertStatement(reflect.ValueOf(v))

	assert.Equal(t,
		"INSERT INTO stmtSample (Id, Name, Active, Flag) VALUES (@Id, @Name, @Active, @Flag)",
		stmt.SQL)

	args := namedArgs(t, stmt.Args)
	assert.Equal(t, int64(7), args["Id"])
	assert.Equal(t, "pad", args["Name"])
	assert.Equal(t, int64(0), args["Active"], "false binds as 0")
	assert.Equal(t, int64(1), args["Flag"], "*bool dereferences before the boolean rule")
}

func TestInsertStatementNilPointer(t *testing.T) {
	t.Parallel()
	m := stmtMapping(t)

	stmt := m.insertStatement(reflect.ValueOf(stmtSample{Id: 1}))
	args := namedArgs(t, stmt.Args)
	assert.Nil(t, args["Flag"], "nil pointer binds as NULL")
}

func TestUpdateStatement(t *testing.T) {
	t.Parallel()
	m := stmtMapping(t)

	v := stmtSample{Id: 7, Name: "pad", Active: true}
	stmt, err := m.updateStatement(reflect.ValueOf(v))
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE stmtSample SET Id = @Id, Name = @Name, Active = @Active, Flag = @Flag WHERE Id = @value",
		stmt.SQL)

	args := namedArgs(t, stmt.Args)
	assert.Equal(t, int64(1), args["Active"])
	assert.Equal(t, int64(7), args["value"])
}

func TestUpdateStatementNoPrimaryKey(t *testing.T) {
	t.Parallel()

	type keyless struct {
		Body string
	}
	m, err := mappingOf(reflect.TypeOf(keyless{}))
	require.NoError(t, err)

	_, err = m.updateStatement(reflect.ValueOf(keyless{Body: "x"}))
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestDeleteStatement(t *testing.T) {
	t.Parallel()

	t.Run("by primary key", func(t *testing.T) {
		t.Parallel()
		m := stmtMapping(t)

		stmt := m.deleteStatement(reflect.ValueOf(stmtSample{Id: 9}))
		assert.Equal(t, "DELETE FROM stmtSample WHERE Id = @value", stmt.SQL)
		args := namedArgs(t, stmt.Args)
		assert.Equal(t, int64(9), args["value"])
	})

	t.Run("all-columns fallback without a key", func(t *testing.T) {
		t.Parallel()

		type keyless struct {
			Body string
			Done bool
		}
		m, err := mappingOf(reflect.TypeOf(keyless{}))
		require.NoError(t, err)

		stmt := m.deleteStatement(reflect.ValueOf(keyless{Body: "x", Done: true}))
		assert.Equal(t, "DELETE FROM keyless WHERE Body = @Body AND Done = @Done", stmt.SQL)
		args := namedArgs(t, stmt.Args)
		assert.Equal(t, int64(1), args["Done"])
	})
}

func TestSelectStatements(t *testing.T) {
	t.Parallel()
	m := stmtMapping(t)

	t.Run("select all", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "SELECT * FROM stmtSample", m.selectAllStatement().SQL)
	})

	t.Run("select by id interpolates the literal", func(t *testing.T) {
		t.Parallel()
		stmt, err := m.selectByIDStatement(int64(42))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM stmtSample WHERE Id = 42", stmt.SQL)
		assert.Empty(t, stmt.Args)
	})

	t.Run("narrower integer ids are accepted", func(t *testing.T) {
		t.Parallel()
		_, err := m.selectByIDStatement(int32(42))
		assert.NoError(t, err)
	})

	t.Run("mismatched id type is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := m.selectByIDStatement("42")
		var idErr *InvalidIDTypeError
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, "stmtSample", idErr.Table)
	})

	t.Run("nil id is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := m.selectByIDStatement(nil)
		var idErr *InvalidIDTypeError
		assert.ErrorAs(t, err, &idErr)
	})

	t.Run("keyless table", func(t *testing.T) {
		t.Parallel()

		type keyless struct {
			Body string
		}
		km, err := mappingOf(reflect.TypeOf(keyless{}))
		require.NoError(t, err)
		_, err = km.selectByIDStatement(int64(1))
		assert.True(t, errors.Is(err, ErrNoPrimaryKey))
	})
}

func TestFormatLiteral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NULL", formatLiteral(nil))
	assert.Equal(t, "'it''s'", formatLiteral("it's"))
	assert.Equal(t, "x'00ff'", formatLiteral([]byte{0x00, 0xff}))
	assert.Equal(t, "42", formatLiteral(int64(42)))
}

func TestBindValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1), bindValue(true))
	assert.Equal(t, int64(0), bindValue(false))
	assert.Nil(t, bindValue(nil))
	assert.Equal(t, "s", bindValue("s"))
}
