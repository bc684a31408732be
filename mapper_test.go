package liteorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inferSample struct {
	Id       int64
	Name     string
	Age      *int64
	Score    float64
	Ratio    *float64
	Active   bool
	Archived *bool
	Payload  []byte
	At       time.Time
}

func TestInferSchema(t *testing.T) {
	t.Parallel()

	table, err := InferSchema[inferSample]()
	require.NoError(t, err)
	require.Equal(t, "inferSample", table.Name)
	require.Len(t, table.Columns, 9)

	byName := make(map[string]*Column)
	for _, c := range table.Columns {
		byName[c.Name] = c
	}

	t.Run("integers", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ColumnInteger, byName["Id"].Type)
		assert.True(t, byName["Id"].NotNull)
		assert.Equal(t, ColumnInteger, byName["Age"].Type)
		assert.False(t, byName["Age"].NotNull)
	})

	t.Run("floats", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ColumnReal, byName["Score"].Type)
		assert.True(t, byName["Score"].NotNull)
		assert.False(t, byName["Ratio"].NotNull)
	})

	t.Run("booleans get a 0/1 check", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ColumnInteger, byName["Active"].Type)
		assert.Equal(t, "IN (0, 1)", byName["Active"].Check)
		assert.True(t, byName["Active"].NotNull)

		assert.Equal(t, "IN (0, 1, NULL)", byName["Archived"].Check)
		assert.False(t, byName["Archived"].NotNull)
	})

	t.Run("bytes and text", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ColumnBlob, byName["Payload"].Type)
		assert.Equal(t, ColumnText, byName["Name"].Type)
		assert.Equal(t, ColumnText, byName["At"].Type)
	})

	t.Run("id field becomes the primary key", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Id", table.PrimaryKey)
	})

	t.Run("repeated inference returns the cached table", func(t *testing.T) {
		t.Parallel()
		again, err := InferSchema[inferSample]()
		require.NoError(t, err)
		assert.Same(t, table, again)
	})
}

func TestInferSchemaTags(t *testing.T) {
	t.Parallel()

	t.Run("rename and ignore", func(t *testing.T) {
		t.Parallel()

		type tagged struct {
			Code    int64  `db:"code,pk"`
			Label   string `db:"display_name"`
			Scratch string `db:"-"`
			hidden  int64
		}
		_ = tagged{hidden: 0}

		table, err := InferSchema[tagged]()
		require.NoError(t, err)
		require.Len(t, table.Columns, 2)
		assert.Equal(t, "code", table.Columns[0].Name)
		assert.Equal(t, "display_name", table.Columns[1].Name)
		assert.Equal(t, "code", table.PrimaryKey)
	})

	t.Run("pk marker without rename", func(t *testing.T) {
		t.Parallel()

		type keyed struct {
			Serial int64 `db:",pk"`
			Note   string
		}
		table, err := InferSchema[keyed]()
		require.NoError(t, err)
		assert.Equal(t, "Serial", table.PrimaryKey)
	})

	t.Run("two pk markers is a composite key error", func(t *testing.T) {
		t.Parallel()

		type doubleKeyed struct {
			A int64 `db:",pk"`
			B int64 `db:",pk"`
		}
		_, err := InferSchema[doubleKeyed]()
		var ck *CompositeKeyError
		require.ErrorAs(t, err, &ck)
	})

	t.Run("ignored field cannot be the primary key", func(t *testing.T) {
		t.Parallel()

		type bad struct {
			Id int64 `db:"-,pk"`
		}
		_, err := InferSchema[bad]()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be ignored")
	})

	t.Run("non-struct type", func(t *testing.T) {
		t.Parallel()

		_, err := InferSchema[int]()
		require.Error(t, err)
	})
}

func TestInferSchemaNoKey(t *testing.T) {
	t.Parallel()

	type note struct {
		Body string
	}
	table, err := InferSchema[note]()
	require.NoError(t, err)
	assert.Empty(t, table.PrimaryKey)
}
