package liteorm

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Id      int64
	Owner   string
	Balance float64
	Active  bool
	Note    *string
	Avatar  []byte
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	note := "premium"
	in := account{
		Id:      1,
		Owner:   "ada",
		Balance: 12.5,
		Active:  true,
		Note:    &note,
		Avatar:  []byte{0x1, 0x2},
	}
	require.NoError(t, mp.Insert(store, &in))

	out, err := mp.SelectByID(store, int64(1))
	require.NoError(t, err)
	assert.Equal(t, in.Owner, out.Owner)
	assert.Equal(t, in.Balance, out.Balance)
	assert.True(t, out.Active)
	require.NotNil(t, out.Note)
	assert.Equal(t, "premium", *out.Note)
	assert.Equal(t, []byte{0x1, 0x2}, out.Avatar)
}

func TestStoreBooleanRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	// false 存成 0，读回必须还是 false 而不是 0
	require.NoError(t, mp.Insert(store, &account{Id: 2, Owner: "bob", Active: false}))

	out, err := mp.SelectByID(store, int64(2))
	require.NoError(t, err)
	assert.False(t, out.Active)
	assert.Nil(t, out.Note, "NULL comes back as a nil pointer")

	count, err := store.ExecuteScalar(&Statement{SQL: "SELECT COUNT(*) FROM account WHERE Active = 0"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "booleans are stored as integers")
}

func TestStoreUpdateDelete(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	acc := account{Id: 3, Owner: "eve", Balance: 1}
	require.NoError(t, mp.Insert(store, &acc))

	acc.Balance = 99.5
	affected, err := mp.Update(store, &acc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	out, err := mp.SelectByID(store, int64(3))
	require.NoError(t, err)
	assert.Equal(t, 99.5, out.Balance)

	affected, err = mp.Delete(store, &acc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = mp.SelectByID(store, int64(3))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpdateMissingRow(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	affected, err := mp.Update(store, &account{Id: 404, Owner: "ghost"})
	require.NoError(t, err)
	assert.Zero(t, affected, "updating a missing row affects nothing and is not an error")
}

func TestSelectAll(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, mp.Insert(store, &account{Id: i, Owner: "o"}))
	}

	t.Run("yields every row", func(t *testing.T) {
		var ids []int64
		for acc, err := range mp.SelectAll(store) {
			require.NoError(t, err)
			ids = append(ids, acc.Id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		assert.Equal(t, []int64{1, 2, 3}, ids)
	})

	t.Run("early break closes the cursor", func(t *testing.T) {
		seen := 0
		for _, err := range mp.SelectAll(store) {
			require.NoError(t, err)
			seen++
			break
		}
		assert.Equal(t, 1, seen)

		// 游标已关闭，库上还能继续写
		require.NoError(t, mp.Insert(store, &account{Id: 4, Owner: "o"}))
	})
}

func TestSelectByIDMultipleRows(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	// 手工建表，不带主键约束，制造重复键的场景
	_, err := store.Execute(&Statement{SQL: "CREATE TABLE ticket\n(\nCode INTEGER,\nLabel TEXT\n)"})
	require.NoError(t, err)
	_, err = store.Execute(&Statement{SQL: "INSERT INTO ticket (Code, Label) VALUES (7, 'a'), (7, 'b')"})
	require.NoError(t, err)

	type ticket struct {
		Code  int64 `db:",pk"`
		Label string
	}
	mp, err := MapperFor[ticket]()
	require.NoError(t, err)

	_, err = mp.SelectByID(store, int64(7))
	assert.ErrorIs(t, err, ErrMultipleRows)
}

func TestTransactions(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	t.Run("rollback discards the insert", func(t *testing.T) {
		tx, err := store.Begin()
		require.NoError(t, err)
		require.NoError(t, mp.Insert(tx, &account{Id: 10, Owner: "tmp"}))
		require.NoError(t, tx.Rollback())

		_, err = mp.SelectByID(store, int64(10))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("commit keeps the insert", func(t *testing.T) {
		tx, err := store.Begin()
		require.NoError(t, err)
		defer tx.Rollback()

		require.NoError(t, mp.Insert(tx, &account{Id: 11, Owner: "kept"}))

		// 事务内可见
		out, err := mp.SelectByID(tx, int64(11))
		require.NoError(t, err)
		assert.Equal(t, "kept", out.Owner)

		require.NoError(t, tx.Commit())

		out, err = mp.SelectByID(store, int64(11))
		require.NoError(t, err)
		assert.Equal(t, "kept", out.Owner)
	})
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	type event struct {
		Id int64
		At time.Time
	}
	mp, err := MapperFor[event]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	at := time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, mp.Insert(store, &event{Id: 1, At: at}))

	out, err := mp.SelectByID(store, int64(1))
	require.NoError(t, err)
	assert.True(t, out.At.Equal(at), "expected %v, got %v", at, out.At)
}

func TestStmtCacheReuse(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	mp, err := MapperFor[account]()
	require.NoError(t, err)
	require.NoError(t, mp.CreateTable(store))

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, mp.Insert(store, &account{Id: i, Owner: "o"}))
	}

	stats := store.StmtCacheStats()
	assert.Equal(t, true, stats["enabled"])
	assert.GreaterOrEqual(t, stats["hits"].(int64), int64(4), "repeated inserts reuse the prepared statement")
}

func TestOpenMemoryIsolation(t *testing.T) {
	t.Parallel()

	a := openTestStore(t)
	b := openTestStore(t)

	_, err := a.Execute(&Statement{SQL: "CREATE TABLE only_in_a\n(\nId INTEGER\n)"})
	require.NoError(t, err)

	_, err = b.DB().Exec("SELECT * FROM only_in_a")
	assert.Error(t, err, "in-memory stores must not share data")
}
