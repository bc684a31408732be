package liteorm

import (
	"context"
	"fmt"
	"iter"
	"reflect"
)

// Mapper is the typed gateway for one mapped struct type: schema
// inference, DDL, and CRUD against any Session. A Mapper is cheap to
// create (the underlying accessor cache is shared per type) and safe for
// concurrent use.
type Mapper[T any] struct {
	m *mapping
}

// MapperFor returns the mapper for T, building and caching the type's
// accessor table on first use. Subsequent calls for the same T share the
// cached mapping.
func MapperFor[T any]() (*Mapper[T], error) {
	m, err := mappingOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return &Mapper[T]{m: m}, nil
}

// Table returns the inferred table schema. Callers may adjust Default and
// Check expressions on its columns before generating DDL, but renaming
// columns after the mapper is built leaves statements and schema out of
// sync.
func (mp *Mapper[T]) Table() *Table {
	return mp.m.table
}

// CreateTable creates the mapped table if it does not already exist.
func (mp *Mapper[T]) CreateTable(s Session) error {
	return mp.CreateTableContext(context.Background(), s)
}

// CreateTableContext creates the mapped table if it does not already exist.
func (mp *Mapper[T]) CreateTableContext(ctx context.Context, s Session) error {
	stmt, err := mp.m.table.CreateSQL(true)
	if err != nil {
		return err
	}
	_, err = s.ExecuteContext(ctx, stmt)
	return err
}

// Insert adds one row sourced from v's fields.
func (mp *Mapper[T]) Insert(s Session, v *T) error {
	return mp.InsertContext(context.Background(), s, v)
}

// InsertContext adds one row sourced from v's fields.
func (mp *Mapper[T]) InsertContext(ctx context.Context, s Session, v *T) error {
	_, err := s.ExecuteContext(ctx, mp.m.insertStatement(reflect.ValueOf(v).Elem()))
	return err
}

// Update replaces the row whose primary key matches v, re-setting every
// column. Returns the number of rows affected: zero means no row had that
// key, which is not an error.
func (mp *Mapper[T]) Update(s Session, v *T) (int64, error) {
	return mp.UpdateContext(context.Background(), s, v)
}

// UpdateContext replaces the row whose primary key matches v.
func (mp *Mapper[T]) UpdateContext(ctx context.Context, s Session, v *T) (int64, error) {
	stmt, err := mp.m.updateStatement(reflect.ValueOf(v).Elem())
	if err != nil {
		return 0, err
	}
	result, err := s.ExecuteContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes the row matching v: by primary key when the table has
// one, otherwise by matching every column. Returns the number of rows
// affected; the all-columns fallback can remove more than one row when
// duplicates exist.
func (mp *Mapper[T]) Delete(s Session, v *T) (int64, error) {
	return mp.DeleteContext(context.Background(), s, v)
}

// DeleteContext removes the row matching v.
func (mp *Mapper[T]) DeleteContext(ctx context.Context, s Session, v *T) (int64, error) {
	result, err := s.ExecuteContext(ctx, mp.m.deleteStatement(reflect.ValueOf(v).Elem()))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SelectAll returns a lazy sequence over every row of the mapped table.
//
// The query runs when iteration starts, rows materialize one at a time,
// and the underlying cursor closes when the loop ends or breaks. The
// sequence is single-pass: range over it once.
func (mp *Mapper[T]) SelectAll(s Session) iter.Seq2[T, error] {
	return mp.SelectAllContext(context.Background(), s)
}

// SelectAllContext returns a lazy sequence over every row of the mapped
// table.
func (mp *Mapper[T]) SelectAllContext(ctx context.Context, s Session) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := s.queryContext(ctx, mp.m.selectAllStatement())
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()

		if err := mp.m.scanRows(rows, func(rv reflect.Value) bool {
			return yield(rv.Interface().(T), nil)
		}); err != nil {
			yield(zero, err)
		}
	}
}

// SelectByID returns the single row whose primary key equals id.
//
// Exactly one row must match: no match is ErrNotFound, more than one is
// ErrMultipleRows (possible when the key column was created without a
// uniqueness guarantee). The id's type is validated against the mapped
// key field before any SQL runs.
func (mp *Mapper[T]) SelectByID(s Session, id interface{}) (*T, error) {
	return mp.SelectByIDContext(context.Background(), s, id)
}

// SelectByIDContext returns the single row whose primary key equals id.
func (mp *Mapper[T]) SelectByIDContext(ctx context.Context, s Session, id interface{}) (*T, error) {
	stmt, err := mp.m.selectByIDStatement(id)
	if err != nil {
		return nil, err
	}

	rows, err := s.queryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found *T
	count := 0
	if err := mp.m.scanRows(rows, func(rv reflect.Value) bool {
		count++
		if count > 1 {
			return false
		}
		v := rv.Interface().(T)
		found = &v
		return true
	}); err != nil {
		return nil, err
	}

	switch {
	case count == 0:
		return nil, fmt.Errorf("liteorm: table '%s': %w", mp.m.table.Name, ErrNotFound)
	case count > 1:
		return nil, fmt.Errorf("liteorm: table '%s': %w", mp.m.table.Name, ErrMultipleRows)
	}
	return found, nil
}

// InferSchema returns the table schema inferred for T without touching
// any store.
func InferSchema[T any]() (*Table, error) {
	mp, err := MapperFor[T]()
	if err != nil {
		return nil, err
	}
	return mp.Table(), nil
}

// CreateTable creates T's table if it does not already exist.
func CreateTable[T any](s Session) error {
	mp, err := MapperFor[T]()
	if err != nil {
		return err
	}
	return mp.CreateTable(s)
}

// Insert adds one row sourced from v.
func Insert[T any](s Session, v *T) error {
	mp, err := MapperFor[T]()
	if err != nil {
		return err
	}
	return mp.Insert(s, v)
}

// Update replaces the row whose primary key matches v.
func Update[T any](s Session, v *T) (int64, error) {
	mp, err := MapperFor[T]()
	if err != nil {
		return 0, err
	}
	return mp.Update(s, v)
}

// Delete removes the row matching v.
func Delete[T any](s Session, v *T) (int64, error) {
	mp, err := MapperFor[T]()
	if err != nil {
		return 0, err
	}
	return mp.Delete(s, v)
}

// SelectAll returns a lazy sequence over every row of T's table. A mapper
// build failure surfaces as the sequence's single element.
func SelectAll[T any](s Session) iter.Seq2[T, error] {
	mp, err := MapperFor[T]()
	if err != nil {
		return func(yield func(T, error) bool) {
			var zero T
			yield(zero, err)
		}
	}
	return mp.SelectAll(s)
}

// SelectByID returns the single row of T's table whose primary key
// equals id.
func SelectByID[T any](s Session, id interface{}) (*T, error) {
	mp, err := MapperFor[T]()
	if err != nil {
		return nil, err
	}
	return mp.SelectByID(s, id)
}
