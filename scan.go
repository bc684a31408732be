package liteorm

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// makeSetter builds the setter closure for one field type. The closure
// receives the raw driver value for a column and assigns it to the field,
// converting only at this boundary: integer widths, []byte/string text,
// stored 0/1 integers for boolean fields, and the driver's timestamp
// formats for time.Time. A value whose shape cannot be converted is a
// fatal error, surfaced with the field's name by the materializer.
func makeSetter(t reflect.Type) func(field reflect.Value, raw interface{}) error {
	if t.Kind() == reflect.Ptr {
		elemSet := makeSetter(t.Elem())
		return func(field reflect.Value, raw interface{}) error {
			if raw == nil {
				field.Set(reflect.Zero(field.Type()))
				return nil
			}
			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			return elemSet(field.Elem(), raw)
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(field reflect.Value, raw interface{}) error {
			v, err := rawToInt64(raw)
			if err != nil {
				return err
			}
			field.SetInt(v)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(field reflect.Value, raw interface{}) error {
			v, err := rawToInt64(raw)
			if err != nil {
				return err
			}
			field.SetUint(uint64(v))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		return func(field reflect.Value, raw interface{}) error {
			v, err := rawToFloat64(raw)
			if err != nil {
				return err
			}
			field.SetFloat(v)
			return nil
		}
	case reflect.Bool:
		return func(field reflect.Value, raw interface{}) error {
			v, err := rawToBool(raw)
			if err != nil {
				return err
			}
			field.SetBool(v)
			return nil
		}
	case reflect.String:
		return func(field reflect.Value, raw interface{}) error {
			field.SetString(rawToString(raw))
			return nil
		}
	}

	if t == byteSliceType {
		return func(field reflect.Value, raw interface{}) error {
			switch v := raw.(type) {
			case nil:
				field.SetBytes(nil)
			case []byte:
				// 拷贝一份，驱动可能会复用底层缓冲区
				b := make([]byte, len(v))
				copy(b, v)
				field.SetBytes(b)
			case string:
				field.SetBytes([]byte(v))
			default:
				return fmt.Errorf("cannot convert %T to []byte", raw)
			}
			return nil
		}
	}

	if t == reflect.TypeOf(time.Time{}) {
		return func(field reflect.Value, raw interface{}) error {
			v, err := rawToTime(raw)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(v))
			return nil
		}
	}

	// Fallback: assign when the driver value already has the right type.
	return func(field reflect.Value, raw interface{}) error {
		if raw == nil {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		v := reflect.ValueOf(raw)
		if v.Type().AssignableTo(field.Type()) {
			field.Set(v)
			return nil
		}
		if v.Type().ConvertibleTo(field.Type()) {
			field.Set(v.Convert(field.Type()))
			return nil
		}
		return fmt.Errorf("cannot convert %T to %s", raw, field.Type())
	}
}

func rawToInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func rawToFloat64(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
}

// rawToBool materializes a stored boolean. The engine stores booleans as
// 0/1 integers, so integers convert back here; the caller sees a bool, not
// the stored integer.
func rawToBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", raw)
	}
}

func rawToString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// sqliteTimeFormats are the timestamp layouts the sqlite3 driver writes,
// most specific first.
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func rawToTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", raw)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse '%s' as time.Time", s)
}

// materialize converts the current cursor row into a new instance.
//
// Columns are matched by name, case-insensitively, not by ordinal. A
// column with no mapped setter is silently skipped: the materializer is
// forgiving of extra columns (SELECT * against a wider table, joins), not
// just exact schema matches.
func (m *mapping) materialize(columns []string, values []interface{}) (reflect.Value, error) {
	rv := reflect.New(m.typ).Elem()
	for i, col := range columns {
		acc, ok := m.byName[strings.ToLower(col)]
		if !ok {
			continue
		}
		if err := acc.set(rv.Field(acc.index), values[i]); err != nil {
			return rv, fmt.Errorf("liteorm: table '%s' column '%s': %v", m.table.Name, col, err)
		}
	}
	return rv, nil
}

// scanRows runs the materializer over every row of a result set, reusing
// one scan buffer for all rows.
// 扫描缓冲区按行复用，避免每行重新分配
func (m *mapping) scanRows(rows *sql.Rows, yield func(reflect.Value) bool) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}
		rv, err := m.materialize(columns, values)
		if err != nil {
			return err
		}
		if !yield(rv) {
			return nil
		}
	}
	return rows.Err()
}
