package core

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/shrek82/jdao/model"
)

// Row is the cursor position handed to a RowMapper. *sql.Rows satisfies it.
type Row interface {
	Scan(dest ...any) error
	Columns() ([]string, error)
}

// RowMapper converts the current row into a T. It must read everything it
// needs during the call and must not keep the Row.
type RowMapper[T any] func(row Row) (T, error)

// scanFirst scans column one into dest and discards the rest.
func scanFirst(row Row, dest any) error {
	cols, err := row.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("row has no columns")
	}
	targets := make([]any, len(cols))
	targets[0] = dest
	for i := 1; i < len(targets); i++ {
		targets[i] = new(any)
	}
	return row.Scan(targets...)
}

// BoolMapper reads the first column as a boolean. NULL maps to false.
func BoolMapper(row Row) (bool, error) {
	var v sql.NullBool
	if err := scanFirst(row, &v); err != nil {
		return false, err
	}
	return v.Bool, nil
}

// IntMapper reads the first column as an integer. NULL maps to 0.
func IntMapper(row Row) (int64, error) {
	var v sql.NullInt64
	if err := scanFirst(row, &v); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

// StringMapper reads the first column as text. NULL maps to "".
func StringMapper(row Row) (string, error) {
	var v sql.NullString
	if err := scanFirst(row, &v); err != nil {
		return "", err
	}
	return v.String, nil
}

// ScalarMapper reads the first column as whatever the driver returned,
// normalizing integers to int64 and []byte to string.
func ScalarMapper(row Row) (any, error) {
	var v any
	if err := scanFirst(row, &v); err != nil {
		return nil, err
	}
	return normalizeScalar(v), nil
}

func normalizeScalar(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int64, bool, string, float64:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}

// ColumnMapper scans every column of the row into a map keyed by column name.
func ColumnMapper(row Row) (map[string]any, error) {
	cols, err := row.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	targets := make([]any, len(cols))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	m := make(map[string]any, len(cols))
	for i, col := range cols {
		m[col] = normalizeScalar(values[i])
	}
	return m, nil
}

// StructMapper maps columns onto the fields of T by name, following the
// jdao struct tag. Columns without a matching field are skipped. If *T
// implements AfterFinder it is called once the row is copied.
func StructMapper[T any]() RowMapper[T] {
	return func(row Row) (T, error) {
		var dest T
		m, err := model.GetModel(&dest)
		if err != nil {
			return dest, err
		}
		cols, err := row.Columns()
		if err != nil {
			return dest, err
		}

		rv := reflect.ValueOf(&dest).Elem()
		targets := make([]any, len(cols))
		for i, col := range cols {
			field, ok := m.FieldMap[col]
			if !ok {
				targets[i] = new(any)
				continue
			}
			fv, err := rv.FieldByIndexErr(field.Index)
			if err != nil {
				return dest, err
			}
			targets[i] = fv.Addr().Interface()
		}
		if err := row.Scan(targets...); err != nil {
			return dest, err
		}

		if h, ok := any(&dest).(AfterFinder); ok {
			if err := h.AfterFind(); err != nil {
				return dest, err
			}
		}
		return dest, nil
	}
}
