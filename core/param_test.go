package core

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 15, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		kind ParamKind
		want any
	}{
		{"nil", nil, KindNull, nil},
		{"string", "x", KindString, "x"},
		{"int", 7, KindInt, int64(7)},
		{"large int", 1 << 40, KindLong, int64(1 << 40)},
		{"int16", int16(-3), KindInt, int64(-3)},
		{"int32", int32(9), KindInt, int64(9)},
		{"int64", int64(10), KindLong, int64(10)},
		{"float32", float32(1.5), KindFloat, float64(1.5)},
		{"float64", 2.25, KindDouble, 2.25},
		{"bool", true, KindBool, true},
		{"time", ts, KindTimestamp, ts},
		{"date", Date(ts), KindDate, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"time of day", Time(ts), KindTime, "14:30:15"},
		{"bytes", []byte("ab"), KindArray, []byte("ab")},
		{"slice", []int64{1, 2}, KindArray, []int64{1, 2}},
		{"explicit", Long(5), KindLong, int64(5)},
		{"null param", Null(), KindNull, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ToParam(tt.in, 1)
			require.NoError(t, err)
			require.Equal(t, tt.kind, p.Kind())
			require.Equal(t, tt.want, p.Value())
		})
	}
}

func TestBindKeepsOrder(t *testing.T) {
	args, err := Bind("a", 1, nil, true)
	require.NoError(t, err)
	require.Equal(t, []any{"a", int64(1), nil, true}, args)

	args, err = Bind()
	require.NoError(t, err)
	require.Empty(t, args)
}

func TestBindPostgresArray(t *testing.T) {
	tags := pq.Array([]string{"a", "b"})
	args, err := Bind(tags)
	require.NoError(t, err)
	require.Len(t, args, 1)

	v, err := args[0].(driver.Valuer).Value()
	require.NoError(t, err)
	require.Equal(t, `{"a","b"}`, v)
}

func TestBindUnsupportedType(t *testing.T) {
	type point struct{ X, Y int }
	_, err := Bind("ok", 1, point{1, 2})

	var perr *UnsupportedParameterTypeError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 3, perr.Position)
	require.Equal(t, "core.point", perr.Type)
	require.ErrorIs(t, err, ErrUnsupportedParameterType)
	require.Contains(t, err.Error(), "core.point at position 3")

	_, err = Bind(uint64(1))
	require.ErrorIs(t, err, ErrUnsupportedParameterType)

	rejected := []struct {
		name string
		in   any
	}{
		{"struct valuer", money{5}},
		{"pointer to struct valuer", &money{5}},
		{"null string", sql.NullString{String: "x", Valid: true}},
		{"slice of structs", []struct{ A int }{{1}}},
		{"slice of unsigned", []uint64{1}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.in)
			require.ErrorIs(t, err, ErrUnsupportedParameterType)
		})
	}
}

type money struct{ cents int64 }

func (m money) Value() (driver.Value, error) { return m.cents, nil }

func TestBindExplicitArray(t *testing.T) {
	args, err := Bind(Array(money{5}), pq.Array([]int64{1, 2}), [3]string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, args, 3)
	require.Equal(t, money{5}, args[0])

	ts := []time.Time{time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)}
	p, err := ToParam(ts, 1)
	require.NoError(t, err)
	require.Equal(t, KindArray, p.Kind())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "timestamp", KindTimestamp.String())
	require.Equal(t, "ParamKind(99)", ParamKind(99).String())
	require.Equal(t, "many", KindMany.String())
	require.True(t, KindScalar.Reads())
	require.False(t, KindUpdate.Reads())
}
