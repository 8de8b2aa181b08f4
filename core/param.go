package core

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"
)

// ParamKind identifies the variant of a Param.
type ParamKind int

const (
	KindNull ParamKind = iota
	KindString
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBool
	KindDate
	KindTime
	KindTimestamp
	KindArray
)

var kindNames = [...]string{
	KindNull:      "null",
	KindString:    "string",
	KindInt:       "int",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindBool:      "bool",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindArray:     "array",
}

func (k ParamKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
	return kindNames[k]
}

// Param is a statement parameter. The set of implementations is closed:
// only the constructors in this package produce one.
type Param interface {
	Kind() ParamKind
	// Value returns what is handed to the driver.
	Value() any
	param()
}

type nullParam struct{}

func (nullParam) Kind() ParamKind { return KindNull }
func (nullParam) Value() any      { return nil }
func (nullParam) param()          {}

type stringParam string

func (p stringParam) Kind() ParamKind { return KindString }
func (p stringParam) Value() any      { return string(p) }
func (stringParam) param()            {}

type intParam int32

func (p intParam) Kind() ParamKind { return KindInt }
func (p intParam) Value() any      { return int64(p) }
func (intParam) param()            {}

type longParam int64

func (p longParam) Kind() ParamKind { return KindLong }
func (p longParam) Value() any      { return int64(p) }
func (longParam) param()            {}

type floatParam float32

func (p floatParam) Kind() ParamKind { return KindFloat }
func (p floatParam) Value() any      { return float64(p) }
func (floatParam) param()            {}

type doubleParam float64

func (p doubleParam) Kind() ParamKind { return KindDouble }
func (p doubleParam) Value() any      { return float64(p) }
func (doubleParam) param()            {}

type boolParam bool

func (p boolParam) Kind() ParamKind { return KindBool }
func (p boolParam) Value() any      { return bool(p) }
func (boolParam) param()            {}

type temporalParam struct {
	kind ParamKind
	t    time.Time
}

func (p temporalParam) Kind() ParamKind { return p.kind }

// Value for KindTime is the wall clock as text, the form every supported
// driver accepts for TIME columns.
func (p temporalParam) Value() any {
	switch p.kind {
	case KindDate:
		y, m, d := p.t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, p.t.Location())
	case KindTime:
		return p.t.Format("15:04:05.999999")
	default:
		return p.t
	}
}
func (temporalParam) param() {}

type arrayParam struct{ v any }

func (p arrayParam) Kind() ParamKind { return KindArray }
func (p arrayParam) Value() any      { return p.v }
func (arrayParam) param()            {}

// Null binds SQL NULL.
func Null() Param { return nullParam{} }

// String binds a character value.
func String(s string) Param { return stringParam(s) }

// Int binds a 32-bit integer.
func Int(i int32) Param { return intParam(i) }

// Long binds a 64-bit integer.
func Long(i int64) Param { return longParam(i) }

// Float binds a single-precision value.
func Float(f float32) Param { return floatParam(f) }

// Double binds a double-precision value.
func Double(f float64) Param { return doubleParam(f) }

// Bool binds a boolean.
func Bool(b bool) Param { return boolParam(b) }

// Date binds the calendar date of t, time of day dropped.
func Date(t time.Time) Param { return temporalParam{kind: KindDate, t: t} }

// Time binds the time of day of t.
func Time(t time.Time) Param { return temporalParam{kind: KindTime, t: t} }

// Timestamp binds t unchanged.
func Timestamp(t time.Time) Param { return temporalParam{kind: KindTimestamp, t: t} }

// Array binds v as-is; the driver decides how to encode it. ToParam only
// picks it for slices of scalars and for list-backed driver.Valuers such as
// pq.Array; wrap anything else explicitly.
func Array(v any) Param { return arrayParam{v: v} }

// ToParam converts one call argument. position is 1-based and only used in
// the error.
func ToParam(v any, position int) (Param, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Param:
		return x, nil
	case string:
		return String(x), nil
	case int:
		if int(int32(x)) == x {
			return Int(int32(x)), nil
		}
		return Long(int64(x)), nil
	case int8:
		return Int(int32(x)), nil
	case int16:
		return Int(int32(x)), nil
	case int32:
		return Int(x), nil
	case int64:
		return Long(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Double(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Timestamp(x), nil
	case []byte:
		return Array(x), nil
	case driver.Valuer:
		// pq.Array and friends
		if isList(derefType(reflect.TypeOf(x))) {
			return Array(x), nil
		}
	default:
		if t := reflect.TypeOf(v); isList(t) && isScalar(t.Elem()) {
			return Array(v), nil
		}
	}
	return nil, &UnsupportedParameterTypeError{Type: reflect.TypeOf(v).String(), Position: position}
}

var timeType = reflect.TypeFor[time.Time]()

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isList(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

// isScalar reports whether elements of type t bind on their own.
func isScalar(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Bind converts values into driver arguments, preserving order.
func Bind(values ...any) ([]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		p, err := ToParam(v, i+1)
		if err != nil {
			return nil, err
		}
		args[i] = p.Value()
	}
	return args, nil
}
