package model

import (
	"reflect"
)

// Field represents a result column mapped onto a struct field
type Field struct {
	Name   string       // Struct field name
	Column string       // Column name
	Type   reflect.Type // Field type
	Index  []int        // Field index path, for reflect.Value.FieldByIndex
}
