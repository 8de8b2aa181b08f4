package model

import (
	"fmt"
	"reflect"
	"sync"
	"unicode"
)

// Model describes how a struct's fields map onto result columns.
type Model struct {
	Name     string
	Fields   []*Field
	FieldMap map[string]*Field
}

var modelCache sync.Map

// GetModel returns the model metadata for a struct value, pointer or type.
func GetModel(value any) (*Model, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}
	typ, ok := value.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(value)
	}
	return ForType(typ)
}

// ForType returns the model metadata for a struct type, dereferencing pointers.
func ForType(typ reflect.Type) (*Model, error) {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	if cached, ok := modelCache.Load(typ); ok {
		return cached.(*Model), nil
	}
	m, err := parseModel(typ)
	if err != nil {
		return nil, err
	}
	actual, _ := modelCache.LoadOrStore(typ, m)
	return actual.(*Model), nil
}

func parseModel(typ reflect.Type) (*Model, error) {
	m := &Model{
		Name:     typ.Name(),
		FieldMap: make(map[string]*Field),
	}
	if err := collectFields(m, typ, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// collectFields walks exported fields, descending into embedded structs
// that carry no column tag of their own.
func collectFields(m *Model, typ reflect.Type, index []int) error {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := ParseTag(sf.Tag.Get(TagName))
		if tag.Ignore {
			continue
		}
		path := append(append([]int(nil), index...), i)

		if sf.Anonymous && tag.Column == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Struct {
				if err := collectFields(m, ft, path); err != nil {
					return err
				}
				continue
			}
		}

		column := tag.Column
		if column == "" {
			column = camelToSnake(sf.Name)
		}
		if prev, dup := m.FieldMap[column]; dup {
			return fmt.Errorf("%s: fields %s and %s both map to column %q", typ.Name(), prev.Name, sf.Name, column)
		}
		field := &Field{
			Name:   sf.Name,
			Column: column,
			Type:   sf.Type,
			Index:  path,
		}
		m.Fields = append(m.Fields, field)
		m.FieldMap[column] = field
	}
	return nil
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	runes := []rune(s)
	var res []rune
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
