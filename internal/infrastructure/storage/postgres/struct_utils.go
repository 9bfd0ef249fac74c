package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// rowShape is the db-tag layout of a row struct, flattened through embedded
// structs in declaration order.
type rowShape struct {
	columns []string
	paths   [][]int
}

var shapes sync.Map // reflect.Type -> *rowShape

func shapeOf(t reflect.Type) *rowShape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := shapes.Load(t); ok {
		return s.(*rowShape)
	}

	s := &rowShape{}
	if t.Kind() == reflect.Struct {
		s.walk(t, nil)
	}
	actual, _ := shapes.LoadOrStore(t, s)
	return actual.(*rowShape)
}

func (s *rowShape) walk(t reflect.Type, parent []int) {
	for i := range t.NumField() {
		f := t.Field(i)
		path := append(slices.Clip(parent), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			s.walk(f.Type, path)
			continue
		}
		col, ok := f.Tag.Lookup("db")
		if !ok || col == "" || col == "-" || !f.IsExported() {
			continue
		}
		s.columns = append(s.columns, col)
		s.paths = append(s.paths, path)
	}
}

// Columns lists the db columns of T in field order, so generated SQL is stable.
// The slice is a copy.
func Columns[T any]() []string {
	return slices.Clone(shapeOf(reflect.TypeFor[T]()).columns)
}

// Values maps the db columns of row (a struct or pointer to one) to their
// values, leaving out skip. Typical use is dropping generated columns before
// an INSERT.
func Values(row any, skip ...string) map[string]any {
	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	s := shapeOf(rv.Type())
	out := make(map[string]any, len(s.columns))
	for i, col := range s.columns {
		if slices.Contains(skip, col) {
			continue
		}
		out[col] = rv.FieldByIndex(s.paths[i]).Interface()
	}
	return out
}
