package metadata

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"sort"
	"strings"
	"time"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// StructType normalizes an entity Go type: pointers are dereferenced and only
// struct types are accepted.
func StructType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

// UnderlyingType strips pointer indirection from a property type.
func UnderlyingType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsNullableType reports whether a Go type can represent a missing value.
func IsNullableType(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// NullableOf returns the nullable form of t.
func NullableOf(t reflect.Type) reflect.Type {
	if t == nil || IsNullableType(t) {
		return t
	}
	return reflect.PointerTo(t)
}

// TypesCompatible reports whether two property types can be matched by a
// foreign key, ignoring nullability.
func TypesCompatible(a, b reflect.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return UnderlyingType(a) == UnderlyingType(b)
}

// IsScalarType reports whether values of t map to a single column.
func IsScalarType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	t = UnderlyingType(t)
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		if t == timeType {
			return true
		}
		return t.PkgPath() == "time" || t.PkgPath() == "database/sql"
	}
	return false
}

// NavigationShape describes a navigation-shaped Go member type.
type NavigationShape struct {
	Target       reflect.Type
	IsCollection bool
}

// NavigationShapeOf returns the target struct of a navigation-shaped type.
func NavigationShapeOf(t reflect.Type) (NavigationShape, bool) {
	if t == nil || IsScalarType(t) {
		return NavigationShape{}, false
	}
	collection := false
	if t.Kind() == reflect.Slice {
		collection = true
		t = t.Elem()
		if IsScalarType(t) {
			return NavigationShape{}, false
		}
	}
	target, ok := StructType(t)
	if !ok {
		return NavigationShape{}, false
	}
	return NavigationShape{Target: target, IsCollection: collection}, true
}

// FindMember returns an exported field of a struct type by name.
func FindMember(goType reflect.Type, name string) (reflect.StructField, bool) {
	st, ok := StructType(goType)
	if !ok || name == "" {
		return reflect.StructField{}, false
	}
	field, ok := st.FieldByName(name)
	if !ok || !field.IsExported() {
		return reflect.StructField{}, false
	}
	return field, true
}

// ExportedMembers returns the exported, non-embedded fields of a struct type
// including fields promoted from embedded structs, in declaration order.
func ExportedMembers(goType reflect.Type) []reflect.StructField {
	st, ok := StructType(goType)
	if !ok {
		return nil
	}
	var result []reflect.StructField
	seen := make(map[string]bool)
	var walk func(t reflect.Type, index []int)
	walk = func(t reflect.Type, index []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				if et, ok := StructType(f.Type); ok && !IsScalarType(f.Type) {
					walk(et, append(append([]int(nil), index...), i))
					continue
				}
			}
			if !f.IsExported() || seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			f.Index = append(append([]int(nil), index...), i)
			result = append(result, f)
		}
	}
	walk(st, nil)
	return result
}

// ignoredByTag reports whether a struct field opts out with `model:"-"`.
func ignoredByTag(f reflect.StructField) bool {
	return strings.TrimSpace(f.Tag.Get("model")) == "-"
}

// IgnoredByTag is the exported form used by discovery conventions.
func IgnoredByTag(f reflect.StructField) bool {
	return ignoredByTag(f)
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
