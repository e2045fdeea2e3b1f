package modeldef

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var scalarTypes = map[string]reflect.Type{
	"bool":     reflect.TypeOf(false),
	"int":      reflect.TypeOf(int(0)),
	"int8":     reflect.TypeOf(int8(0)),
	"int16":    reflect.TypeOf(int16(0)),
	"int32":    reflect.TypeOf(int32(0)),
	"int64":    reflect.TypeOf(int64(0)),
	"uint":     reflect.TypeOf(uint(0)),
	"uint8":    reflect.TypeOf(uint8(0)),
	"uint16":   reflect.TypeOf(uint16(0)),
	"uint32":   reflect.TypeOf(uint32(0)),
	"uint64":   reflect.TypeOf(uint64(0)),
	"float32":  reflect.TypeOf(float32(0)),
	"float64":  reflect.TypeOf(float64(0)),
	"string":   reflect.TypeOf(""),
	"bytes":    reflect.TypeOf([]byte(nil)),
	"time":     reflect.TypeOf(time.Time{}),
	"duration": reflect.TypeOf(time.Duration(0)),
	"uuid":     reflect.TypeOf(uuid.UUID{}),
}

// TypeNames returns the scalar type names ParseType accepts
func TypeNames() []string {
	names := make([]string, 0, len(scalarTypes))
	for name := range scalarTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseType maps a definition type name to a Go type. A trailing "?" makes
// the type nullable, e.g. "int?" is *int.
func ParseType(name string) (reflect.Type, error) {
	base, nullable := strings.CutSuffix(name, "?")
	t, ok := scalarTypes[base]
	if !ok {
		if name == "" {
			return nil, fmt.Errorf("type is required")
		}
		return nil, fmt.Errorf("unknown type %q (known types: %s)", name, strings.Join(TypeNames(), ", "))
	}
	if nullable && t.Kind() != reflect.Slice {
		t = reflect.PointerTo(t)
	}
	return t, nil
}
