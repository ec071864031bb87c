package typeutils

import (
	"reflect"
	"time"

	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/goccy/go-json"
)

// TypeFromValue maps a decoded JSON value onto a schema type. Integral floats are
// reported as integers since JSON decoding yields float64 for every number.
func TypeFromValue(v any) types.DataType {
	if v == nil {
		return types.Null
	}

	switch val := v.(type) {
	case bool:
		return types.Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.Int64
	case float32:
		return floatType(float64(val))
	case float64:
		return floatType(val)
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return types.Int64
		}
		return types.Float64
	case string, []byte:
		return types.String
	case time.Time, Time:
		return types.Timestamp
	case []any:
		return types.Array
	case map[string]any, types.Record:
		return types.Object
	}

	return typeFromValueReflect(v)
}

// typeFromValueReflect handles types that require reflection
func typeFromValueReflect(v any) types.DataType {
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Invalid:
		return types.Null
	case reflect.Pointer, reflect.Interface:
		if val.IsNil() {
			return types.Null
		}
		return TypeFromValue(val.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return types.Array
	case reflect.Map, reflect.Struct:
		return types.Object
	default:
		return types.String
	}
}

func floatType(f float64) types.DataType {
	if f == float64(int64(f)) {
		return types.Int64
	}
	return types.Float64
}
