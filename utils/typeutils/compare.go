package typeutils

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// return 0 for equal, -1 if a < b else 1 if a>b
func Compare(a, b any) int {
	// Handle nil cases first
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	// bookmarks decoded from JSON are float64 while fresh values may be integers
	if isNumeric(a) && isNumeric(b) && (isFloat(a) || isFloat(b)) {
		return compareFloat(toFloat(a), toFloat(b))
	}

	switch aVal := a.(type) {
	case uint, uint8, uint16, uint32, uint64:
		if !isUnsigned(b) {
			break
		}
		aUint := reflect.ValueOf(a).Convert(reflect.TypeFor[uint64]()).Uint()
		bUint := reflect.ValueOf(b).Convert(reflect.TypeFor[uint64]()).Uint()
		if aUint < bUint {
			return -1
		} else if aUint > bUint {
			return 1
		}
		return 0
	case int, int8, int16, int32, int64:
		if !isNumeric(b) {
			break
		}
		aInt := reflect.ValueOf(a).Convert(reflect.TypeFor[int64]()).Int()
		bInt := reflect.ValueOf(b).Convert(reflect.TypeFor[int64]()).Int()
		if aInt < bInt {
			return -1
		} else if aInt > bInt {
			return 1
		}
		return 0
	case float32, float64:
		return compareFloat(toFloat(a), toFloat(b))
	case time.Time:
		bTime, err := ParseTimestamp(b)
		if err != nil {
			break
		}
		return aVal.Compare(bTime)
	case Time:
		bTime, err := ParseTimestamp(b)
		if err != nil {
			break
		}
		return aVal.Time.Compare(bTime)
	case bool:
		bBool, ok := b.(bool)
		if !ok {
			break
		}
		// false < true
		if !aVal && bBool {
			return -1
		} else if aVal && !bBool {
			return 1
		}
		return 0
	case string:
		// replication keys are frequently ISO timestamps with differing precision
		bStr, ok := b.(string)
		if !ok {
			break
		}
		aTime, aErr := parseStringTimestamp(aVal)
		bTime, bErr := parseStringTimestamp(bStr)
		if aErr == nil && bErr == nil {
			return aTime.Compare(bTime)
		}
		return strings.Compare(aVal, bStr)
	}

	// For any other types, convert to string for comparison
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareFloat(aFloat, bFloat float64) int {
	if math.IsNaN(aFloat) {
		if math.IsNaN(bFloat) {
			return 0
		}
		return -1
	}
	if math.IsNaN(bFloat) {
		return 1
	}
	if aFloat == bFloat {
		return 0
	}

	const eps = 1e-6
	diff := aFloat - bFloat
	if math.Abs(diff) < eps {
		return 0
	} else if diff < 0 {
		return -1
	}
	return 1
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

func isFloat(v any) bool {
	switch n := v.(type) {
	case float32, float64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err != nil
	}
	return false
}

func isUnsigned(v any) bool {
	switch v.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(n).Convert(reflect.TypeFor[float64]()).Float()
	}
	return math.NaN()
}
