package typeutils

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

// replication key values reach Compare from fresh records (float64 or strings
// decoded from the response) and from stored bookmarks (json or msgpack decoded)
func TestCompareBookmarkValues(t *testing.T) {
	day := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		left     any
		right    any
		expected int
	}{
		{"no bookmark yet", nil, "2024-01-01", -1},
		{"record without key", "2024-01-01", nil, 1},
		{"both missing", nil, nil, 0},

		{"ids from json", float64(41), float64(42), -1},
		{"msgpack integer vs json float", int64(42), float64(42), 0},
		{"json number vs float", json.Number("100"), float64(99.5), 1},
		{"fractional json number", json.Number("1.25"), int(1), 1},
		{"unsigned ids", uint32(7), uint64(7), 0},
		{"int64 bounds", int64(math.MinInt64), int64(math.MaxInt64), -1},
		{"nan sorts first", math.NaN(), float64(0), -1},

		{"same instant, different precision", "2024-01-02T03:04:05Z", "2024-01-02T03:04:05.000Z", 0},
		{"same instant, different offset", "2024-01-02T05:04:05+02:00", "2024-01-02T03:04:05Z", 0},
		{"date vs timestamp", "2024-01-02T03:04:05", "2024-01-03", -1},
		{"time vs string", day, "2024-01-02T03:04:06Z", -1},
		{"custom time vs time", Time{Time: day.Add(time.Hour)}, day, 1},

		{"opaque cursors", "abc", "abd", -1},
		{"case sensitive", "Apple", "apple", -1},
		{"bools", false, true, -1},
		{"fallback formatting", struct{ A int }{2}, struct{ A int }{1}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Compare(tc.left, tc.right))
		})
	}
}

func TestCompareIsAntisymmetric(t *testing.T) {
	values := []any{nil, float64(3), int64(4), "2024-05-01T00:00:00Z", "2024-05-02"}
	for _, a := range values {
		for _, b := range values {
			assert.Equal(t, -Compare(b, a), Compare(a, b), "%v vs %v", a, b)
		}
	}
}
