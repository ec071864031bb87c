package typeutils

import (
	"testing"
	"time"

	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromValue(t *testing.T) {
	testCases := []struct {
		value    any
		expected types.DataType
	}{
		{nil, types.Null},
		{true, types.Bool},
		{float64(3), types.Int64},
		{float64(3.5), types.Float64},
		{json.Number("12"), types.Int64},
		{json.Number("1.2"), types.Float64},
		{int32(4), types.Int64},
		{"text", types.String},
		{time.Now(), types.Timestamp},
		{[]any{1}, types.Array},
		{map[string]any{"a": 1}, types.Object},
		{(*string)(nil), types.Null},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, TypeFromValue(tc.value), "value %#v", tc.value)
	}
}

func TestInferSchema(t *testing.T) {
	records := []types.Record{
		{"id": float64(1), "name": "a", "score": float64(1)},
		{"id": float64(2), "score": float64(2.5), "flag": true},
		{"id": float64(3), "name": nil, "score": float64(3)},
	}

	schema := InferSchema(records)
	assert.Equal(t, []string{"flag", "id", "name", "score"}, schema.Columns())
	assert.Equal(t, []string{"id", "score"}, schema.Required)

	typ, err := schema.GetType("score")
	require.NoError(t, err)
	assert.Equal(t, types.Float64, typ)

	found, property := schema.GetProperty("name")
	require.True(t, found)
	assert.True(t, property.Nullable())

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"name": {"type": ["null", "string"]},
			"score": {"type": ["integer", "number"]},
			"flag": {"type": "boolean"}
		},
		"required": ["id", "score"]
	}`, string(raw))
}

func TestInferSchemaRequiredIsStable(t *testing.T) {
	record := types.Record{}
	for _, column := range []string{"zeta", "alpha", "mid", "beta", "omega", "gamma", "delta", "kappa"} {
		record[column] = "v"
	}
	expected := []string{"alpha", "beta", "delta", "gamma", "kappa", "mid", "omega", "zeta"}

	for range 20 {
		assert.Equal(t, expected, InferSchema([]types.Record{record}).Required)
	}
}

func TestInferSchemaEmpty(t *testing.T) {
	schema := InferSchema(nil)
	assert.Empty(t, schema.Columns())
	assert.Empty(t, schema.Required)
}

func TestParseTimestamp(t *testing.T) {
	expected := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)

	for _, value := range []any{
		"2024-03-01T10:20:30Z",
		"2024-03-01T10:20:30",
		"2024-03-01 10:20:30",
		expected,
		float64(expected.Unix()),
		"1709288430",
	} {
		parsed, err := ParseTimestamp(value)
		require.NoError(t, err, "value %v", value)
		assert.True(t, expected.Equal(parsed), "value %v parsed as %s", value, parsed)
	}

	_, err := ParseTimestamp("not a date")
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
	assert.Equal(t, "2024-03-01T10:20:30", FormatISO(ts))
	assert.Equal(t, "Fri, 01 Mar 2024 10:20:30 GMT", HTTPDate(ts))
}
