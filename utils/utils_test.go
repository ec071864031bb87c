package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	URL   string `json:"api_url" validate:"required,url"`
	Limit int    `json:"limit" validate:"gte=0"`
	Code  string `json:"code,omitempty" validate:"omitempty,upper_code"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, RegisterValidation("upper_code", "must be upper case", func(fl validator.FieldLevel) bool {
		return strings.ToUpper(fl.Field().String()) == fl.Field().String()
	}))

	assert.NoError(t, Validate(&sample{URL: "https://api.example.com"}))

	err := Validate(&sample{Limit: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrConfiguration)
	assert.Contains(t, err.Error(), "api_url")
	assert.Contains(t, err.Error(), "limit")

	err = Validate(&sample{URL: "https://api.example.com", Code: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code must be upper case")
}

func TestUnmarshalFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"api_url":"https://a.example.com","limit":3}`), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte("api_url: https://b.example.com\nlimit: 4\n"), 0o600))

	var fromJSON, fromYAML sample
	require.NoError(t, UnmarshalFile(jsonPath, &fromJSON, false))
	require.NoError(t, UnmarshalFile(yamlPath, &fromYAML, false))
	assert.Equal(t, sample{URL: "https://a.example.com", Limit: 3}, fromJSON)
	assert.Equal(t, sample{URL: "https://b.example.com", Limit: 4}, fromYAML)

	assert.Error(t, UnmarshalFile(filepath.Join(dir, "missing.json"), &fromJSON, false))
}

func TestErrExecSequential(t *testing.T) {
	calls := 0
	first := errors.New("first")
	err := ErrExecSequential(
		ErrExecFormat("source: %w", func() error { calls++; return first }),
		func() error { calls++; return nil },
		ErrExecFormat("destination: %w", func() error { calls++; return constants.ErrConfiguration }),
	)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, constants.ErrConfiguration)
	assert.Contains(t, err.Error(), "source: first")

	assert.NoError(t, ErrExecSequential(func() error { return nil }))
}

func TestHelpers(t *testing.T) {
	idx, found := ArrayContains([]string{"a", "b"}, func(elem string) bool { return elem == "b" })
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	original := map[string]int{"a": 1}
	copied := CopyMap(original)
	copied["b"] = 2
	assert.Len(t, original, 1)

	assert.Equal(t, "yes", Ternary(true, "yes", "no"))
}
