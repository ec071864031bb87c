package driver

import (
	"testing"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, raw map[string]any) *Config {
	t.Helper()
	config := &Config{}
	require.NoError(t, utils.Unmarshal(raw, config))
	return config
}

func TestResolveSingleTopLevelStream(t *testing.T) {
	config := loadConfig(t, map[string]any{
		"api_url":      "https://api.example.com",
		"name":         "users",
		"path":         "/users",
		"primary_keys": []string{"id"},
	})

	streams, err := config.Resolve()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "users", streams[0].Name)
	assert.Equal(t, "/users", streams[0].Path)
	assert.Equal(t, constants.DefaultRecordsPath, streams[0].RecordsPath)
	assert.Equal(t, constants.DefaultInferenceRecords, streams[0].NumInferenceRecords)
}

func TestResolveInheritsTopLevelDefaults(t *testing.T) {
	config := loadConfig(t, map[string]any{
		"api_url":              "https://api.example.com",
		"name":                 "ignored",
		"records_path":         "$.data[*]",
		"primary_keys":         []string{"id"},
		"pagination_page_size": 50,
		"headers":              map[string]string{"X-Tenant": "acme"},
		"backoff_type":         "header",
		"streams": []map[string]any{
			{"name": "users", "path": "/users"},
			{"name": "events", "path": "/events", "records_path": "$.events[*]", "primary_keys": []string{"event_id"}, "replication_key": "created_at"},
		},
	})

	streams, err := config.Resolve()
	require.NoError(t, err)
	require.Len(t, streams, 2)

	users, events := streams[0], streams[1]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "$.data[*]", users.RecordsPath)
	assert.Equal(t, []string{"id"}, users.PrimaryKeys)
	assert.Equal(t, 50, users.PageSize)
	assert.Equal(t, "acme", users.Headers["X-Tenant"])
	assert.Equal(t, "header", users.Type)

	assert.Equal(t, "events", events.Name)
	assert.Equal(t, "$.events[*]", events.RecordsPath)
	assert.Equal(t, []string{"event_id"}, events.PrimaryKeys)
	assert.Equal(t, "created_at", events.ReplicationKey)
	assert.Equal(t, 50, events.PageSize)
}

func TestResolveZeroInitialOffset(t *testing.T) {
	config := loadConfig(t, map[string]any{
		"api_url":                   "https://api.example.com",
		"primary_keys":              []string{"id"},
		"pagination_request_style":  "page_number_paginator",
		"pagination_initial_offset": 5,
		"streams": []map[string]any{
			{"name": "inherited", "path": "/a"},
			{"name": "zero_based", "path": "/b", "pagination_initial_offset": 0},
		},
	})

	streams, err := config.Resolve()
	require.NoError(t, err)
	require.NotNil(t, streams[0].InitialOffset)
	require.NotNil(t, streams[1].InitialOffset)
	assert.Equal(t, 5, *streams[0].InitialOffset)
	assert.Equal(t, 0, *streams[1].InitialOffset)

	config = loadConfig(t, map[string]any{
		"api_url":      "https://api.example.com",
		"name":         "users",
		"path":         "/users",
		"primary_keys": []string{"id"},
	})
	streams, err = config.Resolve()
	require.NoError(t, err)
	assert.Nil(t, streams[0].InitialOffset)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{
			name: "no streams",
			raw:  map[string]any{"api_url": "https://api.example.com"},
		},
		{
			name: "missing primary keys",
			raw:  map[string]any{"api_url": "https://api.example.com", "name": "users"},
		},
		{
			name: "stream names are not inherited",
			raw: map[string]any{
				"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
				"streams": []map[string]any{{"path": "/users"}},
			},
		},
		{
			name: "duplicate names",
			raw: map[string]any{
				"api_url": "https://api.example.com", "primary_keys": []string{"id"},
				"streams": []map[string]any{{"name": "users"}, {"name": "users"}},
			},
		},
		{
			name: "unknown pagination request style",
			raw: map[string]any{
				"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
				"pagination_request_style": "cursor_magic",
			},
		},
		{
			name: "unknown pagination response style",
			raw: map[string]any{
				"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
				"pagination_response_style": "style9",
			},
		},
		{
			name: "invalid start date",
			raw: map[string]any{
				"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
				"start_date": "yesterday",
			},
		},
		{
			name: "schema of the wrong kind",
			raw: map[string]any{
				"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
				"schema": 12,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(t, tc.raw).Resolve()
			require.Error(t, err)
			assert.ErrorIs(t, err, constants.ErrConfiguration)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		config := loadConfig(t, map[string]any{
			"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
			"auth_method": "bearer_token", "bearer_token": "secret",
		})
		assert.NoError(t, config.Validate())
	})

	t.Run("missing api url", func(t *testing.T) {
		config := loadConfig(t, map[string]any{"name": "users", "primary_keys": []string{"id"}})
		assert.Error(t, config.Validate())
	})

	t.Run("invalid records path", func(t *testing.T) {
		config := loadConfig(t, map[string]any{
			"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
			"records_path": "$.data[",
		})
		assert.Error(t, config.Validate())
	})

	t.Run("unknown auth method", func(t *testing.T) {
		config := loadConfig(t, map[string]any{
			"api_url": "https://api.example.com", "name": "users", "primary_keys": []string{"id"},
			"auth_method": "kerberos",
		})
		assert.ErrorIs(t, config.Validate(), constants.ErrConfiguration)
	})
}

func TestRequestDefaults(t *testing.T) {
	config := &Config{}
	assert.Equal(t, constants.DefaultRequestTimeout, config.requestTimeout())
	assert.Equal(t, constants.DefaultMaxRetries, config.maxRetries())

	retries := 0
	config.Timeout = 10
	config.MaxRetries = &retries
	assert.Equal(t, 10, int(config.requestTimeout().Seconds()))
	assert.Equal(t, 0, config.maxRetries())
}

func TestReplicationStart(t *testing.T) {
	stream := &StreamConfig{StartDate: "2024-01-01T00:00:00Z"}
	assert.Equal(t, "2024-06-01T00:00:00Z", stream.replicationStart("2024-06-01T00:00:00Z"))
	assert.Equal(t, "2024-01-01T00:00:00Z", stream.replicationStart(nil))
	assert.Nil(t, (&StreamConfig{}).replicationStart(nil))
}

func TestStringParams(t *testing.T) {
	stream := &StreamConfig{Params: map[string]any{
		"status":  "open",
		"limit":   float64(100),
		"active":  true,
		"missing": nil,
		"ids":     []any{float64(1), float64(2)},
	}}

	assert.Equal(t, map[string]string{
		"status":  "open",
		"limit":   "100",
		"active":  "true",
		"missing": "",
		"ids":     "[1,2]",
	}, stream.StringParams())
}
