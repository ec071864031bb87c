package protocol

import (
	"testing"

	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceStream(name, cursor string) *types.Stream {
	stream := types.NewStream(name, "", nil).WithPrimaryKey("id").WithSyncMode(types.FULLREFRESH)
	stream.SyncMode = types.FULLREFRESH
	if cursor != "" {
		stream.WithSyncMode(types.INCREMENTAL).WithCursorField(cursor)
		stream.SyncMode = types.INCREMENTAL
		stream.CursorField = cursor
	}
	return stream
}

func TestSelectStreamsWithoutCatalog(t *testing.T) {
	streams := []*types.Stream{sourceStream("users", ""), sourceStream("events", "created_at")}

	selected, err := selectStreams(nil, streams)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "users", selected[0].ID())
	assert.Equal(t, types.FULLREFRESH, selected[0].GetSyncMode())
	assert.Equal(t, types.INCREMENTAL, selected[1].GetSyncMode())
	assert.Equal(t, "created_at", selected[1].Cursor())
}

func TestSelectStreamsHonoursCatalog(t *testing.T) {
	streams := []*types.Stream{sourceStream("users", ""), sourceStream("events", "created_at"), sourceStream("orders", "updated_at")}

	catalog := &types.Catalog{
		Streams: []*types.ConfiguredStream{
			{Stream: &types.Stream{Name: "orders", SyncMode: types.FULLREFRESH}},
			{Stream: &types.Stream{Name: "events"}},
			{Stream: &types.Stream{Name: "users", SyncMode: types.INCREMENTAL}},
			{Stream: &types.Stream{Name: "ghosts"}},
		},
		SelectedStreams: []string{"orders", "events", "users", "ghosts"},
	}

	selected, err := selectStreams(catalog, streams)
	require.NoError(t, err)
	require.Len(t, selected, 2, "users cannot sync incrementally and ghosts is unknown")

	assert.Equal(t, "orders", selected[0].ID())
	assert.Equal(t, types.FULLREFRESH, selected[0].GetSyncMode())
	assert.Equal(t, "events", selected[1].ID())
	assert.Equal(t, types.INCREMENTAL, selected[1].GetSyncMode(), "sync mode defaults to the discovered one")
	assert.Equal(t, "created_at", selected[1].Cursor())
}

func TestSelectStreamsFiltersSelection(t *testing.T) {
	streams := []*types.Stream{sourceStream("users", ""), sourceStream("events", "")}
	catalog := types.GetWrappedCatalog(streams)
	catalog.SelectedStreams = []string{"events"}

	selected, err := selectStreams(catalog, streams)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "events", selected[0].ID())

	catalog.SelectedStreams = []string{"unknown"}
	_, err = selectStreams(catalog, streams)
	assert.Error(t, err)
}

func TestReflectSpec(t *testing.T) {
	type config struct {
		APIURL string `json:"api_url" jsonschema:"description=base url"`
		Limit  int    `json:"limit,omitempty" jsonschema:"default=25"`
	}

	spec, err := reflectSpec(config{})
	require.NoError(t, err)
	assert.Equal(t, "object", spec["type"])

	properties, ok := spec["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, properties, "api_url")
	require.Contains(t, properties, "limit")
	assert.Equal(t, "base url", properties["api_url"].(map[string]any)["description"])
	assert.Equal(t, []any{"api_url"}, spec["required"])
}
