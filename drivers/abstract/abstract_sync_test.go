package abstract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/pkg/statestore"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_FullRefresh(t *testing.T) {
	ctx := context.Background()
	mockDriver := &MockDriver{
		iteratorFunc: func(_ context.Context, _ types.StreamInterface, bookmark any) (RecordIterator, error) {
			assert.Nil(t, bookmark, "full refresh never resumes")
			return &pageIterator{pages: [][]types.Record{{{"id": 1}, {"id": 2}}, {{"id": 3}}}}, nil
		},
	}
	driver := NewAbstractDriver(mockDriver)
	state := types.NewState()
	stream := createConfiguredStream("users", "", types.FULLREFRESH)
	state.SetCursor(stream, "updated_at", "stale")
	driver.SetupState(state, nil)

	writer := newRecordingWriter()
	pool := destination.NewWriterPool(writer)
	require.NoError(t, driver.Read(ctx, pool, stream))

	assert.Equal(t, []string{"users"}, writer.setups)
	assert.Len(t, writer.records["users"], 3)
	assert.Empty(t, writer.states, "full refresh does not checkpoint")
	assert.EqualValues(t, 3, pool.TotalRecords())
}

func TestRead_IncrementalCheckpointsEveryPage(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	var gotBookmark any
	mockDriver := &MockDriver{
		iteratorFunc: func(_ context.Context, _ types.StreamInterface, bookmark any) (RecordIterator, error) {
			gotBookmark = bookmark
			return &pageIterator{pages: [][]types.Record{
				{{"id": 1, "updated_at": "2024-01-02T00:00:00"}, {"id": 2, "updated_at": "2024-01-03T00:00:00"}},
				{{"id": 3, "updated_at": "2024-01-01T00:00:00"}},
				{{"id": 4, "updated_at": "2024-01-05T00:00:00"}},
			}}, nil
		},
	}
	driver := NewAbstractDriver(mockDriver)
	stream := createConfiguredStream("users", "updated_at", types.INCREMENTAL)
	state := types.NewState()
	state.SetCursor(stream, "updated_at", "2023-12-31T00:00:00")
	driver.SetupState(state, store)

	writer := newRecordingWriter()
	require.NoError(t, driver.Read(ctx, destination.NewWriterPool(writer), stream))

	assert.Equal(t, "2023-12-31T00:00:00", gotBookmark)
	require.Len(t, writer.states, 2, "the page that did not move the bookmark is not checkpointed")
	assert.Equal(t, "2024-01-03T00:00:00", writer.states[0]["users"].ReplicationKeyValue)
	assert.Equal(t, "2024-01-05T00:00:00", writer.states[1]["users"].ReplicationKeyValue)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05T00:00:00", persisted.GetCursor(stream, "updated_at"))
}

func TestRead_IncrementalKeepsCompletedPagesOnFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("page 2 failed")
	mockDriver := &MockDriver{
		iteratorFunc: func(_ context.Context, _ types.StreamInterface, _ any) (RecordIterator, error) {
			return &pageIterator{
				pages:   [][]types.Record{{{"id": 1, "updated_at": 10}, {"id": 2, "updated_at": 20}}},
				failErr: boom,
			}, nil
		},
	}
	driver := NewAbstractDriver(mockDriver)
	stream := createConfiguredStream("events", "updated_at", types.INCREMENTAL)
	driver.SetupState(types.NewState(), nil)

	err := driver.Read(ctx, destination.NewWriterPool(newRecordingWriter()), stream)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 20, driver.State().GetCursor(stream, "updated_at"))
}

func TestRead_IteratorSetupError(t *testing.T) {
	mockDriver := &MockDriver{
		iteratorFunc: func(_ context.Context, _ types.StreamInterface, _ any) (RecordIterator, error) {
			return nil, errors.New("bad paginator")
		},
	}
	driver := NewAbstractDriver(mockDriver)
	err := driver.Read(context.Background(), destination.NewWriterPool(newRecordingWriter()), createConfiguredStream("users", "", types.FULLREFRESH))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad paginator")
}

func TestRead_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := NewAbstractDriver(&MockDriver{})
	err := driver.Read(ctx, destination.NewWriterPool(newRecordingWriter()), createConfiguredStream("users", "", types.FULLREFRESH))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdvanceCursor(t *testing.T) {
	value, moved := advanceCursor(nil, nil, false)
	assert.Nil(t, value)
	assert.False(t, moved)

	value, moved = advanceCursor(nil, 5, false)
	assert.Equal(t, 5, value)
	assert.True(t, moved)

	value, moved = advanceCursor(float64(10), 5, false)
	assert.Equal(t, float64(10), value)
	assert.False(t, moved)

	value, moved = advanceCursor("2024-01-01T00:00:00Z", "2024-02-01T00:00:00", false)
	assert.Equal(t, "2024-02-01T00:00:00", value)
	assert.True(t, moved)
}
