package types

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	json "github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// prevent catalog and state artifacts from being written during tests
	if runtime.GOOS == "windows" {
		viper.Set(constants.StatePath, "NUL")
	} else {
		viper.Set(constants.StatePath, "/dev/null")
	}
}

func newConfiguredStream(name, cursor string, mode SyncMode) *ConfiguredStream {
	s := NewStream(name, "", nil)
	s.CursorField = cursor
	s.SyncMode = mode
	return s.Wrap()
}

func TestStateIsZeroAndResetStreams(t *testing.T) {
	s := NewState()
	assert.True(t, s.IsZero(), "new state without bookmarks should be zero")

	users := newConfiguredStream("users", "updated_at", INCREMENTAL)
	orders := newConfiguredStream("orders", "id", INCREMENTAL)
	s.SetCursor(users, "updated_at", "2024-01-01T00:00:00Z")
	s.SetCursor(orders, "id", 10)
	require.False(t, s.IsZero())

	s.ResetStreams(users.ID())
	assert.Len(t, s.Bookmarks, 1)
	assert.NotNil(t, s.GetCursor(users, "updated_at"))
	assert.Nil(t, s.GetCursor(orders, "id"))
}

func TestStateCursorSetAndGet(t *testing.T) {
	s := NewState()
	cfg := newConfiguredStream("users", "updated_at", INCREMENTAL)

	// empty key should be ignored
	s.SetCursor(cfg, "", 10)
	assert.Nil(t, s.GetCursor(cfg, ""))

	s.SetCursor(cfg, "updated_at", "2024-02-01T00:00:00Z")
	assert.Equal(t, "2024-02-01T00:00:00Z", s.GetCursor(cfg, "updated_at"))

	// a bookmark written for another key is not reused
	assert.Nil(t, s.GetCursor(cfg, "created_at"))

	s.ResetCursor(cfg)
	assert.Nil(t, s.GetCursor(cfg, "updated_at"))
}

func TestStateJSONRoundTrip(t *testing.T) {
	raw := `{"bookmarks":{"users":{"replication_key":"updated_at","replication_key_value":"2024-03-01T10:00:00Z"}}}`

	s := &State{}
	require.NoError(t, json.Unmarshal([]byte(raw), s))
	assert.Equal(t, constants.LatestStateVersion, s.Version)

	cfg := newConfiguredStream("users", "updated_at", INCREMENTAL)
	assert.Equal(t, "2024-03-01T10:00:00Z", s.GetCursor(cfg, "updated_at"))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"bookmarks":{"users":{"replication_key":"updated_at","replication_key_value":"2024-03-01T10:00:00Z"}}}`, string(out))
}

func TestStateConcurrentSetCursor(t *testing.T) {
	s := NewState()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			s.SetCursor(newConfiguredStream("s", "id", INCREMENTAL), "id", i)
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.NotNil(t, s.GetCursor(newConfiguredStream("s", "id", INCREMENTAL), "id"))
}

func TestLogStateAndSnapshot(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.SetOutput(&buf)
	defer logger.SetOutput(prev)

	s := NewState()
	s.SetCursor(newConfiguredStream("users", "id", INCREMENTAL), "id", 7)
	s.LogState()
	assert.JSONEq(t, `{"type":"STATE","value":{"version":1,"bookmarks":{"users":{"replication_key":"id","replication_key_value":7}}}}`, buf.String())

	snapshot := s.Snapshot()
	snapshot["users"] = Bookmark{ReplicationKey: "other"}
	assert.Equal(t, "id", s.Bookmarks["users"].ReplicationKey, "snapshot must not alias state")
}
