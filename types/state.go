package types

import (
	"sync"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/goccy/go-json"
)

// State holds one replication bookmark per stream
type State struct {
	*sync.RWMutex `json:"-"`

	Version   int                  `json:"version,omitempty"`
	Bookmarks map[string]*Bookmark `json:"bookmarks"`
}

// Bookmark is the last seen replication key value of a stream
type Bookmark struct {
	ReplicationKey      string `json:"replication_key,omitempty"`
	ReplicationKeyValue any    `json:"replication_key_value,omitempty"`
}

func NewState() *State {
	return &State{
		RWMutex:   &sync.RWMutex{},
		Version:   constants.LatestStateVersion,
		Bookmarks: map[string]*Bookmark{},
	}
}

func (s *State) init() {
	if s.RWMutex == nil {
		s.RWMutex = &sync.RWMutex{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = map[string]*Bookmark{}
	}
}

func (s *State) IsZero() bool {
	s.init()
	s.RLock()
	defer s.RUnlock()

	return len(s.Bookmarks) == 0
}

// GetCursor returns the stored value when the bookmark was written for the same key
func (s *State) GetCursor(stream *ConfiguredStream, key string) any {
	s.init()
	s.RLock()
	defer s.RUnlock()

	if key == "" {
		return nil
	}
	bookmark, found := s.Bookmarks[stream.ID()]
	if !found || bookmark.ReplicationKey != key {
		return nil
	}
	return bookmark.ReplicationKeyValue
}

func (s *State) SetCursor(stream *ConfiguredStream, key string, value any) {
	s.init()
	s.Lock()
	defer s.Unlock()

	if key == "" {
		return
	}
	s.Bookmarks[stream.ID()] = &Bookmark{
		ReplicationKey:      key,
		ReplicationKeyValue: value,
	}
}

func (s *State) ResetCursor(stream *ConfiguredStream) {
	s.init()
	s.Lock()
	defer s.Unlock()

	delete(s.Bookmarks, stream.ID())
}

// ResetStreams drops bookmarks of streams that are not listed
func (s *State) ResetStreams(keep ...string) {
	s.init()
	s.Lock()
	defer s.Unlock()

	retained := map[string]*Bookmark{}
	for _, id := range keep {
		if bookmark, found := s.Bookmarks[id]; found {
			retained[id] = bookmark
		}
	}
	s.Bookmarks = retained
}

// Snapshot copies the bookmarks under the read lock
func (s *State) Snapshot() map[string]Bookmark {
	s.init()
	s.RLock()
	defer s.RUnlock()

	out := make(map[string]Bookmark, len(s.Bookmarks))
	for id, bookmark := range s.Bookmarks {
		if bookmark != nil {
			out[id] = *bookmark
		}
	}
	return out
}

// LogState writes the state as a STATE message on stdout
func (s *State) LogState() {
	if err := logger.Output(Message{Type: StateMessage, Value: s}); err != nil {
		logger.Errorf("failed to emit state: %s", err)
	}
}

func (s *State) MarshalJSON() ([]byte, error) {
	s.init()
	s.RLock()
	defer s.RUnlock()

	type Alias State
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(s),
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	type Alias State
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	s.init()
	if s.Version == 0 {
		s.Version = constants.LatestStateVersion
	}
	constants.LoadedStateVersion = s.Version
	return nil
}
