package statestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Store persists replication state between runs
type Store interface {
	Load(ctx context.Context) (*types.State, error)
	Save(ctx context.Context, state *types.State) error
	Close() error
}

// Options selects the backing store. A redis URL wins over a file path.
type Options struct {
	Path     string
	RedisURL string
	Key      string
}

// New returns the configured store, or nil when neither a path nor a redis URL is set
func New(opts Options) (Store, error) {
	switch {
	case opts.RedisURL != "":
		return NewRedisStore(opts.RedisURL, opts.Key)
	case opts.Path != "":
		return NewFileStore(opts.Path), nil
	default:
		return nil, nil
	}
}

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty state when the file is missing or blank
func (f *FileStore) Load(_ context.Context) (*types.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Infof("state file %s not found, starting from an empty state", f.path)
			return types.NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state file[%s]: %s", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return types.NewState(), nil
	}

	state := types.NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file[%s]: %s", f.path, err)
	}
	return state, nil
}

// Save writes through a temp file and renames it over the target
func (f *FileStore) Save(_ context.Context, state *types.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %s", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %s", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %s", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %s", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file[%s]: %s", f.path, err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// wire form of a state blob kept in redis
type storedState struct {
	Version   int                       `msgpack:"version"`
	Bookmarks map[string]storedBookmark `msgpack:"bookmarks"`
}

type storedBookmark struct {
	Key   string `msgpack:"key"`
	Value any    `msgpack:"value"`
}

type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(url, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %s", constants.ErrConfiguration, err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opt), key), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = constants.DefaultStateKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (*types.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Infof("no state stored under %s, starting from an empty state", r.key)
			return types.NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state from redis: %s", err)
	}

	var stored storedState
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode state from redis: %s", err)
	}

	state := types.NewState()
	if stored.Version != 0 {
		state.Version = stored.Version
	}
	for id, bookmark := range stored.Bookmarks {
		state.Bookmarks[id] = &types.Bookmark{
			ReplicationKey:      bookmark.Key,
			ReplicationKeyValue: bookmark.Value,
		}
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, state *types.State) error {
	bookmarks := state.Snapshot()
	stored := storedState{
		Version:   state.Version,
		Bookmarks: make(map[string]storedBookmark, len(bookmarks)),
	}
	for id, bookmark := range bookmarks {
		stored.Bookmarks[id] = storedBookmark{Key: bookmark.ReplicationKey, Value: bookmark.ReplicationKeyValue}
	}

	data, err := msgpack.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode state: %s", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to redis: %s", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
