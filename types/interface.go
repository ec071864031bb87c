package types

type StreamInterface interface {
	ID() string
	Self() *ConfiguredStream
	Name() string
	Namespace() string
	Schema() *TypeSchema
	GetStream() *Stream
	GetSyncMode() SyncMode
	SupportedSyncModes() *Set[SyncMode]
	Cursor() string
	PrimaryKeys() []string
	Validate(source *Stream) error
}

type Iterable interface {
	Next() bool
	Err() error
}
