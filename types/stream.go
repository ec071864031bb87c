package types

import (
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/utils/logger"
)

// Output stream object for discover
type Stream struct {
	// Name of the Stream
	Name string `json:"name,omitempty"`
	// Namespace of the Stream, or Database it belongs to
	Namespace string `json:"namespace,omitempty"`
	// Possible Schema of the Stream
	Schema *TypeSchema `json:"type_schema,omitempty"`
	// Supported sync modes from driver for the respective Stream
	SupportedSyncModes *Set[SyncMode] `json:"supported_sync_modes,omitempty"`
	// Primary keys of the flat row
	SourceDefinedPrimaryKey *Set[string] `json:"source_defined_primary_key,omitempty"`
	// Available cursor fields supported by driver
	AvailableCursorFields *Set[string] `json:"available_cursor_fields,omitempty"`
	// Input of JSON Schema from Client to be parsed by driver
	AdditionalProperties string `json:"additional_properties,omitempty"`
	// Renderable JSON Schema for additional properties supported by respective driver for individual stream
	AdditionalPropertiesSchema map[string]any `json:"additional_properties_schema,omitempty"`
	// Sync mode selected for the stream
	SyncMode SyncMode `json:"sync_mode,omitempty"`
	// Replication key used for incremental reads
	CursorField string `json:"cursor_field,omitempty"`
}

func NewStream(name, namespace string, schema *TypeSchema) *Stream {
	if schema == nil {
		schema = NewTypeSchema()
	}
	return &Stream{
		Name:                    name,
		Namespace:               namespace,
		SupportedSyncModes:      NewSet[SyncMode](),
		SourceDefinedPrimaryKey: NewSet[string](),
		AvailableCursorFields:   NewSet[string](),
		Schema:                  schema,
	}
}

func (s *Stream) ID() string {
	if s.Namespace == "" {
		return s.Name
	}
	return fmt.Sprintf("%s.%s", s.Namespace, s.Name)
}

func (s *Stream) WithSyncMode(modes ...SyncMode) *Stream {
	for _, mode := range modes {
		s.SupportedSyncModes.Insert(mode)
	}

	return s
}

func (s *Stream) WithPrimaryKey(keys ...string) *Stream {
	for _, key := range keys {
		s.SourceDefinedPrimaryKey.Insert(key)
	}

	return s
}

func (s *Stream) WithCursorField(columns ...string) *Stream {
	for _, column := range columns {
		s.AvailableCursorFields.Insert(column)
	}

	return s
}

func (s *Stream) WithSchema(schema *TypeSchema) *Stream {
	s.Schema = schema
	return s
}

// UpsertField adds a column, or widens its types if it is already present
func (s *Stream) UpsertField(column string, typ DataType, nullable bool) {
	types := []DataType{typ}
	if nullable {
		types = append(types, Null)
	}
	s.Schema.AddTypes(column, types...)
}

func (s *Stream) Wrap() *ConfiguredStream {
	return &ConfiguredStream{
		Stream: s,
	}
}

func StreamsToMap(streams ...*Stream) map[string]*Stream {
	output := make(map[string]*Stream)
	for _, stream := range streams {
		output[stream.ID()] = stream
	}

	return output
}

// LogCatalog prints the catalog on stdout and persists it next to the config
func LogCatalog(streams []*Stream) error {
	catalog := GetWrappedCatalog(streams)
	if err := logger.Output(Message{Type: CatalogMessage, Catalog: catalog}); err != nil {
		return err
	}

	if err := logger.FileLogger(catalog, "streams", ".json"); err != nil {
		logger.Warnf("failed to persist catalog: %s", err)
	}
	return nil
}
