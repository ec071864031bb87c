package types

import (
	"time"
)

// Message is the single line protocol object written on stdout
type Message struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream,omitempty"`
	Record             Record         `json:"record,omitempty"`
	TimeExtracted      *time.Time     `json:"time_extracted,omitempty"`
	Schema             *TypeSchema    `json:"schema,omitempty"`
	KeyProperties      []string       `json:"key_properties,omitempty"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
	Value              any            `json:"value,omitempty"`
	ConnectionStatus   *StatusRow     `json:"connectionStatus,omitempty"`
	Catalog            *Catalog       `json:"catalog,omitempty"`
	Spec               map[string]any `json:"spec,omitempty"`
}

// StatusRow is a dto for connection check result serialization
type StatusRow struct {
	Status  ConnectionStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Catalog is the discovered (or user edited) list of streams
type Catalog struct {
	Streams []*ConfiguredStream `json:"streams,omitempty"`
	// SelectedStreams restricts sync to the listed stream ids; empty selects all
	SelectedStreams []string `json:"selected_streams,omitempty"`
}

func GetWrappedCatalog(streams []*Stream) *Catalog {
	catalog := &Catalog{
		Streams: []*ConfiguredStream{},
	}

	for _, stream := range streams {
		catalog.Streams = append(catalog.Streams, stream.Wrap())
	}

	return catalog
}

// Selected reports whether a stream id takes part in the sync
func (c *Catalog) Selected(id string) bool {
	if len(c.SelectedStreams) == 0 {
		return true
	}
	for _, selected := range c.SelectedStreams {
		if selected == id {
			return true
		}
	}
	return false
}
