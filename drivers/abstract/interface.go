package abstract

import (
	"context"

	"github.com/Widen/tap-rest-api-msdk/types"
)

type Config interface {
	Validate() error
}

// RecordIterator walks the pages of one stream lazily
type RecordIterator interface {
	Next() bool
	Record() types.Record
	// PageEnd reports whether the last record returned closed its page
	PageEnd() bool
	Err() error
}

type DriverInterface interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// builds the long lived collaborators (auth, transport); must run before discovery and reads
	Setup(ctx context.Context) error
	// specific to discover
	GetStreamNames(ctx context.Context) ([]string, error)
	ProduceSchema(ctx context.Context, stream string) (*types.Stream, error)
	// Iterator starts a walk of stream after bookmark; nil bookmark starts from the configured start
	Iterator(ctx context.Context, stream types.StreamInterface, bookmark any) (RecordIterator, error)
}
