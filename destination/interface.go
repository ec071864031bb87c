package destination

import (
	"context"

	"github.com/Widen/tap-rest-api-msdk/types"
)

type Config interface {
	Validate() error
}

type Writer interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// Check verifies the destination is usable; called once after the config is loaded
	Check(ctx context.Context) error
	// Setup announces a stream before its first record
	Setup(ctx context.Context, stream types.StreamInterface) error
	Write(ctx context.Context, stream types.StreamInterface, record types.Record) error
	// WriteState is called after every page that moved a bookmark
	WriteState(ctx context.Context, state *types.State) error
	Close(ctx context.Context) error
}
