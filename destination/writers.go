package destination

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Widen/tap-rest-api-msdk/telemetry"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
)

type (
	Type    string
	NewFunc func() Writer

	// WriterConfig selects a registered writer and carries its settings
	WriterConfig struct {
		Type         Type `json:"type"`
		WriterConfig any  `json:"writer,omitempty"`
	}

	// WriterPool fronts the selected writer and counts what flows through it
	WriterPool struct {
		writer       Writer
		totalRecords atomic.Int64
		perStream    sync.Map // stream id -> *atomic.Int64
	}
)

const (
	Singer  Type = "singer"
	Parquet Type = "parquet"
)

var RegisteredWriters = map[Type]NewFunc{}

// NewWriter builds and checks the configured writer; an empty type selects singer
func NewWriter(ctx context.Context, config *WriterConfig) (*WriterPool, error) {
	if config == nil {
		config = &WriterConfig{}
	}
	if config.Type == "" {
		config.Type = Singer
	}

	newfunc, found := RegisteredWriters[config.Type]
	if !found {
		return nil, fmt.Errorf("invalid destination type has been passed [%s]", config.Type)
	}

	adapter := newfunc()
	if config.WriterConfig != nil {
		if err := utils.Unmarshal(config.WriterConfig, adapter.GetConfigRef()); err != nil {
			return nil, err
		}
	}
	if err := adapter.GetConfigRef().Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s destination config: %w", config.Type, err)
	}

	if err := adapter.Check(ctx); err != nil {
		return nil, fmt.Errorf("failed to test destination: %s", err)
	}

	return &WriterPool{writer: adapter}, nil
}

func NewWriterPool(writer Writer) *WriterPool {
	return &WriterPool{writer: writer}
}

func (w *WriterPool) Type() string {
	return w.writer.Type()
}

func (w *WriterPool) Setup(ctx context.Context, stream types.StreamInterface) error {
	if err := w.writer.Setup(ctx, stream); err != nil {
		return fmt.Errorf("failed to setup writer for stream[%s]: %s", stream.ID(), err)
	}
	return nil
}

func (w *WriterPool) Write(ctx context.Context, stream types.StreamInterface, record types.Record) error {
	if err := w.writer.Write(ctx, stream, record); err != nil {
		return fmt.Errorf("failed to write record of stream[%s]: %s", stream.ID(), err)
	}

	w.totalRecords.Add(1)
	counter, _ := w.perStream.LoadOrStore(stream.ID(), &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
	telemetry.RecordsTotal.WithLabelValues(stream.ID()).Inc()
	return nil
}

func (w *WriterPool) WriteState(ctx context.Context, state *types.State) error {
	return w.writer.WriteState(ctx, state)
}

// TotalRecords returns the records written during this run
func (w *WriterPool) TotalRecords() int64 {
	return w.totalRecords.Load()
}

func (w *WriterPool) StreamRecords(streamID string) int64 {
	counter, found := w.perStream.Load(streamID)
	if !found {
		return 0
	}
	return counter.(*atomic.Int64).Load()
}

func (w *WriterPool) Close(ctx context.Context) error {
	if err := w.writer.Close(ctx); err != nil {
		return fmt.Errorf("failed to close %s writer: %s", w.writer.Type(), err)
	}
	logger.Infof("%s writer closed after %d records", w.writer.Type(), w.TotalRecords())
	return nil
}
