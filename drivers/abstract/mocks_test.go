package abstract

import (
	"context"
	"sync"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
)

// RecordingWriter keeps everything it receives in memory
type RecordingWriter struct {
	mu      sync.Mutex
	setups  []string
	records map[string][]types.Record
	states  []map[string]types.Bookmark
}

type NoopConfig struct{}

func (c *NoopConfig) Validate() error {
	return nil
}

func newRecordingWriter() *RecordingWriter {
	return &RecordingWriter{records: map[string][]types.Record{}}
}

func (w *RecordingWriter) GetConfigRef() destination.Config { return &NoopConfig{} }
func (w *RecordingWriter) Spec() any                        { return map[string]any{} }
func (w *RecordingWriter) Type() string                     { return "recording" }
func (w *RecordingWriter) Check(_ context.Context) error    { return nil }
func (w *RecordingWriter) Close(_ context.Context) error    { return nil }

func (w *RecordingWriter) Setup(_ context.Context, stream types.StreamInterface) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setups = append(w.setups, stream.ID())
	return nil
}

func (w *RecordingWriter) Write(_ context.Context, stream types.StreamInterface, record types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records[stream.ID()] = append(w.records[stream.ID()], record)
	return nil
}

func (w *RecordingWriter) WriteState(_ context.Context, state *types.State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states = append(w.states, state.Snapshot())
	return nil
}

// pageIterator serves fixed pages and optionally fails after them
type pageIterator struct {
	pages   [][]types.Record
	failErr error

	page, pos int
	record    types.Record
	pageEnd   bool
	err       error
}

func (it *pageIterator) Next() bool {
	for it.page < len(it.pages) {
		current := it.pages[it.page]
		if it.pos < len(current) {
			it.record = current[it.pos]
			it.pos++
			it.pageEnd = it.pos == len(current)
			return true
		}
		it.page++
		it.pos = 0
	}
	it.err = it.failErr
	return false
}

func (it *pageIterator) Record() types.Record { return it.record }
func (it *pageIterator) PageEnd() bool        { return it.pageEnd }
func (it *pageIterator) Err() error           { return it.err }

type MockDriver struct {
	getStreamNamesFunc func(ctx context.Context) ([]string, error)
	produceSchemaFunc  func(ctx context.Context, stream string) (*types.Stream, error)
	iteratorFunc       func(ctx context.Context, stream types.StreamInterface, bookmark any) (RecordIterator, error)
	setupCalls         int
}

func (m *MockDriver) GetConfigRef() Config { return &NoopConfig{} }
func (m *MockDriver) Spec() any            { return map[string]any{} }
func (m *MockDriver) Type() string         { return "mock" }

func (m *MockDriver) Setup(_ context.Context) error {
	m.setupCalls++
	return nil
}

func (m *MockDriver) GetStreamNames(ctx context.Context) ([]string, error) {
	if m.getStreamNamesFunc != nil {
		return m.getStreamNamesFunc(ctx)
	}
	return nil, nil
}

func (m *MockDriver) ProduceSchema(ctx context.Context, stream string) (*types.Stream, error) {
	if m.produceSchemaFunc != nil {
		return m.produceSchemaFunc(ctx, stream)
	}
	return createMockStream(stream, ""), nil
}

func (m *MockDriver) Iterator(ctx context.Context, stream types.StreamInterface, bookmark any) (RecordIterator, error) {
	if m.iteratorFunc != nil {
		return m.iteratorFunc(ctx, stream, bookmark)
	}
	return &pageIterator{}, nil
}

func createMockStream(name, cursor string) *types.Stream {
	schema := types.NewTypeSchema()
	schema.AddTypes("id", types.Int64)
	stream := types.NewStream(name, "", schema).WithPrimaryKey("id").WithSyncMode(types.FULLREFRESH)
	if cursor != "" {
		schema.AddTypes(cursor, types.Timestamp)
		stream.WithSyncMode(types.INCREMENTAL).WithCursorField(cursor)
		stream.CursorField = cursor
	}
	return stream
}

func createConfiguredStream(name, cursor string, mode types.SyncMode) *types.ConfiguredStream {
	stream := createMockStream(name, cursor)
	stream.SyncMode = mode
	return stream.Wrap()
}
