package driver

import (
	"context"
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/pkg/pagination"
	"github.com/Widen/tap-rest-api-msdk/pkg/request"
	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/Widen/tap-rest-api-msdk/telemetry"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
)

// RecordIterator requests one page at a time and yields its flattened records.
// Pages are fetched only when the previous one is drained.
type RecordIterator struct {
	ctx         context.Context
	stream      string
	client      *transport.Client
	builder     *request.Parameterizer
	paginator   *pagination.Paginator
	flattener   *typeutils.FlattenerImpl
	recordsPath string
	start       any
	// limit stops the walk after that many records; 0 walks every page
	limit int

	cursor  pagination.Cursor
	done    bool
	buffer  []types.Record
	pos     int
	emitted int
	record  types.Record
	pageEnd bool
	err     error
}

func newRecordIterator(ctx context.Context, client *transport.Client, cfg *StreamConfig, start any, limit int) (*RecordIterator, error) {
	paginator, err := pagination.New(pagination.Options{
		Style:             cfg.PaginationRequestStyle,
		NextPageTokenPath: cfg.NextPageTokenPath,
		HasMorePath:       cfg.HasMorePath,
		TotalLimitParam:   cfg.TotalLimitParam,
		RecordsPath:       cfg.RecordsPath,
		PageSize:          cfg.PageSize,
		ResultsLimit:      cfg.ResultsLimit,
		InitialOffset:     cfg.InitialOffset,
		ReplicationKey:    cfg.ReplicationKey,
		UseFakeSince:      cfg.UseFakeSince,
	})
	if err != nil {
		return nil, err
	}

	builder, err := request.New(request.Options{
		Style:             cfg.PaginationResponseStyle,
		Path:              cfg.Path,
		Params:            cfg.StringParams(),
		Headers:           cfg.Headers,
		NextPageParam:     cfg.NextPageParam,
		LimitPerPageParam: cfg.LimitPerPageParam,
		PageSize:          cfg.PageSize,
		ReplicationKey:    cfg.ReplicationKey,
		SearchField:       cfg.SearchField,
		SearchQuery:       cfg.SearchQuery,
		SearchParameter:   cfg.SearchParameter,
		SearchPrefix:      cfg.SearchPrefix,
		UseFakeSince:      cfg.UseFakeSince,
		UseRequestBody:    cfg.UseRequestBody,
	})
	if err != nil {
		return nil, err
	}

	return &RecordIterator{
		ctx:         ctx,
		stream:      cfg.Name,
		client:      client,
		builder:     builder,
		paginator:   paginator,
		flattener:   typeutils.NewFlattener(cfg.ExceptKeys, cfg.StoreRawJSONMessage),
		recordsPath: cfg.RecordsPath,
		start:       start,
		limit:       limit,
		cursor:      paginator.Current(),
	}, nil
}

func (it *RecordIterator) Next() bool {
	for it.err == nil {
		if it.limit > 0 && it.emitted >= it.limit {
			return false
		}
		if it.pos < len(it.buffer) {
			it.record = it.buffer[it.pos]
			it.pos++
			it.emitted++
			it.pageEnd = it.pos == len(it.buffer)
			return true
		}
		if it.done {
			return false
		}
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
		}
	}
	return false
}

func (it *RecordIterator) Record() types.Record { return it.record }

func (it *RecordIterator) PageEnd() bool { return it.pageEnd }

func (it *RecordIterator) Err() error { return it.err }

// Pages is the number of responses consumed so far
func (it *RecordIterator) Pages() int { return it.paginator.PageCount() }

// fetch requests the page at the current cursor and moves the cursor on
func (it *RecordIterator) fetch() error {
	spec, err := it.builder.Build(it.cursor, it.start)
	if err != nil {
		return fmt.Errorf("stream[%s]: failed to build request: %w", it.stream, err)
	}

	resp, err := it.client.Execute(it.ctx, spec.Request())
	if err != nil {
		return fmt.Errorf("stream[%s]: page %d: %w", it.stream, it.paginator.PageCount()+1, err)
	}
	telemetry.PagesTotal.WithLabelValues(it.stream).Inc()

	raw, err := typeutils.ExtractJSONPath(it.recordsPath, resp.JSON)
	if err != nil {
		return fmt.Errorf("stream[%s]: %w", it.stream, err)
	}

	it.buffer = make([]types.Record, 0, len(raw))
	it.pos = 0
	for _, record := range raw {
		flat, err := it.flattener.Flatten(record)
		if err != nil {
			return fmt.Errorf("stream[%s]: %w", it.stream, err)
		}
		it.buffer = append(it.buffer, flat)
	}

	next, more := it.paginator.Advance(resp)
	logger.Debugf("stream[%s]: page %d returned %d records, more=%t", it.stream, it.paginator.PageCount(), len(raw), more)
	it.cursor = next
	it.done = !more
	return nil
}
