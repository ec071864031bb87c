package abstract

import (
	"context"
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
)

// Incremental resumes after the stored bookmark and moves it forward after
// every page, so an interrupted run restarts from the last completed page
func (a *AbstractDriver) Incremental(ctx context.Context, pool *destination.WriterPool, stream types.StreamInterface) error {
	cursorField := stream.Cursor()
	if cursorField == "" {
		return fmt.Errorf("incremental sync requires a replication key")
	}
	if err := pool.Setup(ctx, stream); err != nil {
		return err
	}

	bookmark := a.state.GetCursor(stream.Self(), cursorField)
	if bookmark != nil {
		logger.Infof("resuming stream[%s] after %s=%v", stream.ID(), cursorField, bookmark)
	}

	iterator, err := a.driver.Iterator(ctx, stream, bookmark)
	if err != nil {
		return fmt.Errorf("failed to start incremental sync: %w", err)
	}

	maxCursor, moved := bookmark, false
	for iterator.Next() {
		record := iterator.Record()
		if err := pool.Write(ctx, stream, record); err != nil {
			return err
		}

		maxCursor, moved = advanceCursor(maxCursor, record[cursorField], moved)
		if iterator.PageEnd() && moved {
			a.state.SetCursor(stream.Self(), cursorField, maxCursor)
			if err := a.checkpoint(ctx, pool); err != nil {
				return err
			}
			moved = false
		}
	}
	if err := iterator.Err(); err != nil {
		return err
	}

	if moved {
		a.state.SetCursor(stream.Self(), cursorField, maxCursor)
		return a.checkpoint(ctx, pool)
	}
	return nil
}

// advanceCursor keeps the greatest replication value seen so far
func advanceCursor(current, candidate any, moved bool) (any, bool) {
	if candidate == nil {
		return current, moved
	}
	if current == nil || typeutils.Compare(candidate, current) > 0 {
		return candidate, true
	}
	return current, moved
}
