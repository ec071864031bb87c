package abstract

import (
	"context"
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
)

// Backfill reads the whole stream and leaves its bookmark untouched
func (a *AbstractDriver) Backfill(ctx context.Context, pool *destination.WriterPool, stream types.StreamInterface) error {
	if err := pool.Setup(ctx, stream); err != nil {
		return err
	}

	iterator, err := a.driver.Iterator(ctx, stream, nil)
	if err != nil {
		return fmt.Errorf("failed to start full refresh: %w", err)
	}
	for iterator.Next() {
		if err := pool.Write(ctx, stream, iterator.Record()); err != nil {
			return err
		}
	}
	return iterator.Err()
}
