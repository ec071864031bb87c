package abstract

import (
	"context"
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/pkg/statestore"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/hashicorp/go-multierror"
)

type AbstractDriver struct { //nolint:revive
	driver DriverInterface
	state  *types.State
	store  statestore.Store
}

func NewAbstractDriver(driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{
		driver: driver,
		state:  types.NewState(),
	}
}

// SetupState attaches the loaded state and the store that checkpoints it; store may be nil
func (a *AbstractDriver) SetupState(state *types.State, store statestore.Store) {
	if state == nil {
		state = types.NewState()
	}
	a.state = state
	a.store = store
}

func (a *AbstractDriver) State() *types.State {
	return a.state
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() any {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

func (a *AbstractDriver) Setup(ctx context.Context) error {
	return a.driver.Setup(ctx)
}

// Discover produces the schema of every stream in configuration order. A
// failing stream does not stop the others; failures are returned together
// next to the streams that did succeed.
func (a *AbstractDriver) Discover(ctx context.Context) ([]*types.Stream, error) {
	names, err := a.driver.GetStreamNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream names: %s", err)
	}

	var (
		streams []*types.Stream
		errs    *multierror.Error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return streams, err
		}

		stream, err := a.driver.ProduceSchema(ctx, name)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to produce schema for stream %s: %w", name, err))
			continue
		}

		// incremental whenever a replication key is available
		if stream.SupportedSyncModes.Exists(types.INCREMENTAL) && stream.CursorField != "" {
			stream.SyncMode = types.INCREMENTAL
		} else {
			stream.SyncMode = types.FULLREFRESH
		}
		streams = append(streams, stream)
		logger.Infof("discovered stream[%s] with %d columns", stream.ID(), len(stream.Schema.Columns()))
	}

	return streams, errs.ErrorOrNil()
}

// Read syncs streams one after another in the given order
func (a *AbstractDriver) Read(ctx context.Context, pool *destination.WriterPool, streams ...types.StreamInterface) error {
	for _, stream := range streams {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Infof("Reading stream %s", stream.ID())
		var err error
		switch stream.GetSyncMode() {
		case types.INCREMENTAL:
			err = a.Incremental(ctx, pool, stream)
		default:
			err = a.Backfill(ctx, pool, stream)
		}
		if err != nil {
			return fmt.Errorf("error occurred while reading records of stream %s: %w", stream.ID(), err)
		}
		logger.Infof("Finished reading stream %s, %d records", stream.ID(), pool.StreamRecords(stream.ID()))
	}
	return nil
}

// checkpoint hands the state to the writer and persists it
func (a *AbstractDriver) checkpoint(ctx context.Context, pool *destination.WriterPool) error {
	if err := pool.WriteState(ctx, a.state); err != nil {
		return fmt.Errorf("failed to write state: %s", err)
	}
	if a.store != nil {
		if err := a.store.Save(ctx, a.state); err != nil {
			return fmt.Errorf("failed to save state: %s", err)
		}
	}
	return nil
}
