package protocol

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/pkg/statestore"
	"github.com/Widen/tap-rest-api-msdk/telemetry"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/safego"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// syncCmd reads the selected streams and hands their records to the destination
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Tap sync command",
	Long:  `Sync command reads every selected stream page by page and writes records, schemas and state to the destination`,
	Example: `
// Base command, singer messages on stdout:
tap-rest-api sync --config path/to/config

// With a catalog, a state file and a parquet destination:
tap-rest-api sync --config path/to/config --catalog path/to/catalog --state path/to/state --destination path/to/destination

// Keeping state in redis:
tap-rest-api sync --config path/to/config --state-redis-url redis://localhost:6379/0
`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if err := loadDestination(); err != nil {
			return err
		}

		catalog = nil
		if catalogPath != "" {
			catalog = &types.Catalog{}
			if err := utils.UnmarshalFile(catalogPath, catalog, false); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		startTime := time.Now()
		err := runSync(ctx)
		telemetry.TrackSyncResult(telemetry.ComputeConfigHash(configPath), err == nil)
		if err != nil {
			return err
		}

		logger.Infof("Sync completed in %s", time.Since(startTime).Round(time.Millisecond))
		return nil
	},
}

func runSync(ctx context.Context) error {
	store, err := statestore.New(statestore.Options{
		Path:     statePath,
		RedisURL: stateRedisURL,
		Key:      stateKey,
	})
	if err != nil {
		return err
	}

	state := types.NewState()
	if store != nil {
		defer store.Close()
		if state, err = store.Load(ctx); err != nil {
			return err
		}
	}
	connector.SetupState(state, store)

	if err := connector.Setup(ctx); err != nil {
		return err
	}

	streams, discoverErr := connector.Discover(ctx)
	if discoverErr != nil {
		if len(streams) == 0 {
			return discoverErr
		}
		logger.Warnf("some streams could not be discovered and are skipped: %s", discoverErr)
	}

	selected, err := selectStreams(catalog, streams)
	if err != nil {
		return err
	}

	pool, err := destination.NewWriter(ctx, destinationConfig)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	readCtx, finished := context.WithCancel(groupCtx)
	if metricsAddr != "" {
		group.Go(safego.Go(func() error {
			return telemetry.Serve(readCtx, metricsAddr)
		}))
	}
	group.Go(safego.Go(func() error {
		defer finished()
		return connector.Read(readCtx, pool, selected...)
	}))

	readErr := group.Wait()
	// flush files even when reading failed; the state already points at the last written page
	closeErr := pool.Close(context.Background())
	if readErr != nil {
		return readErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close destination: %s", closeErr)
	}

	logger.Infof("Total records read: %d", pool.TotalRecords())
	return nil
}
