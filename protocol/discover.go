package protocol

import (
	"errors"

	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/spf13/cobra"
)

// discoverCmd prints the catalog of every configured stream. Streams that
// fail to discover are reported and the command exits with an error, after
// the catalog of the remaining streams is written.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "discover command",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := connector.Setup(cmd.Context()); err != nil {
			return err
		}

		streams, discoverErr := connector.Discover(cmd.Context())
		if len(streams) == 0 {
			if discoverErr != nil {
				return discoverErr
			}
			return errors.New("no streams found in connector")
		}

		if err := types.LogCatalog(streams); err != nil {
			return err
		}
		if discoverErr != nil {
			logger.Errorf("discovered %d streams with failures", len(streams))
		}
		return discoverErr
	},
}
