package protocol

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/drivers/abstract"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const notSet = "not-set"

var (
	configPath            string
	destinationConfigPath string
	destinationType       string
	catalogPath           string
	statePath             string
	stateRedisURL         string
	stateKey              string
	metricsAddr           string
	noSave                bool
	encryptionKey         string

	catalog           *types.Catalog
	destinationConfig *destination.WriterConfig

	commands  = []*cobra.Command{}
	connector *abstract.AbstractDriver
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tap-rest-api",
	Short: "configuration driven REST API tap",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		viper.AutomaticEnv()
		viper.SetDefault(constants.ConfigFolder, os.TempDir())
		viper.SetDefault(constants.LogLevel, "info")

		if !noSave {
			configFolder := utils.Ternary(configPath == notSet, filepath.Dir(destinationConfigPath), filepath.Dir(configPath)).(string)
			if configPath == notSet && destinationConfigPath == notSet {
				configFolder = os.TempDir()
			}
			viper.Set(constants.ConfigFolder, configFolder)
			viper.Set(constants.StreamsPath, utils.Ternary(catalogPath == "", filepath.Join(configFolder, "streams.json"), catalogPath))
		} else {
			viper.Set(constants.NoLogFile, true)
			viper.Set(constants.ConfigFolder, "")
		}
		if statePath != "" {
			viper.Set(constants.StatePath, statePath)
		}
		if encryptionKey != "" {
			viper.Set(constants.EncryptionKey, encryptionKey)
		}

		// logger uses CONFIG_FOLDER
		logger.Init()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'tap-rest-api --help' to display usage guide", args[0])
		}
		return nil
	},
}

func CreateRootCommand(driver abstract.DriverInterface) *cobra.Command {
	RootCmd.AddCommand(commands...)
	connector = abstract.NewAbstractDriver(driver)

	return RootCmd
}

// loadConfig decodes --config into the driver config, resolving encrypted values
func loadConfig() error {
	if configPath == notSet || configPath == "" {
		return fmt.Errorf("--config not passed")
	}
	return utils.UnmarshalFile(configPath, connector.GetConfigRef(), true)
}

// loadDestination decodes --destination; without one records go to stdout as singer messages
func loadDestination() error {
	destinationConfig = &destination.WriterConfig{Type: destination.Singer}
	if destinationConfigPath == notSet || destinationConfigPath == "" {
		return nil
	}
	return utils.UnmarshalFile(destinationConfigPath, destinationConfig, true)
}

func init() {
	commands = append(commands, specCmd, checkCmd, discoverCmd, syncCmd)
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "", notSet, "(Required) Config for connector")
	RootCmd.PersistentFlags().StringVarP(&destinationConfigPath, "destination", "", notSet, "(Optional) Destination config; records are written as singer messages on stdout when absent")
	RootCmd.PersistentFlags().StringVarP(&destinationType, "destination-type", "", "", "(Optional) Destination type for spec")
	RootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "", "", "(Optional) Path to the catalog selecting streams to sync")
	RootCmd.PersistentFlags().StringVarP(&statePath, "state", "", "", "(Optional) Path of the state file")
	RootCmd.PersistentFlags().StringVarP(&stateRedisURL, "state-redis-url", "", "", "(Optional) Redis url keeping the state instead of a file")
	RootCmd.PersistentFlags().StringVarP(&stateKey, "state-key", "", constants.DefaultStateKey, "(Optional) Redis key of the state")
	RootCmd.PersistentFlags().StringVarP(&metricsAddr, "metrics-addr", "", "", "(Optional) Address serving prometheus metrics during sync, e.g. :9090")
	RootCmd.PersistentFlags().BoolVarP(&noSave, "no-save", "", false, "(Optional) Flag to skip logging artifacts in file")
	RootCmd.PersistentFlags().StringVarP(&encryptionKey, "encryption-key", "", "", "(Optional) Decryption key. Provide the ARN of a KMS key or a custom string.")
	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
