package protocol

import (
	"fmt"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// specCmd prints the JSON schema of the connector config, or of a destination
// config with --destination-type
var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "spec command",
	RunE: func(_ *cobra.Command, _ []string) error {
		var config any
		if destinationType == "" {
			config = connector.Spec()
		} else {
			newFunc, found := destination.RegisteredWriters[destination.Type(strings.ToLower(destinationType))]
			if !found {
				return fmt.Errorf("invalid destination type has been passed [%s]", destinationType)
			}
			config = newFunc().Spec()
		}

		spec, err := reflectSpec(config)
		if err != nil {
			return err
		}

		if !noSave {
			if err := logger.FileLogger(spec, "spec", ".json"); err != nil {
				logger.Warnf("failed to persist spec: %s", err)
			}
		}
		return logger.Output(types.Message{Type: types.SpecMessage, Spec: spec})
	},
}

func reflectSpec(config any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	spec := map[string]any{}
	if err := utils.Unmarshal(reflector.Reflect(config), &spec); err != nil {
		return nil, fmt.Errorf("failed to reflect config: %s", err)
	}
	return spec, nil
}
