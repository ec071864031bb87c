/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"context"
	"fmt"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check command",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if destinationConfigPath == notSet && configPath == notSet {
			return fmt.Errorf("no connector config or destination config provided")
		}

		if destinationConfigPath != notSet {
			if err := loadDestination(); err != nil {
				return err
			}
		}
		if configPath != notSet {
			return loadConfig()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		err := runCheck(cmd.Context())

		message := types.Message{
			Type: types.ConnectionStatusMessage,
			ConnectionStatus: &types.StatusRow{
				Status: types.ConnectionSucceed,
			},
		}
		if err != nil {
			message.ConnectionStatus.Message = err.Error()
			message.ConnectionStatus.Status = types.ConnectionFailed
		}
		return logger.Output(message)
	},
}

// runCheck validates the connector config and, when given, the destination.
// Both are checked so one run reports every problem.
func runCheck(ctx context.Context) error {
	var checks []func() error
	if configPath != notSet {
		checks = append(checks, utils.ErrExecFormat("source: %w", func() error {
			return connector.Setup(ctx)
		}))
	}
	if destinationConfigPath != notSet {
		checks = append(checks, utils.ErrExecFormat("destination: %w", func() error {
			pool, err := destination.NewWriter(ctx, destinationConfig)
			if err != nil {
				return err
			}
			return pool.Close(ctx)
		}))
	}
	return utils.ErrExecSequential(checks...)
}
