/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package read

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
)

const (
	DeviceOptionName = "device"
	CountOptionName  = "count"
)

var listPorts = serial.ListAvailablePorts

// NewCommand creates a command reading frames straight from a serial port
func NewCommand(cfg *config.Config) *cobra.Command {
	var device string
	var count int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read frames from a serial port and print (channel, value) pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if device == "" {
				device = cfg.Serial.Port
			}
			if device == "" {
				chosen, err := command.ChoosePort(listPorts(), cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				device = chosen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.Read(ctx, cfg, device, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Serial device. Default: serial.port from the config, or a choice among the available ports")
	cmd.Flags().IntVar(&count, CountOptionName, 0, "Stop after this many frames, 0 means until interrupted")
	return cmd
}
