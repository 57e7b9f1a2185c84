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

package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
)

const (
	IPOptionName     = "ip"
	PortOptionName   = "port"
	DeviceOptionName = "device"
	MqttOptionName   = "mqtt"
)

// NewCommand creates a command starting the acquisition API server
func NewCommand(cfg *config.Config) *cobra.Command {
	var ip, device string
	var port int
	var mqtt bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the acquisition server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				cfg.Api.IP = ip
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			if device != "" {
				cfg.Serial.Port = device
			}
			if mqtt {
				cfg.Mqtt.Enabled = true
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", fmt.Sprintf("IP to bind. Default: %s", config.DefaultApiIP))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. Default: %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Serial device opened on start when the request names none")
	cmd.Flags().BoolVar(&mqtt, MqttOptionName, false, "Publish sample sets to the configured MQTT broker")
	return cmd
}
