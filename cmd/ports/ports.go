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

package ports

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
)

const (
	RemoteOptionName = "remote"
)

func printPorts(out io.Writer, ports []serial.PortInfo) {
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Fprintf(out, "%s\tUSB %s:%s %s\n", p.Name, p.VID, p.PID, p.SerialNumber)
			continue
		}
		fmt.Fprintln(out, p.Name)
	}
}

// NewCommand creates a command listing serial ports
func NewCommand(cfg *config.Config) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !remote {
				printPorts(cmd.OutOrStdout(), serial.ListDetailedPorts())
				return nil
			}
			ports, err := command.NewApiClient(cfg).Ports()
			if err != nil {
				return err
			}
			printPorts(cmd.OutOrStdout(), ports)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, RemoteOptionName, false, "List ports seen by the running server")
	return cmd
}
