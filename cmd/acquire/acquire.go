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

package acquire

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/srv/api"
)

const (
	DeviceOptionName  = "device"
	ModeOptionName    = "mode"
	ChannelOptionName = "channel"
)

// NewCommand creates the command group controlling the acquisition of a running server
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Control the acquisition on a running server",
	}
	cmd.AddCommand(NewStartCommand(cfg))
	cmd.AddCommand(NewPauseCommand(cfg))
	cmd.AddCommand(NewStopCommand(cfg))
	cmd.AddCommand(NewStatusCommand(cfg))
	cmd.AddCommand(NewStatsCommand(cfg))
	cmd.AddCommand(NewSeriesCommand(cfg))
	return cmd
}

func printStatus(out io.Writer, status *api.Status) {
	fmt.Fprintf(out, "State: %s\n", status.State)
	if status.Device != "" {
		fmt.Fprintf(out, "Device: %s\n", status.Device)
	}
	if status.Mode != "" {
		fmt.Fprintf(out, "Mode: %s\n", status.Mode)
	}
	fmt.Fprintf(out, "Channels: %d\n", status.ChannelCount)
	fmt.Fprintf(out, "Rows: %d\n", status.Rows)
	if c := status.Counters; c != nil {
		fmt.Fprintf(out, "Cycles: %d accepted: %d dropped: %d timeouts: %d short reads: %d malformed: %d\n",
			c.Cycles, c.Accepted, c.Dropped, c.Timeouts, c.ShortReads, c.Malformed)
	}
}

func NewStartCommand(cfg *config.Config) *cobra.Command {
	var device, mode string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start or resume the acquisition",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).Start(device, mode)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Serial device to open. Default: serial.port from the server config")
	cmd.Flags().StringVar(&mode, ModeOptionName, "", "Measurement mode stopping the acquisition after its duration")
	return cmd
}

func NewPauseCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the acquisition, the port stays open",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).Pause()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func NewStopCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the acquisition and close the port",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).Stop()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the acquisition state",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).State()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printYaml(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))
	return nil
}

func NewStatsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print min, max and average of every channel of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := command.NewApiClient(cfg).Stats()
			if err != nil {
				return err
			}
			return printYaml(cmd.OutOrStdout(), stats)
		},
	}
}

func NewSeriesCommand(cfg *config.Config) *cobra.Command {
	var channel int
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the sample rows of the current session, or the series of one channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := command.NewApiClient(cfg).Series()
			if err != nil {
				return err
			}
			if channel >= 0 {
				series := session.Series(channel)
				if series == nil {
					return fmt.Errorf("channel %d is out of range, the session has %d channels", channel, session.ChannelCount)
				}
				return printYaml(cmd.OutOrStdout(), series)
			}
			return printYaml(cmd.OutOrStdout(), session.Rows)
		},
	}
	cmd.Flags().IntVar(&channel, ChannelOptionName, -1, "Print only the series of this channel position")
	return cmd
}
