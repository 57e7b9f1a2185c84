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

package simulate

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/simulator"
)

const (
	ChannelsOptionName = "channels"
	CountOptionName    = "count"
	SeedOptionName     = "seed"
)

// NewCommand creates a command emulating a sensor board on a pseudo-terminal
func NewCommand(cfg *config.Config) *cobra.Command {
	var channels int
	var count uint64
	var seed int64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Emulate a sensor board on a pseudo-terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if channels <= 0 || channels*layers.RecordSize > cfg.Serial.FrameSize {
				return fmt.Errorf("channels must be between 1 and %d", cfg.Serial.FrameSize/layers.RecordSize)
			}
			term, err := simulator.OpenTerminal()
			if err != nil {
				return err
			}
			defer term.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Simulated device: %s\n", term.Device())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sim := simulator.New(term.Master, simulator.RandomWalk(channels, seed), cfg.Acquisition.Interval.Duration())
			if err := sim.Run(ctx, count); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&channels, ChannelsOptionName, layers.FrameSize/layers.RecordSize, "Number of channels per frame")
	cmd.Flags().Uint64Var(&count, CountOptionName, 0, "Stop after this many frames, 0 means until interrupted")
	cmd.Flags().Int64Var(&seed, SeedOptionName, time.Now().UnixNano(), "Random seed")
	return cmd
}
