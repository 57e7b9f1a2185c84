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

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/cmd/acquire"
	"github.com/fuel-analytics/go-fuel/cmd/completion"
	"github.com/fuel-analytics/go-fuel/cmd/config"
	"github.com/fuel-analytics/go-fuel/cmd/decode"
	"github.com/fuel-analytics/go-fuel/cmd/ports"
	"github.com/fuel-analytics/go-fuel/cmd/read"
	"github.com/fuel-analytics/go-fuel/cmd/records"
	"github.com/fuel-analytics/go-fuel/cmd/serve"
	"github.com/fuel-analytics/go-fuel/cmd/simulate"
	pkgconfig "github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:           "go-fuel",
		Short:         "Tool to acquire telemetry from fuel sensor boards over a serial line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			if err := cfg.Load(); err != nil && !os.IsNotExist(err) {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			log.Debug("Using config: %s", cfg.Path())
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(acquire.NewCommand(cfg))
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(decode.NewCommand())
	cmd.AddCommand(ports.NewCommand(cfg))
	cmd.AddCommand(read.NewCommand(cfg))
	cmd.AddCommand(records.NewCommand(cfg))
	cmd.AddCommand(serve.NewCommand(cfg))
	cmd.AddCommand(simulate.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default: %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
