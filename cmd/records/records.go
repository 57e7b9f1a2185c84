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

package records

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/store"
)

const (
	LocalOptionName = "local"
)

// NewCommand creates a command printing stored sample rows as yaml
func NewCommand(cfg *config.Config) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print stored sample rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []store.Record
			var err error
			if local {
				records, err = readLocal(cfg.Storage.DBPath)
			} else {
				records, err = command.NewApiClient(cfg).Records()
			}
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(records)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, LocalOptionName, false, "Read the store file directly instead of asking the server")
	cmd.AddCommand(NewDeleteCommand(cfg))
	return cmd
}

func readLocal(path string) ([]store.Record, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ReadAll()
}

func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			return command.NewApiClient(cfg).DeleteRecord(id)
		},
	}
}
