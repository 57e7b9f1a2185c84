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

package decode

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

const (
	decodeExample = `
Decode one record
# go-fuel decode 00000010
(1, 0)
`
)

// NewCommand creates a command decoding a hex encoded frame
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decode <hex>",
		Short:   "Decode a hex encoded frame and print (channel, value) pairs",
		Example: decodeExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.Join(args, ""))
			if err != nil {
				return err
			}
			samples, err := layers.DecodePacket(raw)
			if err != nil {
				return err
			}
			for _, s := range samples {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	return cmd
}
