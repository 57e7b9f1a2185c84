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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuel-analytics/go-fuel/pkg/command"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
)

func execute(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := NewCommand(cfg)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func withPorts(t *testing.T, ports ...string) {
	saved := listPorts
	listPorts = func() []string { return ports }
	t.Cleanup(func() { listPorts = saved })
}

func TestReadAsksForPort(t *testing.T) {
	dir := t.TempDir()
	withPorts(t, dir+"/ttyA", dir+"/ttyB")

	out, err := execute(t, config.NewDefaultConfig(), "2\n")
	require.Contains(t, out, "1: "+dir+"/ttyA\n2: "+dir+"/ttyB\n")
	var connErr serial.ErrConnection
	require.True(t, errors.As(err, &connErr), err)
	require.Equal(t, dir+"/ttyB", connErr.Device)
}

func TestReadTakesTheOnlyPort(t *testing.T) {
	dir := t.TempDir()
	withPorts(t, dir+"/ttyA")

	out, err := execute(t, config.NewDefaultConfig(), "")
	require.Empty(t, out)
	var connErr serial.ErrConnection
	require.True(t, errors.As(err, &connErr), err)
	require.Equal(t, dir+"/ttyA", connErr.Device)
}

func TestReadWithoutPorts(t *testing.T) {
	withPorts(t)
	_, err := execute(t, config.NewDefaultConfig(), "")
	require.Equal(t, command.ErrNoPorts{}, err)
}

func TestReadDeviceFlagSkipsChoice(t *testing.T) {
	withPorts(t)
	dir := t.TempDir()
	_, err := execute(t, config.NewDefaultConfig(), "", "--device", dir+"/ttyX")
	var connErr serial.ErrConnection
	require.True(t, errors.As(err, &connErr), err)
	require.Equal(t, dir+"/ttyX", connErr.Device)
}
