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

package serial

import (
	"errors"
	"testing"

	"go.bug.st/serial/enumerator"

	"github.com/stretchr/testify/require"
)

func stubPorts(t *testing.T, ports []string, details []*enumerator.PortDetails, err error) {
	origList, origDetailed := getPortsList, getDetailedPortsList
	getPortsList = func() ([]string, error) { return ports, err }
	getDetailedPortsList = func() ([]*enumerator.PortDetails, error) { return details, err }
	t.Cleanup(func() {
		getPortsList, getDetailedPortsList = origList, origDetailed
	})
}

func TestListAvailablePorts(t *testing.T) {
	stubPorts(t, []string{"/dev/ttyUSB1", "/dev/ttyACM0", "/dev/ttyUSB0"}, nil, nil)
	require.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyUSB1"}, ListAvailablePorts())
}

func TestListAvailablePortsNeverFails(t *testing.T) {
	stubPorts(t, nil, nil, errors.New("enumeration is not supported"))
	ports := ListAvailablePorts()
	require.NotNil(t, ports)
	require.Empty(t, ports)
	require.NotNil(t, ListDetailedPorts())

	stubPorts(t, nil, nil, nil)
	require.Equal(t, []string{}, ListAvailablePorts())
}

func TestListDetailedPorts(t *testing.T) {
	stubPorts(t, nil, []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A1"},
		nil,
		{Name: "/dev/ttyS0"},
	}, nil)
	require.Equal(t, []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A1"},
	}, ListDetailedPorts())
}
