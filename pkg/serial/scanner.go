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
	"sort"

	goserial "go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/fuel-analytics/go-fuel/pkg/log"
)

// PortInfo holds details about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"isUsb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

var (
	getPortsList         = goserial.GetPortsList
	getDetailedPortsList = enumerator.GetDetailedPortsList
)

// ListAvailablePorts returns the sorted serial device identifiers known to the OS.
// It never fails, an empty list is returned when nothing can be enumerated.
func ListAvailablePorts() []string {
	ports, err := getPortsList()
	if err != nil {
		log.Debug("Error while enumerating serial ports: %s", err)
		return []string{}
	}
	result := make([]string, 0, len(ports))
	result = append(result, ports...)
	sort.Strings(result)
	return result
}

// ListDetailedPorts returns the serial ports with USB details, sorted by name
func ListDetailedPorts() []PortInfo {
	ports, err := getDetailedPortsList()
	if err != nil {
		log.Debug("Error while enumerating serial ports: %s", err)
		return []PortInfo{}
	}
	result := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		if p == nil {
			continue
		}
		result = append(result, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
