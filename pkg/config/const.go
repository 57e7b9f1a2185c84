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

package config

import "time"

const (
	ConfigDir  = ".go-fuel"
	ConfigFile = "config"
	DBFile     = "samples.db"

	DefaultLogLevel    = "info"
	DefaultBaudRate    = 57600
	DefaultReadTimeout = 2 * time.Second
	DefaultFrameSize   = 32
	DefaultInterval    = 1000 * time.Millisecond
	DefaultApiIP       = "127.0.0.1"
	DefaultApiPort     = 8056

	DefaultMqttBroker   = "localhost"
	DefaultMqttPort     = 1883
	DefaultMqttClientID = "go-fuel"
	DefaultMqttTopic    = "go-fuel/samples"
)

// DefaultMeasurementModes maps a mode name to the measurement duration in seconds
func DefaultMeasurementModes() map[string]int {
	return map[string]int{
		"t_0": 40,
		"t_1": 60,
	}
}
