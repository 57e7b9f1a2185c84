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

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sigs.k8s.io/yaml"
)

// Duration is a time.Duration written to the config file as a string, e.g. 2s
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain numbers are nanoseconds
		var n int64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type SerialConfig struct {
	Port        string   `json:"port,omitempty"`
	BaudRate    int      `json:"baudRate"`
	ReadTimeout Duration `json:"readTimeout"`
	FrameSize   int      `json:"frameSize"`
}

type AcquisitionConfig struct {
	Interval Duration `json:"interval"`
	// MeasurementModes maps a mode name to the measurement duration in seconds
	MeasurementModes map[string]int `json:"measurementModes"`
	Mode             string         `json:"mode,omitempty"`
}

type ApiConfig struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MqttConfig struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	Port     int    `json:"port"`
	ClientID string `json:"clientId"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Topic    string `json:"topic"`
}

type Config struct {
	FirstRun    bool               `json:"firstRun"`
	LogLevel    string             `json:"logLevel"`
	Serial      *SerialConfig      `json:"serial"`
	Acquisition *AcquisitionConfig `json:"acquisition"`
	Api         *ApiConfig         `json:"api"`
	Storage     *StorageConfig     `json:"storage"`
	Mqtt        *MqttConfig        `json:"mqtt"`
	filepath    string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. Sections absent from the
// file keep their current (default) values.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.fillDefaults()
	return c.Validate()
}

// Ensure writes the default config when the config file is missing or empty.
// It returns true when the file was (re)created.
func (c *Config) Ensure() (bool, error) {
	info, err := os.Stat(c.filepath)
	if err == nil && info.Size() > 0 {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	defaults := NewDefaultConfig()
	defaults.filepath = c.filepath
	if err := defaults.Persist(true); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return ErrInvalidConfig{What: "serial.baudRate must be positive"}
	}
	if c.Serial.FrameSize <= 0 || c.Serial.FrameSize%4 != 0 {
		return ErrInvalidConfig{What: "serial.frameSize must be a positive multiple of 4"}
	}
	if c.Serial.ReadTimeout <= 0 {
		return ErrInvalidConfig{What: "serial.readTimeout must be positive"}
	}
	if c.Acquisition.Interval <= 0 {
		return ErrInvalidConfig{What: "acquisition.interval must be positive"}
	}
	if c.Acquisition.Mode != "" {
		if _, err := c.ModeDuration(c.Acquisition.Mode); err != nil {
			return err
		}
	}
	return nil
}

// ModeDuration returns the measurement duration of a named mode
func (c *Config) ModeDuration(mode string) (time.Duration, error) {
	seconds, ok := c.Acquisition.MeasurementModes[mode]
	if !ok {
		return 0, ErrUnknownMode{Mode: mode}
	}
	return time.Duration(seconds) * time.Second, nil
}

// ModeNames returns measurement mode names ordered by duration
func (c *Config) ModeNames() []string {
	names := make([]string, 0, len(c.Acquisition.MeasurementModes))
	for name := range c.Acquisition.MeasurementModes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		mi, mj := c.Acquisition.MeasurementModes[names[i]], c.Acquisition.MeasurementModes[names[j]]
		if mi == mj {
			return names[i] < names[j]
		}
		return mi < mj
	})
	return names
}

func (c *Config) fillDefaults() {
	defaults := NewDefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Serial == nil {
		c.Serial = defaults.Serial
	}
	if c.Acquisition == nil {
		c.Acquisition = defaults.Acquisition
	}
	if c.Acquisition.MeasurementModes == nil {
		c.Acquisition.MeasurementModes = defaults.Acquisition.MeasurementModes
	}
	if c.Api == nil {
		c.Api = defaults.Api
	}
	if c.Storage == nil {
		c.Storage = defaults.Storage
	}
	if c.Mqtt == nil {
		c.Mqtt = defaults.Mqtt
	}
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir)
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		FirstRun: true,
		LogLevel: DefaultLogLevel,
		Serial: &SerialConfig{
			BaudRate:    DefaultBaudRate,
			ReadTimeout: Duration(DefaultReadTimeout),
			FrameSize:   DefaultFrameSize,
		},
		Acquisition: &AcquisitionConfig{
			Interval:         Duration(DefaultInterval),
			MeasurementModes: DefaultMeasurementModes(),
		},
		Api: &ApiConfig{
			IP:   DefaultApiIP,
			Port: DefaultApiPort,
		},
		Storage: &StorageConfig{
			Enabled: true,
			DBPath:  filepath.Join(DefaultConfigDir(), DBFile),
		},
		Mqtt: &MqttConfig{
			Enabled:  false,
			Broker:   DefaultMqttBroker,
			Port:     DefaultMqttPort,
			ClientID: DefaultMqttClientID,
			Topic:    DefaultMqttTopic,
		},
		filepath: DefaultConfigPath(),
	}
}
