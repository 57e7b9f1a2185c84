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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempConfig(t *testing.T) *Config {
	cfg := NewDefaultConfig()
	cfg.SetPath(filepath.Join(t.TempDir(), "nested", ConfigFile))
	return cfg
}

func TestPersistAndLoad(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Serial.ReadTimeout = Duration(3 * time.Second)
	cfg.Acquisition.Mode = "t_1"
	require.NoError(t, cfg.Persist(false))

	data, err := os.ReadFile(cfg.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), "readTimeout: 3s")

	loaded := NewDefaultConfig()
	loaded.SetPath(cfg.Path())
	require.NoError(t, loaded.Load())
	require.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	require.Equal(t, 3*time.Second, loaded.Serial.ReadTimeout.Duration())
	require.Equal(t, DefaultBaudRate, loaded.Serial.BaudRate)
	require.Equal(t, "t_1", loaded.Acquisition.Mode)
}

func TestPersistRefusesOverwrite(t *testing.T) {
	cfg := tempConfig(t)
	require.NoError(t, cfg.Persist(false))

	err := cfg.Persist(false)
	require.Equal(t, ErrConfigFileExists{Path: cfg.Path()}, err)
	require.NoError(t, cfg.Persist(true))
}

func TestEnsure(t *testing.T) {
	cfg := tempConfig(t)

	created, err := cfg.Ensure()
	require.NoError(t, err)
	require.True(t, created)

	created, err = cfg.Ensure()
	require.NoError(t, err)
	require.False(t, created)

	// an empty file is refilled with defaults
	require.NoError(t, os.WriteFile(cfg.Path(), nil, 0644))
	created, err = cfg.Ensure()
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, cfg.Load())
	require.True(t, cfg.FirstRun)
}

func TestLoadKeepsMissingSections(t *testing.T) {
	cfg := tempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Path()), 0755))
	require.NoError(t, os.WriteFile(cfg.Path(), []byte("logLevel: debug\nserial:\n  port: COM3\n"), 0644))

	require.NoError(t, cfg.Load())
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "COM3", cfg.Serial.Port)
	require.Equal(t, DefaultFrameSize, cfg.Serial.FrameSize)
	require.Equal(t, DefaultInterval, cfg.Acquisition.Interval.Duration())
	require.Equal(t, DefaultApiPort, cfg.Api.Port)
}

func TestLoadRejectsBadFrameSize(t *testing.T) {
	cfg := tempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Path()), 0755))
	require.NoError(t, os.WriteFile(cfg.Path(), []byte("serial:\n  frameSize: 30\n"), 0644))

	err := cfg.Load()
	require.Error(t, err)
	require.IsType(t, ErrInvalidConfig{}, err)
}

func TestModes(t *testing.T) {
	cfg := NewDefaultConfig()

	d, err := cfg.ModeDuration("t_0")
	require.NoError(t, err)
	require.Equal(t, 40*time.Second, d)

	_, err = cfg.ModeDuration("t_9")
	require.Equal(t, ErrUnknownMode{Mode: "t_9"}, err)

	require.Equal(t, []string{"t_0", "t_1"}, cfg.ModeNames())
}
