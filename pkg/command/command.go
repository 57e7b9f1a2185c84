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

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
	"github.com/fuel-analytics/go-fuel/pkg/metrics"
	"github.com/fuel-analytics/go-fuel/pkg/publish"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
	"github.com/fuel-analytics/go-fuel/pkg/srv/api"
	"github.com/fuel-analytics/go-fuel/pkg/store"
)

// StartServer wires the acquisition loop with its sinks and serves the API
// until ctx is done
func StartServer(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	hub := api.NewHub()
	loopOpts := []acquire.Option{
		acquire.WithFrameSize(cfg.Serial.FrameSize),
		acquire.WithObserver(m),
		acquire.WithSink(hub),
	}
	apiOpts := []api.Option{
		api.WithMetrics(m),
		api.WithHub(hub),
	}

	if cfg.Storage.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			return err
		}
		st, err := store.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		loopOpts = append(loopOpts, acquire.WithSink(store.NewSink(st)))
		apiOpts = append(apiOpts, api.WithStore(st))
	}

	if cfg.Mqtt.Enabled {
		client := publish.NewClient(cfg.Mqtt)
		go func() {
			if err := publish.Connect(ctx, client); err != nil {
				log.Debug("MQTT connect aborted: %s", err)
			}
		}()
		defer client.Disconnect(250)
		loopOpts = append(loopOpts, acquire.WithSink(publish.NewPublisher(client, cfg.Mqtt.Topic)))
	}

	loop := acquire.NewLoop(loopOpts...)
	return api.NewApiServer(ctx, cfg, loop, apiOpts...).Run()
}

// FormatSamples renders a sample set the way the console prints it
func FormatSamples(samples []layers.Sample) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// ConsoleSink prints every sample set as a line of (channel, value) pairs
func ConsoleSink(w io.Writer) acquire.Sink {
	return acquire.SinkFunc(func(samples []layers.Sample, seq uint64) {
		fmt.Fprintln(w, FormatSamples(samples))
	})
}

// Read opens the device and prints decoded frames until ctx is done, a fatal
// error happens or count sample sets were printed (count 0 means no limit).
func Read(ctx context.Context, cfg *config.Config, device string, count int, w io.Writer) error {
	conn, err := serial.Open(device, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout.Duration())
	if err != nil {
		return err
	}
	return ReadFrom(ctx, conn, cfg, count, w)
}

// ReadFrom is Read over an already open connection. The connection is closed on return.
func ReadFrom(ctx context.Context, conn acquire.FrameReader, cfg *config.Config, count int, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printed := 0
	sink := acquire.SinkFunc(func(samples []layers.Sample, seq uint64) {
		ConsoleSink(w).Push(samples, seq)
		printed++
		if count > 0 && printed >= count {
			cancel()
		}
	})
	loop := acquire.NewLoop(acquire.WithFrameSize(cfg.Serial.FrameSize), acquire.WithSink(sink))
	if err := loop.Attach(conn); err != nil {
		conn.Close()
		return err
	}
	if err := loop.Start(); err != nil {
		conn.Close()
		return err
	}

	err := loop.Run(ctx, cfg.Acquisition.Interval.Duration())
	if loop.State() != acquire.Idle {
		session, stopErr := loop.Stop()
		if stopErr == nil {
			log.Info("Read %d sample sets, %d cycles without data", session.Counters.Accepted, session.Counters.ReadErrors)
		}
	}
	if err == context.Canceled {
		return nil
	}
	return err
}
