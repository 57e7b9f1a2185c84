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

package simulator

import (
	"context"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/creack/pty"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
)

// Generator returns the sample set sent as frame number seq
type Generator func(seq uint64) []layers.Sample

// RandomWalk generates channelCount channels, tagged 1..channelCount, each
// drifting from a random start by small steps
func RandomWalk(channelCount int, seed int64) Generator {
	rnd := rand.New(rand.NewSource(seed))
	values := make([]int64, channelCount)
	for i := range values {
		values[i] = rnd.Int63n(layers.MaxValue / 2)
	}
	return func(seq uint64) []layers.Sample {
		samples := make([]layers.Sample, channelCount)
		for i := range values {
			values[i] += rnd.Int63n(2001) - 1000
			if values[i] < 0 {
				values[i] = 0
			}
			if values[i] > layers.MaxValue {
				values[i] = layers.MaxValue
			}
			samples[i] = layers.Sample{
				Channel:  uint8((i + 1) & layers.MaxChannel),
				Value:    uint32(values[i]),
				Position: i,
			}
		}
		return samples
	}
}

// Simulator writes encoded frames the way the sensor device transmits them
type Simulator struct {
	w        io.Writer
	gen      Generator
	interval time.Duration
}

func New(w io.Writer, gen Generator, interval time.Duration) *Simulator {
	return &Simulator{w: w, gen: gen, interval: interval}
}

// WriteFrame encodes and writes frame number seq
func (s *Simulator) WriteFrame(seq uint64) error {
	raw, err := layers.SerializeFrame(s.gen(seq))
	if err != nil {
		return err
	}
	_, err = s.w.Write(raw)
	return err
}

// Run writes a frame every interval until ctx is done or count frames were
// written (count 0 means no limit)
func (s *Simulator) Run(ctx context.Context, count uint64) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for seq := uint64(1); count == 0 || seq <= count; seq++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := s.WriteFrame(seq); err != nil {
			return err
		}
		log.Debug("Frame %d written", seq)
	}
	return nil
}

// Terminal is a pseudo-terminal pair; the device name of Slave is what a
// reader opens as its serial port
type Terminal struct {
	Master *os.File
	Slave  *os.File
}

func OpenTerminal() (*Terminal, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	return &Terminal{Master: master, Slave: slave}, nil
}

func (t *Terminal) Device() string {
	return t.Slave.Name()
}

func (t *Terminal) Close() error {
	t.Slave.Close()
	return t.Master.Close()
}
