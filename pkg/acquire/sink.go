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

package acquire

import (
	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

// Sink receives every accepted sample set together with its sequence number.
// Sinks own buffering, persistence and presentation and must not retain the
// samples slice after Push returns unless they copy it.
type Sink interface {
	Push(samples []layers.Sample, seq uint64)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(samples []layers.Sample, seq uint64)

func (f SinkFunc) Push(samples []layers.Sample, seq uint64) {
	f(samples, seq)
}

// MultiSink fans a sample set out to several sinks in order
type MultiSink []Sink

func (m MultiSink) Push(samples []layers.Sample, seq uint64) {
	for _, sink := range m {
		if sink != nil {
			sink.Push(samples, seq)
		}
	}
}
