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

package store

import (
	"time"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
)

// Sink appends every pushed sample set as a row
type Sink struct {
	store *Store
	now   func() time.Time
}

var _ acquire.Sink = &Sink{}

func NewSink(store *Store) *Sink {
	return &Sink{store: store, now: time.Now}
}

func (s *Sink) Push(samples []layers.Sample, seq uint64) {
	if err := s.store.EnsureSchema(len(samples)); err != nil {
		log.Error("Sample set %d not stored: %s", seq, err)
		return
	}
	if _, err := s.store.Append(s.now().Unix(), layers.Values(samples)); err != nil {
		log.Error("Sample set %d not stored: %s", seq, err)
	}
}
