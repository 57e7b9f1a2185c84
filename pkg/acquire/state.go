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
	"encoding/json"
	"fmt"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

// State of the acquisition loop
type State int

const (
	Idle State = iota
	Running
	Paused
)

var stateNames = map[State]string{
	Idle:    "idle",
	Running: "running",
	Paused:  "paused",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for state, stateName := range stateNames {
		if stateName == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown acquisition state %q", name)
}

// Outcome is what a single acquisition cycle ended with
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDropped
	OutcomeTimeout
	OutcomeShortRead
	OutcomeMalformed
	OutcomeFatal
)

var outcomeNames = map[Outcome]string{
	OutcomeAccepted:  "accepted",
	OutcomeDropped:   "dropped",
	OutcomeTimeout:   "timeout",
	OutcomeShortRead: "short_read",
	OutcomeMalformed: "malformed",
	OutcomeFatal:     "fatal",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Observer is notified about every cycle and every state transition.
// Samples are only passed for accepted and dropped cycles.
type Observer interface {
	ObserveCycle(outcome Outcome, samples []layers.Sample)
	ObserveState(state State)
}
