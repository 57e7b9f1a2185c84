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
	"fmt"
	"time"
)

// ErrConnection returned when a port can not be opened or the device stopped answering.
// It is fatal for an acquisition.
type ErrConnection struct {
	Device string
	What   string
	Err    error
}

func (e ErrConnection) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Connection error: device: %s: %s: %s", e.Device, e.What, e.Err)
	}
	return fmt.Sprintf("Connection error: device: %s: %s", e.Device, e.What)
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrTimeout returned when no data arrived within the read timeout
type ErrTimeout struct {
	Device  string
	Timeout time.Duration
}

func (e ErrTimeout) Error() string {
	return fmt.Sprintf("Timeout: device: %s: no data within %s", e.Device, e.Timeout)
}

// ErrShortRead returned when the read timeout elapsed before a whole frame arrived
type ErrShortRead struct {
	Device string
	Want   int
	Got    int
}

func (e ErrShortRead) Error() string {
	return fmt.Sprintf("Short read: device: %s: got %d of %d bytes", e.Device, e.Got, e.Want)
}

// ErrState returned when an operation is not legal in the current state
type ErrState struct {
	What string
}

func (e ErrState) Error() string {
	return fmt.Sprintf("Illegal state: %s", e.What)
}

// IsRecoverable reports whether err is a transient read error the next cycle can retry
func IsRecoverable(err error) bool {
	var timeoutErr ErrTimeout
	var shortErr ErrShortRead
	return errors.As(err, &timeoutErr) || errors.As(err, &shortErr)
}

// IsFatal reports whether err means the connection can not be used any more
func IsFatal(err error) bool {
	var connErr ErrConnection
	var stateErr ErrState
	return errors.As(err, &connErr) || errors.As(err, &stateErr)
}
