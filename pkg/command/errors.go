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
	"fmt"
	"strings"
)

// ErrRequestFailed returned when the API server replies with a non 2xx status
type ErrRequestFailed struct {
	Status  string
	Message string
}

func (e ErrRequestFailed) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Request failed: %s", e.Status)
	}
	return fmt.Sprintf("Request failed: %s: %s", e.Status, strings.TrimSpace(e.Message))
}

// ErrNoPorts returned when a port has to be chosen but none is available
type ErrNoPorts struct{}

func (e ErrNoPorts) Error() string {
	return "No serial ports found"
}

// ErrBadChoice returned when the port choice is neither a listed number nor a listed name
type ErrBadChoice struct {
	Choice string
}

func (e ErrBadChoice) Error() string {
	return fmt.Sprintf("Wrong port choice: %q", e.Choice)
}
