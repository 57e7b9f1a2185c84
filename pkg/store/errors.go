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
	"fmt"
)

// ErrSchemaMismatch returned when the store was created for a different channel count
type ErrSchemaMismatch struct {
	Stored    int
	Requested int
}

func (e ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("Schema mismatch: store has %d channels, requested %d", e.Stored, e.Requested)
}

// ErrNotOpen returned when the store is used after Close
type ErrNotOpen struct{}

func (e ErrNotOpen) Error() string {
	return "Store is not open"
}

// ErrNoSchema returned when appending before the schema is ensured
type ErrNoSchema struct{}

func (e ErrNoSchema) Error() string {
	return "Schema is not ensured"
}

// ErrRecordWidth returned when the number of values does not match the schema
type ErrRecordWidth struct {
	Want int
	Got  int
}

func (e ErrRecordWidth) Error() string {
	return fmt.Sprintf("Wrong record width: want %d values, got %d", e.Want, e.Got)
}

// ErrNotFound returned when a record does not exist
type ErrNotFound struct {
	ID uint64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("Record not found: %d", e.ID)
}
