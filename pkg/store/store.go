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
	"encoding/binary"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/fuel-analytics/go-fuel/pkg/log"
)

const (
	SchemaBucket  = "schema"
	SamplesBucket = "samples"

	channelCountKey = "channel_count"
)

// Record is one stored row: a unix timestamp and the values in channel order
type Record struct {
	ID        uint64   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Values    []uint32 `json:"values"`
}

// Store keeps sample rows in a bbolt file
type Store struct {
	mu   sync.RWMutex
	db   *bbolt.DB
	path string
}

func Open(path string) (*Store, error) {
	log.Debug("Opening sample store: %s", path)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{SchemaBucket, SamplesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) update(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrNotOpen{}
	}
	return s.db.Update(fn)
}

func (s *Store) view(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrNotOpen{}
	}
	return s.db.View(fn)
}

// EnsureSchema fixes the channel count of the store. Calling it again with
// the same count does nothing.
func (s *Store) EnsureSchema(channelCount int) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SchemaBucket))
		if stored := b.Get([]byte(channelCountKey)); stored != nil {
			count := int(binary.BigEndian.Uint32(stored))
			if count != channelCount {
				return ErrSchemaMismatch{Stored: count, Requested: channelCount}
			}
			return nil
		}
		log.Info("Sample store schema: channels: %d", channelCount)
		return b.Put([]byte(channelCountKey), uint32ToByte(uint32(channelCount)))
	})
}

// ChannelCount returns the ensured channel count, 0 when not ensured yet
func (s *Store) ChannelCount() (int, error) {
	var count int
	err := s.view(func(tx *bbolt.Tx) error {
		count = channelCount(tx)
		return nil
	})
	return count, err
}

func channelCount(tx *bbolt.Tx) int {
	stored := tx.Bucket([]byte(SchemaBucket)).Get([]byte(channelCountKey))
	if stored == nil {
		return 0
	}
	return int(binary.BigEndian.Uint32(stored))
}

// Append stores a row and returns its id. A timestamp older than the last
// stored one is raised to it so timestamps never decrease.
func (s *Store) Append(timestamp int64, values []uint32) (uint64, error) {
	var id uint64
	err := s.update(func(tx *bbolt.Tx) error {
		count := channelCount(tx)
		if count == 0 {
			return ErrNoSchema{}
		}
		if len(values) != count {
			return ErrRecordWidth{Want: count, Got: len(values)}
		}
		b := tx.Bucket([]byte(SamplesBucket))
		if _, last := b.Cursor().Last(); last != nil {
			if prev := int64(binary.BigEndian.Uint64(last)); timestamp < prev {
				log.Debug("Clamping timestamp %d to %d", timestamp, prev)
				timestamp = prev
			}
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = seq
		return b.Put(uint64ToByte(seq), encodeRow(timestamp, values))
	})
	return id, err
}

// ReadAll returns all rows in insertion order
func (s *Store) ReadAll() ([]Record, error) {
	records := []Record{}
	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SamplesBucket)).ForEach(func(k, v []byte) error {
			records = append(records, decodeRow(binary.BigEndian.Uint64(k), v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes one row
func (s *Store) Delete(id uint64) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SamplesBucket))
		key := uint64ToByte(id)
		if b.Get(key) == nil {
			return ErrNotFound{ID: id}
		}
		return b.Delete(key)
	})
}

// Close closes the file. Closing twice does nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// row layout: 8 byte timestamp, then 4 bytes per value, all big endian
func encodeRow(timestamp int64, values []uint32) []byte {
	b := make([]byte, 8+4*len(values))
	binary.BigEndian.PutUint64(b, uint64(timestamp))
	for i, v := range values {
		binary.BigEndian.PutUint32(b[8+4*i:], v)
	}
	return b
}

func decodeRow(id uint64, b []byte) Record {
	r := Record{
		ID:        id,
		Timestamp: int64(binary.BigEndian.Uint64(b)),
		Values:    make([]uint32, (len(b)-8)/4),
	}
	for i := range r.Values {
		r.Values[i] = binary.BigEndian.Uint32(b[8+4*i:])
	}
	return r
}
