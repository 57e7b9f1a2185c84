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

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
)

const (
	clientQueueSize = 16
	writeTimeout    = 5 * time.Second
)

// LiveUpdate is sent to websocket clients for every accepted sample set
type LiveUpdate struct {
	Seq     uint64          `json:"seq"`
	Samples []layers.Sample `json:"samples"`
}

// Hub is an acquisition sink fanning sample sets out to websocket clients.
// A client that does not keep up loses updates instead of slowing the loop.
type Hub struct {
	mu       sync.Mutex
	clients  map[chan LiveUpdate]struct{}
	upgrader websocket.Upgrader
}

var _ acquire.Sink = &Hub{}

func NewHub() *Hub {
	return &Hub{
		clients: map[chan LiveUpdate]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Hub) Push(samples []layers.Sample, seq uint64) {
	update := LiveUpdate{Seq: seq, Samples: append([]layers.Sample(nil), samples...)}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- update:
		default:
			log.Debug("Websocket client is slow, update %d dropped", seq)
		}
	}
}

func (h *Hub) subscribe() chan LiveUpdate {
	ch := make(chan LiveUpdate, clientQueueSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan LiveUpdate) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Websocket upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)
	log.Debug("Websocket client connected: %s", r.RemoteAddr)

	// the read loop only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Debug("Websocket client disconnected: %s", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case update := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(update); err != nil {
				log.Debug("Websocket write failed: %s", err)
				return
			}
		}
	}
}
