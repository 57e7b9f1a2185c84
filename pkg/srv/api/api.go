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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/log"
	"github.com/fuel-analytics/go-fuel/pkg/metrics"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
	"github.com/fuel-analytics/go-fuel/pkg/srv"
	"github.com/fuel-analytics/go-fuel/pkg/store"
)

// Opener opens the serial device the acquisition reads from
type Opener func(device string) (acquire.FrameReader, error)

// StartRequest is the optional body of POST /api/acquisition/start
type StartRequest struct {
	Device string `json:"device,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// Status is the reply of GET /api/state and of acquisition actions
type Status struct {
	State        acquire.State     `json:"state"`
	Attached     bool              `json:"attached"`
	Device       string            `json:"device,omitempty"`
	Mode         string            `json:"mode,omitempty"`
	ChannelCount int               `json:"channelCount"`
	Rows         int               `json:"rows"`
	Counters     *acquire.Counters `json:"counters,omitempty"`
}

type Option func(*ApiServer)

func WithStore(st *store.Store) Option {
	return func(s *ApiServer) {
		s.store = st
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ApiServer) {
		s.metrics = m
	}
}

func WithHub(h *Hub) Option {
	return func(s *ApiServer) {
		s.hub = h
	}
}

func WithOpener(open Opener) Option {
	return func(s *ApiServer) {
		s.open = open
	}
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router

	loop    *acquire.Loop
	store   *store.Store
	metrics *metrics.Metrics
	hub     *Hub
	open    Opener

	mu        sync.Mutex
	mode      string
	modeTimer *time.Timer
}

func NewApiServer(ctx context.Context, cfg *config.Config, loop *acquire.Loop, opts ...Option) *ApiServer {
	log.Info("Initializing API server with address: %s port: %d", cfg.Api.IP, cfg.Api.Port)
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		loop:    loop,
	}
	s.open = s.openSerial
	for _, opt := range opts {
		opt(s)
	}
	s.configureRouter()
	return s
}

func (s *ApiServer) openSerial(device string) (acquire.FrameReader, error) {
	return serial.Open(device, s.Config.Serial.BaudRate, s.Config.Serial.ReadTimeout.Duration())
}

// Run serves the API and drives the acquisition loop until the context is done
func (s *ApiServer) Run() error {
	address := fmt.Sprintf("%s:%d", s.Config.Api.IP, s.Config.Api.Port)
	log.Info("Starting API server: address: %s", address)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    address,
	}

	go s.drive()
	go func() {
		<-s.Context.Done()
		s.stopAcquisition()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// drive runs the periodic cycle trigger. A fatal cycle error leaves the loop
// Idle; the driver keeps ticking so a later start works again.
func (s *ApiServer) drive() {
	interval := s.Config.Acquisition.Interval.Duration()
	for {
		err := s.loop.Run(s.Context, interval)
		if s.Context.Err() != nil {
			return
		}
		log.Error("Acquisition stopped: %s", err)
		s.cancelModeTimer()
	}
}

// Handler returns the router wrapped with request logging
func (s *ApiServer) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(log.Writer(), s.Router)
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/ports", s.handlePorts()).Methods("GET")
	subRouter.HandleFunc("/state", s.handleState()).Methods("GET")
	subRouter.HandleFunc("/acquisition/{action:start|pause|stop}", s.handleAcquisitionAction()).Methods("POST")
	subRouter.HandleFunc("/series", s.handleSeries()).Methods("GET")
	subRouter.HandleFunc("/stats", s.handleStats()).Methods("GET")
	subRouter.HandleFunc("/records", s.handleRecords()).Methods("GET")
	subRouter.HandleFunc("/records/{id:[0-9]+}", s.handleRecordDelete()).Methods("DELETE")
	if s.hub != nil {
		subRouter.Handle("/ws", s.hub).Methods("GET")
	}
	if s.metrics != nil {
		s.Router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding reply: %s", err)
	}
}

// statusCode maps acquisition errors to http status codes
func statusCode(err error) int {
	var (
		stateErr serial.ErrState
		connErr  serial.ErrConnection
		modeErr  config.ErrUnknownMode
	)
	switch {
	case errors.As(err, &stateErr):
		return http.StatusConflict
	case errors.As(err, &connErr):
		return http.StatusBadGateway
	case errors.As(err, &modeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *ApiServer) status() *Status {
	st := &Status{
		State:    s.loop.State(),
		Attached: s.loop.Attached(),
	}
	s.mu.Lock()
	st.Mode = s.mode
	s.mu.Unlock()
	if session := s.loop.Session(); session != nil {
		st.Device = session.Device
		st.ChannelCount = session.ChannelCount
		st.Rows = session.Len()
		st.Counters = &session.Counters
	}
	return st
}

func (s *ApiServer) handlePorts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling ports request")
		writeJSON(w, serial.ListDetailedPorts())
	}
}

func (s *ApiServer) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.status())
	}
}

func (s *ApiServer) handleAcquisitionAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling acquisition action request: action: %s", vars["action"])

		var err error
		switch vars["action"] {
		case "start":
			req := &StartRequest{}
			if decodeErr := json.NewDecoder(r.Body).Decode(req); decodeErr != nil && decodeErr != io.EOF {
				http.Error(w, decodeErr.Error(), http.StatusBadRequest)
				return
			}
			err = s.startAcquisition(req)
		case "pause":
			err = s.loop.Pause()
		case "stop":
			_, err = s.loop.Stop()
			s.cancelModeTimer()
		default:
			err = srv.ErrUnknownOperation{What: "Wrong acquisition action. Must be one of start/pause/stop"}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), statusCode(err))
			return
		}
		writeJSON(w, s.status())
	}
}

// startAcquisition opens the device when the loop is Idle without a
// connection, starts the loop and arms the measurement mode timer.
func (s *ApiServer) startAcquisition(req *StartRequest) error {
	mode := req.Mode
	if mode == "" {
		mode = s.Config.Acquisition.Mode
	}
	var duration time.Duration
	if mode != "" {
		d, err := s.Config.ModeDuration(mode)
		if err != nil {
			return err
		}
		duration = d
	}

	if s.loop.State() == acquire.Idle && !s.loop.Attached() {
		device := req.Device
		if device == "" {
			device = s.Config.Serial.Port
		}
		conn, err := s.open(device)
		if err != nil {
			return err
		}
		if err := s.loop.Attach(conn); err != nil {
			conn.Close()
			return err
		}
	}

	resuming := s.loop.State() == acquire.Paused
	if resuming {
		if err := s.checkResume(req); err != nil {
			return err
		}
	}
	if err := s.loop.Start(); err != nil {
		return err
	}
	if !resuming {
		s.armModeTimer(mode, duration)
	}
	return nil
}

// checkResume rejects a resume asking for another device or mode than the
// paused session has. Empty fields mean the paused ones.
func (s *ApiServer) checkResume(req *StartRequest) error {
	if session := s.loop.Session(); session != nil && req.Device != "" && req.Device != session.Device {
		return serial.ErrState{What: fmt.Sprintf("acquisition is paused on device %s", session.Device)}
	}
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	if req.Mode != "" && req.Mode != mode {
		return serial.ErrState{What: fmt.Sprintf("acquisition is paused in mode %q", mode)}
	}
	return nil
}

func (s *ApiServer) armModeTimer(mode string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modeTimer != nil {
		s.modeTimer.Stop()
		s.modeTimer = nil
	}
	s.mode = mode
	if duration <= 0 {
		return
	}
	log.Info("Measurement mode %s: acquisition stops after %s", mode, duration)
	s.modeTimer = time.AfterFunc(duration, func() {
		log.Info("Measurement mode %s finished", mode)
		s.mu.Lock()
		s.mode = ""
		s.modeTimer = nil
		s.mu.Unlock()
		if _, err := s.loop.Stop(); err != nil {
			log.Warning("Can not stop acquisition: %s", err)
		}
	})
}

func (s *ApiServer) cancelModeTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modeTimer != nil {
		s.modeTimer.Stop()
		s.modeTimer = nil
	}
	s.mode = ""
}

func (s *ApiServer) stopAcquisition() {
	s.cancelModeTimer()
	if s.loop.State() != acquire.Idle {
		if _, err := s.loop.Stop(); err != nil {
			log.Warning("Can not stop acquisition: %s", err)
		}
	}
}

func (s *ApiServer) handleSeries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.loop.Session()
		if session == nil {
			http.Error(w, "No acquisition session", http.StatusNotFound)
			return
		}
		writeJSON(w, session)
	}
}

func (s *ApiServer) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.loop.Session()
		if session == nil {
			http.Error(w, "No acquisition session", http.StatusNotFound)
			return
		}
		writeJSON(w, session.Stats())
	}
}

func (s *ApiServer) handleRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			http.Error(w, "Storage is disabled", http.StatusNotFound)
			return
		}
		records, err := s.store.ReadAll()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	}
}

func (s *ApiServer) handleRecordDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if s.store == nil {
			http.Error(w, "Storage is disabled", http.StatusNotFound)
			return
		}
		id, err := strconv.ParseUint(vars["id"], 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = s.store.Delete(id)
		var notFound store.ErrNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
