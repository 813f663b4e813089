// Package controlapi exposes the HTTP control surface external UIs use to
// start and stop runs: three inputs (self profile, criteria, template),
// five controls (start, stop, shadow toggle, auto-send toggle, profile
// limit), plus a server-sent-events tail of the run's EventLog.
//
// A bare net/http.ServeMux wired by hand, JSON encoded/decoded without a
// framework, one handler method per route.
package controlapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/stopsignal"
)

// Launcher starts a Coordinator for the given RunContext and returns the
// StopSignal that stops it and the path of the EventLog it writes to.
// Supplied by the process wiring the control API to a concrete Coordinator
// (see cmd/autopilot), so this package never imports internal/coordinator
// or internal/browserdriver directly.
type Launcher func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error)

// StartRequest is the JSON body of POST /runs.
type StartRequest struct {
	SelfProfile  string `json:"self_profile"`
	Criteria     string `json:"criteria"`
	Template     string `json:"template"`
	Shadow       bool   `json:"shadow"`
	AutoSend     bool   `json:"auto_send"`
	ProfileLimit int    `json:"profile_limit"`
	PaceSeconds  int    `json:"pace_seconds"`
}

type runHandle struct {
	stop      *stopsignal.Signal
	eventPath string
	cancel    context.CancelFunc
}

// Server is the control API's in-memory run registry and HTTP handler.
type Server struct {
	launch Launcher

	mu   sync.Mutex
	runs map[string]*runHandle

	mux *http.ServeMux
}

// New builds a Server that launches runs via launch.
func New(launch Launcher) *Server {
	s := &Server{launch: launch, runs: map[string]*runHandle{}, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /runs", s.handleStart)
	s.mux.HandleFunc("POST /runs/{id}/stop", s.handleStop)
	s.mux.HandleFunc("GET /runs/{id}/events", s.handleEvents)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SelfProfile == "" || req.Criteria == "" || req.Template == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "self_profile, criteria, and template are required"})
		return
	}

	run := domain.RunContext{
		RunID:        uuid.NewString(),
		SelfProfile:  req.SelfProfile,
		Criteria:     req.Criteria,
		Template:     req.Template,
		Shadow:       req.Shadow,
		AutoSend:     req.AutoSend,
		ProfileLimit: req.ProfileLimit,
		PaceSeconds:  req.PaceSeconds,
	}

	ctx, cancel := context.WithCancel(context.Background())
	stop, eventPath, err := s.launch(ctx, run)
	if err != nil {
		cancel()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.runs[run.RunID] = &runHandle{stop: stop, eventPath: eventPath, cancel: cancel}
	s.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.RunID})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	handle, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run id"})
		return
	}
	handle.stop.Set()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// handleEvents tails the run's event log as server-sent events, polling for
// new lines every 500ms until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	handle, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run id"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var offset int64
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			next, err := streamNewLines(w, handle.eventPath, offset)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return
			}
			if next > offset {
				offset = next
				flusher.Flush()
			}
		}
	}
}

// streamNewLines writes every complete line found after offset as an SSE
// "data:" frame and returns the new read offset.
func streamNewLines(w http.ResponseWriter, path string, offset int64) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		return offset, err
	}

	reader := bufio.NewReader(f)
	read := offset
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			read += int64(len(line))
			fmt.Fprintf(w, "data: %s\n\n", line[:len(line)-1])
		}
		if err != nil {
			break
		}
	}
	return read, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
