package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/stopsignal"
)

func TestHandleStartRejectsMissingFields(t *testing.T) {
	srv := New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		t.Fatal("launch should not be called")
		return nil, "", nil
	})

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{"self_profile":"bob"}`)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStartLaunchesAndRegistersRun(t *testing.T) {
	var launchedRun domain.RunContext
	srv := New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		launchedRun = run
		return stopsignal.New(), "/tmp/events.jsonl", nil
	})

	body := StartRequest{SelfProfile: "Bob", Criteria: "ML", Template: "Hi {name}"}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "Bob", launchedRun.SelfProfile)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["run_id"])
}

func TestHandleStopUnknownRunReturnsNotFound(t *testing.T) {
	srv := New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		return stopsignal.New(), "", nil
	})

	req := httptest.NewRequest(http.MethodPost, "/runs/does-not-exist/stop", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStopSetsStopSignal(t *testing.T) {
	stop := stopsignal.New()
	srv := New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		return stop, "", nil
	})

	startReq := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{"self_profile":"b","criteria":"c","template":"t"}`)))
	startRec := httptest.NewRecorder()
	srv.ServeHTTP(startRec, startReq)

	var started map[string]string
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &started))

	stopReq := httptest.NewRequest(http.MethodPost, "/runs/"+started["run_id"]+"/stop", nil)
	stopRec := httptest.NewRecorder()
	srv.ServeHTTP(stopRec, stopReq)

	require.Equal(t, http.StatusOK, stopRec.Code)
	require.True(t, stop.IsSet())
}

func TestHandleEventsRespondsAsEventStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"event":"run_start"}`+"\n"), 0o644))

	srv := New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		return stopsignal.New(), path, nil
	})

	startReq := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{"self_profile":"b","criteria":"c","template":"t"}`)))
	startRec := httptest.NewRecorder()
	srv.ServeHTTP(startRec, startReq)
	var started map[string]string
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &started))

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // request context already done: handler returns before the first tick

	req := httptest.NewRequest(http.MethodGet, "/runs/"+started["run_id"]+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}
