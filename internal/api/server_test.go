package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/handwarp/internal/config"
	"github.com/banshee-data/handwarp/internal/db"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)

type fixedStatus Status

func (f fixedStatus) Status() Status { return Status(f) }

func setupServer(t *testing.T, status StatusProvider) (*Server, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "handwarp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewServer(database, status, config.DefaultRedirectionConfig()), database
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestShowStatus(t *testing.T) {
	s, _ := setupServer(t, fixedStatus{RunID: "r1", Frames: 90, ConditionIndex: 15, InBreak: true, BreakRemainingSec: 12.5})

	w := get(t, s, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, uint64(90), got.Frames)
	assert.True(t, got.InBreak)
	assert.Equal(t, 12.5, got.BreakRemainingSec)

	idle, _ := setupServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, idle, "/api/status").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := setupServer(t, fixedStatus{})
	for _, path := range []string{"/api/status", "/api/config", "/api/runs", "/api/runs/x", "/api/runs/x/pins"} {
		w := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}
}

func TestShowConfig(t *testing.T) {
	s, _ := setupServer(t, nil)
	w := get(t, s, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "curve_body_warp", got["technique"])
}

func TestRunsEndpoints(t *testing.T) {
	s, database := setupServer(t, nil)

	id, err := database.CreateRun(db.Run{Participant: 2, Technique: "body_warp_zero_zone", Source: "pcap", Started: t0})
	require.NoError(t, err)
	for i, ok := range []bool{true, false, true} {
		start := t0.Add(time.Duration(i) * 10 * time.Second)
		require.NoError(t, database.InsertPin(id, session.PinRecord{
			AttemptID:      uuid.New(),
			Start:          start,
			End:            start.Add(3 * time.Second),
			Pin:            []int{5, 5, 0, 1},
			Input:          []int{5, 5, 0, 1},
			Success:        ok,
			ConditionIndex: 7,
			Participant:    2,
		}))
	}

	w := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []RunJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)
	assert.Nil(t, runs[0].Finished)

	require.NoError(t, database.FinishRun(id, t0.Add(time.Minute), session.Stats{Frames: 10}, 0))
	w = get(t, s, "/api/runs/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	var run RunJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.NotNil(t, run.Finished)
	assert.True(t, run.Finished.Equal(t0.Add(time.Minute)))
	assert.Equal(t, uint64(10), run.Frames)

	w = get(t, s, "/api/runs/"+id+"/pins")
	require.Equal(t, http.StatusOK, w.Code)
	var pins []ConditionJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pins))
	require.Len(t, pins, 1)
	assert.Equal(t, 7, pins[0].ConditionIndex)
	assert.Equal(t, 3, pins[0].Attempts)
	assert.Equal(t, 2, pins[0].Correct)
	assert.InDelta(t, 2.0/3.0, pins[0].SuccessRate, 1e-9)
	assert.InDelta(t, 3000, pins[0].MeanDurationMs, 1e-9)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing/pins").Code)
}

func TestLoggingMiddleware(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
	assert.Equal(t, "100", statusCodeColor(100))
}
