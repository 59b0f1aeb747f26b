package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/handwarp/internal/config"
	"github.com/banshee-data/handwarp/internal/db"
	"github.com/banshee-data/handwarp/internal/report"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// StatusProvider reports the state of the running session. Implementations
// must be safe to call from HTTP handlers while the tick loop runs.
type StatusProvider interface {
	Status() Status
}

type Server struct {
	db     *db.DB
	status StatusProvider
	cfg    *config.RedirectionConfig
}

// NewServer returns a server over the run database. status and cfg may be
// nil, in which case their endpoints answer 404.
func NewServer(database *db.DB, status StatusProvider, cfg *config.RedirectionConfig) *Server {
	return &Server{
		db:     database,
		status: status,
		cfg:    cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux with the API handlers mounted.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.Attach(mux)
	return mux
}

// Attach mounts the API handlers on an existing mux.
func (s *Server) Attach(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/{id}", s.showRun)
	mux.HandleFunc("/api/runs/{id}/pins", s.showPinSummary)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.status == nil {
		writeJSONError(w, http.StatusNotFound, "no session running")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.cfg == nil {
		writeJSONError(w, http.StatusNotFound, "no configuration loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.cfg)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	runs, err := s.db.Runs()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve runs: "+err.Error())
		return
	}
	out := make([]RunJSON, len(runs))
	for i, run := range runs {
		out[i] = RunToJSON(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// lookupRun writes the error response and returns false when the run
// cannot be loaded.
func (s *Server) lookupRun(w http.ResponseWriter, id string) (db.Run, bool) {
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return db.Run{}, false
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve run: "+err.Error())
		return db.Run{}, false
	}
	return run, true
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	run, ok := s.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RunToJSON(run))
}

func (s *Server) showPinSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	run, ok := s.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	attempts, err := s.db.PinAttempts(run.RunID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve pin attempts: "+err.Error())
		return
	}
	summaries := report.SummarisePins(attempts)
	out := make([]ConditionJSON, len(summaries))
	for i, c := range summaries {
		out[i] = ConditionJSON{
			ConditionIndex: c.ConditionIndex,
			Condition:      c.Condition,
			Attempts:       c.Attempts,
			Correct:        c.Correct,
			SuccessRate:    c.SuccessRate(),
			MeanDurationMs: float64(c.MeanDuration) / float64(time.Millisecond),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
