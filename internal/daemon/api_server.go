package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"hotfolder/internal/logging"
)

// StatusResponse is the JSON body served at /api/status.
type StatusResponse struct {
	Running   bool              `json:"running"`
	Schedule  string            `json:"schedule"`
	NextRun   *time.Time        `json:"next_run,omitempty"`
	LastRun   *time.Time        `json:"last_run,omitempty"`
	Cycles    int               `json:"cycles"`
	LastError string            `json:"last_error,omitempty"`
	LastCycle *CycleSummary     `json:"last_cycle,omitempty"`
	Steps     map[string]int    `json:"steps"`
	Paths     map[string]string `json:"paths"`
}

// CycleSummary condenses the last cycle report.
type CycleSummary struct {
	ID       string         `json:"id"`
	Skipped  bool           `json:"skipped"`
	Duration string         `json:"duration"`
	Outcomes map[string]int `json:"outcomes"`
}

type apiServer struct {
	listen string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(listen string, d *Daemon, metrics http.Handler) *apiServer {
	if listen == "" || d == nil {
		return nil
	}
	srv := &apiServer{
		listen: listen,
		logger: logging.NewComponentLogger(d.logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/status", srv.handleStatus)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.shutdown()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// addr reports the bound address, which differs from listen when port 0 was
// requested.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.daemon.running.Load() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopping"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, newStatusResponse(s.daemon.Status(r.Context())))
}

func newStatusResponse(status Status) StatusResponse {
	sched := status.Scheduler
	resp := StatusResponse{
		Running:  status.Running,
		Schedule: sched.Schedule,
		Cycles:   sched.Cycles,
		Steps:    make(map[string]int, len(status.Steps)),
		Paths: map[string]string{
			"database": status.DBPath,
			"lock":     status.LockFilePath,
			"log":      status.LogPath,
		},
	}
	if !sched.NextRun.IsZero() {
		next := sched.NextRun
		resp.NextRun = &next
	}
	if !sched.LastRun.IsZero() {
		last := sched.LastRun
		resp.LastRun = &last
	}
	if sched.LastError != nil {
		resp.LastError = sched.LastError.Error()
	}
	if report := sched.LastReport; report != nil {
		summary := &CycleSummary{
			ID:       report.CycleID,
			Skipped:  report.Skipped,
			Duration: report.Duration().Round(time.Millisecond).String(),
			Outcomes: map[string]int{},
		}
		for _, entry := range report.Entries {
			summary.Outcomes[string(entry.Outcome)]++
		}
		resp.LastCycle = summary
	}
	for step, count := range status.Steps {
		resp.Steps[string(step)] = count
	}
	return resp
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("write api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
