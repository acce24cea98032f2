// Package health exposes liveness/readiness/status endpoints for the
// worker process: /healthz, /readyz and /statusz.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Server is a small chi-based HTTP server reporting process health.
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	log         zerolog.Logger
	marketDB    *sql.DB
	privateDB   *sql.DB
	startedAt   time.Time
}

// New builds a health Server bound to port. marketDB/privateDB are pinged by
// /readyz; either may be nil if that pool isn't in use.
func New(port int, marketDB, privateDB *sql.DB, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       log.With().Str("component", "health_server").Logger(),
		marketDB:  marketDB,
		privateDB: privateDB,
		startedAt: time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/statusz", s.handleStatusz)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down or a
// non-graceful error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("health server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if s.marketDB != nil {
		if err := s.marketDB.PingContext(ctx); err != nil {
			checks["market_db"] = err.Error()
			ready = false
		} else {
			checks["market_db"] = "ok"
		}
	}
	if s.privateDB != nil {
		if err := s.privateDB.PingContext(ctx); err != nil {
			checks["private_db"] = err.Error()
			ready = false
		} else {
			checks["private_db"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"ready": ready, "checks": checks})
}

type statusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_used_percent"`
}

func (s *Server) handleStatusz(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.systemStats()

	resp := statusResponse{
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemPercent:    memPercent,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// systemStats samples CPU/RAM usage with a short interval so /statusz
// responds quickly.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("cpu percent failed")
		cpuPercent = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("mem stats failed")
		return valueOr(cpuPercent, 0), 0
	}
	return valueOr(cpuPercent, 0), memStat.UsedPercent
}

func valueOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
