package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/onering-odds/internal/store"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	SampleSize    int                    `json:"sample_size"`
	Seed          int64                  `json:"seed"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	GOMAXPROCS    int    `json:"gomaxprocs"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// handleHealthCheck reports the batch and storage state. A missing batch is
// unhealthy; running without storage is only degraded.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"batch":    s.checkBatchHealth(),
		"database": s.checkDatabaseHealth(),
	}

	overallStatus := HealthStatusHealthy
	for _, check := range checks {
		switch {
		case check.Status == HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case check.Status == HealthStatusDegraded && overallStatus == HealthStatusHealthy:
			overallStatus = HealthStatusDegraded
		}
	}

	response := HealthCheckResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        time.Since(s.startTime).String(),
		SampleSize:    s.batch.Len(),
		Seed:          s.batch.Seed(),
		Checks:        checks,
		System:        getSystemInfo(),
		RequestID:     middleware.GetReqID(r.Context()),
	}

	statusCode := http.StatusOK
	if overallStatus == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, response)
}

// checkBatchHealth checks that a sample batch is loaded
func (s *Server) checkBatchHealth() HealthCheck {
	start := time.Now()

	status := HealthStatusHealthy
	message := fmt.Sprintf("%d trials loaded", s.batch.Len())
	if s.batch.Len() == 0 {
		status = HealthStatusUnhealthy
		message = "No sample batch loaded"
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// checkDatabaseHealth checks that the table store answers a query
func (s *Server) checkDatabaseHealth() HealthCheck {
	start := time.Now()

	status := HealthStatusHealthy
	message := "Database connection healthy"
	if s.db == nil {
		status = HealthStatusDegraded
		message = "Persistence disabled"
	} else if _, err := s.db.ListTables(store.TablesQuery{PerPage: 1}); err != nil {
		status = HealthStatusUnhealthy
		message = fmt.Sprintf("Database query failed: %v", err)
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// getSystemInfo collects system information
func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		MemoryAlloc:   m.Alloc,
		MemorySys:     m.Sys,
		GCCycles:      m.NumGC,
	}
}
