package http

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/projection"
)

// HealthHandler reports process, database and run health
type HealthHandler struct {
	database  persistence.RepositoryHealth
	runs      *projection.Registry
	startTime time.Time
	version   string
}

// NewHealthHandler creates a health handler; database may be nil
func NewHealthHandler(database persistence.RepositoryHealth, runs *projection.Registry, version string) *HealthHandler {
	return &HealthHandler{
		database:  database,
		runs:      runs,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	System    SystemInfo             `json:"system"`
	Runs      RunSummary             `json:"runs"`
	Checks    map[string]CheckResult `json:"checks"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// RunSummary counts the runs known to the registry by state
type RunSummary struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status   string `json:"status"` // "pass", "warn", "fail"
	Message  string `json:"message"`
	Duration string `json:"duration"`
}

// ServeHTTP implements the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.gather(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	switch response.Status {
	case "healthy", "degraded":
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *HealthHandler) gather(ctx context.Context) HealthResponse {
	response := HealthResponse{
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System:    systemInfo(),
		Runs:      h.runSummary(),
		Checks:    make(map[string]CheckResult),
	}

	response.Checks["database"] = h.databaseCheck(ctx)

	crashed := response.Runs.ByState[projection.StatusCrashed.String()]
	if crashed > 0 {
		response.Checks["runs"] = CheckResult{Status: "warn", Message: "recent runs crashed"}
	} else {
		response.Checks["runs"] = CheckResult{Status: "pass", Message: "no crashed runs"}
	}

	response.Status = overallStatus(response.Checks)
	return response
}

func (h *HealthHandler) databaseCheck(ctx context.Context) CheckResult {
	if h.database == nil {
		return CheckResult{Status: "warn", Message: "no database configured"}
	}
	start := time.Now()
	check := h.database.Health(ctx)
	result := CheckResult{Duration: time.Since(start).String()}
	switch {
	case !check.Healthy:
		result.Status = "fail"
		result.Message = strings.Join(check.Errors, "; ")
	case len(check.Errors) > 0:
		result.Status = "pass"
		result.Message = strings.Join(check.Errors, "; ")
	default:
		result.Status = "pass"
		result.Message = "database reachable"
	}
	return result
}

func (h *HealthHandler) runSummary() RunSummary {
	summary := RunSummary{ByState: make(map[string]int)}
	if h.runs == nil {
		return summary
	}
	for _, run := range h.runs.List() {
		summary.Total++
		summary.ByState[run.State]++
	}
	return summary
}

func systemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemAlloc:      memStats.Alloc,
		NumGC:         memStats.NumGC,
	}
}

// overallStatus is unhealthy on any fail and degraded on any warn
func overallStatus(checks map[string]CheckResult) string {
	status := "healthy"
	for _, c := range checks {
		switch c.Status {
		case "fail":
			return "unhealthy"
		case "warn":
			status = "degraded"
		}
	}
	return status
}
