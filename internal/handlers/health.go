package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inventory-service/internal/events"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        *gorm.DB
	publisher *events.Publisher
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, publisher *events.Publisher) *HealthHandler {
	return &HealthHandler{
		db:        db,
		publisher: publisher,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Service   string           `json:"service"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a health check result
type Check struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemInfo represents system runtime information
type SystemInfo struct {
	Goroutines  int    `json:"goroutines"`
	MemoryAlloc uint64 `json:"memory_alloc_mb"`
	MemoryTotal uint64 `json:"memory_total_mb"`
	MemorySys   uint64 `json:"memory_sys_mb"`
	NumCPU      int    `json:"num_cpu"`
	GoVersion   string `json:"go_version"`
}

// Health reports liveness, with runtime details on ?detailed=true.
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "inventory-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	// Include detailed checks if requested
	if c.Query("detailed") == "true" {
		response.Checks = h.performHealthChecks()
		response.System = h.getSystemInfo()
	}

	c.JSON(http.StatusOK, response)
}

// performHealthChecks runs all health checks
func (h *HealthHandler) performHealthChecks() map[string]Check {
	checks := make(map[string]Check)

	checks["database"] = h.checkDatabase()
	checks["nats"] = h.checkNATS()

	return checks
}

// checkNATS checks NATS connectivity
func (h *HealthHandler) checkNATS() Check {
	if h.publisher == nil {
		return Check{
			Status:  "disabled",
			Message: "Event publishing not configured",
		}
	}

	if !h.publisher.IsConnected() {
		return Check{
			Status:  "unhealthy",
			Message: "NATS disconnected",
		}
	}

	return Check{
		Status:  "healthy",
		Message: "NATS connected",
	}
}

// checkDatabase checks database connectivity and stats
func (h *HealthHandler) checkDatabase() Check {
	sqlDB, err := h.db.DB()
	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "Failed to get database instance",
		}
	}

	// Ping database
	if err := sqlDB.Ping(); err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "Database ping failed",
		}
	}

	// Get connection pool stats
	stats := sqlDB.Stats()

	return Check{
		Status:  "healthy",
		Message: "Database connected",
		Details: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"max_open":         stats.MaxOpenConnections,
			"wait_count":       stats.WaitCount,
			"wait_duration_ms": stats.WaitDuration.Milliseconds(),
		},
	}
}

// getSystemInfo returns system runtime information
func (h *HealthHandler) getSystemInfo() *SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &SystemInfo{
		Goroutines:  runtime.NumGoroutine(),
		MemoryAlloc: mem.Alloc / 1024 / 1024,      // MB
		MemoryTotal: mem.TotalAlloc / 1024 / 1024, // MB
		MemorySys:   mem.Sys / 1024 / 1024,        // MB
		NumCPU:      runtime.NumCPU(),
		GoVersion:   runtime.Version(),
	}
}

// Ready reports whether the service's dependencies are reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	response := HealthResponse{
		Service:   "inventory-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]Check),
	}

	allReady := true

	// Database is the only hard dependency.
	dbCheck := h.checkDatabase()
	response.Checks["database"] = dbCheck
	if dbCheck.Status != "healthy" {
		allReady = false
	}

	// NATS is optional; report it but do not block readiness.
	response.Checks["nats"] = h.checkNATS()

	if allReady {
		response.Status = "ready"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}
