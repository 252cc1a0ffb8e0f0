package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/ppm/api/internal/middleware"
	"github.com/stwalsh4118/ppm/api/internal/models"
)

var errNoDatabase = errors.New("no database configured")

const (
	// APIVersion is the current version of the API
	APIVersion = "1.0.0"
	// HealthCheckTimeout bounds the database ping and the table probe together.
	HealthCheckTimeout = 2 * time.Second
)

// Pinger checks that the land-registry database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SourceChecker checks that the property table can be queried.
type SourceChecker interface {
	CheckSource(ctx context.Context) error
}

// SourceInfo describes the deployment reported by /api/v1/info.
type SourceInfo struct {
	Env       string
	Table     string
	BatchSize int
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	db        Pinger
	source    SourceChecker
	info      SourceInfo
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(db Pinger, source SourceChecker, info SourceInfo) *HealthHandler {
	return &HealthHandler{
		db:        db,
		source:    source,
		info:      info,
		startTime: time.Now(),
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Source   string `json:"source"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version      string `json:"version"`
	Environment  string `json:"environment"`
	Uptime       string `json:"uptime"`
	SourceTable  string `json:"source_table"`
	BatchSize    int    `json:"batch_size"`
	Departements int    `json:"departements"`
}

// Health handles GET /health endpoint.
// It does not check any dependencies and is used for liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// The API is ready once the database answers and the property table
// resolves. Returns 503 Service Unavailable otherwise.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "not_ready", Database: "disconnected", Source: "unknown"}

	err := errNoDatabase
	if h.db != nil {
		err = h.db.Ping(ctx)
	}
	if err != nil {
		h.logNotReady(c, "Database health check failed", err)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = "connected"

	if h.source != nil {
		if err := h.source.CheckSource(ctx); err != nil {
			h.logNotReady(c, "Property table check failed", err)
			resp.Source = "unavailable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.Source = "available"
	}

	resp.Status = "ready"
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) logNotReady(c *gin.Context, msg string, err error) {
	// Get logger from context (set by logger middleware)
	if log := middleware.GetLogger(c); log != nil {
		log.Error(msg, err, map[string]interface{}{
			"timeout": HealthCheckTimeout.String(),
			"table":   h.info.Table,
		})
	}
}

// Info handles GET /api/v1/info endpoint.
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Version:      APIVersion,
		Environment:  h.info.Env,
		Uptime:       formatUptime(time.Since(h.startTime)),
		SourceTable:  h.info.Table,
		BatchSize:    h.info.BatchSize,
		Departements: len(models.Departments()),
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
