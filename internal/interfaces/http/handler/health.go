package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the health endpoint payload
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// Pinger reports backing store reachability
type Pinger interface {
	Ping() error
}

// HealthHandler exposes the service health endpoint
type HealthHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, startTime: time.Now()}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports service and database status
func (h *HealthHandler) Health(c *gin.Context) {
	status := HealthStatus{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Database:  "up",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	httpStatus := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status.Status = "degraded"
			status.Database = "down"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	c.JSON(httpStatus, status)
}
