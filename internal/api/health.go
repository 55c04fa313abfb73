package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bhandras/zenith/internal/seed"
	"github.com/gin-gonic/gin"
)

// SeedReader returns a consistent copy of the current seed.
type SeedReader interface {
	Snapshot() seed.Record
}

// HealthResponse is the body of GET / and GET /health.
type HealthResponse struct {
	Status        string      `json:"status"`
	Name          string      `json:"name"`
	Version       string      `json:"version"`
	Port          int         `json:"port"`
	UptimeSeconds float64     `json:"uptime_seconds"`
	TotalRuns     json.Number `json:"total_runs"`
	VaultStatus   string      `json:"vault_status"`
}

// HealthHandler reports liveness plus a few counters read straight from the
// in-memory seed.
type HealthHandler struct {
	seeds   SeedReader
	port    int
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a handler. started is the process start time used
// for uptime.
func NewHealthHandler(seeds SeedReader, port int, started time.Time) *HealthHandler {
	return &HealthHandler{
		seeds:   seeds,
		port:    port,
		started: started,
		now:     time.Now,
	}
}

// GetHealth handles GET / and GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	doc := h.seeds.Snapshot()

	c.JSON(http.StatusOK, HealthResponse{
		Status:        "alive",
		Name:          doc.String("ZENITH", seed.SectionIdentity, "name"),
		Version:       doc.String("2.0", seed.SectionIdentity, "version"),
		Port:          h.port,
		UptimeSeconds: h.now().Sub(h.started).Seconds(),
		TotalRuns:     doc.TotalRuns(),
		VaultStatus:   doc.VaultStatus(),
	})
}
