package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/degree-audit-backend/internal/database"
	"github.com/stemsi/degree-audit-backend/internal/service"
)

// HealthHandler reports store reachability, the loaded requirement table and
// the persist backlog.
type HealthHandler struct {
	check      func(ctx context.Context) database.Status
	snapshot   func() (*service.DegreeSnapshot, error)
	queueDepth func(ctx context.Context) (int64, error)
	startTime  time.Time
}

func NewHealthHandler(
	check func(ctx context.Context) database.Status,
	snapshot func() (*service.DegreeSnapshot, error),
	queueDepth func(ctx context.Context) (int64, error),
) *HealthHandler {
	return &HealthHandler{
		check:      check,
		snapshot:   snapshot,
		queueDepth: queueDepth,
		startTime:  time.Now(),
	}
}

type healthReport struct {
	Status       string          `json:"status"`
	Uptime       string          `json:"uptime"`
	Stores       database.Status `json:"stores"`
	Requirements *requirements   `json:"requirements"`
	PersistQueue int64           `json:"persist_queue"`
	Goroutines   int             `json:"goroutines"`
	HeapAlloc    uint64          `json:"heap_alloc"`
	GoVersion    string          `json:"go_version"`
}

type requirements struct {
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	Degrees  int       `json:"degrees"`
	LoadedAt time.Time `json:"loaded_at"`
}

// GET /health
// Answers 503 when a store is down or no requirement table is loaded.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	rep := healthReport{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(h.startTime)),
		Stores:     h.check(ctx),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rep.HeapAlloc = ms.HeapAlloc

	if snap, err := h.snapshot(); err == nil {
		rep.Requirements = &requirements{
			Version:  snap.Version,
			Source:   snap.Source,
			Degrees:  len(snap.Table),
			LoadedAt: snap.LoadedAt,
		}
	}

	if h.queueDepth != nil {
		rep.PersistQueue, _ = h.queueDepth(ctx)
	}

	status := http.StatusOK
	if !rep.Stores.Healthy() || rep.Requirements == nil {
		rep.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, rep)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
