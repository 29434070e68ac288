package app

import (
	"net/http"
	"runtime"
	"time"

	"github.com/taskhub/taskhub/internal/platform/db"
	"github.com/taskhub/taskhub/internal/platform/httpx"
)

// HealthHandler reports liveness, database connectivity and memory usage.
type HealthHandler struct {
	db      db.Pinger
	started time.Time
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler builds the /health handler. pinger may be nil.
func NewHealthHandler(pinger db.Pinger) *HealthHandler {
	return &HealthHandler{db: pinger, started: time.Now(), timeout: 2 * time.Second, now: time.Now}
}

type memoryStats struct {
	Alloc     uint64 `json:"alloc"`
	Sys       uint64 `json:"sys"`
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapInuse uint64 `json:"heapInuse"`
	NumGC     uint32 `json:"numGC"`
}

type healthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Database  string      `json:"database"`
	Memory    memoryStats `json:"memory"`
	Uptime    float64     `json:"uptime"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	database := "DISCONNECTED"
	if h.db != nil && db.Connected(r.Context(), h.db, h.timeout) {
		database = "CONNECTED"
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	now := h.now()
	httpx.JSON(w, http.StatusOK, healthResponse{
		Status:    "UP",
		Timestamp: now.UTC().Format(time.RFC3339),
		Database:  database,
		Memory: memoryStats{
			Alloc:     ms.Alloc,
			Sys:       ms.Sys,
			HeapAlloc: ms.HeapAlloc,
			HeapInuse: ms.HeapInuse,
			NumGC:     ms.NumGC,
		},
		Uptime: now.Sub(h.started).Seconds(),
	})
}
