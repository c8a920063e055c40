package health

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"paperdash/internal/httputil"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Options struct {
	// Pool is the journal database; nil when the journal is in memory.
	Pool             *pgxpool.Pool
	StartedAt        time.Time
	Mode             string
	HTTPAddr         string
	BrokerConfigured bool
	StreamEnabled    bool
	// StreamClients reports connected websocket clients; optional.
	StreamClients func() int
}

type Handler struct {
	opts      Options
	startedAt time.Time
}

func NewHandler(opts Options) *Handler {
	start := opts.StartedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{opts: opts, startedAt: start}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	liveResponse
	Journal journalStats `json:"journal"`
}

type journalStats struct {
	Backend   string     `json:"backend"`
	Reachable bool       `json:"reachable"`
	PingMs    int64      `json:"ping_ms"`
	Error     string     `json:"error,omitempty"`
	Pool      *poolStats `json:"pool,omitempty"`
}

type poolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
	AcquireCount  int64 `json:"acquire_count"`
}

type detailsResponse struct {
	readinessResponse
	App     appStats     `json:"app"`
	Process processStats `json:"process"`
	Runtime runtimeStats `json:"runtime"`
	Memory  memoryStats  `json:"memory"`
	Build   buildStats   `json:"build"`
}

type appStats struct {
	Mode             string `json:"mode"`
	HTTPAddr         string `json:"http_addr"`
	BrokerConfigured bool   `json:"broker_configured"`
	StreamEnabled    bool   `json:"stream_enabled"`
	StreamClients    int    `json:"stream_clients"`
}

type processStats struct {
	PID      int    `json:"pid"`
	Hostname string `json:"hostname"`
	GoOS     string `json:"go_os"`
	GoArch   string `json:"go_arch"`
}

type runtimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	GoMaxProcs int    `json:"gomaxprocs"`
	NumGC      uint32 `json:"num_gc"`
}

type memoryStats struct {
	AllocBytes     uint64 `json:"alloc_bytes"`
	HeapInuseBytes uint64 `json:"heap_inuse_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
}

type buildStats struct {
	MainPath string `json:"main_path"`
	Version  string `json:"version"`
}

func (h *Handler) live(now time.Time) liveResponse {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		uptime = 0
	}
	return liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.Truncate(time.Second).String(),
	}
}

func (h *Handler) collectJournal(ctx context.Context, includePool bool) journalStats {
	if h.opts.Pool == nil {
		return journalStats{Backend: "memory", Reachable: true}
	}
	out := journalStats{Backend: "postgres"}
	if includePool {
		stat := h.opts.Pool.Stat()
		out.Pool = &poolStats{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
			AcquireCount:  stat.AcquireCount(),
		}
	}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	err := h.opts.Pool.Ping(pingCtx)
	cancel()
	out.PingMs = time.Since(start).Milliseconds()
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Reachable = true
	}
	return out
}

// Live is a lightweight liveness endpoint and does not check dependencies.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.live(time.Now().UTC()))
}

// Ready checks the journal database, when one is configured, and returns 503
// when it is not reachable. The brokerage is not probed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{liveResponse: h.live(time.Now().UTC()), Journal: h.collectJournal(r.Context(), false)}
	httpStatus := http.StatusOK
	if !resp.Journal.Reachable {
		resp.Status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, resp)
}

// Full returns full diagnostics.
func (h *Handler) Full(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	build := buildStats{}
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		build.MainPath = strings.TrimSpace(info.Main.Path)
		build.Version = strings.TrimSpace(info.Main.Version)
	}
	host, _ := os.Hostname()
	clients := 0
	if h.opts.StreamClients != nil {
		clients = h.opts.StreamClients()
	}

	resp := detailsResponse{
		readinessResponse: readinessResponse{
			liveResponse: h.live(time.Now().UTC()),
			Journal:      h.collectJournal(r.Context(), true),
		},
		App: appStats{
			Mode:             h.opts.Mode,
			HTTPAddr:         h.opts.HTTPAddr,
			BrokerConfigured: h.opts.BrokerConfigured,
			StreamEnabled:    h.opts.StreamEnabled,
			StreamClients:    clients,
		},
		Process: processStats{
			PID:      os.Getpid(),
			Hostname: host,
			GoOS:     runtime.GOOS,
			GoArch:   runtime.GOARCH,
		},
		Runtime: runtimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			GoMaxProcs: runtime.GOMAXPROCS(0),
			NumGC:      mem.NumGC,
		},
		Memory: memoryStats{
			AllocBytes:     mem.Alloc,
			HeapInuseBytes: mem.HeapInuse,
			SysBytes:       mem.Sys,
		},
		Build: build,
	}
	httpStatus := http.StatusOK
	if !resp.Journal.Reachable {
		resp.Status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, resp)
}
