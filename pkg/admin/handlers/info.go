package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"
)

// Info is the static part of the server description.
type Info struct {
	Name       string
	Version    string
	InstanceID string
	Args       []string
	StartTime  time.Time
}

// ServerInfo is the payload of GET /admin/server_info.
type ServerInfo struct {
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	InstanceID string    `json:"instance_id"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	StartTime  time.Time `json:"start_time"`
	Uptime     string    `json:"uptime"`
	UptimeMs   int64     `json:"uptime_ms"`
	Args       []string  `json:"args"`
	GoVersion  string    `json:"go_version"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
}

// InfoHandler serves GET /admin/server_info.
type InfoHandler struct {
	info     Info
	hostname string
}

// NewInfoHandler creates an info handler.
func NewInfoHandler(info Info) *InfoHandler {
	host, _ := os.Hostname()
	if info.Args == nil {
		info.Args = []string{}
	}
	return &InfoHandler{info: info, hostname: host}
}

// Get describes the running process.
func (h *InfoHandler) Get(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.info.StartTime).Truncate(time.Millisecond)
	writeJSON(w, http.StatusOK, okResponse(ServerInfo{
		Name:       h.info.Name,
		Version:    h.info.Version,
		InstanceID: h.info.InstanceID,
		PID:        os.Getpid(),
		Hostname:   h.hostname,
		StartTime:  h.info.StartTime,
		Uptime:     uptime.String(),
		UptimeMs:   uptime.Milliseconds(),
		Args:       h.info.Args,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}), isPretty(r))
}
