package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatusHandler reports host health for the admin dashboard.
type StatusHandler struct {
	startedAt time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{startedAt: time.Now()}
}

// Get returns CPU, memory, and disk usage plus process uptime. Individual
// probe failures leave their fields at zero rather than failing the request.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
		"goVersion":     runtime.Version(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]interface{}{
			"totalBytes":  vm.Total,
			"usedBytes":   vm.Used,
			"usedPercent": vm.UsedPercent,
		}
	}
	if du, err := disk.Usage("/"); err == nil {
		status["disk"] = map[string]interface{}{
			"totalBytes":  du.Total,
			"usedBytes":   du.Used,
			"usedPercent": du.UsedPercent,
		}
	}

	respondJSON(w, http.StatusOK, status)
}
