package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/pkg/format"
)

// ActiveJobReporter reports the running job.
type ActiveJobReporter interface {
	Active() (job.Status, bool)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	jobs      ActiveJobReporter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithJobs sets the source of the active job status.
func (h *HealthHandler) WithJobs(jobs ActiveJobReporter) *HealthHandler {
	h.jobs = jobs
	return h
}

// CPUInfo holds host CPU load.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds host memory usage.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	UsedPercent       float64 `json:"used_percent"`
}

// ProcessInfo holds this process's resource usage.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	RSS        string  `json:"rss"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status        string      `json:"status"`
	Timestamp     string      `json:"timestamp"`
	Version       string      `json:"version"`
	Uptime        string      `json:"uptime"`
	UptimeSeconds float64     `json:"uptime_seconds"`
	CPUInfo       CPUInfo     `json:"cpu_info"`
	Memory        MemoryInfo  `json:"memory"`
	Process       ProcessInfo `json:"process"`
	ActiveJob     *job.Status `json:"active_job,omitempty"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns service status, resource usage and the active job",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       h.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		CPUInfo:       cpuInfo(ctx),
		Memory:        memoryInfo(ctx),
		Process:       processInfo(ctx),
	}
	if h.jobs != nil {
		if st, ok := h.jobs.Active(); ok {
			resp.ActiveJob = &st
		}
	}

	return &HealthOutput{Body: resp}, nil
}

func cpuInfo(ctx context.Context) CPUInfo {
	cores := runtime.NumCPU()
	info := CPUInfo{Cores: cores}

	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		info.Load1Min = avg.Load1
		info.Load5Min = avg.Load5
		info.Load15Min = avg.Load15
		if cores > 0 {
			info.LoadPercentage1Min = (avg.Load1 / float64(cores)) * 100
		}
	}
	return info
}

func memoryInfo(ctx context.Context) MemoryInfo {
	var info MemoryInfo
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		info.TotalMemoryMB = float64(vm.Total) / 1024 / 1024
		info.UsedMemoryMB = float64(vm.Used) / 1024 / 1024
		info.AvailableMemoryMB = float64(vm.Available) / 1024 / 1024
		info.UsedPercent = vm.UsedPercent
	}
	return info
}

func processInfo(ctx context.Context) ProcessInfo {
	pid := int32(os.Getpid())
	info := ProcessInfo{PID: pid, Goroutines: runtime.NumGoroutine()}

	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return info
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		info.RSSBytes = mi.RSS
		info.RSS = format.Bytes(mi.RSS)
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		info.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		info.Threads = n
	}
	return info
}
