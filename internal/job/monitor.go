package job

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is a resource snapshot of a supervised child process.
type ProcessStats struct {
	PID           int32     `json:"pid"`
	CPUPercent    float64   `json:"cpu_percent"`
	RSSBytes      uint64    `json:"rss_bytes"`
	PeakRSSBytes  uint64    `json:"peak_rss_bytes"`
	Samples       int       `json:"samples"`
	LastSampledAt time.Time `json:"last_sampled_at"`
}

// ProcessSampler periodically records CPU and memory usage of one process.
type ProcessSampler struct {
	proc     *process.Process
	interval time.Duration

	mu    sync.RWMutex
	stats ProcessStats

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewProcessSampler attaches to pid. It fails if the process no longer exists.
func NewProcessSampler(ctx context.Context, pid int, interval time.Duration) (*ProcessSampler, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProcessSampler{
		proc:     proc,
		interval: interval,
		stats:    ProcessStats{PID: int32(pid)},
	}, nil
}

// Start begins sampling in the background until Stop is called.
func (s *ProcessSampler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sample(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sample(ctx)
			}
		}
	}()
}

// Stop ends sampling and returns the final snapshot. Safe to call more than once.
func (s *ProcessSampler) Stop() ProcessStats {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
	return s.Stats()
}

// Stats returns the latest snapshot.
func (s *ProcessSampler) Stats() ProcessStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *ProcessSampler) sample(ctx context.Context) {
	cpu, cpuErr := s.proc.CPUPercentWithContext(ctx)
	mem, memErr := s.proc.MemoryInfoWithContext(ctx)
	if cpuErr != nil && memErr != nil {
		// Process has most likely exited.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cpuErr == nil {
		s.stats.CPUPercent = cpu
	}
	if memErr == nil && mem != nil {
		s.stats.RSSBytes = mem.RSS
		if mem.RSS > s.stats.PeakRSSBytes {
			s.stats.PeakRSSBytes = mem.RSS
		}
	}
	s.stats.Samples++
	s.stats.LastSampledAt = time.Now()
}
