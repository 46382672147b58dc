package manager

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ocrd/pkg/types"
)

// Monitor tuning. The engine exposes no byte-level download progress, so the
// monitor infers it from cache-directory growth: each observed growth advances
// the percent by a fixed step inside the 25..75 window reserved for model
// construction.
const (
	monitorStartPercent = 25
	monitorMaxPercent   = 75
	monitorStep         = 2
	// After this many consecutive polls without growth the monitor stops
	// publishing until growth resumes. Quiescence, not failure: a stalled
	// network and a model that finished downloading look identical here.
	monitorStallLimit = 5
)

// downloadMonitor polls the cache directory size on a fixed interval and
// publishes estimated progress. One monitor exists per load cycle, runs on
// its own goroutine, and is stopped by the loader with a bounded join.
type downloadMonitor struct {
	store    progressRecorder
	cacheDir string
	sizeOf   func(string) int64
	interval time.Duration
	join     time.Duration
	// cached distinguishes a disk-cache load from a network download; it only
	// changes the message published while stalled.
	cached   bool
	lastSize int64
	log      zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// startDownloadMonitor launches the polling goroutine. initialSize is the
// cache size probed just before model construction began.
func (m *Manager) startDownloadMonitor(initialSize int64, cached bool) *downloadMonitor {
	d := &downloadMonitor{
		store:    m.store,
		cacheDir: m.cfg.CacheDir,
		sizeOf:   m.sizeOf,
		interval: m.cfg.MonitorInterval,
		join:     m.cfg.MonitorJoin,
		cached:   cached,
		lastSize: initialSize,
		log:      m.log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *downloadMonitor) run() {
	defer close(d.doneCh)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	percent := monitorStartPercent
	stall := 0
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
		}
		current := d.sizeOf(d.cacheDir)
		if current > d.lastSize {
			stall = 0
			if percent+monitorStep < monitorMaxPercent {
				percent += monitorStep
			} else {
				percent = monitorMaxPercent
			}
			sizeMB := float64(current) / (1024 * 1024)
			d.store.Set(types.StatusLoading, "model",
				fmt.Sprintf("Downloading model files... (%.1f MB downloaded)", sizeMB),
				percent, 0, "")
			d.lastSize = current
			continue
		}
		stall++
		if stall < monitorStallLimit {
			msg := "Downloading model files..."
			if d.cached {
				msg = "Loading model from cache..."
			}
			d.store.Set(types.StatusLoading, "model", msg, percent, 0, "")
		}
	}
}

// stop signals the goroutine and waits for it up to the join bound. If the
// join times out the goroutine is abandoned; it observes stopCh on its next
// tick and exits on its own.
func (d *downloadMonitor) stop() {
	close(d.stopCh)
	select {
	case <-d.doneCh:
	case <-time.After(d.join):
		d.log.Warn().Msg("download monitor did not stop in time, abandoning")
	}
}
