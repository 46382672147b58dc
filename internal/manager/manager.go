package manager

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/common/fsutil"
	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMonitorInterval = 2 * time.Second
	defaultMonitorJoin     = 5 * time.Second
	// Cache contents above this size mean the model is already on disk and a
	// load cycle will read from cache instead of downloading.
	cachedThresholdBytes = 100 * 1024 * 1024
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	ModelName string
	CacheDir  string
	OutputDir string
	// MonitorInterval is the cache-size poll period; MonitorJoin bounds how
	// long a load cycle waits for the monitor goroutine to acknowledge stop.
	MonitorInterval time.Duration
	MonitorJoin     time.Duration
	// DiagSink receives the engine's diagnostic output after interception.
	// Defaults to os.Stdout.
	DiagSink io.Writer
	Logger   zerolog.Logger
}

// Manager owns the model handles and coordinates load and inference cycles.
// The tokenizer and model handles are nil until the first successful load and
// are never cleared afterwards; there is no unload.
type Manager struct {
	cfg    ManagerConfig
	eng    engine.Engine
	store  *ProgressStore
	log    zerolog.Logger
	sizeOf func(string) int64

	mu      sync.Mutex
	tok     engine.Tokenizer
	model   engine.Model
	loading bool
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(eng engine.Engine, cfg ManagerConfig) *Manager {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = defaultMonitorInterval
	}
	if cfg.MonitorJoin <= 0 {
		cfg.MonitorJoin = defaultMonitorJoin
	}
	if cfg.DiagSink == nil {
		cfg.DiagSink = os.Stdout
	}
	m := &Manager{
		cfg:    cfg,
		eng:    eng,
		log:    cfg.Logger,
		sizeOf: fsutil.DirSize,
	}
	m.store = NewProgressStore(cfg.Logger)
	return m
}

// Progress returns the current progress snapshot.
func (m *Manager) Progress() types.ProgressSnapshot {
	return m.store.Snapshot()
}

// Loaded reports whether both model handles are set.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model != nil && m.tok != nil
}

// OutputDir exposes the directory inference results are written to.
func (m *Manager) OutputDir() string { return m.cfg.OutputDir }

// Health builds the GET /health payload.
func (m *Manager) Health() types.HealthResponse {
	_, gpu := m.eng.AcceleratorName()
	return types.HealthResponse{
		Status:       "ok",
		ModelLoaded:  m.Loaded(),
		GPUAvailable: gpu,
	}
}

// ModelInfo builds the GET /model_info payload.
func (m *Manager) ModelInfo() types.ModelInfoResponse {
	name, gpu := m.eng.AcceleratorName()
	resp := types.ModelInfoResponse{
		ModelName:    m.cfg.ModelName,
		CacheDir:     m.cfg.CacheDir,
		ModelLoaded:  m.Loaded(),
		GPUAvailable: gpu,
	}
	if gpu {
		resp.GPUName = &name
	}
	return resp
}
