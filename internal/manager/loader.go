package manager

import (
	"context"
	"os"

	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// TriggerLoad starts a background load cycle and returns immediately.
// Single-flight: if a cycle is already running the call is a no-op and the
// caller observes the in-flight cycle through the progress store. If the
// model is already loaded the terminal state is republished at 100%.
func (m *Manager) TriggerLoad() error {
	m.mu.Lock()
	if m.model != nil && m.tok != nil {
		m.mu.Unlock()
		m.log.Info().Msg("model already loaded")
		m.store.Set(types.StatusLoaded, "complete", "Model already loaded", 100, 0, "")
		return nil
	}
	if m.loading {
		m.mu.Unlock()
		m.log.Info().Msg("model loading already in progress")
		return nil
	}
	m.loading = true
	m.mu.Unlock()

	go m.loadCycle()
	return nil
}

// loadCycle runs one load from start to a terminal state. Errors terminate
// the cycle as StatusError; nothing retries automatically. Recovery is a new
// TriggerLoad from a caller.
func (m *Manager) loadCycle() {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()
	ctx := context.Background()

	m.store.Set(types.StatusLoading, "init", "Initializing model loading...", 0, 0, "")
	m.log.Info().Str("model", m.cfg.ModelName).Str("cache_dir", m.cfg.CacheDir).Msg("loading OCR model")

	if err := os.MkdirAll(m.cfg.CacheDir, 0o755); err != nil {
		m.failLoad(err)
		return
	}

	// Capability probe only; absence degrades to the CPU path.
	gpuName, hasGPU := m.eng.AcceleratorName()
	if hasGPU {
		m.log.Info().Str("device", gpuName).Msg("accelerator available")
	} else {
		m.log.Warn().Msg("no accelerator available, will use CPU (this will be slow)")
	}

	m.store.Set(types.StatusLoading, "tokenizer", "Loading tokenizer...", 10, 0, "")
	tok, err := m.eng.LoadTokenizer(ctx, m.cfg.ModelName, m.cfg.CacheDir)
	if err != nil {
		m.failLoad(err)
		return
	}
	m.store.Set(types.StatusLoading, "tokenizer", "Tokenizer loaded", 20, 0, "")

	// A populated cache means this cycle reads from disk rather than the
	// network; that only changes the monitor's stall messaging.
	initialSize := m.sizeOf(m.cfg.CacheDir)
	cached := initialSize > cachedThresholdBytes
	if cached {
		m.store.Set(types.StatusLoading, "model", "Loading model from cache...", 25, 0, "")
	} else {
		m.store.Set(types.StatusLoading, "model", "Downloading model files (this will take several minutes)...", 25, 0, "")
	}

	mon := m.startDownloadMonitor(initialSize, cached)
	mdl, err := m.eng.LoadModel(ctx, m.cfg.ModelName, m.cfg.CacheDir, engine.ModelOptions{Optimized: true})
	if err != nil {
		// Environment-class failure: fall back to the default construction
		// path. Never surfaced to the caller.
		m.log.Warn().Err(err).Msg("optimized model path unavailable, using default")
		mdl, err = m.eng.LoadModel(ctx, m.cfg.ModelName, m.cfg.CacheDir, engine.ModelOptions{})
	}
	mon.stop()
	if err != nil {
		m.failLoad(err)
		return
	}

	m.store.Set(types.StatusLoading, "gpu", "Moving model to GPU...", 80, 0, "")
	mdl.Eval()

	m.store.Set(types.StatusLoading, "gpu", "Optimizing model on GPU...", 90, 0, "")
	if err := mdl.ToDevice(hasGPU); err != nil {
		m.failLoad(err)
		return
	}
	if hasGPU {
		m.log.Info().Msg("model placed on accelerator with reduced precision")
	} else {
		m.log.Info().Msg("model placed on CPU (inference will be slower)")
	}

	m.mu.Lock()
	m.tok = tok
	m.model = mdl
	m.mu.Unlock()

	m.log.Info().Msg("model loaded successfully")
	m.store.Set(types.StatusLoaded, "complete", "Model ready!", 100, 0, "")
}

func (m *Manager) failLoad(err error) {
	if engine.IsUnavailable(err) {
		m.log.Error().Err(err).Msg("model load failed: binary built without the OCR runtime")
	} else {
		m.log.Error().Stack().Err(err).Msg("model load failed")
	}
	m.store.Set(types.StatusError, "failed", err.Error(), 0, 0, "")
}
