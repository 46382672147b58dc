package manager

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// recorderStore keeps every published update so tests can assert on the
// trajectory, not just the final snapshot.
type recorderStore struct {
	mu      sync.Mutex
	updates []progressUpdate
}

type progressUpdate struct {
	status  types.Status
	stage   string
	message string
	percent int
	chars   int
	raw     string
}

func (r *recorderStore) Set(status types.Status, stage, message string, percent, chars int, raw string) {
	r.mu.Lock()
	r.updates = append(r.updates, progressUpdate{status, stage, message, percent, chars, raw})
	r.mu.Unlock()
}

func (r *recorderStore) list() []progressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progressUpdate, len(r.updates))
	copy(out, r.updates)
	return out
}

type fakeTokenizer struct{ name string }

func (f *fakeTokenizer) Name() string { return f.name }

type fakeModel struct {
	mu         sync.Mutex
	evalCalled bool
	device     *bool
	deviceErr  error
	inferFn    func(ctx context.Context, req engine.InferRequest, sink io.Writer) error
}

func (f *fakeModel) Eval() {
	f.mu.Lock()
	f.evalCalled = true
	f.mu.Unlock()
}

func (f *fakeModel) ToDevice(accelerated bool) error {
	f.mu.Lock()
	f.device = &accelerated
	f.mu.Unlock()
	return f.deviceErr
}

func (f *fakeModel) Infer(ctx context.Context, tok engine.Tokenizer, req engine.InferRequest, sink io.Writer) error {
	if f.inferFn != nil {
		return f.inferFn(ctx, req, sink)
	}
	return nil
}

// fakeEngine scripts the collaborator. tokGate, when non-nil, blocks
// LoadTokenizer until closed so tests can hold a load cycle open.
type fakeEngine struct {
	mu           sync.Mutex
	gpuName      string
	gpu          bool
	tokErr       error
	optimizedErr error
	defaultErr   error
	model        *fakeModel
	tokGate      chan struct{}
	tokCalls     int
	loadCalls    []engine.ModelOptions
}

func (f *fakeEngine) AcceleratorName() (string, bool) { return f.gpuName, f.gpu }

func (f *fakeEngine) LoadTokenizer(ctx context.Context, modelName, cacheDir string) (engine.Tokenizer, error) {
	f.mu.Lock()
	f.tokCalls++
	gate := f.tokGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.tokErr != nil {
		return nil, f.tokErr
	}
	return &fakeTokenizer{name: modelName}, nil
}

func (f *fakeEngine) LoadModel(ctx context.Context, modelName, cacheDir string, opts engine.ModelOptions) (engine.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls = append(f.loadCalls, opts)
	if opts.Optimized && f.optimizedErr != nil {
		return nil, f.optimizedErr
	}
	if !opts.Optimized && f.defaultErr != nil {
		return nil, f.defaultErr
	}
	if f.model == nil {
		f.model = &fakeModel{}
	}
	return f.model, nil
}

func (f *fakeEngine) tokenizerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokCalls
}

func (f *fakeEngine) loadedModel() *fakeModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func (f *fakeEngine) modelLoadCalls() []engine.ModelOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.ModelOptions(nil), f.loadCalls...)
}

func newTestManager(t *testing.T, eng engine.Engine) *Manager {
	t.Helper()
	return NewWithConfig(eng, ManagerConfig{
		ModelName:       "acme/ocr-test",
		CacheDir:        t.TempDir(),
		OutputDir:       t.TempDir(),
		MonitorInterval: time.Millisecond,
		MonitorJoin:     250 * time.Millisecond,
		DiagSink:        io.Discard,
		Logger:          zerolog.Nop(),
	})
}

// waitForStatus polls the progress store until one of the wanted terminal
// states appears or the deadline passes.
func waitForStatus(t *testing.T, m *Manager, want ...types.Status) types.ProgressSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := m.Progress()
		for _, w := range want {
			if snap.Status == w {
				return snap
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %v, last=%+v", want, m.Progress())
	return types.ProgressSnapshot{}
}
