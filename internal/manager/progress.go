package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ocrd/pkg/types"
)

// progressRecorder is the write side of the progress state. ProgressStore
// implements it; tests substitute a recorder that keeps history.
type progressRecorder interface {
	Set(status types.Status, stage, message string, percent, chars int, raw string)
}

// ProgressStore holds the job progress snapshot shared by the loader, the
// download monitor, the stream interceptor, and every HTTP poller. Exactly
// one writer mutates it at a time; readers always receive a fully-formed
// copy, never a partial update. Nothing blocking is ever done under the lock.
type ProgressStore struct {
	mu   sync.Mutex
	snap types.ProgressSnapshot
	log  zerolog.Logger
	now  func() time.Time
}

// NewProgressStore returns a store in the idle state.
func NewProgressStore(log zerolog.Logger) *ProgressStore {
	s := &ProgressStore{log: log, now: time.Now}
	s.snap = types.ProgressSnapshot{Status: types.StatusIdle, Timestamp: s.now().Unix()}
	return s
}

// Set atomically replaces every field of the snapshot and stamps it.
func (s *ProgressStore) Set(status types.Status, stage, message string, percent, chars int, raw string) {
	s.mu.Lock()
	s.snap = types.ProgressSnapshot{
		Status:          status,
		Stage:           stage,
		Message:         message,
		ProgressPercent: percent,
		CharsGenerated:  chars,
		RawTokenStream:  raw,
		Timestamp:       s.now().Unix(),
	}
	s.mu.Unlock()

	ev := s.log.Info().
		Str("status", string(status)).
		Str("stage", stage).
		Int("percent", percent)
	if chars > 0 {
		ev = ev.Int("chars", chars)
	}
	ev.Msg(message)
}

// Snapshot returns a consistent copy of the current state.
func (s *ProgressStore) Snapshot() types.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
