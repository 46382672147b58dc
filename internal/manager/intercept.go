package manager

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// streamTap is the diagnostic sink handed to the engine for the duration of
// one inference call. Every write is forwarded best-effort to the underlying
// sink and accumulated verbatim; whenever the accumulator contains the
// token-generation section, its current text is published to the progress
// store as a live signal.
//
// The engine's output carries four sections in fixed order, delimited by the
// sentinel line: preamble, size/shape metadata, token trace, compression
// statistics. The token trace is slice index 2 after splitting on the
// sentinel. The index is part of the collaborator contract: if the format
// ever changes, the tap extracts the wrong section rather than failing.
type streamTap struct {
	forward io.Writer
	store   progressRecorder

	mu  sync.Mutex
	buf bytes.Buffer
}

func newStreamTap(forward io.Writer, store progressRecorder) *streamTap {
	return &streamTap{forward: forward, store: store}
}

// Write implements io.Writer. Forwarding failures are swallowed: the
// passthrough is diagnostic convenience, the accumulator is what matters.
func (t *streamTap) Write(p []byte) (int, error) {
	if t.forward != nil {
		_, _ = t.forward.Write(p)
	}
	t.mu.Lock()
	t.buf.Write(p)
	text := t.buf.String()
	t.mu.Unlock()

	if raw, ok := tokenSegment(text); ok && raw != "" {
		t.store.Set(types.StatusProcessing, "ocr", "Generating OCR...", 50,
			utf8.RuneCountInString(raw), raw)
	}
	return len(p), nil
}

// FinalTokens re-derives the token segment from the completed accumulator.
// Used for the response payload after the progress store has been reset.
func (t *streamTap) FinalTokens() (string, bool) {
	t.mu.Lock()
	text := t.buf.String()
	t.mu.Unlock()
	return tokenSegment(text)
}

// tokenSegment extracts the token-generation section from accumulated
// diagnostic text. The section only exists once at least two sentinels have
// been seen; before that there is nothing to report.
func tokenSegment(s string) (string, bool) {
	if strings.Count(s, engine.Sentinel) < 2 {
		return "", false
	}
	parts := strings.Split(s, engine.Sentinel)
	if len(parts) < 3 {
		return "", false
	}
	seg := strings.TrimSpace(parts[2])
	seg = strings.TrimLeft(seg, "=")
	seg = strings.TrimSpace(seg)
	return seg, true
}
