package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedSizes returns each value once, then repeats the last one.
func scriptedSizes(sizes []int64) func(string) int64 {
	var mu sync.Mutex
	idx := 0
	return func(string) int64 {
		mu.Lock()
		defer mu.Unlock()
		if idx < len(sizes) {
			v := sizes[idx]
			idx++
			return v
		}
		return sizes[len(sizes)-1]
	}
}

func newTestMonitor(rec progressRecorder, sizeOf func(string) int64, cached bool) *downloadMonitor {
	return &downloadMonitor{
		store:    rec,
		cacheDir: "unused",
		sizeOf:   sizeOf,
		interval: time.Millisecond,
		join:     250 * time.Millisecond,
		cached:   cached,
		lastSize: 0,
		log:      zerolog.Nop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func waitForUpdates(t *testing.T, rec *recorderStore, n int) []progressUpdate {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := rec.list(); len(got) >= n {
			return got
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d updates, have %d", n, len(rec.list()))
	return nil
}

func TestMonitorGrowthAdvancesAndStallsQuiesce(t *testing.T) {
	const mb = int64(1024 * 1024)
	rec := &recorderStore{}
	d := newTestMonitor(rec, scriptedSizes([]int64{0, 0, 50 * mb, 50 * mb, 50 * mb, 50 * mb, 50 * mb, 120 * mb}), false)
	go d.run()

	// Two initial stalls, one growth, four stalls, one growth, four trailing
	// stalls before quiescence: 12 published updates in total.
	got := waitForUpdates(t, rec, 12)
	// Give the loop time to keep polling; it must stay silent now.
	time.Sleep(20 * time.Millisecond)
	d.stop()
	got = rec.list()
	if len(got) != 12 {
		t.Fatalf("expected monitor to go silent after 5 stalls, got %d updates", len(got))
	}

	wantPercents := []int{25, 25, 27, 27, 27, 27, 27, 29, 29, 29, 29, 29}
	for i, u := range got {
		if u.percent != wantPercents[i] {
			t.Fatalf("update %d: percent=%d want %d (all: %+v)", i, u.percent, wantPercents[i], got)
		}
	}
	// Growth polls report the size in megabytes.
	if got[2].message != "Downloading model files... (50.0 MB downloaded)" {
		t.Fatalf("unexpected growth message: %q", got[2].message)
	}
	if got[7].message != "Downloading model files... (120.0 MB downloaded)" {
		t.Fatalf("unexpected growth message: %q", got[7].message)
	}
	// Stall polls keep the generic message.
	if got[3].message != "Downloading model files..." {
		t.Fatalf("unexpected stall message: %q", got[3].message)
	}
}

func TestMonitorStallMessageForCachedLoads(t *testing.T) {
	rec := &recorderStore{}
	d := newTestMonitor(rec, scriptedSizes([]int64{0}), true)
	go d.run()
	got := waitForUpdates(t, rec, 1)
	d.stop()
	if got[0].message != "Loading model from cache..." {
		t.Fatalf("unexpected message: %q", got[0].message)
	}
}

func TestMonitorPercentCapsAt75(t *testing.T) {
	var mu sync.Mutex
	var size int64
	rec := &recorderStore{}
	d := newTestMonitor(rec, func(string) int64 {
		mu.Lock()
		defer mu.Unlock()
		size += 1024 * 1024 // grows every poll
		return size
	}, false)
	go d.run()

	// 25 growth polls reach the cap; let a few more run past it.
	got := waitForUpdates(t, rec, 30)
	d.stop()
	sawCap := false
	last := 0
	for _, u := range got {
		if u.percent > 75 {
			t.Fatalf("percent exceeded cap: %d", u.percent)
		}
		if u.percent < last {
			t.Fatalf("percent regressed: %d -> %d", last, u.percent)
		}
		last = u.percent
		if u.percent == 75 {
			sawCap = true
		}
	}
	if !sawCap {
		t.Fatalf("expected percent to reach the 75 cap, last=%d", last)
	}
}

func TestMonitorStopAbandonsSlowProbe(t *testing.T) {
	rec := &recorderStore{}
	block := make(chan struct{})
	d := newTestMonitor(rec, func(string) int64 {
		<-block // probe stuck, e.g. on a hung filesystem
		return 0
	}, false)
	d.join = 30 * time.Millisecond
	go d.run()

	time.Sleep(5 * time.Millisecond) // let the first poll enter the probe
	start := time.Now()
	d.stop()
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("stop blocked for %v despite join bound", elapsed)
	}
	close(block) // release the goroutine; it sees stopCh and exits
}
