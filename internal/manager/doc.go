// Package manager owns the OCR job lifecycle: the shared progress store, the
// single-flight background model loader, the cache-growth download monitor,
// and the diagnostic-stream interceptor that turns the engine's free-form
// output into a pollable progress signal. It is structured into small files
// by concern:
//
//   - manager.go: core Manager type, ManagerConfig, constructor, projections.
//   - progress.go: ProgressStore, the lock-guarded snapshot every other
//     component reads and writes.
//   - loader.go: TriggerLoad and the background load cycle state machine.
//   - monitor.go: downloadMonitor, the cache-size polling loop.
//   - intercept.go: streamTap, the io.Writer proxy installed around one
//     inference call, and the sentinel segmentation it performs.
//   - ocr.go: RunOCR orchestration and result-file resolution.
//   - errors.go: error types and helpers.
//
// The engine itself lives in internal/engine and is treated as opaque:
// a synchronous collaborator with no streaming API whose only progress
// side channels are cache-directory growth and diagnostic text.
//
// External packages should use public methods only (NewWithConfig,
// TriggerLoad, RunOCR, Progress, Health, ModelInfo). Internal types are
// subject to change.
package manager
