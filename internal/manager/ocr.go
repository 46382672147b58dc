package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"ocrd/internal/common/fsutil"
	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// boxesImageName is the annotated image some prompt variants produce.
const boxesImageName = "result_with_boxes.jpg"

// RunOCR executes one synchronous inference call. If no model is loaded it
// triggers the (single-flight) load and proceeds without waiting; a call that
// arrives before the cycle finishes fails rather than blocking; the caller
// retries once /progress reports loaded. Inference calls are expected to be
// serialized by the HTTP layer; they are not safe to overlap because they
// share the diagnostic sink.
func (m *Manager) RunOCR(ctx context.Context, req types.OCRRequest) (types.OCRResponse, error) {
	m.mu.Lock()
	tok, mdl := m.tok, m.model
	m.mu.Unlock()
	if tok == nil || mdl == nil {
		m.log.Info().Msg("model not loaded, triggering load")
		if err := m.TriggerLoad(); err != nil {
			return types.OCRResponse{}, err
		}
		m.mu.Lock()
		tok, mdl = m.tok, m.model
		m.mu.Unlock()
	}

	cfg := types.PromptConfigFor(req.PromptType)
	m.log.Info().Str("prompt_type", string(req.PromptType)).Msg("processing OCR request")

	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return types.OCRResponse{}, err
	}

	m.store.Set(types.StatusProcessing, "ocr", "Starting OCR...", 0, 0, "")
	tap := newStreamTap(m.cfg.DiagSink, m.store)
	err := m.infer(ctx, tok, mdl, cfg.Prompt, req, tap)
	// Guaranteed cleanup: the poller returns to idle whether or not the
	// engine call succeeded.
	m.store.Set(types.StatusIdle, "", "", 0, 0, "")
	if err != nil {
		m.log.Error().Stack().Err(err).Msg("OCR inference failed")
		return types.OCRResponse{}, err
	}
	m.log.Info().Msg("OCR inference completed")

	result := m.readResult(cfg.OutputFile)
	resp := types.OCRResponse{
		Status:     "success",
		Result:     result,
		PromptType: string(req.PromptType),
	}
	if fsutil.PathExists(filepath.Join(m.cfg.OutputDir, boxesImageName)) {
		name := boxesImageName
		resp.BoxesImagePath = &name
	}
	if raw, ok := tap.FinalTokens(); ok {
		resp.RawTokens = &raw
	}
	return resp, nil
}

func (m *Manager) infer(ctx context.Context, tok engine.Tokenizer, mdl engine.Model, prompt string, req types.OCRRequest, sink *streamTap) error {
	if tok == nil || mdl == nil {
		return modelNotReadyError{}
	}
	return mdl.Infer(ctx, tok, engine.InferRequest{
		Prompt:       prompt,
		ImagePath:    req.ImagePath,
		OutputDir:    m.cfg.OutputDir,
		BaseSize:     req.BaseSize,
		ImageSize:    req.ImageSize,
		CropMode:     req.CropMode,
		SaveResults:  true,
		TestCompress: true,
	}, sink)
}

// readResult reads the expected result file for the prompt type, falling
// back to the first text-like file in the output directory when the model
// wrote a different name.
func (m *Manager) readResult(expected string) string {
	p := filepath.Join(m.cfg.OutputDir, expected)
	if b, err := os.ReadFile(p); err == nil {
		m.log.Info().Str("file", expected).Msg("read result file")
		return string(b)
	}
	m.log.Warn().Str("file", expected).Msg("expected result file missing, scanning for alternatives")
	entries, err := os.ReadDir(m.cfg.OutputDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".mmd") || strings.HasSuffix(name, ".md") {
				if b, err := os.ReadFile(filepath.Join(m.cfg.OutputDir, name)); err == nil {
					m.log.Info().Str("file", name).Msg("read alternative result file")
					return string(b)
				}
			}
		}
	}
	m.log.Warn().Msg("no result file found in output directory")
	return "OCR completed but no text file was generated"
}
