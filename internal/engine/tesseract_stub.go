//go:build !tesseract

package engine

// This file provides a no-CGO stub for the Tesseract engine. It is compiled
// when the 'tesseract' build tag is NOT set, keeping default builds and CI
// CGO-free. The real binding lives in tesseract.go (tagged 'tesseract').

import (
	"context"
	"io"
)

// tesseractBuilt indicates this binary was compiled with the real OCR runtime.
var tesseractBuilt = false

type tesseractEngine struct {
	languages []string
}

// NewTesseractEngine constructs the engine. In this build it refuses to load
// anything rather than mock model behavior.
func NewTesseractEngine(languages ...string) Engine {
	return &tesseractEngine{languages: languages}
}

func (e *tesseractEngine) AcceleratorName() (string, bool) { return "", false }

func (e *tesseractEngine) LoadTokenizer(ctx context.Context, modelName, cacheDir string) (Tokenizer, error) {
	return nil, ErrUnavailable("ocr engine not built (missing 'tesseract' build tag)")
}

func (e *tesseractEngine) LoadModel(ctx context.Context, modelName, cacheDir string, opts ModelOptions) (Model, error) {
	return nil, ErrUnavailable("ocr engine not built (missing 'tesseract' build tag)")
}

// stubModel exists so the type set matches the tagged build; nothing
// constructs it because LoadModel always fails.
type stubModel struct{}

func (stubModel) Eval()                      {}
func (stubModel) ToDevice(bool) error        { return nil }
func (stubModel) Infer(context.Context, Tokenizer, InferRequest, io.Writer) error {
	return ErrUnavailable("ocr engine not built (missing 'tesseract' build tag)")
}
