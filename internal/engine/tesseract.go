//go:build tesseract

package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/otiai10/gosseract/v2"
)

// tesseractBuilt indicates this binary was compiled with the real OCR runtime.
var tesseractBuilt = true

// tesseractEngine backs the Engine interface with libtesseract via gosseract.
type tesseractEngine struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewTesseractEngine constructs the Tesseract-backed engine.
func NewTesseractEngine(languages ...string) Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &tesseractEngine{clientFactory: gosseract.NewClient, languages: languages}
}

func (e *tesseractEngine) AcceleratorName() (string, bool) {
	// libtesseract runs CPU-only.
	return "", false
}

type tesseractTokenizer struct {
	name string
}

func (t *tesseractTokenizer) Name() string { return t.name }

func (e *tesseractEngine) LoadTokenizer(ctx context.Context, modelName, cacheDir string) (Tokenizer, error) {
	// Verifies the native library is present and usable before the heavier
	// model construction starts.
	v := gosseract.Version()
	if v == "" {
		return nil, fmt.Errorf("tesseract library not available")
	}
	return &tesseractTokenizer{name: modelName + "@tesseract-" + v}, nil
}

func (e *tesseractEngine) LoadModel(ctx context.Context, modelName, cacheDir string, opts ModelOptions) (Model, error) {
	m := &tesseractModel{
		factory:   e.clientFactory,
		languages: append([]string(nil), e.languages...),
		optimized: opts.Optimized,
	}
	if opts.Optimized {
		// The optimized path pins the LSTM-only engine mode; older traineddata
		// without LSTM components rejects it at recognition time, so probe once
		// here and let the caller fall back to the default path.
		c := e.clientFactory()
		defer c.Close()
		if err := c.SetVariable(gosseract.SettableVariable("tessedit_ocr_engine_mode"), "1"); err != nil {
			return nil, fmt.Errorf("lstm engine mode unavailable: %w", err)
		}
	}
	return m, nil
}

type tesseractModel struct {
	factory   func() *gosseract.Client
	languages []string
	optimized bool
	eval      bool
}

func (m *tesseractModel) Eval() { m.eval = true }

func (m *tesseractModel) ToDevice(accelerated bool) error {
	if accelerated {
		return fmt.Errorf("tesseract runtime has no accelerator support")
	}
	return nil
}

func (m *tesseractModel) Infer(ctx context.Context, tok Tokenizer, req InferRequest, sink io.Writer) error {
	if tok == nil {
		return fmt.Errorf("tokenizer is not loaded")
	}
	c := m.factory()
	defer c.Close()
	if err := c.SetLanguage(m.languages...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImage(req.ImagePath); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	if req.BaseSize > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(req.BaseSize/4)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}

	fmt.Fprintf(sink, "image: %s\nprompt: %s\n", filepath.Base(req.ImagePath), strings.TrimSpace(req.Prompt))
	fmt.Fprintln(sink, Sentinel)
	fmt.Fprintf(sink, "BASE: %d  PATCHES: %d  crop_mode: %v\n", req.BaseSize, req.ImageSize, req.CropMode)
	fmt.Fprintln(sink, Sentinel)

	text, err := c.Text()
	if err != nil {
		return fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)
	// The token trace is streamed into the third diagnostic section as it is
	// produced; libtesseract only hands back the final text, so it is emitted
	// in one write.
	fmt.Fprintln(sink, text)
	fmt.Fprintln(sink, Sentinel)
	fmt.Fprintf(sink, "valid tokens: %d\n", utf8.RuneCountInString(text))

	if req.SaveResults {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return fmt.Errorf("output dir: %w", err)
		}
		name := "result.txt"
		if strings.Contains(req.Prompt, "markdown") {
			name = "result.mmd"
		}
		if err := os.WriteFile(filepath.Join(req.OutputDir, name), []byte(text), 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
