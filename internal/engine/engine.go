// Package engine defines the boundary to the OCR model runtime. The server
// core treats the runtime as opaque: it loads a tokenizer and a model, then
// runs synchronous inference that writes result files and free-form
// diagnostic text to a caller-supplied sink. The concrete Tesseract binding
// compiles only with the 'tesseract' build tag; default builds get a stub.
package engine

import (
	"context"
	"io"
)

// Sentinel is the delimiter line the runtime emits between diagnostic
// sections. The output of one inference call is known to contain four
// sections in fixed order: preamble, size/shape metadata, token-generation
// trace, compression statistics.
const Sentinel = "===================="

// Tokenizer prepares prompts for a loaded model. Opaque to the core.
type Tokenizer interface {
	Name() string
}

// Model is a loaded OCR model.
type Model interface {
	// Eval switches the model into evaluation mode.
	Eval()
	// ToDevice finalizes placement: accelerator memory and reduced precision
	// when accelerated is true, full precision on the CPU otherwise.
	ToDevice(accelerated bool) error
	// Infer runs one synchronous OCR call. Result files are written under
	// req.OutputDir; diagnostic text is written to sink as a side effect.
	Infer(ctx context.Context, tok Tokenizer, req InferRequest, sink io.Writer) error
}

// ModelOptions selects the construction path for LoadModel.
type ModelOptions struct {
	// Optimized requests the faster construction path. Loaders fall back to
	// the default path when this one fails.
	Optimized bool
}

// InferRequest carries the parameters of one inference call.
type InferRequest struct {
	Prompt       string
	ImagePath    string
	OutputDir    string
	BaseSize     int
	ImageSize    int
	CropMode     bool
	SaveResults  bool
	TestCompress bool
}

// Engine produces tokenizer and model handles for a named model.
type Engine interface {
	// AcceleratorName reports the detected accelerator device, if any.
	// Best-effort capability probe; absence is not an error.
	AcceleratorName() (string, bool)
	// LoadTokenizer loads the tokenizer, caching under cacheDir.
	LoadTokenizer(ctx context.Context, modelName, cacheDir string) (Tokenizer, error)
	// LoadModel constructs the model, caching under cacheDir. Downloads may
	// grow cacheDir as a side effect; no byte-level progress is reported.
	LoadModel(ctx context.Context, modelName, cacheDir string, opts ModelOptions) (Model, error)
}

// Built reports whether the real OCR runtime is compiled into this binary.
func Built() bool { return tesseractBuilt }

// unavailableError signals that the runtime is not compiled into this binary.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing engine build.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
