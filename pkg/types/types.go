package types

// Status is the lifecycle state reported by the progress store.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusProcessing Status = "processing"
	StatusLoaded     Status = "loaded"
	StatusError      Status = "error"
)

// ProgressSnapshot is a consistent copy of the shared progress state.
// Returned by GET /progress; all fields come from a single update.
type ProgressSnapshot struct {
	// Lifecycle state.
	// example: loading
	Status Status `json:"status" example:"loading"`
	// Current stage label (init, tokenizer, model, gpu, ocr, complete, failed).
	// example: model
	Stage string `json:"stage" example:"model"`
	// Human-readable detail.
	// example: Downloading model files... (412.3 MB downloaded)
	Message string `json:"message" example:"Downloading model files..."`
	// Percent complete for the current load cycle, 0-100.
	// example: 45
	ProgressPercent int `json:"progress_percent" example:"45"`
	// Characters recovered from the token-generation trace during the
	// current inference call; 0 outside an inference call.
	// example: 1287
	CharsGenerated int `json:"chars_generated" example:"1287"`
	// Raw text of the current token-generation segment (may be empty).
	RawTokenStream string `json:"raw_token_stream"`
	// Unix seconds of the last update.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Always "ok" when the server is up.
	// example: ok
	Status string `json:"status" example:"ok"`
	// True once a model handle is set.
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// True when an accelerator was detected.
	// example: false
	GPUAvailable bool `json:"gpu_available" example:"false"`
}

// LoadModelResponse is returned by POST /load_model.
type LoadModelResponse struct {
	// example: success
	Status string `json:"status" example:"success"`
	// example: Model loaded successfully
	Message string `json:"message" example:"Model loaded successfully"`
}

// OCRRequest carries the parameters of one OCR call from the HTTP layer to
// the manager. ImagePath points at the temporary upload on disk.
type OCRRequest struct {
	ImagePath  string
	PromptType PromptType
	BaseSize   int
	ImageSize  int
	CropMode   bool
}

// OCRResponse is returned by POST /ocr.
type OCRResponse struct {
	// example: success
	Status string `json:"status" example:"success"`
	// Contents of the result file written by the model.
	Result string `json:"result"`
	// Relative name of the annotated image under /outputs, or null.
	// example: result_with_boxes.jpg
	BoxesImagePath *string `json:"boxes_image_path"`
	// Prompt type the request was processed with.
	// example: document
	PromptType string `json:"prompt_type" example:"document"`
	// Raw token-generation trace recovered from the diagnostic stream, or null.
	RawTokens *string `json:"raw_tokens"`
}

// ModelInfoResponse is returned by GET /model_info.
type ModelInfoResponse struct {
	// example: deepseek-ai/DeepSeek-OCR
	ModelName string `json:"model_name" example:"deepseek-ai/DeepSeek-OCR"`
	// example: /var/lib/ocrd/cache/models
	CacheDir     string `json:"cache_dir" example:"/var/lib/ocrd/cache/models"`
	ModelLoaded  bool   `json:"model_loaded" example:"true"`
	GPUAvailable bool   `json:"gpu_available" example:"false"`
	// Accelerator device name, or null when none is available.
	GPUName *string `json:"gpu_name"`
}

// ErrorResponse is the error payload shape shared by all endpoints.
type ErrorResponse struct {
	// example: error
	Status string `json:"status" example:"error"`
	// example: No image provided
	Message string `json:"message" example:"No image provided"`
}
