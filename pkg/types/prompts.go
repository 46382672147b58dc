package types

// PromptType selects the prompt template an OCR request runs with.
type PromptType string

const (
	PromptDocument PromptType = "document"
	PromptOCR      PromptType = "ocr"
	PromptFree     PromptType = "free"
	PromptFigure   PromptType = "figure"
	PromptDescribe PromptType = "describe"
)

// PromptConfig pairs a prompt template with the result file the model is
// expected to write for it. Callers rely on this mapping; do not change the
// templates or filenames without versioning the API.
type PromptConfig struct {
	Prompt     string
	OutputFile string
}

var promptConfigs = map[PromptType]PromptConfig{
	PromptDocument: {
		Prompt:     "<image>\n<|grounding|>Convert the document to markdown. ",
		OutputFile: "result.mmd",
	},
	PromptOCR: {
		Prompt:     "<image>\n<|grounding|>OCR this image. ",
		OutputFile: "result.txt",
	},
	PromptFree: {
		Prompt:     "<image>\nFree OCR. ",
		OutputFile: "result.txt",
	},
	PromptFigure: {
		Prompt:     "<image>\nParse the figure. ",
		OutputFile: "result.txt",
	},
	PromptDescribe: {
		Prompt:     "<image>\nDescribe this image in detail. ",
		OutputFile: "result.txt",
	},
}

// PromptConfigFor returns the configuration for t, falling back to the
// document prompt for unknown values.
func PromptConfigFor(t PromptType) PromptConfig {
	if cfg, ok := promptConfigs[t]; ok {
		return cfg
	}
	return promptConfigs[PromptDocument]
}
