package embed

import "time"

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API base URL.
	Host string

	// Model is the preferred embedding model name.
	Model string

	// FallbackModels are tried when Model is not installed.
	FallbackModels []string

	// Dimensions forces the embedding width; 0 means auto-detect.
	Dimensions int

	// BatchSize is the texts-per-request batch size.
	BatchSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// SkipHealthCheck skips model discovery on construction (tests).
	SkipHealthCheck bool
}

// OllamaEmbedRequest is the /api/embed request body.
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// OllamaEmbedResponse is the /api/embed response body.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaModelInfo describes one installed model from /api/tags.
type OllamaModelInfo struct {
	Name string `json:"name"`
}

// OllamaModelListResponse is the /api/tags response body.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}
