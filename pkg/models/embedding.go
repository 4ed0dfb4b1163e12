package models

// Usage represents token usage from an embedding response.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingResult is the outcome of a single generation call. Exactly one
// of the success or failure halves is populated; callers branch on Success.
type EmbeddingResult struct {
	Success bool `json:"success"`

	// Success payload.
	Vector     []float64 `json:"vector,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	Model      string    `json:"model,omitempty"`
	Usage      Usage     `json:"usage,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	Cost       float64   `json:"cost,omitempty"`

	// Set when the input exceeded the advisory length threshold. The call
	// still proceeds; this is a signal for the caller's diagnostics.
	OverLength bool `json:"over_length,omitempty"`

	// Failure payload.
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	Text       string `json:"text,omitempty"`
	TextLength int    `json:"text_length,omitempty"`
}

// ValidationResult reports whether an embedding vector is usable.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Magnitude float64  `json:"magnitude"`
	Issues    []string `json:"issues,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
