package models

// These structs define the JSON payloads for HTTP requests and responses
// served by the document API, and the argument handed to the workflow.

// HealthResponse reports which collaborators are configured.
type HealthResponse struct {
	Status                string `json:"status"`
	GeminiAvailable       bool   `json:"gemini_available"`
	VisionAPIAvailable    bool   `json:"vision_api_available"`
	TranslateAPIAvailable bool   `json:"translate_api_available"`
}

// TranslationHealthResponse is the output of the translation health check.
type TranslationHealthResponse struct {
	Status                string `json:"status"`
	TranslateAPIAvailable bool   `json:"translate_api_available"`
	SupportedLanguages    int    `json:"supported_languages"`
	TestTranslation       string `json:"test_translation"`
}

// ListResultsResponse lists the keys available for download.
type ListResultsResponse struct {
	AvailableResults []string `json:"available_results"`
	Count            int      `json:"count"`
}

// ChatRequest is the input for the scheme assistant.
type ChatRequest struct {
	UserInput  string `json:"user_input" binding:"required"`
	OCRContext string `json:"ocr_context"`
}

// ChatResponse is the output of the scheme assistant.
type ChatResponse struct {
	BotReply string `json:"bot_reply"`
}

// IngestWorkflowArgs is the argument of the workflow started after a
// GCS-triggered ingestion.
type IngestWorkflowArgs struct {
	RecordKey   string `json:"recordKey"`
	BatchKey    string `json:"batchKey"`
	ExecutionID string `json:"executionId"`
}
