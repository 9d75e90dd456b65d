package domain

// Phase identifies the coarse stage a progress event belongs to.
type Phase string

const (
	PhaseDownload   Phase = "download"
	PhaseTranscribe Phase = "transcribe"
)

// Channel event names exchanged with the browser.
const (
	EventStartExtraction       = "start_extraction"
	EventProgress              = "progress"
	EventTranscriptionComplete = "transcription_complete"
	EventTranscriptionError    = "transcription_error"
)

// ProgressEvent is one normalized progress update pushed to the client.
type ProgressEvent struct {
	Message    string  `json:"message"`
	Detail     string  `json:"detail"`
	Percentage float64 `json:"percentage"`
	Phase      Phase   `json:"phase"`
}

// ExtractionRequest carries the payload of a start_extraction message.
type ExtractionRequest struct {
	URL string `json:"url"`
}

// CompletePayload is the terminal event body for a successful extraction.
type CompletePayload struct {
	Transcript string `json:"transcript"`
}

// ErrorPayload is the terminal event body for a failed extraction.
type ErrorPayload struct {
	Error string `json:"error"`
}
