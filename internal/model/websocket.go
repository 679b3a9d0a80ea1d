package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeProgress = "progress"
	WSMessageTypeResult   = "result"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage announces a job status change (queued, canceled, ...).
type WSStatusMessage struct {
	Type   string    `json:"type"`
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// WSProgressMessage carries a processing progress update (0-100).
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
}

// WSResultMessage carries the resolved output URL of a finished job.
type WSResultMessage struct {
	Type      string `json:"type"`
	JobID     string `json:"jobId"`
	ResultURL string `json:"resultUrl"`
}

// WSErrorMessage carries a terminal failure or timeout.
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
