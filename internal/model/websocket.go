package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is pushed when a job changes status or advances a stage
type WSStatusMessage struct {
	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"current_step,omitempty"`
}

// WSCompleteMessage is pushed when a job reaches completed
type WSCompleteMessage struct {
	Type    string     `json:"type"`
	EventID string     `json:"event_id"`
	Result  *JobResult `json:"result"`
}

// WSErrorMessage is pushed when a job reaches failed
type WSErrorMessage struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Error   string `json:"error"`
}
