package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSave     Action = "save"
	ActionDoubtful Action = "doubtful"
	ActionClock    Action = "clock"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape; unused fields stay
// empty depending on the action.
type RequestPayload struct {
	Action           Action     `json:"action"`
	QuestionID       string     `json:"question_id,omitempty"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id,omitempty"`
	EssayAnswer      *string    `json:"essay_answer,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventSaved Event = "saved"
	EventClock Event = "clock"
	EventPong  Event = "pong"
)

type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	IsDoubtful bool   `json:"is_doubtful"`
}

type ClockResponse struct {
	Event Event       `json:"event"`
	Clock interface{} `json:"clock"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
