package model

import (
	"time"

	"github.com/google/uuid"
)

// UserAnswer is the recorded answer for one question of an attempt.
// Exactly one row exists per (attempt, question); saves are upserts with
// last-write-wins semantics.
type UserAnswer struct {
	ID               uuid.UUID  `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id,omitempty"`
	EssayAnswer      *string    `json:"essay_answer,omitempty"`
	IsDoubtful       bool       `json:"is_doubtful"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SaveAnswerRequest is the payload for saving a single answer. The client
// sends the full desired state; whichever field matches the question type
// is recorded, the other stays null.
type SaveAnswerRequest struct {
	QuestionID       uuid.UUID  `json:"question_id" binding:"required"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id" binding:"omitempty"`
	EssayAnswer      *string    `json:"essay_answer" binding:"omitempty,max=10000"`
}

// ToggleDoubtfulRequest marks or unmarks a question for review.
type ToggleDoubtfulRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}
