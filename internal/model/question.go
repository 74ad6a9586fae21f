package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType distinguishes single-answer choice questions from free-text ones.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Question is a question-bank entry as linked into a section. Content and
// Discussion are opaque structured documents — the engine stores and serves
// them, it never interprets them.
type Question struct {
	ID           uuid.UUID       `json:"id"`
	QuestionType QuestionType    `json:"question_type"`
	Content      json.RawMessage `json:"content"`
	Discussion   json.RawMessage `json:"discussion,omitempty"`
	// EssayAnswer holds the stored correct answer for ESSAY questions.
	EssayAnswer *string  `json:"essay_answer,omitempty"`
	OrderNum    int      `json:"order_num"`
	Choices     []Choice `json:"choices,omitempty"`
}

// Choice is a selectable option of a MULTIPLE_CHOICE question.
type Choice struct {
	ID         uuid.UUID       `json:"id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Content    json.RawMessage `json:"content"`
	IsCorrect  bool            `json:"is_correct"`
}

// ChoiceForUser is a choice stripped of correctness, safe to send while the
// section is still being worked on.
type ChoiceForUser struct {
	ID      uuid.UUID       `json:"id"`
	Content json.RawMessage `json:"content"`
}

// QuestionForUser is a question stripped of correct-answer data.
type QuestionForUser struct {
	ID           uuid.UUID       `json:"id"`
	QuestionType QuestionType    `json:"question_type"`
	Content      json.RawMessage `json:"content"`
	OrderNum     int             `json:"order_num"`
	Choices      []ChoiceForUser `json:"choices"`
}

// ForUser strips correctness and discussion from a question.
func (q *Question) ForUser() QuestionForUser {
	choices := make([]ChoiceForUser, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, ChoiceForUser{ID: c.ID, Content: c.Content})
	}
	return QuestionForUser{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		Content:      q.Content,
		OrderNum:     q.OrderNum,
		Choices:      choices,
	}
}
