package model

import (
	"time"

	"github.com/google/uuid"
)

// TryoutStatus enumerates the template lifecycle. Only PUBLISHED tryouts are
// visible to users.
type TryoutStatus string

const (
	TryoutStatusDraft     TryoutStatus = "DRAFT"
	TryoutStatusPublished TryoutStatus = "PUBLISHED"
	TryoutStatusArchived  TryoutStatus = "ARCHIVED"
)

// QuestionOrder controls how a section's questions are presented.
type QuestionOrder string

const (
	QuestionOrderSequential QuestionOrder = "SEQUENTIAL"
	QuestionOrderRandom     QuestionOrder = "RANDOM"
)

// Tryout is a mock-exam template: an ordered list of timed sections.
type Tryout struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Category  string       `json:"category"`
	Status    TryoutStatus `json:"status"`
	IsPremium bool         `json:"is_premium"`
	StartsAt  *time.Time   `json:"starts_at,omitempty"`
	EndsAt    *time.Time   `json:"ends_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Sections  []Section    `json:"sections,omitempty"`
}

// AvailableAt reports whether the tryout is open for attempts at the given
// time: published and inside its optional publish window.
func (t *Tryout) AvailableAt(now time.Time) bool {
	if t.Status != TryoutStatusPublished {
		return false
	}
	if t.StartsAt != nil && now.Before(*t.StartsAt) {
		return false
	}
	if t.EndsAt != nil && now.After(*t.EndsAt) {
		return false
	}
	return true
}

// TotalDurationMinutes sums every section's duration.
func (t *Tryout) TotalDurationMinutes() int {
	total := 0
	for _, s := range t.Sections {
		total += s.DurationMinutes
	}
	return total
}

// Section is one timed subtest of a tryout. OrderNum defines the mandatory
// taking order.
type Section struct {
	ID              uuid.UUID     `json:"id"`
	TryoutID        uuid.UUID     `json:"tryout_id"`
	Name            string        `json:"name"`
	DurationMinutes int           `json:"duration_minutes"`
	QuestionOrder   QuestionOrder `json:"question_order"`
	OrderNum        int           `json:"order_num"`
}
