package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt (and section attempt) states.
// ONGOING → FINISHED is the only transition; FINISHED is terminal.
type AttemptStatus string

const (
	AttemptStatusOngoing  AttemptStatus = "ONGOING"
	AttemptStatusFinished AttemptStatus = "FINISHED"
)

// Attempt is a user's single run through a tryout. At most one non-revoked
// attempt exists per (user, tryout).
type Attempt struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	TryoutID    uuid.UUID     `json:"tryout_id"`
	StartedAt   time.Time     `json:"started_at"`
	Deadline    time.Time     `json:"deadline"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Status      AttemptStatus `json:"status"`
	Score       *int          `json:"score,omitempty"`
	IsRevoked   bool          `json:"is_revoked"`
}

// Expired reports whether the overall deadline has passed.
func (a *Attempt) Expired(now time.Time) bool {
	return now.After(a.Deadline)
}

// SectionAttempt is a user's run through one section of an attempt.
// Created lazily: the row for section N+1 only exists once section N is
// finished (or, for the first section, once the attempt starts).
type SectionAttempt struct {
	ID          uuid.UUID     `json:"id"`
	AttemptID   uuid.UUID     `json:"attempt_id"`
	SectionID   uuid.UUID     `json:"section_id"`
	StartedAt   time.Time     `json:"started_at"`
	Deadline    time.Time     `json:"deadline"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Status      AttemptStatus `json:"status"`
	Score       *int          `json:"score,omitempty"`
}

// Expired reports whether the section deadline has passed.
func (sa *SectionAttempt) Expired(now time.Time) bool {
	return now.After(sa.Deadline)
}
