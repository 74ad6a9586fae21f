package service

import (
	"time"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// Deadline cascade. The rule appears in three call sites (first section at
// StartAttempt, next section at SubmitSection, non-first section at
// StartSection), so it lives here once:
//
//	overall     = startedAt + Σ(duration of every section)
//	deadline[0] = min(startedAt + section[0].duration, overall)
//	deadline[i] = min(deadline[i-1] + section[i].duration, overall)
//
// Deadlines chain off the previous section's deadline, never off wall-clock
// "now", so starting a section late buys no extra time. The clamp to the
// overall deadline is the load-bearing invariant: no section may outlive
// the exam.

// OverallDeadline computes the exam-wide deadline for an attempt started at
// startedAt.
func OverallDeadline(startedAt time.Time, sections []model.Section) time.Time {
	total := 0
	for _, s := range sections {
		total += s.DurationMinutes
	}
	return startedAt.Add(time.Duration(total) * time.Minute)
}

// SectionDeadline computes one section's deadline from its anchor — the
// attempt start for the first section, the previous section's deadline for
// every later one — clamped to the overall deadline.
func SectionDeadline(anchor time.Time, durationMinutes int, overall time.Time) time.Time {
	proposed := anchor.Add(time.Duration(durationMinutes) * time.Minute)
	if proposed.After(overall) {
		return overall
	}
	return proposed
}
