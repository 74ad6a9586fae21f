package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bimbelku/tryout-backend/internal/model"
)

func sectionsWithDurations(minutes ...int) []model.Section {
	sections := make([]model.Section, len(minutes))
	for i, m := range minutes {
		sections[i] = model.Section{
			ID:              uuid.New(),
			Name:            "S",
			DurationMinutes: m,
			OrderNum:        i + 1,
		}
	}
	return sections
}

func TestOverallDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sections := sectionsWithDurations(30, 25, 20)

	got := OverallDeadline(start, sections)
	want := start.Add(75 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("OverallDeadline = %v, want %v", got, want)
	}
}

func TestSectionDeadlineCascade(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sections := sectionsWithDurations(30, 25, 20)
	overall := OverallDeadline(start, sections)

	d0 := SectionDeadline(start, sections[0].DurationMinutes, overall)
	if want := start.Add(30 * time.Minute); !d0.Equal(want) {
		t.Errorf("first section deadline = %v, want %v", d0, want)
	}

	// Second section anchors on the first deadline, regardless of when the
	// user actually pressed start.
	d1 := SectionDeadline(d0, sections[1].DurationMinutes, overall)
	if want := start.Add(55 * time.Minute); !d1.Equal(want) {
		t.Errorf("second section deadline = %v, want %v", d1, want)
	}

	d2 := SectionDeadline(d1, sections[2].DurationMinutes, overall)
	if !d2.Equal(overall) {
		t.Errorf("last section deadline = %v, want overall %v", d2, overall)
	}
}

func TestSectionDeadlineClampedToOverall(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	overall := start.Add(40 * time.Minute)

	// Anchor near the end: the proposed deadline would exceed the overall.
	anchor := start.Add(35 * time.Minute)
	got := SectionDeadline(anchor, 30, overall)
	if !got.Equal(overall) {
		t.Errorf("clamped deadline = %v, want %v", got, overall)
	}
}

func TestSectionDeadlineInsideOverall(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	overall := start.Add(2 * time.Hour)

	got := SectionDeadline(start, 45, overall)
	if want := start.Add(45 * time.Minute); !got.Equal(want) {
		t.Errorf("deadline = %v, want %v", got, want)
	}
}
