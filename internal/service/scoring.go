package service

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// SectionResult is the scored outcome of one section attempt.
type SectionResult struct {
	SectionAttemptID uuid.UUID `json:"section_attempt_id"`
	SectionID        uuid.UUID `json:"section_id"`
	Score            int       `json:"score"`
	Correct          int       `json:"correct"`
	Total            int       `json:"total"`
}

// ScoreSheet is the full scored outcome of an attempt. Computation is pure;
// persistence happens separately inside the finalization transaction.
type ScoreSheet struct {
	Sections   []SectionResult `json:"sections"`
	TotalScore int             `json:"total_score"`
}

// SectionScores maps section-attempt ids to their scores, the shape the
// finalization write expects.
func (s ScoreSheet) SectionScores() map[uuid.UUID]int {
	scores := make(map[uuid.UUID]int, len(s.Sections))
	for _, sec := range s.Sections {
		scores[sec.SectionAttemptID] = sec.Score
	}
	return scores
}

// ComputeScores grades every section attempt of an attempt against the
// question bank. Section score = round(correct/total*1000); the overall
// score is the rounded mean of section scores. Sections with zero linked
// questions are skipped entirely — a guard against misconfigured content,
// they contribute to neither count nor average.
func ComputeScores(sectionAttempts []model.SectionAttempt, questionsBySection map[uuid.UUID][]model.Question, answers []model.UserAnswer) ScoreSheet {
	answerByQuestion := make(map[uuid.UUID]*model.UserAnswer, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}

	sheet := ScoreSheet{}
	sum := 0
	for _, sa := range sectionAttempts {
		questions := questionsBySection[sa.SectionID]
		if len(questions) == 0 {
			continue
		}

		correct := 0
		for i := range questions {
			if isCorrect(&questions[i], answerByQuestion[questions[i].ID]) {
				correct++
			}
		}

		score := int(math.Round(float64(correct) / float64(len(questions)) * 1000))
		sheet.Sections = append(sheet.Sections, SectionResult{
			SectionAttemptID: sa.ID,
			SectionID:        sa.SectionID,
			Score:            score,
			Correct:          correct,
			Total:            len(questions),
		})
		sum += score
	}

	if len(sheet.Sections) > 0 {
		sheet.TotalScore = int(math.Round(float64(sum) / float64(len(sheet.Sections))))
	}
	return sheet
}

// isCorrect grades a single question. No recorded answer is simply
// incorrect, never an error.
func isCorrect(q *model.Question, ans *model.UserAnswer) bool {
	if ans == nil {
		return false
	}

	switch q.QuestionType {
	case model.QuestionTypeMultipleChoice:
		if ans.SelectedChoiceID == nil {
			return false
		}
		for _, c := range q.Choices {
			if c.ID == *ans.SelectedChoiceID {
				return c.IsCorrect
			}
		}
		return false

	case model.QuestionTypeEssay:
		if q.EssayAnswer == nil || ans.EssayAnswer == nil {
			return false
		}
		return essayMatch(*q.EssayAnswer, *ans.EssayAnswer)

	default:
		return false
	}
}

// essayMatch compares essay answers trimmed and case-insensitively.
// Empty values never match.
func essayMatch(stored, given string) bool {
	stored = strings.TrimSpace(stored)
	given = strings.TrimSpace(given)
	if stored == "" || given == "" {
		return false
	}
	return strings.EqualFold(stored, given)
}
