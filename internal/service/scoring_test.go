package service

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/bimbelku/tryout-backend/internal/model"
)

func mcQuestion(correctIdx int, numChoices int) model.Question {
	q := model.Question{
		ID:           uuid.New(),
		QuestionType: model.QuestionTypeMultipleChoice,
		Content:      json.RawMessage(`{}`),
	}
	for i := 0; i < numChoices; i++ {
		q.Choices = append(q.Choices, model.Choice{
			ID:         uuid.New(),
			QuestionID: q.ID,
			Content:    json.RawMessage(`{}`),
			IsCorrect:  i == correctIdx,
		})
	}
	return q
}

func essayQuestion(answer string) model.Question {
	return model.Question{
		ID:           uuid.New(),
		QuestionType: model.QuestionTypeEssay,
		Content:      json.RawMessage(`{}`),
		EssayAnswer:  &answer,
	}
}

func choiceAnswer(attemptID uuid.UUID, q model.Question, choiceIdx int) model.UserAnswer {
	return model.UserAnswer{
		ID:               uuid.New(),
		AttemptID:        attemptID,
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[choiceIdx].ID,
	}
}

func essayUserAnswer(attemptID uuid.UUID, q model.Question, text string) model.UserAnswer {
	return model.UserAnswer{
		ID:          uuid.New(),
		AttemptID:   attemptID,
		QuestionID:  q.ID,
		EssayAnswer: &text,
	}
}

func TestComputeScoresTwoSections(t *testing.T) {
	attemptID := uuid.New()
	sectionA := uuid.New()
	sectionB := uuid.New()

	// Section A: 4 questions, 3 answered correctly -> round(3/4*1000) = 750.
	qa := []model.Question{mcQuestion(0, 4), mcQuestion(1, 4), mcQuestion(2, 4), mcQuestion(0, 4)}
	// Section B: 8 questions, 5 correct -> round(5/8*1000) = 625.
	qb := make([]model.Question, 8)
	for i := range qb {
		qb[i] = mcQuestion(0, 4)
	}

	answers := []model.UserAnswer{
		choiceAnswer(attemptID, qa[0], 0), // correct
		choiceAnswer(attemptID, qa[1], 1), // correct
		choiceAnswer(attemptID, qa[2], 2), // correct
		choiceAnswer(attemptID, qa[3], 3), // wrong
	}
	for i := 0; i < 5; i++ {
		answers = append(answers, choiceAnswer(attemptID, qb[i], 0)) // correct
	}
	for i := 5; i < 8; i++ {
		answers = append(answers, choiceAnswer(attemptID, qb[i], 1)) // wrong
	}

	sas := []model.SectionAttempt{
		{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionA},
		{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionB},
	}

	sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{
		sectionA: qa,
		sectionB: qb,
	}, answers)

	if len(sheet.Sections) != 2 {
		t.Fatalf("got %d section results, want 2", len(sheet.Sections))
	}
	if sheet.Sections[0].Score != 750 {
		t.Errorf("section A score = %d, want 750", sheet.Sections[0].Score)
	}
	if sheet.Sections[1].Score != 625 {
		t.Errorf("section B score = %d, want 625", sheet.Sections[1].Score)
	}
	// round((750+625)/2) = round(687.5) = 688.
	if sheet.TotalScore != 688 {
		t.Errorf("total score = %d, want 688", sheet.TotalScore)
	}
}

func TestComputeScoresUnansweredIsIncorrect(t *testing.T) {
	attemptID := uuid.New()
	sectionID := uuid.New()
	questions := []model.Question{mcQuestion(0, 4), mcQuestion(0, 4)}

	sas := []model.SectionAttempt{{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionID}}
	sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{sectionID: questions}, nil)

	if sheet.Sections[0].Correct != 0 {
		t.Errorf("correct = %d, want 0", sheet.Sections[0].Correct)
	}
	if sheet.Sections[0].Score != 0 {
		t.Errorf("score = %d, want 0", sheet.Sections[0].Score)
	}
}

func TestComputeScoresSkipsEmptySections(t *testing.T) {
	attemptID := uuid.New()
	filled := uuid.New()
	empty := uuid.New()

	questions := []model.Question{mcQuestion(0, 2)}
	answers := []model.UserAnswer{choiceAnswer(attemptID, questions[0], 0)}

	sas := []model.SectionAttempt{
		{ID: uuid.New(), AttemptID: attemptID, SectionID: filled},
		{ID: uuid.New(), AttemptID: attemptID, SectionID: empty},
	}
	sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{
		filled: questions,
		empty:  nil,
	}, answers)

	if len(sheet.Sections) != 1 {
		t.Fatalf("got %d section results, want 1 (empty section skipped)", len(sheet.Sections))
	}
	// The empty section must not drag the average down.
	if sheet.TotalScore != 1000 {
		t.Errorf("total score = %d, want 1000", sheet.TotalScore)
	}
}

func TestEssayGrading(t *testing.T) {
	attemptID := uuid.New()
	sectionID := uuid.New()
	q := essayQuestion("Jakarta")

	cases := []struct {
		name  string
		given string
		want  int
	}{
		{"exact", "Jakarta", 1},
		{"case insensitive", "jakarta", 1},
		{"surrounding whitespace", "  Jakarta  ", 1},
		{"trailing punctuation differs", "Jakarta,", 0},
		{"empty", "", 0},
		{"whitespace only", "   ", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answers := []model.UserAnswer{essayUserAnswer(attemptID, q, tc.given)}
			sas := []model.SectionAttempt{{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionID}}
			sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{sectionID: {q}}, answers)
			if sheet.Sections[0].Correct != tc.want {
				t.Errorf("correct = %d, want %d", sheet.Sections[0].Correct, tc.want)
			}
		})
	}
}

func TestEssayGradingEmptyStoredAnswerNeverMatches(t *testing.T) {
	attemptID := uuid.New()
	sectionID := uuid.New()
	q := essayQuestion("   ")

	answers := []model.UserAnswer{essayUserAnswer(attemptID, q, "   ")}
	sas := []model.SectionAttempt{{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionID}}
	sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{sectionID: {q}}, answers)
	if sheet.Sections[0].Correct != 0 {
		t.Errorf("blank stored answer matched blank input, want incorrect")
	}
}

func TestMultipleChoiceUnknownChoiceIsIncorrect(t *testing.T) {
	attemptID := uuid.New()
	sectionID := uuid.New()
	q := mcQuestion(0, 4)

	// Selected choice id not among the question's choices (stale client data).
	stray := uuid.New()
	answers := []model.UserAnswer{{
		ID:               uuid.New(),
		AttemptID:        attemptID,
		QuestionID:       q.ID,
		SelectedChoiceID: &stray,
	}}
	sas := []model.SectionAttempt{{ID: uuid.New(), AttemptID: attemptID, SectionID: sectionID}}
	sheet := ComputeScores(sas, map[uuid.UUID][]model.Question{sectionID: {q}}, answers)
	if sheet.Sections[0].Correct != 0 {
		t.Errorf("stray choice counted as correct")
	}
}
