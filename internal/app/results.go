package app

import (
	"context"

	"online-quiz/internal/domain"
	"online-quiz/internal/ranking"
	"online-quiz/internal/report"
)

// Results is the replayed quiz with participants in rank order.
type Results struct {
	Quiz      domain.QuizState
	Standings []ranking.Standing
}

func (s *QuizService) Results(ctx context.Context, quizID string) (Results, error) {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return Results{}, err
	}
	return Results{Quiz: state, Standings: ranking.Rank(state.Participants)}, nil
}

// Answers returns the participant's answers for every question, "" where none was given.
func (s *QuizService) Answers(ctx context.Context, quizID, participantID string) (map[int]string, error) {
	state, p, err := s.loadParticipant(ctx, quizID, participantID)
	if err != nil {
		return nil, err
	}
	answers := make(map[int]string, state.QuestionCount)
	for q := 1; q <= state.QuestionCount; q++ {
		answers[q] = p.Answers[q]
	}
	return answers, nil
}

// CheckSheet is what a checker sees for one checkee.
type CheckSheet struct {
	CheckeeID   string
	CheckeeName string
	Answers     map[int]string
	Verdicts    map[int]domain.Verdict
	Tallies     map[int]ranking.Tally
}

func (s *QuizService) CheckSheet(ctx context.Context, quizID, checkeeID string) (CheckSheet, error) {
	state, p, err := s.loadParticipant(ctx, quizID, checkeeID)
	if err != nil {
		return CheckSheet{}, err
	}
	sheet := CheckSheet{
		CheckeeID:   p.ID,
		CheckeeName: p.Name,
		Answers:     make(map[int]string, state.QuestionCount),
		Verdicts:    make(map[int]domain.Verdict, len(p.Checks)),
		Tallies:     ranking.Tallies(state.Participants, state.QuestionCount),
	}
	for q := 1; q <= state.QuestionCount; q++ {
		sheet.Answers[q] = p.Answers[q]
	}
	for q, c := range p.Checks {
		sheet.Verdicts[q] = c.Verdict
	}
	return sheet, nil
}

// Status returns the participant's status label, with elapsed time once finished.
func (s *QuizService) Status(ctx context.Context, quizID, participantID string) (string, error) {
	_, p, err := s.loadParticipant(ctx, quizID, participantID)
	if err != nil {
		return "", err
	}
	return p.StatusLabel(), nil
}

func (s *QuizService) IsAnsweringOpen(ctx context.Context, quizID string) (bool, error) {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return false, err
	}
	return state.AnsweringOpen, nil
}

// ReportText renders one participant's result sheet and a download file name.
func (s *QuizService) ReportText(ctx context.Context, quizID, participantID string) (string, string, error) {
	res, err := s.Results(ctx, quizID)
	if err != nil {
		return "", "", err
	}
	return report.Text(res.Quiz, res.Standings, participantID)
}

// ReportCSV renders the verdict matrix of all participants.
func (s *QuizService) ReportCSV(ctx context.Context, quizID string) (string, string, error) {
	res, err := s.Results(ctx, quizID)
	if err != nil {
		return "", "", err
	}
	return report.CSV(res.Quiz, res.Standings)
}
