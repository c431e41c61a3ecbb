package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"online-quiz/internal/assign"
	"online-quiz/internal/domain"
)

// CheckInput carries a batch of verdicts from one checker about one checkee.
type CheckInput struct {
	QuizID    string
	CheckerID string
	CheckeeID string
	Origin    string
	Verdicts  map[int]domain.Verdict
}

// RecordChecks stores verdicts. An empty verdict clears an earlier one.
// Non-host participants cannot check themselves; such calls are ignored.
// Verdicts equal to the current one are not written again. A finished checker
// grading someone else moves to checking.
func (s *QuizService) RecordChecks(ctx context.Context, in CheckInput) error {
	state, err := s.load(ctx, in.QuizID)
	if err != nil {
		return err
	}
	checker, ok := state.Participant(in.CheckerID)
	if !ok {
		return fmt.Errorf("checker %q: %w", in.CheckerID, domain.ErrUnknownParticipant)
	}
	checkee, ok := state.Participant(in.CheckeeID)
	if !ok {
		return fmt.Errorf("checkee %q: %w", in.CheckeeID, domain.ErrUnknownParticipant)
	}

	self := checker.ID == checkee.ID
	if self && !isHost(state, in.CheckerID, in.Origin) {
		return nil
	}

	questions := make([]int, 0, len(in.Verdicts))
	for q, v := range in.Verdicts {
		if q < 1 || q > state.QuestionCount {
			return fmt.Errorf("%w: question %d outside 1..%d", domain.ErrInvalidInput, q, state.QuestionCount)
		}
		if v != domain.VerdictNone && !v.Valid() {
			return fmt.Errorf("%w: verdict %q", domain.ErrInvalidInput, v)
		}
		questions = append(questions, q)
	}
	sort.Ints(questions)

	var events []domain.Event
	if !self && checker.Status == domain.StatusFinished {
		events = append(events, domain.StatusChanged{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: checker.ID, Status: domain.StatusChecking})
	}
	for _, q := range questions {
		v := in.Verdicts[q]
		current, ok := checkee.Checks[q]
		if (ok && current.Verdict == v) || (!ok && v == domain.VerdictNone) {
			continue
		}
		events = append(events, domain.CheckRecorded{QuizID: in.QuizID, CheckeeID: checkee.ID, CheckerID: checker.ID, Question: q, Verdict: v})
	}
	return s.appendAll(ctx, events...)
}

// OpenChecking assigns checkers among finished participants. Only the host
// may open checking; anyone else is silently ignored. Each call draws a new
// assignment; replay keeps the latest one per checker.
func (s *QuizService) OpenChecking(ctx context.Context, quizID, participantID, origin string) error {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return err
	}
	if !isHost(state, participantID, origin) {
		return nil
	}
	_, err, shared := s.assignments.Do(quizID, func() (any, error) {
		return s.assignCheckers(ctx, quizID)
	})
	if shared {
		s.logger.WithField("quiz_id", quizID).Debug("joined in-flight checker assignment")
	}
	return err
}

func (s *QuizService) assignCheckers(ctx context.Context, quizID string) ([]assign.Pair, error) {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	var finished []string
	for id, p := range state.Participants {
		if p.Status == domain.StatusFinished {
			finished = append(finished, id)
		}
	}
	if len(finished) < 2 {
		s.logger.WithFields(logrus.Fields{"quiz_id": quizID, "finished": len(finished)}).Info("too few finished participants to assign checkers")
		return nil, nil
	}

	s.rndMu.Lock()
	pairs := assign.Cycle(finished, s.rnd)
	s.rndMu.Unlock()

	events := make([]domain.Event, 0, len(pairs))
	for _, p := range pairs {
		events = append(events, domain.CheckerAssigned{QuizID: quizID, CheckerID: p.Checker, CheckeeID: p.Checkee})
	}
	if err := s.appendAll(ctx, events...); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"quiz_id": quizID, "pairs": len(pairs)}).Info("checkers assigned")
	return pairs, nil
}

// CheckeeOf returns whom the checker was most recently assigned to, or "".
func (s *QuizService) CheckeeOf(ctx context.Context, quizID, checkerID string) (string, error) {
	state, _, err := s.loadParticipant(ctx, quizID, checkerID)
	if err != nil {
		return "", err
	}
	return state.Checkees[checkerID], nil
}
