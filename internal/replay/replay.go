// Package replay folds a quiz's ordered log into its current state. The fold
// is a pure function of the records: there is no other source of truth, and
// every read recomputes it. Later records win over earlier ones.
package replay

import (
	"strings"
	"time"

	"online-quiz/internal/domain"
)

// Fold applies records in order and returns the state of quizID. The boolean
// is false when no START_QUIZ record for the quiz was seen. Records for other
// quizzes, and records naming participants that never joined, are ignored.
func Fold(quizID string, records []domain.Record) (domain.QuizState, bool) {
	state := domain.QuizState{
		ID:           quizID,
		Participants: make(map[string]*domain.ParticipantState),
		Checkees:     make(map[string]string),
	}
	found := false

	for _, rec := range records {
		if rec.Event == nil || rec.Event.Quiz() != quizID {
			continue
		}
		switch ev := rec.Event.(type) {
		case domain.QuizStarted:
			found = true
			state.Name = ev.Name
			state.Date = rec.Time.Format("20060102")
			state.QuestionCount = ev.QuestionCount
			state.HostID = ev.HostID
			state.HostOrigin = ev.HostOrigin

		case domain.ParticipantJoined:
			if p, ok := state.Participants[ev.ParticipantID]; ok {
				p.Name = ev.Name
				continue
			}
			state.Participants[ev.ParticipantID] = domain.NewParticipantState(ev.ParticipantID, ev.Name, ev.Origin)

		case domain.AnswerSubmitted:
			p, ok := state.Participants[ev.ParticipantID]
			if !ok || !inRange(state, ev.Question) {
				continue
			}
			p.Answers[ev.Question] = strings.TrimSpace(ev.Text)
			state.AnsweringOpen = true

		case domain.StatusChanged:
			p, ok := state.Participants[ev.ParticipantID]
			if !ok {
				continue
			}
			p.Status = ev.Status
			switch ev.Status {
			case domain.StatusStarted:
				p.StartedAt = rec.Time
				p.FinishedAt = time.Time{}
				state.AnsweringOpen = true
			case domain.StatusFinished:
				if !p.StartedAt.IsZero() {
					p.FinishedAt = rec.Time
				}
			}

		case domain.CheckRecorded:
			p, ok := state.Participants[ev.CheckeeID]
			if !ok || !inRange(state, ev.Question) {
				continue
			}
			if ev.Verdict == domain.VerdictNone {
				delete(p.Checks, ev.Question)
				continue
			}
			p.Checks[ev.Question] = domain.Check{Verdict: ev.Verdict, CheckerID: ev.CheckerID}

		case domain.CheckerAssigned:
			checkee, ok := state.Participants[ev.CheckeeID]
			if !ok {
				continue
			}
			if _, ok := state.Participants[ev.CheckerID]; !ok {
				continue
			}
			state.Checkees[ev.CheckerID] = ev.CheckeeID
			checkee.CheckerID = ev.CheckerID
		}
	}

	// Checker names follow renames made after the assignment.
	for _, p := range state.Participants {
		if checker, ok := state.Participants[p.CheckerID]; ok {
			p.CheckerName = checker.Name
		}
	}
	return state, found
}

func inRange(state domain.QuizState, question int) bool {
	return question >= 1 && (state.QuestionCount == 0 || question <= state.QuestionCount)
}
