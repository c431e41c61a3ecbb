package domain

import (
	"fmt"
	"time"
)

// Check is one recorded verdict together with the participant who gave it.
type Check struct {
	Verdict   Verdict `json:"verdict"`
	CheckerID string  `json:"checkerId"`
}

// ParticipantState is everything replay derives for one participant.
type ParticipantState struct {
	ID     string `json:"participantId"`
	Name   string `json:"name"`
	Origin string `json:"-"`
	// Answers holds the latest text per question number; a missing key means no
	// ANSWER event was seen, "" means the answer was cleared.
	Answers     map[int]string `json:"answers"`
	Checks      map[int]Check  `json:"checks"`
	Status      Status         `json:"status"`
	StartedAt   time.Time      `json:"-"`
	FinishedAt  time.Time      `json:"-"`
	CheckerID   string         `json:"checkerId,omitempty"`
	CheckerName string         `json:"checkerName,omitempty"`
}

// NewParticipantState returns an empty state for a freshly joined participant.
func NewParticipantState(id, name, origin string) *ParticipantState {
	return &ParticipantState{
		ID:      id,
		Name:    name,
		Origin:  origin,
		Answers: make(map[int]string),
		Checks:  make(map[int]Check),
	}
}

// Elapsed returns the time between the started and finished status changes,
// if both were observed.
func (p *ParticipantState) Elapsed() (time.Duration, bool) {
	if p.StartedAt.IsZero() || p.FinishedAt.IsZero() {
		return 0, false
	}
	return p.FinishedAt.Sub(p.StartedAt), true
}

// StatusLabel renders the status, suffixed with "(m:ss)" once the participant
// has finished answering.
func (p *ParticipantState) StatusLabel() string {
	elapsed, ok := p.Elapsed()
	if !ok || p.Status == StatusWaiting || p.Status == StatusStarted {
		return string(p.Status)
	}
	secs := int(elapsed / time.Second)
	return fmt.Sprintf("%s (%d:%02d)", p.Status, secs/60, secs%60)
}

// QuizState is the replayed view of one quiz.
type QuizState struct {
	ID            string
	Name          string
	Date          string // YYYYMMDD of the START_QUIZ record
	QuestionCount int
	HostID        string
	HostOrigin    string
	// AnsweringOpen is set once any answer or started status was recorded.
	AnsweringOpen bool
	Participants  map[string]*ParticipantState
	// Checkees maps checker id to the checkee of its latest assignment.
	Checkees map[string]string
}

// Participant looks up a participant by id.
func (q QuizState) Participant(id string) (*ParticipantState, bool) {
	p, ok := q.Participants[id]
	return p, ok
}
