package memory

import (
	"context"
	"sync"
	"time"

	"online-quiz/internal/domain"
)

// EventLog is an in-memory implementation of app.EventLog for tests and demos.
type EventLog struct {
	clock func() time.Time

	mu      sync.RWMutex
	quizzes map[string][]domain.Record
}

func NewEventLog() *EventLog {
	return NewEventLogWithClock(time.Now)
}

// NewEventLogWithClock is test-only for controlling record timestamps.
func NewEventLogWithClock(clock func() time.Time) *EventLog {
	return &EventLog{
		clock:   clock,
		quizzes: make(map[string][]domain.Record),
	}
}

func (l *EventLog) Append(_ context.Context, ev domain.Event) (domain.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	quizID := ev.Quiz()
	rec := domain.Record{
		// Persistent backends keep whole seconds only.
		Time:  l.clock().Truncate(time.Second),
		Seq:   int64(len(l.quizzes[quizID]) + 1),
		Event: ev,
	}
	l.quizzes[quizID] = append(l.quizzes[quizID], rec)
	return rec, nil
}

func (l *EventLog) Scan(_ context.Context, quizID string) ([]domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recs := l.quizzes[quizID]
	out := make([]domain.Record, len(recs))
	copy(out, recs)
	return out, nil
}

func (l *EventLog) Exists(_ context.Context, quizID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.quizzes[quizID]
	return ok, nil
}
