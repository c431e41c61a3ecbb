package memory

import (
	"context"
	"testing"
	"time"

	"online-quiz/internal/domain"
)

func TestEventLogAppendAndScan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 10, 0, 0, 500, time.UTC)
	log := NewEventLogWithClock(func() time.Time { return now })

	if ok, _ := log.Exists(ctx, "q1"); ok {
		t.Fatalf("expected empty log")
	}
	if _, err := log.Append(ctx, domain.QuizStarted{QuizID: "q1", Name: "Quiz", QuestionCount: 3}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	rec, err := log.Append(ctx, domain.ParticipantJoined{QuizID: "q1", ParticipantID: "p1", Name: "Ann"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if rec.Seq != 2 || !rec.Time.Equal(now.Truncate(time.Second)) {
		t.Fatalf("unexpected stamp: %+v", rec)
	}
	_, _ = log.Append(ctx, domain.QuizStarted{QuizID: "q2", Name: "Other", QuestionCount: 1})

	recs, err := log.Scan(ctx, "q1")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(recs) != 2 || recs[0].Event.Kind() != domain.KindQuizStarted {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if ok, _ := log.Exists(ctx, "q1"); !ok {
		t.Fatalf("expected q1 to exist")
	}
}

func TestEventLogScanReturnsCopy(t *testing.T) {
	ctx := context.Background()
	log := NewEventLog()
	_, _ = log.Append(ctx, domain.QuizStarted{QuizID: "q1", Name: "Quiz", QuestionCount: 1})

	recs, _ := log.Scan(ctx, "q1")
	recs[0].Seq = 99

	again, _ := log.Scan(ctx, "q1")
	if again[0].Seq != 1 {
		t.Fatalf("scan leaked internal slice")
	}
}
