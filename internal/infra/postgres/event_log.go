package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/domain"
	"online-quiz/internal/eventlog"
)

// EventLog stores encoded rows in the quiz_events table. The BIGSERIAL seq
// column orders records and becomes Record.Seq.
type EventLog struct {
	pool   *pgxpool.Pool
	clock  func() time.Time
	logger logrus.FieldLogger
}

func NewEventLog(pool *pgxpool.Pool, logger logrus.FieldLogger) *EventLog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventLog{pool: pool, clock: time.Now, logger: logger}
}

func (l *EventLog) Append(ctx context.Context, ev domain.Event) (domain.Record, error) {
	rec := domain.Record{Time: l.clock().Truncate(time.Second), Event: ev}
	data, err := eventlog.Marshal(rec)
	if err != nil {
		return domain.Record{}, err
	}
	err = l.pool.QueryRow(ctx,
		`INSERT INTO quiz_events (quiz_id, kind, recorded_at, payload) VALUES ($1, $2, $3, $4) RETURNING seq`,
		ev.Quiz(), string(ev.Kind()), rec.Time, string(data),
	).Scan(&rec.Seq)
	if err != nil {
		return domain.Record{}, fmt.Errorf("insert event: %w", err)
	}
	return rec, nil
}

func (l *EventLog) Scan(ctx context.Context, quizID string) ([]domain.Record, error) {
	rows, err := l.pool.Query(ctx, `SELECT seq, payload FROM quiz_events WHERE quiz_id = $1 ORDER BY seq`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		var (
			seq int64
			row string
		)
		if err := rows.Scan(&seq, &row); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec, err := eventlog.Unmarshal(row)
		if err != nil {
			l.logger.WithFields(logrus.Fields{"quiz_id": quizID, "seq": seq, "error": err}).Debug("skipping malformed row")
			continue
		}
		rec.Seq = seq
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return recs, nil
}

func (l *EventLog) Exists(ctx context.Context, quizID string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_events WHERE quiz_id = $1)`, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check quiz: %w", err)
	}
	return exists, nil
}
