// Package sqlite stores quiz logs in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"online-quiz/internal/domain"
	"online-quiz/internal/eventlog"

	_ "modernc.org/sqlite"
)

type EventLog struct {
	db     *sql.DB
	clock  func() time.Time
	logger logrus.FieldLogger
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string, logger logrus.FieldLogger) (*EventLog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time keeps appends free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l := &EventLog{db: db, clock: time.Now, logger: logger}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *EventLog) Close() error {
	return l.db.Close()
}

func (l *EventLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quiz_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS quiz_events_quiz_id_seq_idx ON quiz_events (quiz_id, seq);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *EventLog) Append(ctx context.Context, ev domain.Event) (domain.Record, error) {
	rec := domain.Record{Time: l.clock().Truncate(time.Second), Event: ev}
	data, err := eventlog.Marshal(rec)
	if err != nil {
		return domain.Record{}, err
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO quiz_events (quiz_id, kind, recorded_at, payload) VALUES (?, ?, ?, ?)`,
		ev.Quiz(), string(ev.Kind()), rec.Time.Format(eventlog.TimeLayout), string(data),
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("insert event: %w", err)
	}
	if rec.Seq, err = res.LastInsertId(); err != nil {
		return domain.Record{}, fmt.Errorf("event seq: %w", err)
	}
	return rec, nil
}

func (l *EventLog) Scan(ctx context.Context, quizID string) ([]domain.Record, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT seq, payload FROM quiz_events WHERE quiz_id = ? ORDER BY seq`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec, err := eventlog.Unmarshal(payload)
		if err != nil {
			l.logger.WithFields(logrus.Fields{"quiz_id": quizID, "seq": seq, "error": err}).Debug("skipping malformed row")
			continue
		}
		rec.Seq = seq
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (l *EventLog) Exists(ctx context.Context, quizID string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_events WHERE quiz_id = ?)`, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check quiz: %w", err)
	}
	return exists, nil
}
