package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/domain"
	"online-quiz/internal/eventlog"
)

// EventLog keeps each quiz as a Redis list of encoded rows. RPUSH is the
// atomic append and the list position is the sequence number.
// Notes:
//   - Rows are written without a seq column; Scan fills Seq from the index.
//   - A positive ttl is refreshed on every append so abandoned quizzes expire.
type EventLog struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
	logger logrus.FieldLogger
}

func NewEventLog(client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *EventLog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventLog{
		client: client,
		ttl:    ttl,
		clock:  time.Now,
		logger: logger,
	}
}

func (l *EventLog) Append(ctx context.Context, ev domain.Event) (domain.Record, error) {
	rec := domain.Record{Time: l.clock().Truncate(time.Second), Event: ev}
	data, err := eventlog.Marshal(rec)
	if err != nil {
		return domain.Record{}, err
	}

	key := l.key(ev.Quiz())
	pipe := l.client.TxPipeline()
	push := pipe.RPush(ctx, key, data)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Record{}, fmt.Errorf("redis append: %w", err)
	}
	rec.Seq = push.Val()
	return rec, nil
}

func (l *EventLog) Scan(ctx context.Context, quizID string) ([]domain.Record, error) {
	rows, err := l.client.LRange(ctx, l.key(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	recs := make([]domain.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := eventlog.Unmarshal(row)
		if err != nil {
			l.logger.WithFields(logrus.Fields{"quiz_id": quizID, "error": err}).Debug("skipping malformed row")
			continue
		}
		rec.Seq = int64(i + 1)
		recs = append(recs, rec)
	}
	return recs, nil
}

func (l *EventLog) Exists(ctx context.Context, quizID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(quizID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (l *EventLog) key(quizID string) string {
	return "quiz:" + quizID + ":events"
}
