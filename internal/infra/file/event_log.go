// Package file stores quiz logs as CSV files: one directory per quiz holding
// a shared events.csv and one participant-<id>.csv shard per participant for
// answers and status changes.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"online-quiz/internal/domain"
	"online-quiz/internal/eventlog"
)

const (
	sharedShard      = "events.csv"
	participantShard = "participant-"
	shardExt         = ".csv"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// EventLog is a filesystem implementation of app.EventLog. Every append is a
// single write on a file opened with O_APPEND, so concurrent writers never
// interleave partial rows. A shard left ending in a torn row gets a newline in
// front of the next row; scans drop the torn line alone.
type EventLog struct {
	dir    string
	clock  func() time.Time
	logger logrus.FieldLogger

	mu    sync.Mutex
	seqs  map[string]int64
	loads singleflight.Group
}

func NewEventLog(dir string, logger logrus.FieldLogger) (*EventLog, error) {
	return NewEventLogWithClock(dir, logger, time.Now)
}

// NewEventLogWithClock is test-only for controlling record timestamps.
func NewEventLogWithClock(dir string, logger logrus.FieldLogger, clock func() time.Time) (*EventLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventLog{
		dir:    dir,
		clock:  clock,
		logger: logger,
		seqs:   make(map[string]int64),
	}, nil
}

func (l *EventLog) Append(ctx context.Context, ev domain.Event) (domain.Record, error) {
	quizID := ev.Quiz()
	if !validKey.MatchString(quizID) {
		return domain.Record{}, fmt.Errorf("%w: quiz id %q", domain.ErrInvalidInput, quizID)
	}
	dir := filepath.Join(l.dir, quizID)
	if ev.Kind() == domain.KindQuizStarted {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.Record{}, fmt.Errorf("create quiz dir: %w", err)
		}
	} else if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Record{}, fmt.Errorf("append to %s: %w", quizID, domain.ErrUnknownQuiz)
		}
		return domain.Record{}, fmt.Errorf("stat quiz dir: %w", err)
	}

	shard := sharedShard
	if subject := ev.Subject(); subject != "" {
		if !validKey.MatchString(subject) {
			return domain.Record{}, fmt.Errorf("%w: participant id %q", domain.ErrInvalidInput, subject)
		}
		shard = participantShard + subject + shardExt
	}

	seq, at, err := l.stamp(ctx, quizID)
	if err != nil {
		return domain.Record{}, err
	}
	rec := domain.Record{Time: at, Seq: seq, Event: ev}
	data, err := eventlog.Marshal(rec)
	if err != nil {
		return domain.Record{}, err
	}

	f, err := os.OpenFile(filepath.Join(dir, shard), os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return domain.Record{}, fmt.Errorf("open shard: %w", err)
	}
	torn, err := endsMidRow(f)
	if err != nil {
		_ = f.Close()
		return domain.Record{}, fmt.Errorf("inspect shard: %w", err)
	}
	if torn {
		l.logger.WithFields(logrus.Fields{"quiz_id": quizID, "shard": shard}).Warn("shard ends with a torn row")
		data = append([]byte{'\n'}, data...)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return domain.Record{}, fmt.Errorf("write shard: %w", err)
	}
	if err := f.Close(); err != nil {
		return domain.Record{}, fmt.Errorf("close shard: %w", err)
	}
	return rec, nil
}

// endsMidRow reports whether f is non-empty and its last byte is not a
// newline, which is what a write cut short by a crash leaves behind.
func endsMidRow(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// stamp hands out the next sequence number and timestamp for quizID. The
// counter is seeded from disk on first use.
func (l *EventLog) stamp(ctx context.Context, quizID string) (int64, time.Time, error) {
	l.mu.Lock()
	_, loaded := l.seqs[quizID]
	l.mu.Unlock()

	if !loaded {
		v, err, _ := l.loads.Do(quizID, func() (any, error) {
			recs, err := l.Scan(ctx, quizID)
			if err != nil {
				return int64(0), err
			}
			return eventlog.MaxSeq(recs), nil
		})
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("load sequence: %w", err)
		}
		l.mu.Lock()
		if cur, ok := l.seqs[quizID]; !ok || cur < v.(int64) {
			l.seqs[quizID] = v.(int64)
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqs[quizID]++
	return l.seqs[quizID], l.clock().Truncate(time.Second), nil
}

// Scan reads all shards concurrently and merges them by (timestamp, seq).
// Ties keep shard order: events.csv first, then participant shards by name.
func (l *EventLog) Scan(ctx context.Context, quizID string) ([]domain.Record, error) {
	if !validKey.MatchString(quizID) {
		return nil, nil
	}
	dir := filepath.Join(l.dir, quizID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list shards: %w", err)
	}

	shards := []string{sharedShard}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, participantShard) && strings.HasSuffix(name, shardExt) {
			shards = append(shards, name)
		}
	}

	results := make([][]domain.Record, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			recs, err := l.readShard(gctx, quizID, filepath.Join(dir, shard))
			results[i] = recs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.Record
	for _, recs := range results {
		merged = append(merged, recs...)
	}
	eventlog.Sort(merged)
	return merged, nil
}

func (l *EventLog) readShard(ctx context.Context, quizID, path string) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	recs, err := eventlog.ReadAll(f, func(err error) {
		l.logger.WithFields(logrus.Fields{
			"quiz_id": quizID,
			"shard":   filepath.Base(path),
			"error":   err,
		}).Debug("skipping malformed row")
	})
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

// Exists reports whether a directory for quizID exists.
func (l *EventLog) Exists(_ context.Context, quizID string) (bool, error) {
	if !validKey.MatchString(quizID) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(l.dir, quizID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat quiz dir: %w", err)
}
