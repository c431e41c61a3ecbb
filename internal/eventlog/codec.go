// Package eventlog encodes quiz records as delimited rows:
//
//	timestamp,kind,quiz_id,<kind fields>[,seq]
//
// with the timestamp formatted as YYYYMMDD:HH:MM:SS. Every backend stores
// rows in this format so logs can be moved between them. A row is always one
// physical line: line breaks inside fields are written as spaces, which lets
// readers drop a torn row without losing the rows after it.
package eventlog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"online-quiz/internal/domain"
)

// TimeLayout is the row timestamp format.
const TimeLayout = "20060102:15:04:05"

// fieldCounts is the number of fields per kind, timestamp/kind/quiz_id included.
var fieldCounts = map[domain.Kind]int{
	domain.KindQuizStarted:       7,
	domain.KindQuizEnded:         3,
	domain.KindParticipantJoined: 6,
	domain.KindAnswerSubmitted:   7,
	domain.KindStatusChanged:     6,
	domain.KindCheckRecorded:     7,
	domain.KindCheckerAssigned:   5,
}

// Fields returns the row for rec. The seq column is written only when rec.Seq > 0.
func Fields(rec domain.Record) ([]string, error) {
	if rec.Event == nil {
		return nil, fmt.Errorf("encode record: nil event")
	}
	row := []string{rec.Time.Format(TimeLayout), string(rec.Event.Kind()), rec.Event.Quiz()}
	switch ev := rec.Event.(type) {
	case domain.QuizStarted:
		row = append(row, ev.Name, strconv.Itoa(ev.QuestionCount), ev.HostID, ev.HostOrigin)
	case domain.QuizEnded:
	case domain.ParticipantJoined:
		row = append(row, ev.Origin, ev.ParticipantID, ev.Name)
	case domain.AnswerSubmitted:
		row = append(row, ev.Origin, ev.ParticipantID, strconv.Itoa(ev.Question), ev.Text)
	case domain.StatusChanged:
		row = append(row, ev.Origin, ev.ParticipantID, string(ev.Status))
	case domain.CheckRecorded:
		row = append(row, ev.CheckeeID, ev.CheckerID, strconv.Itoa(ev.Question), string(ev.Verdict))
	case domain.CheckerAssigned:
		row = append(row, ev.CheckerID, ev.CheckeeID)
	default:
		return nil, fmt.Errorf("encode record: unsupported event %T", rec.Event)
	}
	if rec.Seq > 0 {
		row = append(row, strconv.FormatInt(rec.Seq, 10))
	}
	return row, nil
}

// Parse decodes one row. Any problem is reported as domain.ErrMalformedRecord.
func Parse(row []string) (domain.Record, error) {
	if len(row) < 3 {
		return domain.Record{}, malformed("short row (%d fields)", len(row))
	}
	kind := domain.Kind(row[1])
	want, ok := fieldCounts[kind]
	if !ok {
		return domain.Record{}, malformed("unknown kind %q", row[1])
	}
	if len(row) != want && len(row) != want+1 {
		return domain.Record{}, malformed("%s: %d fields, want %d", kind, len(row), want)
	}
	ts, err := time.ParseInLocation(TimeLayout, row[0], time.Local)
	if err != nil {
		return domain.Record{}, malformed("timestamp %q", row[0])
	}
	rec := domain.Record{Time: ts}
	if len(row) == want+1 {
		seq, err := strconv.ParseInt(row[want], 10, 64)
		if err != nil || seq <= 0 {
			return domain.Record{}, malformed("seq %q", row[want])
		}
		rec.Seq = seq
	}

	quizID := row[2]
	if quizID == "" {
		return domain.Record{}, malformed("empty quiz id")
	}
	switch kind {
	case domain.KindQuizStarted:
		n, err := strconv.Atoi(row[4])
		if err != nil || n <= 0 {
			return domain.Record{}, malformed("question count %q", row[4])
		}
		rec.Event = domain.QuizStarted{QuizID: quizID, Name: row[3], QuestionCount: n, HostID: row[5], HostOrigin: row[6]}
	case domain.KindQuizEnded:
		rec.Event = domain.QuizEnded{QuizID: quizID}
	case domain.KindParticipantJoined:
		rec.Event = domain.ParticipantJoined{QuizID: quizID, Origin: row[3], ParticipantID: row[4], Name: row[5]}
	case domain.KindAnswerSubmitted:
		q, err := strconv.Atoi(row[5])
		if err != nil {
			return domain.Record{}, malformed("question number %q", row[5])
		}
		rec.Event = domain.AnswerSubmitted{QuizID: quizID, Origin: row[3], ParticipantID: row[4], Question: q, Text: row[6]}
	case domain.KindStatusChanged:
		status := domain.Status(row[5])
		if !status.Valid() {
			return domain.Record{}, malformed("status %q", row[5])
		}
		rec.Event = domain.StatusChanged{QuizID: quizID, Origin: row[3], ParticipantID: row[4], Status: status}
	case domain.KindCheckRecorded:
		q, err := strconv.Atoi(row[5])
		if err != nil {
			return domain.Record{}, malformed("question number %q", row[5])
		}
		verdict := domain.Verdict(strings.TrimSpace(row[6]))
		if verdict != domain.VerdictNone && !verdict.Valid() {
			return domain.Record{}, malformed("verdict %q", row[6])
		}
		rec.Event = domain.CheckRecorded{QuizID: quizID, CheckeeID: row[3], CheckerID: row[4], Question: q, Verdict: verdict}
	case domain.KindCheckerAssigned:
		rec.Event = domain.CheckerAssigned{QuizID: quizID, CheckerID: row[3], CheckeeID: row[4]}
	}
	return rec, nil
}

// Marshal encodes rec as a single CSV line terminated by a newline.
func Marshal(rec domain.Record) ([]byte, error) {
	row, err := Fields(rec)
	if err != nil {
		return nil, err
	}
	for i := range row {
		row[i] = domain.SingleLine(row[i])
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single record produced by Marshal.
func Unmarshal(data string) (domain.Record, error) {
	return parseLine(data)
}

// NewReader returns a CSV reader configured for log rows of varying width.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return cr
}

// ReadAll decodes every line from r. Lines that do not hold exactly one
// valid row, such as a row torn by a crash mid-write, are passed to skip
// (which may be nil) and left out of the result; only I/O errors are returned.
func ReadAll(r io.Reader, skip func(error)) ([]domain.Record, error) {
	br := bufio.NewReader(r)
	var out []domain.Record
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return out, readErr
		}
		if strings.TrimSpace(line) != "" {
			rec, err := parseLine(line)
			if err != nil {
				if skip != nil {
					skip(err)
				}
			} else {
				out = append(out, rec)
			}
		}
		if readErr == io.EOF {
			return out, nil
		}
	}
}

func parseLine(line string) (domain.Record, error) {
	cr := NewReader(strings.NewReader(line))
	row, err := cr.Read()
	if err != nil {
		return domain.Record{}, malformed("%v", err)
	}
	if _, err := cr.Read(); err != io.EOF {
		return domain.Record{}, malformed("line holds more than one row")
	}
	return Parse(row)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrMalformedRecord}, args...)...)
}
