// Package report renders replayed quiz results as a per-participant text
// sheet or an all-participants CSV matrix.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"online-quiz/internal/domain"
	"online-quiz/internal/ranking"
)

// Text renders the result sheet of one participant and a suggested file name.
// Every question takes exactly one line.
func Text(state domain.QuizState, standings []ranking.Standing, participantID string) (string, string, error) {
	me, ok := ranking.Find(standings, participantID)
	if !ok {
		return "", "", fmt.Errorf("report for %s: %w", participantID, domain.ErrUnknownParticipant)
	}
	p := me.Participant
	tallies := ranking.Tallies(state.Participants, state.QuestionCount)

	tallyWidth := 0
	for _, t := range tallies {
		tallyWidth = max(tallyWidth, len(t.String()))
	}
	numberWidth := len(strconv.Itoa(state.QuestionCount))

	var b strings.Builder
	fmt.Fprintf(&b, "%s (date: %s; %d participants; %d questions)\n\n",
		domain.SingleLine(state.Name), state.Date, len(state.Participants), state.QuestionCount)
	fmt.Fprintf(&b, "Name:  %s\n", domain.SingleLine(p.Name))
	fmt.Fprintf(&b, "Rank:  %d\n", me.Rank)
	fmt.Fprintf(&b, "Score: %d\n", me.CorrectAnswers)
	fmt.Fprintf(&b, "Solos: %d\n\n", len(me.Solos))

	for q := 1; q <= state.QuestionCount; q++ {
		if len(me.Solos) > 0 {
			if me.IsSolo(q) {
				b.WriteString("SOLO ")
			} else {
				b.WriteString("     ")
			}
		}
		fmt.Fprintf(&b, "%*s %c %*d. %s\n",
			tallyWidth, tallies[q].String(),
			glyph(p, q),
			numberWidth, q,
			domain.SingleLine(p.Answers[q]))
	}
	return b.String(), FileName(state.Name, "txt"), nil
}

func glyph(p *domain.ParticipantState, question int) rune {
	check, ok := p.Checks[question]
	if !ok {
		return '?'
	}
	switch check.Verdict {
	case domain.VerdictCorrect:
		return '+'
	case domain.VerdictWrong:
		return '-'
	}
	return '?'
}

// CSV renders every participant's verdicts as a matrix: a header row of names,
// a row of scores, then one row per question with 1 (correct), 0 (wrong) or
// an empty cell (unchecked). Columns follow the ranking.
func CSV(state domain.QuizState, standings []ranking.Standing) (string, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(standings)+1)
	scores := make([]string, 0, len(standings)+1)
	header = append(header, "question")
	scores = append(scores, "score")
	for _, s := range standings {
		header = append(header, strings.ReplaceAll(domain.SingleLine(s.Participant.Name), ",", ";"))
		scores = append(scores, strconv.Itoa(s.CorrectAnswers))
	}
	if err := w.Write(header); err != nil {
		return "", "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.Write(scores); err != nil {
		return "", "", fmt.Errorf("write csv scores: %w", err)
	}

	for q := 1; q <= state.QuestionCount; q++ {
		row := make([]string, 0, len(standings)+1)
		row = append(row, strconv.Itoa(q))
		for _, s := range standings {
			cell := ""
			if check, ok := s.Participant.Checks[q]; ok {
				switch check.Verdict {
				case domain.VerdictCorrect:
					cell = "1"
				case domain.VerdictWrong:
					cell = "0"
				}
			}
			row = append(row, cell)
		}
		if err := w.Write(row); err != nil {
			return "", "", fmt.Errorf("write csv row %d: %w", q, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), FileName(state.Name, "csv"), nil
}

// FileName turns a quiz name into a download name: lower case, spaces as underscores.
func FileName(quizName, ext string) string {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(quizName)), " ", "_")
	if base == "" {
		base = "quiz"
	}
	return base + "." + ext
}
