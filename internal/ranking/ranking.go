// Package ranking derives per-participant metrics from replayed quiz state and
// orders participants into a ranked list.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"online-quiz/internal/domain"
)

// Standing is one participant's derived metrics and 1-based rank.
type Standing struct {
	Participant    *domain.ParticipantState
	Rank           int
	AnswersGiven   int
	AnswersChecked int
	CorrectAnswers int
	// Solos lists questions this participant alone had marked correct.
	Solos []int
}

// Rank computes metrics for every participant and returns them best first.
// The order ascends on (-correct, checked, -solos, -given, name), with the
// participant id as a last resort so equal names still order totally.
func Rank(participants map[string]*domain.ParticipantState) []Standing {
	correctBy := make(map[int]int)
	for _, p := range participants {
		for q, c := range p.Checks {
			if c.Verdict == domain.VerdictCorrect {
				correctBy[q]++
			}
		}
	}

	standings := make([]Standing, 0, len(participants))
	for _, p := range participants {
		s := Standing{Participant: p, AnswersChecked: len(p.Checks)}
		for _, text := range p.Answers {
			if strings.TrimSpace(text) != "" {
				s.AnswersGiven++
			}
		}
		for q, c := range p.Checks {
			if c.Verdict != domain.VerdictCorrect {
				continue
			}
			s.CorrectAnswers++
			if correctBy[q] == 1 {
				s.Solos = append(s.Solos, q)
			}
		}
		sort.Ints(s.Solos)
		standings = append(standings, s)
	}

	sort.Slice(standings, func(i, j int) bool {
		return Less(standings[i], standings[j])
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Less reports whether a ranks before b.
func Less(a, b Standing) bool {
	if a.CorrectAnswers != b.CorrectAnswers {
		return a.CorrectAnswers > b.CorrectAnswers
	}
	if a.AnswersChecked != b.AnswersChecked {
		return a.AnswersChecked < b.AnswersChecked
	}
	if len(a.Solos) != len(b.Solos) {
		return len(a.Solos) > len(b.Solos)
	}
	if a.AnswersGiven != b.AnswersGiven {
		return a.AnswersGiven > b.AnswersGiven
	}
	if a.Participant.Name != b.Participant.Name {
		return a.Participant.Name < b.Participant.Name
	}
	return a.Participant.ID < b.Participant.ID
}

// Find returns the standing of participantID.
func Find(standings []Standing, participantID string) (Standing, bool) {
	for _, s := range standings {
		if s.Participant.ID == participantID {
			return s, true
		}
	}
	return Standing{}, false
}

// IsSolo reports whether question is one of the standing's solos.
func (s Standing) IsSolo(question int) bool {
	i := sort.SearchInts(s.Solos, question)
	return i < len(s.Solos) && s.Solos[i] == question
}

// Tally counts the verdicts recorded for one question across all participants.
type Tally struct {
	Correct int
	Total   int
}

func (t Tally) String() string {
	return fmt.Sprintf("%d/%d", t.Correct, t.Total)
}

// Tallies returns a tally for every question 1..questionCount.
func Tallies(participants map[string]*domain.ParticipantState, questionCount int) map[int]Tally {
	tallies := make(map[int]Tally, questionCount)
	for q := 1; q <= questionCount; q++ {
		tallies[q] = Tally{}
	}
	for _, p := range participants {
		for q, c := range p.Checks {
			t, ok := tallies[q]
			if !ok {
				continue
			}
			t.Total++
			if c.Verdict == domain.VerdictCorrect {
				t.Correct++
			}
			tallies[q] = t
		}
	}
	return tallies
}
