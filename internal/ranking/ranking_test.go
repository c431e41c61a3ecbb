package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-quiz/internal/domain"
)

func participant(id, name string, answers map[int]string, checks map[int]domain.Verdict) *domain.ParticipantState {
	p := domain.NewParticipantState(id, name, "")
	for q, a := range answers {
		p.Answers[q] = a
	}
	for q, v := range checks {
		p.Checks[q] = domain.Check{Verdict: v, CheckerID: "x"}
	}
	return p
}

const (
	c = domain.VerdictCorrect
	w = domain.VerdictWrong
)

func names(standings []Standing) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Participant.Name
	}
	return out
}

func TestRankMetrics(t *testing.T) {
	ps := map[string]*domain.ParticipantState{
		"1": participant("1", "Ann", map[int]string{1: "a", 2: "b", 3: " ", 4: ""}, map[int]domain.Verdict{1: c, 2: c, 7: c}),
		"2": participant("2", "Bob", map[int]string{1: "a"}, map[int]domain.Verdict{1: c, 2: w}),
	}
	standings := Rank(ps)
	require.Len(t, standings, 2)

	ann, ok := Find(standings, "1")
	require.True(t, ok)
	assert.Equal(t, 2, ann.AnswersGiven)
	assert.Equal(t, 3, ann.AnswersChecked)
	assert.Equal(t, 3, ann.CorrectAnswers)
	assert.Equal(t, []int{2, 7}, ann.Solos)
	assert.Equal(t, 1, ann.Rank)
	assert.True(t, ann.IsSolo(7))
	assert.False(t, ann.IsSolo(1))

	bob, _ := Find(standings, "2")
	assert.Equal(t, 1, bob.CorrectAnswers)
	assert.Empty(t, bob.Solos)
	assert.Equal(t, 2, bob.Rank)
}

func TestSoloRequiresUniqueCorrect(t *testing.T) {
	ps := map[string]*domain.ParticipantState{
		"1": participant("1", "Ann", nil, map[int]domain.Verdict{7: c}),
		"2": participant("2", "Bob", nil, map[int]domain.Verdict{7: w}),
		"3": participant("3", "Cy", nil, map[int]domain.Verdict{}),
	}
	s, _ := Find(Rank(ps), "1")
	assert.Equal(t, []int{7}, s.Solos)

	ps["2"].Checks[7] = domain.Check{Verdict: c}
	for _, s := range Rank(ps) {
		assert.NotContains(t, s.Solos, 7, s.Participant.Name)
	}
}

func TestRankOrdering(t *testing.T) {
	tests := []struct {
		name string
		ps   []*domain.ParticipantState
		want []string
	}{
		{
			name: "more correct first",
			ps: []*domain.ParticipantState{
				participant("1", "Ann", nil, map[int]domain.Verdict{1: c}),
				participant("2", "Bob", nil, map[int]domain.Verdict{1: c, 2: c}),
			},
			want: []string{"Bob", "Ann"},
		},
		{
			name: "fewer checked first",
			ps: []*domain.ParticipantState{
				participant("1", "Ann", nil, map[int]domain.Verdict{1: c, 2: w}),
				participant("2", "Bob", nil, map[int]domain.Verdict{1: c}),
			},
			want: []string{"Bob", "Ann"},
		},
		{
			name: "more solos first",
			ps: []*domain.ParticipantState{
				participant("1", "Ann", nil, map[int]domain.Verdict{1: c, 2: w}),
				participant("2", "Bob", nil, map[int]domain.Verdict{1: w, 2: c}),
				participant("3", "Cy", nil, map[int]domain.Verdict{1: c, 3: w}),
			},
			want: []string{"Bob", "Ann", "Cy"},
		},
		{
			name: "more answers given first",
			ps: []*domain.ParticipantState{
				participant("1", "Ann", map[int]string{1: "x"}, nil),
				participant("2", "Bob", map[int]string{1: "x", 2: "y"}, nil),
			},
			want: []string{"Bob", "Ann"},
		},
		{
			name: "name breaks full ties",
			ps: []*domain.ParticipantState{
				participant("1", "Bob", map[int]string{1: "x"}, map[int]domain.Verdict{1: c, 2: c, 3: c, 4: w}),
				participant("2", "Ann", map[int]string{1: "x"}, map[int]domain.Verdict{1: c, 2: c, 3: c, 5: w}),
			},
			want: []string{"Ann", "Bob"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := make(map[string]*domain.ParticipantState)
			for _, p := range tt.ps {
				ps[p.ID] = p
			}
			assert.Equal(t, tt.want, names(Rank(ps)))
		})
	}
}

func TestTallies(t *testing.T) {
	ps := map[string]*domain.ParticipantState{
		"1": participant("1", "Ann", nil, map[int]domain.Verdict{1: c, 2: w}),
		"2": participant("2", "Bob", nil, map[int]domain.Verdict{1: c, 2: c}),
		"3": participant("3", "Cy", nil, map[int]domain.Verdict{1: w}),
	}
	tallies := Tallies(ps, 3)
	assert.Equal(t, "2/3", tallies[1].String())
	assert.Equal(t, "1/2", tallies[2].String())
	assert.Equal(t, "0/0", tallies[3].String())
}
