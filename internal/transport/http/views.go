package http

import (
	"online-quiz/internal/app"
	"online-quiz/internal/domain"
	"online-quiz/internal/ranking"
)

// Participant ids are capability tokens and never appear in public views.

type standingView struct {
	Rank           int    `json:"rank"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	CheckerName    string `json:"checkerName,omitempty"`
	AnswersGiven   int    `json:"answersGiven"`
	AnswersChecked int    `json:"answersChecked"`
	CorrectAnswers int    `json:"correctAnswers"`
	Solos          []int  `json:"solos"`
}

type resultsView struct {
	QuizID        string         `json:"quizId"`
	Name          string         `json:"name"`
	Date          string         `json:"date"`
	QuestionCount int            `json:"questionCount"`
	AnsweringOpen bool           `json:"answeringOpen"`
	Participants  []standingView `json:"participants"`
}

func newResultsView(res app.Results) resultsView {
	view := resultsView{
		QuizID:        res.Quiz.ID,
		Name:          res.Quiz.Name,
		Date:          res.Quiz.Date,
		QuestionCount: res.Quiz.QuestionCount,
		AnsweringOpen: res.Quiz.AnsweringOpen,
		Participants:  make([]standingView, 0, len(res.Standings)),
	}
	for _, s := range res.Standings {
		solos := s.Solos
		if solos == nil {
			solos = []int{}
		}
		view.Participants = append(view.Participants, standingView{
			Rank:           s.Rank,
			Name:           s.Participant.Name,
			Status:         s.Participant.StatusLabel(),
			CheckerName:    s.Participant.CheckerName,
			AnswersGiven:   s.AnswersGiven,
			AnswersChecked: s.AnswersChecked,
			CorrectAnswers: s.CorrectAnswers,
			Solos:          solos,
		})
	}
	return view
}

type participantView struct {
	ParticipantID string         `json:"participantId"`
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	IsHost        bool           `json:"isHost"`
	AnsweringOpen bool           `json:"answeringOpen"`
	Answers       map[int]string `json:"answers"`
	CheckeeID     string         `json:"checkeeId,omitempty"`
}

type checkSheetView struct {
	CheckeeName string                 `json:"checkeeName"`
	Answers     map[int]string         `json:"answers"`
	Verdicts    map[int]domain.Verdict `json:"verdicts"`
	Tallies     map[int]string         `json:"tallies"`
}

func newCheckSheetView(sheet app.CheckSheet) checkSheetView {
	return checkSheetView{
		CheckeeName: sheet.CheckeeName,
		Answers:     sheet.Answers,
		Verdicts:    sheet.Verdicts,
		Tallies:     tallyStrings(sheet.Tallies),
	}
}

func tallyStrings(tallies map[int]ranking.Tally) map[int]string {
	out := make(map[int]string, len(tallies))
	for q, t := range tallies {
		out[q] = t.String()
	}
	return out
}
