package app_test

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"online-quiz/internal/app"
	"online-quiz/internal/domain"
	"online-quiz/internal/infra/memory"
)

const hostOrigin = "10.0.0.1"

func newTestService() (*app.QuizService, *memory.EventLog) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	events := memory.NewEventLog()
	return app.NewQuizServiceWithRand(events, logger, rand.New(rand.NewPCG(1, 2))), events
}

func createQuiz(t *testing.T, service *app.QuizService, questions string) app.QuizCreated {
	t.Helper()
	created, err := service.CreateQuiz(context.Background(), app.CreateQuizInput{
		Name:          "Friday Quiz",
		QuestionCount: questions,
		HostName:      "Hosty",
		HostOrigin:    hostOrigin,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return created
}

func join(t *testing.T, service *app.QuizService, quizID, name string) string {
	t.Helper()
	id, err := service.JoinQuiz(context.Background(), app.JoinInput{QuizID: quizID, Name: name, Origin: "10.0.0.9"})
	if err != nil {
		t.Fatalf("join %s failed: %v", name, err)
	}
	return id
}

func openAnswering(t *testing.T, service *app.QuizService, created app.QuizCreated) {
	t.Helper()
	if err := service.OpenAnswering(context.Background(), created.QuizID, created.HostID, hostOrigin); err != nil {
		t.Fatalf("open answering failed: %v", err)
	}
}

func TestCreateQuizRejectsInvalidInput(t *testing.T) {
	service, _ := newTestService()
	cases := map[string]app.CreateQuizInput{
		"empty name":     {Name: " ", QuestionCount: "5", HostName: "h"},
		"zero questions": {Name: "q", QuestionCount: "0", HostName: "h"},
		"negative":       {Name: "q", QuestionCount: "-3", HostName: "h"},
		"not a number":   {Name: "q", QuestionCount: "five", HostName: "h"},
		"empty host":     {Name: "q", QuestionCount: "5", HostName: ""},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := service.CreateQuiz(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestCreateQuizRecordsHost(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "10")

	if len(created.QuizID) != 8 || created.QuizID == created.HostID {
		t.Fatalf("unexpected ids %+v", created)
	}
	if ok, _ := service.IsHost(ctx, created.QuizID, created.HostID, hostOrigin); !ok {
		t.Fatalf("expected host match")
	}
	if ok, _ := service.IsHost(ctx, created.QuizID, created.HostID, "10.0.0.2"); ok {
		t.Fatalf("expected origin mismatch to fail")
	}
	if ok, _ := service.IsHost(ctx, created.QuizID, "12345678", hostOrigin); ok {
		t.Fatalf("expected id mismatch to fail")
	}

	res, err := service.Results(ctx, created.QuizID)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if res.Quiz.Name != "Friday Quiz" || res.Quiz.QuestionCount != 10 || len(res.Standings) != 1 {
		t.Fatalf("unexpected results %+v", res)
	}
	if res.Standings[0].Participant.Status != domain.StatusWaiting {
		t.Fatalf("expected host waiting, got %s", res.Standings[0].Participant.Status)
	}
}

func TestJoinQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "3")

	if _, err := service.JoinQuiz(ctx, app.JoinInput{QuizID: "99999999", Name: "Ann"}); !errors.Is(err, domain.ErrUnknownQuiz) {
		t.Fatalf("expected unknown quiz, got %v", err)
	}
	if _, err := service.JoinQuiz(ctx, app.JoinInput{QuizID: created.QuizID, Name: "  "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := service.JoinQuiz(ctx, app.JoinInput{QuizID: created.QuizID, ParticipantID: "nope", Name: "Ann"}); !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Fatalf("expected unknown participant, got %v", err)
	}

	ann := join(t, service, created.QuizID, "Ann")
	again, err := service.JoinQuiz(ctx, app.JoinInput{QuizID: created.QuizID, ParticipantID: ann, Name: "Annie"})
	if err != nil || again != ann {
		t.Fatalf("rename failed: %v (%s)", err, again)
	}
	res, _ := service.Results(ctx, created.QuizID)
	if len(res.Standings) != 2 || res.Quiz.Participants[ann].Name != "Annie" {
		t.Fatalf("expected rename to stick, got %+v", res.Quiz.Participants[ann])
	}
}

func TestSubmitAnswerLastWriteWins(t *testing.T) {
	ctx := context.Background()
	service, events := newTestService()
	created := createQuiz(t, service, "5")
	ann := join(t, service, created.QuizID, "Ann")
	openAnswering(t, service, created)

	submit := func(q int, text string) error {
		return service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: ann, Question: q, Text: text})
	}
	if err := submit(3, "42"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	answers, _ := service.Answers(ctx, created.QuizID, ann)
	if answers[3] != "42" || len(answers) != 5 || answers[1] != "" {
		t.Fatalf("unexpected answers %v", answers)
	}

	_ = submit(3, "A")
	_ = submit(3, "B")
	answers, _ = service.Answers(ctx, created.QuizID, ann)
	if answers[3] != "B" {
		t.Fatalf("expected last write to win, got %q", answers[3])
	}

	before, _ := events.Scan(ctx, created.QuizID)
	_ = submit(3, "B")
	after, _ := events.Scan(ctx, created.QuizID)
	if len(after) != len(before) {
		t.Fatalf("unchanged answer should not be appended")
	}

	if err := submit(6, "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected out of range question to fail, got %v", err)
	}
	if err := service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: "ghost", Question: 1}); !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Fatalf("expected unknown participant, got %v", err)
	}

	status, _ := service.Status(ctx, created.QuizID, ann)
	if status != string(domain.StatusStarted) {
		t.Fatalf("answering should start the participant, got %s", status)
	}
}

func TestAnsweringGate(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "2")
	ann := join(t, service, created.QuizID, "Ann")

	status, err := service.StartAnswering(ctx, created.QuizID, ann, "10.0.0.9")
	if err != nil || status != domain.StatusWaiting {
		t.Fatalf("expected to keep waiting before answering opens, got %s %v", status, err)
	}

	// Only the host can open answering.
	if err := service.OpenAnswering(ctx, created.QuizID, ann, "10.0.0.9"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if open, _ := service.IsAnsweringOpen(ctx, created.QuizID); open {
		t.Fatalf("non-host should not open answering")
	}
	if err := service.OpenAnswering(ctx, created.QuizID, created.HostID, hostOrigin); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if open, _ := service.IsAnsweringOpen(ctx, created.QuizID); !open {
		t.Fatalf("expected answering open")
	}

	status, _ = service.StartAnswering(ctx, created.QuizID, ann, "10.0.0.9")
	if status != domain.StatusStarted {
		t.Fatalf("expected started, got %s", status)
	}
	status, _ = service.FinishAnswering(ctx, created.QuizID, ann, "10.0.0.9")
	if status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", status)
	}
	status, _ = service.FinishAnswering(ctx, created.QuizID, ann, "10.0.0.9")
	if status != domain.StatusFinished {
		t.Fatalf("finish should be idempotent, got %s", status)
	}
}

func finishAll(t *testing.T, service *app.QuizService, created app.QuizCreated, ids ...string) {
	t.Helper()
	ctx := context.Background()
	quizID := created.QuizID
	openAnswering(t, service, created)
	for _, id := range ids {
		if err := service.SubmitAnswer(ctx, app.AnswerInput{QuizID: quizID, ParticipantID: id, Question: 1, Text: "answer of " + id}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if status, err := service.FinishAnswering(ctx, quizID, id, ""); err != nil || status != domain.StatusFinished {
			t.Fatalf("finish failed: %s %v", status, err)
		}
	}
}

func TestSubmitAnswerNeedsOpenAnswering(t *testing.T) {
	ctx := context.Background()
	service, events := newTestService()
	created := createQuiz(t, service, "2")
	ann := join(t, service, created.QuizID, "Ann")
	bob := join(t, service, created.QuizID, "Bob")

	before, _ := events.Scan(ctx, created.QuizID)
	err := service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: ann, Origin: "10.0.0.9", Question: 1, Text: "early"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected answer before opening to fail, got %v", err)
	}
	after, _ := events.Scan(ctx, created.QuizID)
	if len(after) != len(before) {
		t.Fatalf("rejected answer should not be appended")
	}
	if open, _ := service.IsAnsweringOpen(ctx, created.QuizID); open {
		t.Fatalf("a participant answer must not open answering")
	}
	if status, _ := service.StartAnswering(ctx, created.QuizID, bob, "10.0.0.9"); status != domain.StatusWaiting {
		t.Fatalf("expected bob to keep waiting, got %s", status)
	}

	// The host may answer before anyone else.
	err = service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: created.HostID, Origin: hostOrigin, Question: 1, Text: "host"})
	if err != nil {
		t.Fatalf("host answer failed: %v", err)
	}
	err = service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: ann, Origin: "10.0.0.9", Question: 1, Text: "line one\nline two"})
	if err != nil {
		t.Fatalf("answer after opening failed: %v", err)
	}
	answers, _ := service.Answers(ctx, created.QuizID, ann)
	if answers[1] != "line one line two" {
		t.Fatalf("expected line breaks folded, got %q", answers[1])
	}
}

func TestSubmitAnswerClosedAfterFinish(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "2")
	ann := join(t, service, created.QuizID, "Ann")
	finishAll(t, service, created, ann)
	if err := service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: created.HostID, CheckeeID: ann, Origin: hostOrigin,
		Verdicts: map[int]domain.Verdict{1: domain.VerdictCorrect},
	}); err != nil {
		t.Fatalf("checks failed: %v", err)
	}

	err := service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: ann, Question: 1, Text: "changed after check"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected finished participant to be refused, got %v", err)
	}
	answers, _ := service.Answers(ctx, created.QuizID, ann)
	if answers[1] != "answer of "+ann {
		t.Fatalf("checked answer must not change, got %q", answers[1])
	}
	if status, _ := service.Status(ctx, created.QuizID, ann); !strings.HasPrefix(status, string(domain.StatusFinished)) {
		t.Fatalf("expected finished status, got %s", status)
	}
}

func TestRecordChecks(t *testing.T) {
	ctx := context.Background()
	service, events := newTestService()
	created := createQuiz(t, service, "3")
	ann := join(t, service, created.QuizID, "Ann")
	bob := join(t, service, created.QuizID, "Bob")
	finishAll(t, service, created, ann, bob)

	err := service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: ann, CheckeeID: bob,
		Verdicts: map[int]domain.Verdict{1: domain.VerdictCorrect, 2: domain.VerdictWrong},
	})
	if err != nil {
		t.Fatalf("checks failed: %v", err)
	}
	sheet, err := service.CheckSheet(ctx, created.QuizID, bob)
	if err != nil {
		t.Fatalf("check sheet failed: %v", err)
	}
	if sheet.Verdicts[1] != domain.VerdictCorrect || sheet.Verdicts[2] != domain.VerdictWrong {
		t.Fatalf("unexpected verdicts %v", sheet.Verdicts)
	}
	if sheet.Tallies[1].String() != "1/1" || sheet.Tallies[3].String() != "0/0" {
		t.Fatalf("unexpected tallies %v", sheet.Tallies)
	}
	res, _ := service.Results(ctx, created.QuizID)
	if res.Quiz.Participants[ann].Status != domain.StatusChecking {
		t.Fatalf("checker should move to checking, got %s", res.Quiz.Participants[ann].Status)
	}

	// Repeating the same verdicts appends nothing.
	before, _ := events.Scan(ctx, created.QuizID)
	_ = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: ann, CheckeeID: bob,
		Verdicts: map[int]domain.Verdict{1: domain.VerdictCorrect},
	})
	after, _ := events.Scan(ctx, created.QuizID)
	if len(after) != len(before) {
		t.Fatalf("expected no new records, got %d", len(after)-len(before))
	}

	// Self checks by a non-host are ignored.
	_ = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: bob, CheckeeID: bob,
		Verdicts: map[int]domain.Verdict{3: domain.VerdictCorrect},
	})
	sheet, _ = service.CheckSheet(ctx, created.QuizID, bob)
	if _, ok := sheet.Verdicts[3]; ok {
		t.Fatalf("self check should be ignored")
	}

	// The host may check anyone, including themself.
	err = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: created.HostID, CheckeeID: created.HostID, Origin: hostOrigin,
		Verdicts: map[int]domain.Verdict{1: domain.VerdictWrong},
	})
	if err != nil {
		t.Fatalf("host self check failed: %v", err)
	}

	err = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: ann, CheckeeID: bob,
		Verdicts: map[int]domain.Verdict{1: "maybe"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid verdict to fail, got %v", err)
	}

	// An empty verdict clears the earlier one.
	err = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: ann, CheckeeID: bob,
		Verdicts: map[int]domain.Verdict{2: domain.VerdictNone, 3: domain.VerdictNone},
	})
	if err != nil {
		t.Fatalf("clearing failed: %v", err)
	}
	sheet, _ = service.CheckSheet(ctx, created.QuizID, bob)
	if _, ok := sheet.Verdicts[2]; ok || sheet.Verdicts[1] != domain.VerdictCorrect {
		t.Fatalf("expected question 2 cleared, got %v", sheet.Verdicts)
	}
	if sheet.Tallies[2].String() != "0/0" {
		t.Fatalf("cleared check should leave the tally, got %s", sheet.Tallies[2])
	}
}

func TestOpenCheckingAssignsCycle(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "2")
	ids := []string{
		join(t, service, created.QuizID, "Ann"),
		join(t, service, created.QuizID, "Bob"),
		join(t, service, created.QuizID, "Cid"),
	}

	// A single finished participant is not enough to assign.
	finishAll(t, service, created, ids[0])
	if err := service.OpenChecking(ctx, created.QuizID, created.HostID, hostOrigin); err != nil {
		t.Fatalf("open checking failed: %v", err)
	}
	if checkee, _ := service.CheckeeOf(ctx, created.QuizID, ids[0]); checkee != "" {
		t.Fatalf("expected no assignment, got %s", checkee)
	}

	finishAll(t, service, created, ids[1], ids[2])

	// Non-host callers are ignored.
	if err := service.OpenChecking(ctx, created.QuizID, ids[0], "10.0.0.9"); err != nil {
		t.Fatalf("open checking failed: %v", err)
	}
	if checkee, _ := service.CheckeeOf(ctx, created.QuizID, ids[0]); checkee != "" {
		t.Fatalf("non-host should not assign, got %s", checkee)
	}

	if err := service.OpenChecking(ctx, created.QuizID, created.HostID, hostOrigin); err != nil {
		t.Fatalf("open checking failed: %v", err)
	}
	checkees := map[string]bool{}
	for _, id := range ids {
		checkee, err := service.CheckeeOf(ctx, created.QuizID, id)
		if err != nil {
			t.Fatalf("checkee lookup failed: %v", err)
		}
		if checkee == "" || checkee == id {
			t.Fatalf("bad checkee %q for %s", checkee, id)
		}
		checkees[checkee] = true
	}
	if len(checkees) != len(ids) {
		t.Fatalf("expected a permutation, got %v", checkees)
	}
	if checkee, _ := service.CheckeeOf(ctx, created.QuizID, created.HostID); checkee != "" {
		t.Fatalf("host was not finished and should not check, got %s", checkee)
	}

	res, _ := service.Results(ctx, created.QuizID)
	for _, s := range res.Standings {
		if s.Participant.ID != created.HostID && s.Participant.CheckerName == "" {
			t.Fatalf("expected checker name for %s", s.Participant.Name)
		}
	}
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	created := createQuiz(t, service, "2")
	ann := join(t, service, created.QuizID, "Ann")
	finishAll(t, service, created, ann)
	_ = service.RecordChecks(ctx, app.CheckInput{
		QuizID: created.QuizID, CheckerID: created.HostID, CheckeeID: ann, Origin: hostOrigin,
		Verdicts: map[int]domain.Verdict{1: domain.VerdictCorrect},
	})

	text, filename, err := service.ReportText(ctx, created.QuizID, ann)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if filename != "friday_quiz.txt" || !strings.Contains(text, "Rank:  1\n") || !strings.Contains(text, "SOLO 1/1 + 1. answer of "+ann) {
		t.Fatalf("unexpected report %s:\n%s", filename, text)
	}

	csvText, filename, err := service.ReportCSV(ctx, created.QuizID)
	if err != nil {
		t.Fatalf("csv failed: %v", err)
	}
	if filename != "friday_quiz.csv" || !strings.HasPrefix(csvText, "question,Ann,Hosty\nscore,1,0\n") {
		t.Fatalf("unexpected csv %s:\n%s", filename, csvText)
	}

	if _, _, err := service.ReportText(ctx, created.QuizID, "ghost"); !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Fatalf("expected unknown participant, got %v", err)
	}
}
