package domain

import (
	"strings"
	"time"
)

// Kind identifies the type of a quiz log record. Values are the on-disk vocabulary.
type Kind string

const (
	KindQuizStarted       Kind = "START_QUIZ"
	KindQuizEnded         Kind = "END_QUIZ"
	KindParticipantJoined Kind = "PARTICIPANT"
	KindAnswerSubmitted   Kind = "ANSWER"
	KindStatusChanged     Kind = "STATUS"
	KindCheckRecorded     Kind = "CHECK"
	KindCheckerAssigned   Kind = "CHECKER"
)

// Status is a participant's position in the quiz workflow.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusChecking Status = "checking"
	StatusApproved Status = "approved"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusStarted, StatusFinished, StatusChecking, StatusApproved:
		return true
	}
	return false
}

// Verdict is a checker's judgment on one answer.
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictWrong   Verdict = "wrong"
	// VerdictNone in a CHECK record clears the earlier verdict.
	VerdictNone Verdict = ""
)

func (v Verdict) Valid() bool {
	return v == VerdictCorrect || v == VerdictWrong
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SingleLine replaces line breaks in s with spaces. Log rows and report lines
// hold one record each, so free text never spans lines.
func SingleLine(s string) string {
	return lineBreaks.Replace(s)
}

// Event is one immutable fact in a quiz log. Implementations are the concrete
// event structs below; the set is closed.
type Event interface {
	Kind() Kind
	Quiz() string
	// Subject is the participant a shard-aware store files the event under,
	// or "" for events that belong in the shared quiz log.
	Subject() string
}

// Record is an event as stored: stamped with the append time and a per-quiz
// sequence number.
type Record struct {
	Time  time.Time
	Seq   int64
	Event Event
}

type QuizStarted struct {
	QuizID        string
	Name          string
	QuestionCount int
	HostID        string
	HostOrigin    string
}

func (e QuizStarted) Kind() Kind      { return KindQuizStarted }
func (e QuizStarted) Quiz() string    { return e.QuizID }
func (e QuizStarted) Subject() string { return "" }

// QuizEnded is reserved; replay does not consume it.
type QuizEnded struct {
	QuizID string
}

func (e QuizEnded) Kind() Kind      { return KindQuizEnded }
func (e QuizEnded) Quiz() string    { return e.QuizID }
func (e QuizEnded) Subject() string { return "" }

type ParticipantJoined struct {
	QuizID        string
	Origin        string
	ParticipantID string
	Name          string
}

func (e ParticipantJoined) Kind() Kind      { return KindParticipantJoined }
func (e ParticipantJoined) Quiz() string    { return e.QuizID }
func (e ParticipantJoined) Subject() string { return "" }

type AnswerSubmitted struct {
	QuizID        string
	Origin        string
	ParticipantID string
	Question      int
	Text          string
}

func (e AnswerSubmitted) Kind() Kind      { return KindAnswerSubmitted }
func (e AnswerSubmitted) Quiz() string    { return e.QuizID }
func (e AnswerSubmitted) Subject() string { return e.ParticipantID }

type StatusChanged struct {
	QuizID        string
	Origin        string
	ParticipantID string
	Status        Status
}

func (e StatusChanged) Kind() Kind      { return KindStatusChanged }
func (e StatusChanged) Quiz() string    { return e.QuizID }
func (e StatusChanged) Subject() string { return e.ParticipantID }

type CheckRecorded struct {
	QuizID    string
	CheckeeID string
	CheckerID string
	Question  int
	Verdict   Verdict
}

func (e CheckRecorded) Kind() Kind      { return KindCheckRecorded }
func (e CheckRecorded) Quiz() string    { return e.QuizID }
func (e CheckRecorded) Subject() string { return "" }

type CheckerAssigned struct {
	QuizID    string
	CheckerID string
	CheckeeID string
}

func (e CheckerAssigned) Kind() Kind      { return KindCheckerAssigned }
func (e CheckerAssigned) Quiz() string    { return e.QuizID }
func (e CheckerAssigned) Subject() string { return "" }
