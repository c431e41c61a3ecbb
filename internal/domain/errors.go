package domain

import "errors"

var (
	// ErrInvalidInput is returned when caller-supplied data is rejected (empty name, bad question number, ...).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownQuiz indicates no START_QUIZ record exists for the quiz id.
	ErrUnknownQuiz = errors.New("unknown quiz")
	// ErrUnknownParticipant indicates the participant never joined the quiz.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrIdentifierExhausted is returned when every identifier draw collided.
	ErrIdentifierExhausted = errors.New("identifier space exhausted")
	// ErrMalformedRecord marks a log row that cannot be decoded. Scans skip such rows.
	ErrMalformedRecord = errors.New("malformed record")
)
