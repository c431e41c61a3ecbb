package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"online-quiz/internal/domain"
	"online-quiz/internal/ident"
	"online-quiz/internal/replay"
)

// EventLog abstracts the append-only storage of quiz records (file, Redis, SQL, memory).
type EventLog interface {
	// Append durably writes one event and returns it as stored.
	Append(ctx context.Context, ev domain.Event) (domain.Record, error)
	// Scan returns every record of the quiz in append order.
	Scan(ctx context.Context, quizID string) ([]domain.Record, error)
	// Exists reports whether anything was ever written for the quiz id.
	Exists(ctx context.Context, quizID string) (bool, error)
}

// QuizService contains the quiz use cases. It holds no quiz state: every
// operation re-reads the log and replays it.
type QuizService struct {
	events   EventLog
	ids      *ident.Generator
	validate *validator.Validate
	logger   logrus.FieldLogger

	rndMu sync.Mutex
	rnd   *rand.Rand
	// assignments coalesces concurrent open-checking calls for one quiz.
	assignments singleflight.Group
}

func NewQuizService(events EventLog, logger logrus.FieldLogger) *QuizService {
	return NewQuizServiceWithRand(events, logger, nil)
}

// NewQuizServiceWithRand is test-only for deterministic checker assignment.
func NewQuizServiceWithRand(events EventLog, logger logrus.FieldLogger, rnd *rand.Rand) *QuizService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QuizService{
		events:   events,
		ids:      ident.NewGenerator(),
		validate: newValidator(),
		logger:   logger,
		rnd:      rnd,
	}
}

// CreateQuizInput carries the untrusted form values for a new quiz.
type CreateQuizInput struct {
	Name          string `validate:"required,max=200"`
	QuestionCount string `validate:"required,number"`
	HostName      string `validate:"required,max=100"`
	HostOrigin    string
}

// QuizCreated identifies a new quiz and its host.
type QuizCreated struct {
	QuizID string
	HostID string
}

const maxQuestions = 1000

// CreateQuiz starts a quiz. The host joins immediately and is left waiting.
func (s *QuizService) CreateQuiz(ctx context.Context, in CreateQuizInput) (QuizCreated, error) {
	in.Name = strings.TrimSpace(domain.SingleLine(in.Name))
	in.HostName = strings.TrimSpace(domain.SingleLine(in.HostName))
	in.QuestionCount = strings.TrimSpace(in.QuestionCount)
	if err := s.check(in); err != nil {
		return QuizCreated{}, err
	}
	count, err := strconv.Atoi(in.QuestionCount)
	if err != nil || count <= 0 || count > maxQuestions {
		return QuizCreated{}, fmt.Errorf("%w: question count must be between 1 and %d", domain.ErrInvalidInput, maxQuestions)
	}

	quizID, err := s.ids.Next(ctx, s.events.Exists)
	if err != nil {
		return QuizCreated{}, fmt.Errorf("quiz id: %w", err)
	}
	hostID, err := s.ids.Next(ctx, func(_ context.Context, id string) (bool, error) {
		return id == quizID, nil
	})
	if err != nil {
		return QuizCreated{}, fmt.Errorf("host id: %w", err)
	}

	events := []domain.Event{
		domain.QuizStarted{QuizID: quizID, Name: in.Name, QuestionCount: count, HostID: hostID, HostOrigin: in.HostOrigin},
		domain.ParticipantJoined{QuizID: quizID, Origin: in.HostOrigin, ParticipantID: hostID, Name: in.HostName},
		domain.StatusChanged{QuizID: quizID, Origin: in.HostOrigin, ParticipantID: hostID, Status: domain.StatusWaiting},
	}
	if err := s.appendAll(ctx, events...); err != nil {
		return QuizCreated{}, err
	}
	s.logger.WithFields(logrus.Fields{"quiz_id": quizID, "questions": count}).Info("quiz created")
	return QuizCreated{QuizID: quizID, HostID: hostID}, nil
}

// JoinInput carries a join or rename request. An empty ParticipantID joins a
// new participant; a known one renames it when Name differs.
type JoinInput struct {
	QuizID        string
	ParticipantID string
	Name          string `validate:"max=100"`
	Origin        string
}

// JoinQuiz registers a participant and returns its id.
func (s *QuizService) JoinQuiz(ctx context.Context, in JoinInput) (string, error) {
	in.Name = strings.TrimSpace(domain.SingleLine(in.Name))
	if err := s.check(in); err != nil {
		return "", err
	}
	state, err := s.load(ctx, in.QuizID)
	if err != nil {
		return "", err
	}

	if in.ParticipantID != "" {
		p, ok := state.Participant(in.ParticipantID)
		if !ok {
			return "", fmt.Errorf("join %s: %w", in.ParticipantID, domain.ErrUnknownParticipant)
		}
		if in.Name != "" && in.Name != p.Name {
			if err := s.appendAll(ctx, domain.ParticipantJoined{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: p.ID, Name: in.Name}); err != nil {
				return "", err
			}
			s.logger.WithFields(logrus.Fields{"quiz_id": in.QuizID, "participant_id": p.ID}).Info("participant renamed")
		}
		return p.ID, nil
	}

	if in.Name == "" {
		return "", fmt.Errorf("%w: empty participant name", domain.ErrInvalidInput)
	}
	id, err := s.ids.Next(ctx, func(_ context.Context, id string) (bool, error) {
		_, taken := state.Participants[id]
		return taken || id == in.QuizID, nil
	})
	if err != nil {
		return "", fmt.Errorf("participant id: %w", err)
	}
	if err := s.appendAll(ctx,
		domain.ParticipantJoined{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: id, Name: in.Name},
		domain.StatusChanged{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: id, Status: domain.StatusWaiting},
	); err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"quiz_id": in.QuizID, "participant_id": id}).Info("participant joined")
	return id, nil
}

// AnswerInput is one answer submission.
type AnswerInput struct {
	QuizID        string
	ParticipantID string
	Origin        string
	Question      int
	Text          string `validate:"max=2000"`
}

// SubmitAnswer records an answer. Answers are accepted once the host has
// opened answering (the host may always answer) and only while the
// participant is waiting or started. A waiting participant is moved to
// started; unchanged answers are not written again.
func (s *QuizService) SubmitAnswer(ctx context.Context, in AnswerInput) error {
	in.Text = domain.SingleLine(in.Text)
	if err := s.check(in); err != nil {
		return err
	}
	state, p, err := s.loadParticipant(ctx, in.QuizID, in.ParticipantID)
	if err != nil {
		return err
	}
	if in.Question < 1 || in.Question > state.QuestionCount {
		return fmt.Errorf("%w: question %d outside 1..%d", domain.ErrInvalidInput, in.Question, state.QuestionCount)
	}
	switch p.Status {
	case domain.StatusWaiting, domain.StatusStarted, "":
	default:
		return fmt.Errorf("%w: answers are closed once %s", domain.ErrInvalidInput, p.Status)
	}
	if !state.AnsweringOpen && !isHost(state, p.ID, in.Origin) {
		return fmt.Errorf("%w: answering has not been opened", domain.ErrInvalidInput)
	}

	var events []domain.Event
	if p.Status == domain.StatusWaiting || p.Status == "" {
		events = append(events, domain.StatusChanged{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: p.ID, Status: domain.StatusStarted})
	}
	if current, ok := p.Answers[in.Question]; !ok || current != strings.TrimSpace(in.Text) {
		events = append(events, domain.AnswerSubmitted{QuizID: in.QuizID, Origin: in.Origin, ParticipantID: p.ID, Question: in.Question, Text: in.Text})
	}
	return s.appendAll(ctx, events...)
}

// StartAnswering moves a waiting participant to started once the host has
// opened answering (the host itself may always start). It returns the
// resulting status.
func (s *QuizService) StartAnswering(ctx context.Context, quizID, participantID, origin string) (domain.Status, error) {
	state, p, err := s.loadParticipant(ctx, quizID, participantID)
	if err != nil {
		return "", err
	}
	if p.Status != domain.StatusWaiting {
		return p.Status, nil
	}
	if !state.AnsweringOpen && !isHost(state, participantID, origin) {
		return p.Status, nil
	}
	if err := s.appendAll(ctx, domain.StatusChanged{QuizID: quizID, Origin: origin, ParticipantID: p.ID, Status: domain.StatusStarted}); err != nil {
		return "", err
	}
	return domain.StatusStarted, nil
}

// FinishAnswering moves a started participant to finished.
func (s *QuizService) FinishAnswering(ctx context.Context, quizID, participantID, origin string) (domain.Status, error) {
	_, p, err := s.loadParticipant(ctx, quizID, participantID)
	if err != nil {
		return "", err
	}
	if p.Status != domain.StatusStarted {
		return p.Status, nil
	}
	if err := s.appendAll(ctx, domain.StatusChanged{QuizID: quizID, Origin: origin, ParticipantID: p.ID, Status: domain.StatusFinished}); err != nil {
		return "", err
	}
	return domain.StatusFinished, nil
}

// OpenAnswering lets participants start answering. Only the host may open
// it; anyone else is silently ignored.
func (s *QuizService) OpenAnswering(ctx context.Context, quizID, participantID, origin string) error {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return err
	}
	if !isHost(state, participantID, origin) {
		return nil
	}
	host := state.Participants[participantID]
	if host == nil || host.Status != domain.StatusWaiting {
		return nil
	}
	s.logger.WithField("quiz_id", quizID).Info("answering opened")
	return s.appendAll(ctx, domain.StatusChanged{QuizID: quizID, Origin: origin, ParticipantID: participantID, Status: domain.StatusStarted})
}

func (s *QuizService) load(ctx context.Context, quizID string) (domain.QuizState, error) {
	if quizID == "" {
		return domain.QuizState{}, fmt.Errorf("quiz %q: %w", quizID, domain.ErrUnknownQuiz)
	}
	records, err := s.events.Scan(ctx, quizID)
	if err != nil {
		return domain.QuizState{}, fmt.Errorf("scan quiz %s: %w", quizID, err)
	}
	state, found := replay.Fold(quizID, records)
	if !found {
		return domain.QuizState{}, fmt.Errorf("quiz %s: %w", quizID, domain.ErrUnknownQuiz)
	}
	return state, nil
}

func (s *QuizService) loadParticipant(ctx context.Context, quizID, participantID string) (domain.QuizState, *domain.ParticipantState, error) {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return domain.QuizState{}, nil, err
	}
	p, ok := state.Participant(participantID)
	if !ok {
		return domain.QuizState{}, nil, fmt.Errorf("participant %q: %w", participantID, domain.ErrUnknownParticipant)
	}
	return state, p, nil
}

func (s *QuizService) appendAll(ctx context.Context, events ...domain.Event) error {
	for _, ev := range events {
		if _, err := s.events.Append(ctx, ev); err != nil {
			return fmt.Errorf("append %s: %w", ev.Kind(), err)
		}
	}
	return nil
}
