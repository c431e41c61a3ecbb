package postgres

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"online-quiz/internal/app"
	"online-quiz/internal/domain"
)

func TestEventLogEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if err := Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run finds nothing to do.
	if err := Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	events := NewEventLog(pool, logger)
	service := app.NewQuizService(events, logger)

	created, err := service.CreateQuiz(ctx, app.CreateQuizInput{Name: "Integration", QuestionCount: "3", HostName: "Host", HostOrigin: "127.0.0.1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := events.Exists(ctx, created.QuizID); err != nil || !ok {
		t.Fatalf("expected quiz to exist: %v", err)
	}

	ann, err := service.JoinQuiz(ctx, app.JoinInput{QuizID: created.QuizID, Name: "Ann", Origin: "127.0.0.2"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.OpenAnswering(ctx, created.QuizID, created.HostID, "127.0.0.1"); err != nil {
		t.Fatalf("open answering: %v", err)
	}
	for _, text := range []string{"first", "second, with comma"} {
		if err := service.SubmitAnswer(ctx, app.AnswerInput{QuizID: created.QuizID, ParticipantID: ann, Question: 2, Text: text}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	answers, err := service.Answers(ctx, created.QuizID, ann)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if answers[2] != "second, with comma" {
		t.Fatalf("expected last answer to win, got %q", answers[2])
	}

	recs, err := events.Scan(ctx, created.QuizID)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Seq <= recs[i-1].Seq {
			t.Fatalf("records out of order: %d after %d", recs[i].Seq, recs[i-1].Seq)
		}
	}
	if recs[0].Event.Kind() != domain.KindQuizStarted {
		t.Fatalf("expected START_QUIZ first, got %s", recs[0].Event.Kind())
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
