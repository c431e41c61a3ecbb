package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"online-quiz/internal/domain"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// writeError maps domain errors onto HTTP problems. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		WriteProblem(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, domain.ErrUnknownQuiz):
		WriteProblem(w, http.StatusNotFound, "unknown quiz", "no quiz with this id")
	case errors.Is(err, domain.ErrUnknownParticipant):
		WriteProblem(w, http.StatusNotFound, "unknown participant", "no participant with this id in the quiz")
	default:
		logger.WithFields(logrus.Fields{
			"request_id": RequestIDFrom(r.Context()),
			"path":       r.URL.Path,
			"error":      err,
		}).Error("request failed")
		WriteProblem(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// publicMessage is the client-facing text for err; internal failures are not described.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownQuiz),
		errors.Is(err, domain.ErrUnknownParticipant):
		return err.Error()
	}
	return "internal error"
}
