package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/app"
	"online-quiz/internal/domain"
)

const maxBodyBytes = 64 << 10

// Handler exposes the quiz use cases as a JSON API. Participant ids in the
// path act as capabilities; there is no other authentication.
type Handler struct {
	service *app.QuizService
	logger  logrus.FieldLogger
}

func NewHandler(service *app.QuizService, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(BodyLimit(maxBodyBytes))
		r.Post("/quizzes", h.createQuiz)
		r.Route("/quizzes/{quizID}", func(r chi.Router) {
			r.Get("/", h.results)
			r.Get("/report.csv", h.reportCSV)
			r.Post("/participants", h.join)
			r.Post("/answering", h.openAnswering)
			r.Post("/checking", h.openChecking)
			r.Route("/participants/{participantID}", func(r chi.Router) {
				r.Get("/", h.participant)
				r.Put("/answers/{question}", h.submitAnswer)
				r.Post("/start", h.startAnswering)
				r.Post("/finish", h.finishAnswering)
				r.Get("/checks", h.checkSheet)
				r.Post("/checks", h.recordChecks)
				r.Get("/report", h.reportText)
			})
		})
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// looseString accepts a JSON string or a bare number, as form values arrive both ways.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	*s = looseString(strings.TrimSpace(string(data)))
	return nil
}

type createQuizRequest struct {
	Name          string      `json:"name"`
	QuestionCount looseString `json:"questionCount"`
	HostName      string      `json:"hostName"`
}

type createQuizResponse struct {
	QuizID        string `json:"quizId"`
	ParticipantID string `json:"participantId"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	created, err := h.service.CreateQuiz(r.Context(), app.CreateQuizInput{
		Name:          req.Name,
		QuestionCount: string(req.QuestionCount),
		HostName:      req.HostName,
		HostOrigin:    clientOrigin(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createQuizResponse{QuizID: created.QuizID, ParticipantID: created.HostID})
}

type joinRequest struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

type joinResponse struct {
	ParticipantID string `json:"participantId"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.service.JoinQuiz(r.Context(), app.JoinInput{
		QuizID:        chi.URLParam(r, "quizID"),
		ParticipantID: req.ParticipantID,
		Name:          req.Name,
		Origin:        clientOrigin(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{ParticipantID: id})
}

type hostRequest struct {
	ParticipantID string `json:"participantId"`
}

func (h *Handler) openAnswering(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.service.OpenAnswering(r.Context(), chi.URLParam(r, "quizID"), req.ParticipantID, clientOrigin(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openChecking(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.service.OpenChecking(r.Context(), chi.URLParam(r, "quizID"), req.ParticipantID, clientOrigin(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Results(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultsView(res))
}

func (h *Handler) participant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quizID := chi.URLParam(r, "quizID")
	participantID := chi.URLParam(r, "participantID")

	res, err := h.service.Results(ctx, quizID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, ok := res.Quiz.Participant(participantID)
	if !ok {
		writeError(w, r, h.logger, domain.ErrUnknownParticipant)
		return
	}
	answers, err := h.service.Answers(ctx, quizID, participantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	isHost, err := h.service.IsHost(ctx, quizID, participantID, clientOrigin(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, participantView{
		ParticipantID: p.ID,
		Name:          p.Name,
		Status:        p.StatusLabel(),
		IsHost:        isHost,
		AnsweringOpen: res.Quiz.AnsweringOpen,
		Answers:       answers,
		CheckeeID:     res.Quiz.Checkees[p.ID],
	})
}

type answerRequest struct {
	Text string `json:"text"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	question, err := strconv.Atoi(chi.URLParam(r, "question"))
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: question must be a number", domain.ErrInvalidInput))
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	err = h.service.SubmitAnswer(r.Context(), app.AnswerInput{
		QuizID:        chi.URLParam(r, "quizID"),
		ParticipantID: chi.URLParam(r, "participantID"),
		Origin:        clientOrigin(r),
		Question:      question,
		Text:          req.Text,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) startAnswering(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.StartAnswering(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "participantID"), clientOrigin(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (h *Handler) finishAnswering(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.FinishAnswering(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "participantID"), clientOrigin(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (h *Handler) checkSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.CheckSheet(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "participantID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCheckSheetView(sheet))
}

type checksRequest struct {
	CheckerID string            `json:"checkerId"`
	Verdicts  map[string]string `json:"verdicts"`
}

func (h *Handler) recordChecks(w http.ResponseWriter, r *http.Request) {
	var req checksRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	verdicts := make(map[int]domain.Verdict, len(req.Verdicts))
	for key, v := range req.Verdicts {
		q, err := strconv.Atoi(key)
		if err != nil {
			writeError(w, r, h.logger, fmt.Errorf("%w: question %q", domain.ErrInvalidInput, key))
			return
		}
		verdicts[q] = domain.Verdict(v)
	}
	err := h.service.RecordChecks(r.Context(), app.CheckInput{
		QuizID:    chi.URLParam(r, "quizID"),
		CheckerID: req.CheckerID,
		CheckeeID: chi.URLParam(r, "participantID"),
		Origin:    clientOrigin(r),
		Verdicts:  verdicts,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reportText(w http.ResponseWriter, r *http.Request) {
	text, filename, err := h.service.ReportText(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "participantID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeAttachment(w, "text/plain; charset=utf-8", filename, text)
}

func (h *Handler) reportCSV(w http.ResponseWriter, r *http.Request) {
	text, filename, err := h.service.ReportCSV(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", filename, text)
}

func writeAttachment(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
