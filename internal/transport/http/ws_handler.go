package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/app"
)

// WSHandler is the live answer channel: clients push answers and pull the
// ranked results over one websocket.
type WSHandler struct {
	service  *app.QuizService
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Question int    `json:"question"`
	Text     string `json:"text"`
}

type joinedPayload struct {
	ParticipantID string         `json:"participantId"`
	Answers       map[int]string `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and serves "answer" and "results" messages
// for one participant until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	participantID := r.URL.Query().Get("participantId")
	if quizID == "" || participantID == "" {
		WriteProblem(w, http.StatusBadRequest, "invalid input", "missing quizId or participantId")
		return
	}
	origin := clientOrigin(r)
	log := h.logger.WithFields(logrus.Fields{"quiz_id": quizID, "request_id": RequestIDFrom(r.Context())})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	answers, err := h.service.Answers(r.Context(), quizID, participantID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: publicMessage(err)}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer. After a
	// failed write the loop keeps draining so the reader never blocks on send.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				failed = true
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{ParticipantID: participantID, Answers: answers}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			err := h.service.SubmitAnswer(r.Context(), app.AnswerInput{
				QuizID:        quizID,
				ParticipantID: participantID,
				Origin:        origin,
				Question:      payload.Question,
				Text:          payload.Text,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: publicMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerSaved", Payload: payload}
		case "results":
			res, err := h.service.Results(r.Context(), quizID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: publicMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "results", Payload: newResultsView(res)}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}
