package app

import (
	"context"

	"online-quiz/internal/domain"
)

// IsHost reports whether participantID and origin both match the host
// recorded when the quiz was created.
func (s *QuizService) IsHost(ctx context.Context, quizID, participantID, origin string) (bool, error) {
	state, err := s.load(ctx, quizID)
	if err != nil {
		return false, err
	}
	return isHost(state, participantID, origin), nil
}

func isHost(state domain.QuizState, participantID, origin string) bool {
	return participantID != "" && participantID == state.HostID && origin == state.HostOrigin
}
