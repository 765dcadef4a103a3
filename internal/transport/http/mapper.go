package http

import (
	"time"

	"github.com/vovakirdan/wirechat-irc/internal/store"
)

func sessionToResponse(s *store.Session) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		Remote:      s.Remote,
		Transport:   s.Transport,
		Nickname:    s.Nickname,
		QuitReason:  s.QuitReason,
		ConnectedAt: s.ConnectedAt.UTC().Format(time.RFC3339),
	}
	if s.DisconnectedAt != nil {
		resp.DisconnectedAt = s.DisconnectedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func sessionsToResponse(sessions []*store.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionToResponse(s))
	}
	return out
}
