package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/core"
	"github.com/vovakirdan/wirechat-irc/internal/store"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
)

// AdminHandlers serves read-only views of the running server.
type AdminHandlers struct {
	engine *core.Engine
	store  store.SessionStore
	log    *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(engine *core.Engine, st store.SessionStore, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		engine: engine,
		store:  st,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse represents one audit record in API responses.
type SessionResponse struct {
	ID             string `json:"id"`
	Remote         string `json:"remote"`
	Transport      string `json:"transport"`
	Nickname       string `json:"nickname,omitempty"`
	QuitReason     string `json:"quit_reason,omitempty"`
	ConnectedAt    string `json:"connected_at"`
	DisconnectedAt string `json:"disconnected_at,omitempty"`
}

// Health reports liveness.
// GET /health
func (h *AdminHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Stats returns the user count and the channel list, as LIST sees it.
// GET /stats
func (h *AdminHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

// Sessions lists recent connection records.
// GET /sessions?limit=N
func (h *AdminHandlers) Sessions(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session audit disabled"})
		return
	}

	limit := defaultSessionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := h.store.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, sessionsToResponse(sessions))
}
