package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bimbelku/tryout-backend/internal/middleware"
	"github.com/bimbelku/tryout-backend/internal/model"
	"github.com/bimbelku/tryout-backend/internal/service"
	ws "github.com/bimbelku/tryout-backend/internal/websocket"
)

// clockInterval is how often the server pushes a clock event unprompted.
const clockInterval = 15 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the attempt clock and accepts low-latency answer saves
// over a WebSocket. Every write still goes through the same state machine as
// the REST endpoints; the socket only removes HTTP overhead.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket for answer saves and server-time clock pushes.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	userID := claims.UserID

	// Ownership and liveness check before any streaming starts.
	clock, err := h.attemptService.Clock(c.Request.Context(), userID, attemptID)
	if err != nil {
		conn.WriteError(domainCode(err), err.Error())
		return
	}
	conn.WriteTyped(ws.ClockResponse{Event: ws.EventClock, Clock: clock})

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	done := make(chan struct{})
	defer close(done)
	go h.pushClock(conn, userID, attemptID, done)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSave:
			h.handleSave(c.Request.Context(), conn, userID, attemptID, &msg)
		case ws.ActionDoubtful:
			h.handleDoubtful(c.Request.Context(), conn, userID, attemptID, &msg)
		case ws.ActionClock:
			h.handleClock(c.Request.Context(), conn, userID, attemptID)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("", "unknown action: "+string(msg.Action))
		}
	}
}

// pushClock sends the remaining time unprompted until the socket closes or
// the attempt stops being ongoing.
func (h *WSHandler) pushClock(conn *ws.Conn, userID, attemptID uuid.UUID, done <-chan struct{}) {
	ticker := time.NewTicker(clockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			clock, err := h.attemptService.Clock(context.Background(), userID, attemptID)
			if err != nil {
				conn.WriteError(domainCode(err), err.Error())
				return
			}
			if err := conn.WriteTyped(ws.ClockResponse{Event: ws.EventClock, Clock: clock}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleSave(ctx context.Context, conn *ws.Conn, userID, attemptID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("", "invalid question_id format")
		return
	}

	ans, err := h.attemptService.SaveAnswer(ctx, userID, attemptID, &model.SaveAnswerRequest{
		QuestionID:       questionID,
		SelectedChoiceID: msg.SelectedChoiceID,
		EssayAnswer:      msg.EssayAnswer,
	})
	if err != nil {
		conn.WriteError(domainCode(err), err.Error())
		return
	}

	conn.WriteTyped(ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: ans.QuestionID.String(),
		IsDoubtful: ans.IsDoubtful,
	})
}

func (h *WSHandler) handleDoubtful(ctx context.Context, conn *ws.Conn, userID, attemptID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("", "invalid question_id format")
		return
	}

	ans, err := h.attemptService.ToggleDoubtful(ctx, userID, attemptID, questionID)
	if err != nil {
		conn.WriteError(domainCode(err), err.Error())
		return
	}

	conn.WriteTyped(ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: ans.QuestionID.String(),
		IsDoubtful: ans.IsDoubtful,
	})
}

func (h *WSHandler) handleClock(ctx context.Context, conn *ws.Conn, userID, attemptID uuid.UUID) {
	clock, err := h.attemptService.Clock(ctx, userID, attemptID)
	if err != nil {
		conn.WriteError(domainCode(err), err.Error())
		return
	}
	conn.WriteTyped(ws.ClockResponse{Event: ws.EventClock, Clock: clock})
}

// domainCode extracts the state-machine code for socket error frames, empty
// for anything that isn't a state rejection.
func domainCode(err error) string {
	if se, ok := service.AsStateError(err); ok {
		return string(se.Reason)
	}
	return ""
}
