package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tranquocan24/online-exam-system/internal/middleware"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/service"
	ws "github.com/tranquocan24/online-exam-system/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty origins slice permits all origins (development mode).
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

// WSHandler streams autosave and submission traffic for an attempt over a
// single WebSocket, as an alternative to the polling HTTP endpoints.
type WSHandler struct {
	exams    *service.ExamService
	progress *service.ProgressService
	results  *service.ResultService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	exams *service.ExamService,
	progress *service.ProgressService,
	results *service.ResultService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		exams:    exams,
		progress: progress,
		results:  results,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/exam/:exam_id/stream
// Upgrades to WebSocket for real-time autosave and submission.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	// The exam must be live before the socket opens.
	if _, err := h.exams.GetForTaking(c.Request.Context(), examID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "exam is not available"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID.String()).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, claims, examID, &msg)
		case ws.ActionSubmit:
			submitted := h.handleSubmit(conn, wsLog, claims, examID, &msg)
			if submitted {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave stores a full progress snapshot.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, claims *service.Claims, examID uuid.UUID, msg *ws.RequestEnvelope) {
	ctx := context.Background()

	if msg.Answers == nil {
		ws.WriteError(conn, "answers are required")
		return
	}

	req := &model.SaveProgressRequest{
		ExamID:          examID,
		Answers:         msg.Answers,
		CurrentQuestion: msg.CurrentQuestion,
		TimeRemaining:   msg.TimeRemaining,
		Timestamp:       time.Now(),
	}
	if err := h.progress.Save(ctx, claims.UserID, req); err != nil {
		wsLog.Error().Err(err).Msg("Autosave failed")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleSubmit grades the attempt and reports the stored result. Returns
// true when a result exists and the stream should close.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, claims *service.Claims, examID uuid.UUID, msg *ws.RequestEnvelope) bool {
	ctx := context.Background()

	req := &model.SubmitRequest{
		ExamID:           examID,
		Answers:          msg.Answers,
		TimeSpentSeconds: msg.TimeSpent,
		SubmittedAt:      time.Now(),
		IsTimeUp:         msg.IsTimeUp,
	}
	if req.Answers == nil {
		req.Answers = model.AnswerMap{}
	}

	res, err := h.results.Submit(ctx, claims.UserID, claims.Name, req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotPublished) {
			ws.WriteError(conn, "exam is not available")
			return false
		}
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "submit failed")
		return false
	}

	view, err := h.results.GetView(ctx, res.ResultID, claims.UserID, claims.Role)
	score := 0
	if err == nil {
		score = view.Result.Score
	}

	wsLog.Info().
		Str("result_id", res.ResultID.String()).
		Int("score", score).
		Msg("Exam submitted over stream")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:    ws.EventGraded,
		Status:   "completed",
		ResultID: res.ResultID.String(),
		Score:    score,
	})
	return true
}
