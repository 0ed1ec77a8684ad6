package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/adapters/signal"
	"github.com/dkeye/DarkRoom/internal/app/orch"
	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
)

type handlers struct {
	orch *orch.Orchestrator
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
}

type AliasRequest struct {
	Alias string `json:"alias"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

func statusOf(code domain.Code) int {
	switch code {
	case domain.CodeRoomNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidID, domain.CodeInvalidName, domain.CodeInvalidAlias, domain.CodeBadPayload,
		domain.CodeEmptyMessage, domain.CodeMessageTooLong:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusForbidden
	case domain.CodeRoomNotActive, domain.CodeNotPresent:
		return http.StatusConflict
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, op string, err error) {
	code := domain.CodeOf(err)
	metrics.RejectedOps.WithLabelValues(op, string(code)).Inc()
	if code == domain.CodeInternal {
		log.Error().Err(err).Str("module", "adapters.http").Str("op", op).Msg("request failed")
	}
	c.AbortWithStatusJSON(statusOf(code), ErrorResponse{Code: code, Message: err.Error()})
}

func badPayload(c *gin.Context, op string, err error) {
	metrics.RejectedOps.WithLabelValues(op, string(domain.CodeBadPayload)).Inc()
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: domain.CodeBadPayload, Message: err.Error()})
}

func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.orch.Ping(ctx); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("store unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": len(h.orch.Rooms.List())})
}

// GET /api/rooms
func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

// GET /api/rooms/:id. The id shape is checked before any lookup.
func (h *handlers) getRoom(c *gin.Context) {
	id := c.Param("id")
	if !domain.ValidRoomID(id) {
		fail(c, "get-room", domain.ErrInvalidID)
		return
	}
	room, err := h.orch.Rooms.Get(domain.RoomID(id))
	if err != nil {
		fail(c, "get-room", err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// POST /api/rooms
func (h *handlers) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "create-room", err)
		return
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = signal.SessionAlias(c)
	}
	room, err := h.orch.CreateRoom(c.Request.Context(), req.Name, req.Description, createdBy)
	if err != nil {
		fail(c, "create-room", err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// GET /api/alias
func (h *handlers) getAlias(c *gin.Context) {
	c.JSON(http.StatusOK, AliasRequest{Alias: signal.SessionAlias(c)})
}

// PUT /api/alias
func (h *handlers) putAlias(c *gin.Context) {
	var req AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "set-alias", err)
		return
	}
	alias, err := domain.NewAlias(req.Alias)
	if err != nil {
		fail(c, "set-alias", err)
		return
	}
	s := sessions.Default(c)
	s.Set(signal.AliasSessionKey, string(alias))
	if err := s.Save(); err != nil {
		fail(c, "set-alias", fmt.Errorf("save session: %w", err))
		return
	}
	c.JSON(http.StatusOK, AliasRequest{Alias: string(alias)})
}
