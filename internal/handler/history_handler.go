package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/response"
)

type historyService interface {
	History(ctx context.Context, limit int) dto.HistoryResponse
	Undo(ctx context.Context) (*models.UndoResult, error)
}

// HistoryHandler lists recent mutations and reverts the latest one.
type HistoryHandler struct {
	service historyService
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(svc historyService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// List godoc
// @Summary Recent operations, newest first
// @Tags History
// @Produce json
// @Param limit query int false "Maximum entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		response.Error(c, err)
		return
	}
	if limit < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must not be negative"))
		return
	}
	response.OK(c, h.service.History(c.Request.Context(), limit))
}

// Undo godoc
// @Summary Revert the most recent operation
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /history/undo [post]
func (h *HistoryHandler) Undo(c *gin.Context) {
	result, err := h.service.Undo(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
