package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/middleware"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/response"
)

type queryService interface {
	Execute(ctx context.Context, text string) (*dto.QueryResponse, error)
	Validate(text string) dto.QueryValidation
	Samples() []string
}

// QueryHandler serves the read-only query language.
type QueryHandler struct {
	service queryService
}

// NewQueryHandler constructs a query handler.
func NewQueryHandler(svc queryService) *QueryHandler {
	return &QueryHandler{service: svc}
}

func bindQuery(c *gin.Context) (string, error) {
	var req dto.QueryRequest
	var err error
	if isForm(c) {
		err = c.ShouldBind(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		return "", invalidBody(err)
	}
	text := strings.TrimSpace(req.Query)
	if text == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "query is required")
	}
	return text, nil
}

// Execute godoc
// @Summary Run a SELECT query against the student records
// @Tags Query
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body dto.QueryRequest true "Query"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /query [post]
func (h *QueryHandler) Execute(c *gin.Context) {
	text, err := bindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Execute(c.Request.Context(), text)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.Cached)
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Validate godoc
// @Summary Check query syntax without executing it
// @Tags Query
// @Accept json
// @Produce json
// @Param payload body dto.QueryRequest true "Query"
// @Success 200 {object} response.Envelope
// @Router /query/validate [post]
func (h *QueryHandler) Validate(c *gin.Context) {
	text, err := bindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.service.Validate(text))
}

// Samples godoc
// @Summary List sample queries
// @Tags Query
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /query/samples [get]
func (h *QueryHandler) Samples(c *gin.Context) {
	response.OK(c, h.service.Samples())
}
