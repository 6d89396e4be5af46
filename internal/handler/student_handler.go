package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/middleware"
	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/response"
)

type studentService interface {
	Create(ctx context.Context, req dto.CreateStudentRequest) (*models.StudentRecord, error)
	Get(ctx context.Context, rollNumber string) (*models.StudentRecord, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, *models.Pagination, error)
	Search(ctx context.Context, term string) []models.StudentRecord
	Update(ctx context.Context, rollNumber string, req dto.UpdateStudentRequest) (*models.StudentRecord, error)
	Delete(ctx context.Context, rollNumber string) (*models.StudentRecord, error)
	Import(ctx context.Context, req dto.ImportRequest) (*dto.ImportResult, error)
	Export(ctx context.Context) []models.StudentRecord
}

// StudentHandler exposes student CRUD endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Substring of name, email or roll number"
// @Param course query string false "Exact course name"
// @Param min_grade query number false "Minimum average grade"
// @Param max_grade query number false "Maximum average grade"
// @Param sort query string false "avg_grade orders by average, highest first"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var q dto.ListStudentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid query parameters"))
		return
	}
	students, pagination, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Every student in insertion order
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	records := h.service.Export(c.Request.Context())
	response.OK(c, records, map[string]interface{}{"count": len(records)})
}

// Search godoc
// @Summary Search students
// @Tags Students
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} response.Envelope
// @Router /students/search [get]
func (h *StudentHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "q is required"))
		return
	}
	results := h.service.Search(c.Request.Context(), term)
	response.OK(c, results, map[string]interface{}{"term": term, "count": len(results)})
}

// Get godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Param roll path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{roll} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), c.Param("roll"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Create a student
// @Tags Students
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	req, err := bindCreateStudent(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param roll path string true "Roll number"
// @Param payload body dto.UpdateStudentRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /students/{roll} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	req, err := bindUpdateStudent(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Update(c.Request.Context(), c.Param("roll"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete a student
// @Tags Students
// @Produce json
// @Param roll path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Router /students/{roll} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	removed, err := h.service.Delete(c.Request.Context(), c.Param("roll"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, removed)
}

// Import godoc
// @Summary Bulk import students
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.ImportRequest true "Students"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	result, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
