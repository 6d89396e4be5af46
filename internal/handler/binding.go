package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/student-records/internal/dto"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == binding.MIMEPOSTForm || ct == binding.MIMEMultipartPOSTForm
}

func invalidBody(err error) error {
	return appErrors.WrapAs(appErrors.ErrValidation, err, "invalid request body")
}

func formError(err error) error {
	var gradeErr *dto.GradeParseError
	if errors.As(err, &gradeErr) {
		return appErrors.WrapAs(appErrors.ErrValidation, err, "grades must be valid numbers")
	}
	return invalidBody(err)
}

func bindCreateStudent(c *gin.Context) (dto.CreateStudentRequest, error) {
	if isForm(c) {
		var form dto.StudentForm
		if err := c.ShouldBind(&form); err != nil {
			return dto.CreateStudentRequest{}, invalidBody(err)
		}
		req, err := form.ToCreate()
		if err != nil {
			return dto.CreateStudentRequest{}, formError(err)
		}
		return req, nil
	}
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, invalidBody(err)
	}
	return req, nil
}

func bindUpdateStudent(c *gin.Context) (dto.UpdateStudentRequest, error) {
	if isForm(c) {
		var form dto.StudentForm
		if err := c.ShouldBind(&form); err != nil {
			return dto.UpdateStudentRequest{}, invalidBody(err)
		}
		req, err := form.ToUpdate()
		if err != nil {
			return dto.UpdateStudentRequest{}, formError(err)
		}
		return req, nil
	}
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, invalidBody(err)
	}
	return req, nil
}

// intQuery reads an optional integer query parameter.
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return v, nil
}
