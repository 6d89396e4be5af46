package dto

import (
	"strconv"
	"strings"

	"github.com/noah-isme/student-records/internal/models"
)

// CreateStudentRequest is the JSON payload for adding a student.
type CreateStudentRequest struct {
	RollNumber string    `json:"roll_no" validate:"required,max=64"`
	Name       string    `json:"name" validate:"required,max=255"`
	Email      string    `json:"email" validate:"required,email"`
	Courses    []string  `json:"courses" validate:"dive,required"`
	Grades     []float64 `json:"grades"`
}

// UpdateStudentRequest replaces the mutable fields of a student.
type UpdateStudentRequest struct {
	Name    string    `json:"name" validate:"required,max=255"`
	Email   string    `json:"email" validate:"required,email"`
	Courses []string  `json:"courses" validate:"dive,required"`
	Grades  []float64 `json:"grades"`
}

// ToUpdate converts the request into a store update.
func (r UpdateStudentRequest) ToUpdate() models.StudentUpdate {
	return models.StudentUpdate{Name: r.Name, Email: r.Email, Courses: r.Courses, Grades: r.Grades}
}

// StudentForm is the HTML form shape: courses and grades arrive comma separated.
type StudentForm struct {
	RollNumber string `form:"roll_no"`
	Name       string `form:"name"`
	Email      string `form:"email"`
	Courses    string `form:"courses"`
	Grades     string `form:"grades"`
}

// ToCreate parses the form into a create request.
func (f StudentForm) ToCreate() (CreateStudentRequest, error) {
	grades, err := ParseGrades(f.Grades)
	if err != nil {
		return CreateStudentRequest{}, err
	}
	return CreateStudentRequest{
		RollNumber: strings.TrimSpace(f.RollNumber),
		Name:       strings.TrimSpace(f.Name),
		Email:      strings.TrimSpace(f.Email),
		Courses:    ParseCourses(f.Courses),
		Grades:     grades,
	}, nil
}

// ToUpdate parses the form into an update request. RollNumber is ignored.
func (f StudentForm) ToUpdate() (UpdateStudentRequest, error) {
	req, err := f.ToCreate()
	if err != nil {
		return UpdateStudentRequest{}, err
	}
	return UpdateStudentRequest{Name: req.Name, Email: req.Email, Courses: req.Courses, Grades: req.Grades}, nil
}

// ParseCourses splits a comma separated list, trimming blanks. An empty input yields nil.
func ParseCourses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// GradeParseError reports the first grade that is not a number.
type GradeParseError struct {
	Value string
}

func (e *GradeParseError) Error() string {
	return "grade " + strconv.Quote(e.Value) + " is not a valid number"
}

// ParseGrades splits a comma separated list of numbers.
func ParseGrades(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, &GradeParseError{Value: strings.TrimSpace(p)}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListStudentsQuery carries list filters from the query string.
type ListStudentsQuery struct {
	Search   string   `form:"search"`
	Course   string   `form:"course"`
	MinGrade *float64 `form:"min_grade"`
	MaxGrade *float64 `form:"max_grade"`
	Sort     string   `form:"sort"`
	Page     int      `form:"page"`
	PageSize int      `form:"page_size"`
}

// ToFilter converts the query into a store filter.
func (q ListStudentsQuery) ToFilter() models.StudentFilter {
	return models.StudentFilter{
		Search:   strings.TrimSpace(q.Search),
		Course:   strings.TrimSpace(q.Course),
		MinGrade: q.MinGrade,
		MaxGrade: q.MaxGrade,
		Sort:     strings.ToLower(strings.TrimSpace(q.Sort)),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}

// ImportRequest is a bulk load of students.
type ImportRequest struct {
	Students []CreateStudentRequest `json:"students" validate:"required"`
}

// ImportResult summarises an import.
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
