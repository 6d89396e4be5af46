package models

import (
	"math"
	"time"
)

// StudentRecord is the unit of storage: a student with positionally aligned courses and grades.
type StudentRecord struct {
	RollNumber string    `db:"roll_no" json:"roll_no"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Courses    []string  `db:"courses" json:"courses"`
	Grades     []float64 `db:"grades" json:"grades"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentUpdate carries the mutable fields of a record. RollNumber and CreatedAt never change.
type StudentUpdate struct {
	Name    string
	Email   string
	Courses []string
	Grades  []float64
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (r StudentRecord) Clone() StudentRecord {
	clone := r
	if r.Courses != nil {
		clone.Courses = append(make([]string, 0, len(r.Courses)), r.Courses...)
	}
	if r.Grades != nil {
		clone.Grades = append(make([]float64, 0, len(r.Grades)), r.Grades...)
	}
	return clone
}

// AverageGrade returns the mean of the record's grades, 0 when there are none.
func (r StudentRecord) AverageGrade() float64 {
	if len(r.Grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range r.Grades {
		sum += g
	}
	return sum / float64(len(r.Grades))
}

// CourseCount returns the number of enrolled courses.
func (r StudentRecord) CourseCount() int {
	return len(r.Courses)
}

// Apply returns a copy of r with the update's mutable fields.
func (r StudentRecord) Apply(u StudentUpdate) StudentRecord {
	next := r.Clone()
	next.Name = u.Name
	next.Email = u.Email
	next.Courses = append([]string(nil), u.Courses...)
	next.Grades = append([]float64(nil), u.Grades...)
	return next
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(records []StudentRecord) []StudentRecord {
	out := make([]StudentRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// StudentFilter encapsulates allowed parameters for listing students.
type StudentFilter struct {
	Search   string
	Course   string
	MinGrade *float64
	MaxGrade *float64
	Sort     string
	Page     int
	PageSize int
}
