package models

import "time"

// RankedStudent pairs a record with its average grade.
type RankedStudent struct {
	StudentRecord
	AvgGrade float64 `json:"avg_grade"`
}

// CourseStat aggregates enrolment and grades for one course.
type CourseStat struct {
	Course        string    `json:"course"`
	TotalStudents int       `json:"total_students"`
	AvgGrade      float64   `json:"avg_grade"`
	Students      []string  `json:"students"`
	Grades        []float64 `json:"grades"`
}

// CourseGroup lists the members of one course, in first-seen order.
type CourseGroup struct {
	Course   string          `json:"course"`
	Students []StudentRecord `json:"students"`
}

// GradeDistribution counts grades per letter band.
type GradeDistribution struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
	F int `json:"F"`
}

// CourseCount is a course popularity entry.
type CourseCount struct {
	Course string `json:"course"`
	Count  int    `json:"count"`
}

// StatisticsSummary is the combined describe() output.
type StatisticsSummary struct {
	TotalStudents      int           `json:"total_students"`
	TotalGrades        int           `json:"total_grades"`
	AverageGrade       float64       `json:"average_grade"`
	MedianGrade        float64       `json:"median_grade"`
	MinGrade           float64       `json:"min_grade"`
	MaxGrade           float64       `json:"max_grade"`
	MostPopularCourse  string        `json:"most_popular_course,omitempty"`
	CourseDistribution []CourseCount `json:"course_distribution"`
}

// StudentReport is the payload of the reports page.
type StudentReport struct {
	Summary           StatisticsSummary `json:"summary"`
	AverageGrade      float64           `json:"average_grade"`
	TotalCourses      int               `json:"total_courses"`
	TopPerformers     []RankedStudent   `json:"top_performers"`
	LowPerformers     []RankedStudent   `json:"low_performers"`
	CourseStatistics  []CourseStat      `json:"course_statistics"`
	CourseGroups      []CourseGroup     `json:"course_groups"`
	GradeDistribution GradeDistribution `json:"grade_distribution"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// SystemMetrics is a lightweight snapshot of runtime counters.
type SystemMetrics struct {
	CacheHitRatio          float64   `json:"cache_hit_ratio"`
	CacheHits              uint64    `json:"cache_hits"`
	CacheMisses            uint64    `json:"cache_misses"`
	RequestsTotal          uint64    `json:"requests_total"`
	QueriesTotal           uint64    `json:"queries_total"`
	QueryErrors            uint64    `json:"query_errors"`
	AverageQueryDurationMs float64   `json:"average_query_duration_ms"`
	Goroutines             int       `json:"goroutines"`
	GeneratedAt            time.Time `json:"generated_at"`
}
