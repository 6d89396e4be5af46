package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records/internal/models"
)

func sample() []models.StudentRecord {
	return []models.StudentRecord{
		{RollNumber: "S1", Name: "Alice", Courses: []string{"Math", "Bio"}, Grades: []float64{95, 85}},
		{RollNumber: "S2", Name: "Bob", Courses: []string{"Math"}, Grades: []float64{70}},
		{RollNumber: "S3", Name: "Carol", Courses: []string{"Bio", "Art"}, Grades: []float64{95, 85}},
		{RollNumber: "S4", Name: "Dan", Courses: nil, Grades: nil},
	}
}

func TestAverageGrade(t *testing.T) {
	assert.Equal(t, 86.0, AverageGrade(sample()))
	assert.Equal(t, 0.0, AverageGrade(nil))
	assert.Equal(t, 0.0, AverageGrade([]models.StudentRecord{{RollNumber: "x"}}))
}

func TestTopPerformersStableDescending(t *testing.T) {
	top := TopPerformers(sample(), 10)
	require.Len(t, top, 3)
	// S1 and S3 tie at 90; snapshot order decides.
	assert.Equal(t, "S1", top[0].RollNumber)
	assert.Equal(t, "S3", top[1].RollNumber)
	assert.Equal(t, "S2", top[2].RollNumber)
	assert.Equal(t, 90.0, top[0].AvgGrade)

	assert.Len(t, TopPerformers(sample(), 1), 1)
	assert.Empty(t, TopPerformers(sample(), 0))
}

func TestLowPerformers(t *testing.T) {
	records := append(sample(), models.StudentRecord{RollNumber: "S5", Courses: []string{"Art"}, Grades: []float64{55}})
	low := LowPerformers(records, 70, 10)
	require.Len(t, low, 1)
	assert.Equal(t, "S5", low[0].RollNumber)
	assert.Equal(t, 55.0, low[0].AvgGrade)

	low = LowPerformers(records, 80, 10)
	require.Len(t, low, 2)
	assert.Equal(t, "S5", low[0].RollNumber)
	assert.Equal(t, "S2", low[1].RollNumber)
	assert.Len(t, LowPerformers(records, 80, 1), 1)
}

func TestSortByAverage(t *testing.T) {
	sorted := SortByAverage(sample())
	got := make([]string, len(sorted))
	for i, r := range sorted {
		got[i] = r.RollNumber
	}
	assert.Equal(t, []string{"S1", "S3", "S2", "S4"}, got)
}

func TestCourseStatistics(t *testing.T) {
	courseStats := CourseStatistics(sample())
	require.Len(t, courseStats, 3)

	assert.Equal(t, "Math", courseStats[0].Course)
	assert.Equal(t, 2, courseStats[0].TotalStudents)
	assert.Equal(t, 82.5, courseStats[0].AvgGrade)
	assert.Equal(t, []string{"Alice", "Bob"}, courseStats[0].Students)

	assert.Equal(t, "Bio", courseStats[1].Course)
	assert.Equal(t, 90.0, courseStats[1].AvgGrade)
	assert.Equal(t, "Art", courseStats[2].Course)
	assert.Equal(t, 1, courseStats[2].TotalStudents)
}

func TestGroupByCourse(t *testing.T) {
	groups := GroupByCourse(sample())
	require.Len(t, groups, 3)
	assert.Equal(t, "Bio", groups[1].Course)
	assert.Len(t, groups[1].Students, 2)
}

func TestGradeDistributionBoundaries(t *testing.T) {
	grades := []float64{90, 89.999, 80, 79.999, 70, 69.999, 60, 59.999}
	want := []string{"A", "B", "B", "C", "C", "D", "D", "F"}
	for i, g := range grades {
		assert.Equal(t, want[i], LetterGrade(g), "grade %v", g)
	}

	dist := GradeDistribution([]models.StudentRecord{{Grades: grades}})
	assert.Equal(t, models.GradeDistribution{A: 1, B: 2, C: 2, D: 2, F: 1}, dist)
}

func TestDescribe(t *testing.T) {
	summary := Describe(sample())
	assert.Equal(t, 4, summary.TotalStudents)
	assert.Equal(t, 5, summary.TotalGrades)
	assert.Equal(t, 86.0, summary.AverageGrade)
	assert.Equal(t, 85.0, summary.MedianGrade)
	assert.Equal(t, 70.0, summary.MinGrade)
	assert.Equal(t, 95.0, summary.MaxGrade)
	// Math and Bio both have two enrolments; Math is seen first.
	assert.Equal(t, "Math", summary.MostPopularCourse)
}

func TestDescribeEvenMedian(t *testing.T) {
	summary := Describe([]models.StudentRecord{{Courses: []string{"A", "B", "C", "D"}, Grades: []float64{40, 10, 30, 20}}})
	assert.Equal(t, 25.0, summary.MedianGrade)
	assert.Equal(t, 10.0, summary.MinGrade)
}

func TestDescribeEmpty(t *testing.T) {
	summary := Describe(nil)
	assert.Equal(t, 0, summary.TotalStudents)
	assert.Equal(t, "", summary.MostPopularCourse)
	assert.Equal(t, 0.0, summary.AverageGrade)
}
