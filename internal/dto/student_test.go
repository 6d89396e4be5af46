package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCourses(t *testing.T) {
	assert.Nil(t, ParseCourses("  "))
	assert.Equal(t, []string{"Math", "Bio", ""}, ParseCourses(" Math , Bio,"))
}

func TestParseGrades(t *testing.T) {
	grades, err := ParseGrades("90, 85.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 85.5}, grades)

	grades, err = ParseGrades("")
	require.NoError(t, err)
	assert.Nil(t, grades)

	_, err = ParseGrades("90, A+")
	var parseErr *GradeParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "A+", parseErr.Value)
}

func TestStudentFormToCreate(t *testing.T) {
	req, err := StudentForm{RollNumber: " S1 ", Name: "Alice", Email: "a@x.test", Courses: "Math, Bio", Grades: "90,80"}.ToCreate()
	require.NoError(t, err)
	assert.Equal(t, CreateStudentRequest{RollNumber: "S1", Name: "Alice", Email: "a@x.test", Courses: []string{"Math", "Bio"}, Grades: []float64{90, 80}}, req)

	upd, err := StudentForm{Name: "Alice", Email: "a@x.test", Courses: "Math", Grades: "70"}.ToUpdate()
	require.NoError(t, err)
	assert.Equal(t, []float64{70}, upd.ToUpdate().Grades)
}
