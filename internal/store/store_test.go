package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

func newRecord(roll, name string, courses []string, grades []float64) models.StudentRecord {
	return models.StudentRecord{
		RollNumber: roll,
		Name:       name,
		Email:      fmt.Sprintf("%s@school.test", roll),
		Courses:    courses,
		Grades:     grades,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func seededStore(t *testing.T) *Store {
	s := New(NewHistory(10))
	require.NoError(t, s.Insert(newRecord("S1", "Alice Smith", []string{"Math", "Bio"}, []float64{95, 85})))
	require.NoError(t, s.Insert(newRecord("S2", "Bob Jones", []string{"Math"}, []float64{70})))
	require.NoError(t, s.Insert(newRecord("S3", "Carol White", []string{"Art"}, nil)))
	return s
}

func rolls(records []models.StudentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RollNumber
	}
	return out
}

func TestStoreInsertAndFind(t *testing.T) {
	s := seededStore(t)

	rec, err := s.FindByRoll("S2")
	require.NoError(t, err)
	assert.Equal(t, "Bob Jones", rec.Name)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.History().Len())

	_, err = s.FindByRoll("missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStoreInsertDuplicateLeavesStoreUnchanged(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()
	historyBefore := s.History().Len()

	err := s.Insert(newRecord("S1", "Impostor", nil, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateKey)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, historyBefore, s.History().Len())
}

func TestStoreInsertRequiresRollNumber(t *testing.T) {
	s := New(nil)
	err := s.Insert(models.StudentRecord{Name: "No Roll"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, s.History().Len())
}

func TestStoreInsertSetsCreatedAt(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Insert(models.StudentRecord{RollNumber: "S9", Name: "N", Email: "n@x"}))
	rec, err := s.FindByRoll("S9")
	require.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStoreUpdateKeepsImmutableFields(t *testing.T) {
	s := seededStore(t)
	original, _ := s.FindByRoll("S1")

	updated, err := s.Update("S1", models.StudentUpdate{Name: "Alice Brown", Email: "alice@new.test", Courses: []string{"Chem"}, Grades: []float64{60}})
	require.NoError(t, err)
	assert.Equal(t, "S1", updated.RollNumber)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)

	found, _ := s.FindByRoll("S1")
	assert.Equal(t, "Alice Brown", found.Name)
	assert.Equal(t, []string{"Chem"}, found.Courses)

	_, err = s.Update("missing", models.StudentUpdate{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, 4, s.History().Len())
}

func TestStoreDelete(t *testing.T) {
	s := seededStore(t)

	_, err := s.Delete("S2")
	require.NoError(t, err)
	_, err = s.FindByRoll("S2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, []string{"S1", "S3"}, rolls(s.Snapshot()))

	rec, err := s.FindByRoll("S3")
	require.NoError(t, err)
	assert.Equal(t, "Carol White", rec.Name)

	_, err = s.Delete("S2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, 4, s.History().Len())
}

func TestStoreSequenceReflectsLastMutation(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Insert(newRecord("A", "First", nil, nil)))
	_, err := s.Update("A", models.StudentUpdate{Name: "Second", Email: "a@x"})
	require.NoError(t, err)
	require.NoError(t, s.Insert(newRecord("B", "Other", nil, nil)))
	_, err = s.Update("A", models.StudentUpdate{Name: "Third", Email: "a@x"})
	require.NoError(t, err)

	rec, err := s.FindByRoll("A")
	require.NoError(t, err)
	assert.Equal(t, "Third", rec.Name)

	_, err = s.Delete("A")
	require.NoError(t, err)
	_, err = s.FindByRoll("A")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	rec, err = s.FindByRoll("B")
	require.NoError(t, err)
	assert.Equal(t, "Other", rec.Name)
}

func TestStoreSearchIsCaseInsensitive(t *testing.T) {
	s := seededStore(t)

	assert.Equal(t, []string{"S1"}, rolls(s.Search("ALICE")))
	assert.Equal(t, []string{"S1", "S2", "S3"}, rolls(s.Search("school.test")))
	assert.Equal(t, []string{"S3"}, rolls(s.Search("s3")))
	assert.Empty(t, s.Search("nobody"))
}

func TestStoreFilters(t *testing.T) {
	s := seededStore(t)

	assert.Equal(t, []string{"S1", "S2"}, rolls(s.FilterByCourse("Math")))
	assert.Empty(t, s.FilterByCourse("math"))

	assert.Equal(t, []string{"S1"}, rolls(s.FilterByGradeRange(90, 90)))
	assert.Equal(t, []string{"S1", "S2"}, rolls(s.FilterByGradeRange(70, 100)))
	assert.Empty(t, s.FilterByGradeRange(0, 10))
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := seededStore(t)
	snap := s.Snapshot()

	_, err := s.Update("S1", models.StudentUpdate{Name: "Changed", Email: "c@x", Courses: []string{"X"}, Grades: []float64{1}})
	require.NoError(t, err)
	_, err = s.Delete("S2")
	require.NoError(t, err)

	assert.Len(t, snap, 3)
	assert.Equal(t, "Alice Smith", snap[0].Name)
	assert.Equal(t, []string{"Math", "Bio"}, snap[0].Courses)

	snap[0].Courses[0] = "Tampered"
	rec, _ := s.FindByRoll("S1")
	assert.Equal(t, []string{"X"}, rec.Courses)
}

func TestStoreFindReturnsCopy(t *testing.T) {
	s := seededStore(t)
	rec, _ := s.FindByRoll("S1")
	rec.Grades[0] = 0

	again, _ := s.FindByRoll("S1")
	assert.Equal(t, 95.0, again.Grades[0])
}

func TestStoreImportSkipsDuplicates(t *testing.T) {
	s := seededStore(t)
	imported := s.Import([]models.StudentRecord{
		newRecord("S1", "Dup", nil, nil),
		newRecord("S4", "Dan", nil, nil),
	})
	assert.Equal(t, 1, imported)
	assert.Equal(t, 4, s.Len())
}

func TestStoreLoadDoesNotLog(t *testing.T) {
	s := New(nil)
	err := s.Load([]models.StudentRecord{newRecord("A", "a", nil, nil), newRecord("B", "b", nil, nil)})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.History().Len())

	err = s.Load([]models.StudentRecord{newRecord("A", "a", nil, nil), newRecord("A", "b", nil, nil)})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateKey)
	assert.Equal(t, 2, s.Len())
}

func TestStoreVersionAdvancesOnMutation(t *testing.T) {
	s := New(nil)
	v0 := s.Version()
	require.NoError(t, s.Insert(newRecord("A", "a", nil, nil)))
	v1 := s.Version()
	assert.Greater(t, v1, v0)

	_ = s.Insert(newRecord("A", "a", nil, nil))
	assert.Equal(t, v1, s.Version())

	_, err := s.UndoLast()
	require.NoError(t, err)
	assert.Greater(t, s.Version(), v1)
}
