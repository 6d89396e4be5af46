package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

func TestUndoInsertRestoresCount(t *testing.T) {
	s := seededStore(t)
	require.NoError(t, s.Insert(newRecord("S4", "Dan", nil, nil)))

	entry, err := s.UndoLast()
	require.NoError(t, err)
	assert.Equal(t, models.OperationAdd, entry.Action)
	assert.Equal(t, 3, s.Len())
	_, err = s.FindByRoll("S4")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUndoDeleteRestoresRecordInPlace(t *testing.T) {
	s := seededStore(t)
	before, _ := s.FindByRoll("S2")

	_, err := s.Delete("S2")
	require.NoError(t, err)

	entry, err := s.UndoLast()
	require.NoError(t, err)
	assert.Equal(t, models.OperationDelete, entry.Action)

	after, err := s.FindByRoll("S2")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"S1", "S2", "S3"}, rolls(s.Snapshot()))
}

func TestUndoUpdateRestoresPreImage(t *testing.T) {
	s := seededStore(t)
	before, _ := s.FindByRoll("S1")

	_, err := s.Update("S1", models.StudentUpdate{Name: "Renamed", Email: "r@x", Courses: []string{"Chem"}, Grades: []float64{10}})
	require.NoError(t, err)

	_, err = s.UndoLast()
	require.NoError(t, err)
	after, _ := s.FindByRoll("S1")
	assert.Equal(t, before, after)
}

func TestUndoDoesNotLogReplay(t *testing.T) {
	s := seededStore(t)
	_, err := s.UndoLast()
	require.NoError(t, err)
	assert.Equal(t, 2, s.History().Len())
}

func TestUndoEmptyHistory(t *testing.T) {
	s := New(nil)
	_, err := s.UndoLast()
	assert.ErrorIs(t, err, appErrors.ErrNothingToUndo)
}

func TestUndoFailurePushesEntryBack(t *testing.T) {
	history := NewHistory(10)
	s := New(history)
	require.NoError(t, s.Insert(newRecord("S1", "Alice", nil, nil)))

	// The record disappears without going through the logged path.
	_, _, err := s.remove("S1")
	require.NoError(t, err)

	_, err = history.UndoLast(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUndoFailed)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, 1, history.Len())
	assert.Equal(t, models.OperationAdd, history.Recent(1)[0].Action)
}

func TestUndoDeleteFailsWhenRollReused(t *testing.T) {
	s := seededStore(t)
	_, err := s.Delete("S1")
	require.NoError(t, err)
	require.NoError(t, s.insertAt(newRecord("S1", "Someone Else", nil, nil), 0))

	_, err = s.UndoLast()
	assert.ErrorIs(t, err, appErrors.ErrUndoFailed)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateKey)
	assert.Equal(t, 4, s.History().Len())
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	const capacity = 5
	s := New(NewHistory(capacity))
	for i := 0; i < capacity+3; i++ {
		require.NoError(t, s.Insert(newRecord(fmt.Sprintf("R%d", i), "n", nil, nil)))
	}

	recent := s.History().Recent(0)
	require.Len(t, recent, capacity)
	assert.Equal(t, "R7", recent[0].RollNumber)
	assert.Equal(t, "R3", recent[capacity-1].RollNumber)
}

func TestHistoryRecentIsNonDestructive(t *testing.T) {
	s := seededStore(t)

	recent := s.History().Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "S3", recent[0].RollNumber)
	assert.Equal(t, "S2", recent[1].RollNumber)
	assert.Equal(t, 3, s.History().Len())
	assert.Len(t, s.History().Recent(50), 3)
}

func TestHistoryEntriesCarryMetadata(t *testing.T) {
	s := seededStore(t)
	_, err := s.Update("S2", models.StudentUpdate{Name: "Robert", Email: "b@x"})
	require.NoError(t, err)

	entry := s.History().Recent(1)[0]
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	require.NotNil(t, entry.Previous)
	assert.Equal(t, "Bob Jones", entry.Previous.Name)
	assert.Equal(t, "Robert", entry.Record.Name)
}

func TestNewHistoryDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Capacity())
	h := NewHistory(3)
	h.Record(models.OperationLogEntry{RollNumber: "x"})
	h.Clear()
	assert.Equal(t, 0, h.Len())
}
