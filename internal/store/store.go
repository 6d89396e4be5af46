// Package store holds the authoritative in-memory collection of student
// records together with the bounded operation history used for undo.
//
// Store and History are not safe for concurrent use. Callers embedding them
// in a concurrent host must guard both with a single lock so history entries
// stay consistent with store contents.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// Store is an insertion-ordered record collection keyed by roll number.
type Store struct {
	records []models.StudentRecord
	index   map[string]int
	history *History
	version uint64
	now     func() time.Time
}

// New constructs an empty store logging into history. A nil history gets the default capacity.
func New(history *History) *Store {
	if history == nil {
		history = NewHistory(DefaultHistoryCapacity)
	}
	return &Store{
		index:   make(map[string]int),
		history: history,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// History exposes the operation history the store logs into.
func (s *Store) History() *History {
	return s.history
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Version increases on every applied mutation, including undo replays.
func (s *Store) Version() uint64 {
	return s.version
}

// Insert appends a new record and logs an ADD entry.
func (s *Store) Insert(record models.StudentRecord) error {
	if strings.TrimSpace(record.RollNumber) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "roll number is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	stored := record.Clone()
	if err := s.insertAt(stored, len(s.records)); err != nil {
		return err
	}
	s.log(models.OperationLogEntry{
		Action:     models.OperationAdd,
		RollNumber: stored.RollNumber,
		Record:     stored.Clone(),
	})
	return nil
}

// FindByRoll returns a copy of the record with the given roll number.
func (s *Store) FindByRoll(rollNumber string) (models.StudentRecord, error) {
	idx, ok := s.index[rollNumber]
	if !ok {
		return models.StudentRecord{}, notFound(rollNumber)
	}
	return s.records[idx].Clone(), nil
}

// Update replaces the mutable fields of an existing record and logs pre- and post-images.
func (s *Store) Update(rollNumber string, update models.StudentUpdate) (models.StudentRecord, error) {
	idx, ok := s.index[rollNumber]
	if !ok {
		return models.StudentRecord{}, notFound(rollNumber)
	}
	previous := s.records[idx]
	next := previous.Apply(update)
	s.records[idx] = next
	s.version++
	s.log(models.OperationLogEntry{
		Action:     models.OperationUpdate,
		RollNumber: rollNumber,
		Record:     next.Clone(),
		Previous:   &previous,
	})
	return next.Clone(), nil
}

// Delete removes a record and logs a DELETE entry.
func (s *Store) Delete(rollNumber string) (models.StudentRecord, error) {
	removed, pos, err := s.remove(rollNumber)
	if err != nil {
		return models.StudentRecord{}, err
	}
	s.log(models.OperationLogEntry{
		Action:     models.OperationDelete,
		RollNumber: rollNumber,
		Record:     removed.Clone(),
		Position:   pos,
	})
	return removed, nil
}

// UndoLast reverts the most recent logged mutation.
func (s *Store) UndoLast() (models.OperationLogEntry, error) {
	return s.history.UndoLast(s)
}

// Search matches term case-insensitively against name, email and roll number.
func (s *Store) Search(term string) []models.StudentRecord {
	needle := strings.ToLower(term)
	return s.filter(func(r models.StudentRecord) bool {
		return strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Email), needle) ||
			strings.Contains(strings.ToLower(r.RollNumber), needle)
	})
}

// FilterByCourse returns records enrolled in exactly the named course.
func (s *Store) FilterByCourse(course string) []models.StudentRecord {
	return s.filter(func(r models.StudentRecord) bool {
		for _, c := range r.Courses {
			if c == course {
				return true
			}
		}
		return false
	})
}

// FilterByGradeRange returns records whose average lies in [min, max]. Records without grades never match.
func (s *Store) FilterByGradeRange(min, max float64) []models.StudentRecord {
	return s.filter(func(r models.StudentRecord) bool {
		if len(r.Grades) == 0 {
			return false
		}
		avg := r.AverageGrade()
		return avg >= min && avg <= max
	})
}

// Snapshot returns an independent copy of all records in insertion order.
func (s *Store) Snapshot() []models.StudentRecord {
	return models.CloneRecords(s.records)
}

// Export produces the portable representation of the store contents.
func (s *Store) Export() []models.StudentRecord {
	return s.Snapshot()
}

// Import inserts each record, skipping duplicates, and reports how many were added.
func (s *Store) Import(records []models.StudentRecord) int {
	imported := 0
	for _, r := range records {
		if err := s.Insert(r); err == nil {
			imported++
		}
	}
	return imported
}

// Load replaces the store contents without touching the history.
func (s *Store) Load(records []models.StudentRecord) error {
	index := make(map[string]int, len(records))
	for i, r := range records {
		if _, exists := index[r.RollNumber]; exists {
			return appErrors.Clone(appErrors.ErrDuplicateKey, fmt.Sprintf("duplicate roll number %s in load set", r.RollNumber))
		}
		index[r.RollNumber] = i
	}
	s.records = models.CloneRecords(records)
	s.index = index
	s.version++
	return nil
}

func (s *Store) filter(match func(models.StudentRecord) bool) []models.StudentRecord {
	results := make([]models.StudentRecord, 0)
	for _, r := range s.records {
		if match(r) {
			results = append(results, r.Clone())
		}
	}
	return results
}

func (s *Store) insertAt(record models.StudentRecord, pos int) error {
	if _, exists := s.index[record.RollNumber]; exists {
		return appErrors.Clone(appErrors.ErrDuplicateKey, fmt.Sprintf("student %s already exists", record.RollNumber))
	}
	if pos < 0 || pos > len(s.records) {
		pos = len(s.records)
	}
	s.records = append(s.records, models.StudentRecord{})
	copy(s.records[pos+1:], s.records[pos:])
	s.records[pos] = record
	s.reindex(pos)
	s.version++
	return nil
}

func (s *Store) remove(rollNumber string) (models.StudentRecord, int, error) {
	idx, ok := s.index[rollNumber]
	if !ok {
		return models.StudentRecord{}, 0, notFound(rollNumber)
	}
	removed := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	delete(s.index, rollNumber)
	s.reindex(idx)
	s.version++
	return removed, idx, nil
}

func (s *Store) replace(record models.StudentRecord) error {
	idx, ok := s.index[record.RollNumber]
	if !ok {
		return notFound(record.RollNumber)
	}
	s.records[idx] = record.Clone()
	s.version++
	return nil
}

func (s *Store) reindex(from int) {
	for i := from; i < len(s.records); i++ {
		s.index[s.records[i].RollNumber] = i
	}
}

func (s *Store) log(entry models.OperationLogEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = s.now()
	s.history.Record(entry)
}

func notFound(rollNumber string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", rollNumber))
}
