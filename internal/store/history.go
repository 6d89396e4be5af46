package store

import (
	"fmt"
	"strings"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// DefaultHistoryCapacity bounds the history when no capacity is configured.
const DefaultHistoryCapacity = 100

// History is a bounded undo log. Undo always takes the newest entry while
// overflow evicts the oldest one.
type History struct {
	entries  []models.OperationLogEntry
	capacity int
}

// NewHistory builds a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Record pushes an entry, evicting the oldest ones past capacity.
func (h *History) Record(entry models.OperationLogEntry) {
	h.entries = append(h.entries, entry)
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Capacity returns the configured bound.
func (h *History) Capacity() int {
	return h.capacity
}

// Clear drops every entry.
func (h *History) Clear() {
	h.entries = nil
}

// Recent returns up to limit entries, newest first. A non-positive limit returns all of them.
func (h *History) Recent(limit int) []models.OperationLogEntry {
	n := len(h.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.OperationLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, cloneEntry(h.entries[i]))
	}
	return out
}

// UndoLast pops the newest entry and replays its inverse against s.
// When the replay fails the entry is pushed back.
func (h *History) UndoLast(s *Store) (models.OperationLogEntry, error) {
	if len(h.entries) == 0 {
		return models.OperationLogEntry{}, appErrors.Clone(appErrors.ErrNothingToUndo, "")
	}
	last := len(h.entries) - 1
	entry := h.entries[last]
	h.entries = h.entries[:last]

	if err := revert(s, entry); err != nil {
		h.entries = append(h.entries, entry)
		msg := fmt.Sprintf("failed to undo %s of student %s", strings.ToLower(string(entry.Action)), entry.RollNumber)
		return cloneEntry(entry), appErrors.WrapAs(appErrors.ErrUndoFailed, err, msg)
	}
	return cloneEntry(entry), nil
}

func revert(s *Store, entry models.OperationLogEntry) error {
	switch entry.Action {
	case models.OperationAdd:
		_, _, err := s.remove(entry.RollNumber)
		return err
	case models.OperationDelete:
		return s.insertAt(entry.Record.Clone(), entry.Position)
	case models.OperationUpdate:
		if entry.Previous == nil {
			return fmt.Errorf("update entry %s has no pre-image", entry.ID)
		}
		return s.replace(*entry.Previous)
	default:
		return fmt.Errorf("unknown action %q", entry.Action)
	}
}

func cloneEntry(e models.OperationLogEntry) models.OperationLogEntry {
	out := e
	out.Record = e.Record.Clone()
	if e.Previous != nil {
		prev := e.Previous.Clone()
		out.Previous = &prev
	}
	return out
}
