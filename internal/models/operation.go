package models

import "time"

// OperationAction enumerates undo-able mutations.
type OperationAction string

const (
	OperationAdd    OperationAction = "ADD"
	OperationUpdate OperationAction = "UPDATE"
	OperationDelete OperationAction = "DELETE"
)

// OperationLogEntry records one mutation applied to the record store.
type OperationLogEntry struct {
	ID         string          `json:"id"`
	Action     OperationAction `json:"action"`
	RollNumber string          `json:"roll_no"`
	// Record is the inserted or deleted record, or the post-image of an update.
	Record StudentRecord `json:"record"`
	// Previous is the pre-image of an update.
	Previous  *StudentRecord `json:"previous,omitempty"`
	Position  int            `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
}

// UndoResult describes a reverted operation.
type UndoResult struct {
	Action     OperationAction `json:"action"`
	RollNumber string          `json:"roll_no"`
	Message    string          `json:"message"`
}
