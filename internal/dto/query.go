package dto

import (
	"time"

	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/query"
)

// QueryRequest carries query text, from JSON or a form post.
type QueryRequest struct {
	Query string `json:"query" form:"query" validate:"required"`
}

// QueryResponse wraps an evaluated query.
type QueryResponse struct {
	Query      string        `json:"query"`
	Result     *query.Result `json:"result"`
	Cached     bool          `json:"cached"`
	DurationMs float64       `json:"duration_ms"`
	Version    uint64        `json:"version"`
}

// QueryValidation reports whether a query parses.
type QueryValidation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ExportResponse points at a rendered export.
type ExportResponse struct {
	ExportID  string    `json:"export_id"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HistoryResponse lists recent operations.
type HistoryResponse struct {
	Entries  []models.OperationLogEntry `json:"entries"`
	Size     int                        `json:"size"`
	Capacity int                        `json:"capacity"`
}
