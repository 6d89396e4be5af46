package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/stats"
	"github.com/noah-isme/student-records/internal/store"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/jobs"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	sortByAverage = "avg_grade"
)

type snapshotEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// StudentService serialises access to the record store and its history behind one RWMutex
// and schedules persistence after every applied mutation.
type StudentService struct {
	mu    sync.RWMutex
	store *store.Store

	queue     snapshotEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service. queue may be nil when persistence is disabled.
func NewStudentService(st *store.Store, queue snapshotEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if st == nil {
		st = store.New(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StudentService{store: st, queue: queue, metrics: metrics, validator: validate, logger: logger}
	metrics.SetStoreSize(st.Len(), st.History().Len())
	return svc
}

// Restore bulk-loads records without recording history, typically from the database at boot.
func (s *StudentService) Restore(_ context.Context, records []models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Load(records); err != nil {
		return err
	}
	s.store.History().Clear()
	s.metrics.SetStoreSize(s.store.Len(), 0)
	return nil
}

// Create validates and inserts a student.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validate(req, req.Courses, req.Grades); err != nil {
		return nil, err
	}
	record := models.StudentRecord{
		RollNumber: req.RollNumber,
		Name:       req.Name,
		Email:      req.Email,
		Courses:    req.Courses,
		Grades:     req.Grades,
	}

	s.mu.Lock()
	if err := s.store.Insert(record); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	created, _ := s.store.FindByRoll(req.RollNumber)
	payload := s.mutatedLocked(models.OperationAdd)
	s.mu.Unlock()

	s.persist(payload)
	s.logger.Info("student created", zap.String("roll_no", created.RollNumber))
	return &created, nil
}

// Get returns one student.
func (s *StudentService) Get(_ context.Context, rollNumber string) (*models.StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, err := s.store.FindByRoll(rollNumber)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns students matching filter with pagination metadata.
func (s *StudentService) List(_ context.Context, filter models.StudentFilter) ([]models.StudentRecord, *models.Pagination, error) {
	if filter.MinGrade != nil && filter.MaxGrade != nil && *filter.MinGrade > *filter.MaxGrade {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "min_grade must not exceed max_grade")
	}
	if filter.Sort != "" && filter.Sort != sortByAverage {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported sort %q", filter.Sort))
	}

	s.mu.RLock()
	var records []models.StudentRecord
	switch {
	case filter.Search != "":
		records = s.store.Search(filter.Search)
	case filter.Course != "":
		records = s.store.FilterByCourse(filter.Course)
	case filter.MinGrade != nil || filter.MaxGrade != nil:
		records = s.store.FilterByGradeRange(gradeBounds(filter))
	default:
		records = s.store.Snapshot()
	}
	s.mu.RUnlock()

	records = refine(records, filter)
	if filter.Sort == sortByAverage {
		records = stats.SortByAverage(records)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(records)}

	start := (page - 1) * size
	if start >= len(records) {
		return []models.StudentRecord{}, pagination, nil
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], pagination, nil
}

// Search runs a case-insensitive substring search on name, email and roll number.
func (s *StudentService) Search(_ context.Context, term string) []models.StudentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Search(term)
}

// Update replaces the mutable fields of a student.
func (s *StudentService) Update(ctx context.Context, rollNumber string, req dto.UpdateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validate(req, req.Courses, req.Grades); err != nil {
		return nil, err
	}

	s.mu.Lock()
	updated, err := s.store.Update(rollNumber, req.ToUpdate())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	payload := s.mutatedLocked(models.OperationUpdate)
	s.mu.Unlock()

	s.persist(payload)
	s.logger.Info("student updated", zap.String("roll_no", rollNumber))
	return &updated, nil
}

// Delete removes a student and returns the removed record.
func (s *StudentService) Delete(ctx context.Context, rollNumber string) (*models.StudentRecord, error) {
	s.mu.Lock()
	removed, err := s.store.Delete(rollNumber)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	payload := s.mutatedLocked(models.OperationDelete)
	s.mu.Unlock()

	s.persist(payload)
	s.logger.Info("student deleted", zap.String("roll_no", rollNumber))
	return &removed, nil
}

// Import validates each student and inserts the valid ones, skipping duplicates.
// Every imported record is an ordinary undoable insert.
func (s *StudentService) Import(ctx context.Context, req dto.ImportRequest) (*dto.ImportResult, error) {
	result := &dto.ImportResult{Total: len(req.Students)}
	valid := make([]models.StudentRecord, 0, len(req.Students))
	for i, st := range req.Students {
		if err := s.validate(st, st.Courses, st.Grades); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("students[%d]: %s", i, appErrors.FromError(err).Message))
			continue
		}
		valid = append(valid, models.StudentRecord{
			RollNumber: st.RollNumber,
			Name:       st.Name,
			Email:      st.Email,
			Courses:    st.Courses,
			Grades:     st.Grades,
		})
	}

	s.mu.Lock()
	result.Imported = s.store.Import(valid)
	var payload *SnapshotPayload
	if result.Imported > 0 {
		payload = s.mutatedLocked(models.OperationAdd)
	}
	s.mu.Unlock()
	result.Skipped = result.Total - result.Imported

	if payload != nil {
		s.persist(payload)
	}
	s.logger.Info("students imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

// Export returns every record in insertion order.
func (s *StudentService) Export(_ context.Context) []models.StudentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Export()
}

// Snapshot returns a deep copy of the store together with its version.
func (s *StudentService) Snapshot(_ context.Context) ([]models.StudentRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot(), s.store.Version()
}

// Version returns the store mutation counter.
func (s *StudentService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Version()
}

// History lists recent operations, newest first.
func (s *StudentService) History(_ context.Context, limit int) dto.HistoryResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.store.History()
	return dto.HistoryResponse{Entries: h.Recent(limit), Size: h.Len(), Capacity: h.Capacity()}
}

// Undo reverts the most recent operation.
func (s *StudentService) Undo(ctx context.Context) (*models.UndoResult, error) {
	s.mu.Lock()
	entry, err := s.store.UndoLast()
	if err != nil {
		s.mu.Unlock()
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrUndoFailed.Code {
			s.logger.Warn("undo failed", zap.Error(err))
		}
		return nil, err
	}
	payload := s.mutatedLocked("UNDO_" + entry.Action)
	s.mu.Unlock()

	s.persist(payload)
	result := &models.UndoResult{
		Action:     entry.Action,
		RollNumber: entry.RollNumber,
		Message:    undoMessage(entry),
	}
	s.logger.Info("operation undone", zap.String("action", string(entry.Action)), zap.String("roll_no", entry.RollNumber))
	return result, nil
}

// Stats reports current record and history counts.
func (s *StudentService) Stats() (records, history int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len(), s.store.History().Len()
}

func (s *StudentService) validate(req interface{}, courses []string, grades []float64) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(appErrors.ErrValidation, err, "invalid student payload")
	}
	if len(courses) != len(grades) {
		return appErrors.Clone(appErrors.ErrValidation, "number of courses must match number of grades")
	}
	for _, g := range grades {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return appErrors.Clone(appErrors.ErrValidation, "grades must be finite numbers")
		}
	}
	return nil
}

// mutatedLocked updates gauges and captures the snapshot to persist. Caller holds the write lock.
func (s *StudentService) mutatedLocked(action models.OperationAction) *SnapshotPayload {
	s.metrics.RecordMutation(string(action))
	s.metrics.SetStoreSize(s.store.Len(), s.store.History().Len())
	if s.queue == nil {
		return nil
	}
	return &SnapshotPayload{Version: s.store.Version(), Records: s.store.Snapshot()}
}

func (s *StudentService) persist(payload *SnapshotPayload) {
	if payload == nil || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Kind: JobPersistSnapshot, Payload: *payload}); err != nil {
		s.logger.Error("failed to schedule persistence", zap.Uint64("version", payload.Version), zap.Error(err))
	}
}

func undoMessage(entry models.OperationLogEntry) string {
	switch entry.Action {
	case models.OperationAdd:
		return fmt.Sprintf("removed student %s added earlier", entry.RollNumber)
	case models.OperationDelete:
		return fmt.Sprintf("restored deleted student %s", entry.RollNumber)
	default:
		return fmt.Sprintf("reverted update of student %s", entry.RollNumber)
	}
}

func gradeBounds(filter models.StudentFilter) (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if filter.MinGrade != nil {
		lo = *filter.MinGrade
	}
	if filter.MaxGrade != nil {
		hi = *filter.MaxGrade
	}
	return lo, hi
}

// refine applies the filters not used to seed the candidate set.
func refine(records []models.StudentRecord, filter models.StudentFilter) []models.StudentRecord {
	hasGrade := filter.MinGrade != nil || filter.MaxGrade != nil
	lo, hi := gradeBounds(filter)
	out := records[:0]
	for _, r := range records {
		if filter.Course != "" && !hasCourse(r, filter.Course) {
			continue
		}
		if hasGrade {
			if len(r.Grades) == 0 {
				continue
			}
			if avg := r.AverageGrade(); avg < lo || avg > hi {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func hasCourse(r models.StudentRecord, course string) bool {
	for _, c := range r.Courses {
		if c == course {
			return true
		}
	}
	return false
}
