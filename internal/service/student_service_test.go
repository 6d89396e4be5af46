package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/store"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/jobs"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) payloads() []SnapshotPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]SnapshotPayload, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Payload.(SnapshotPayload)
	}
	return out
}

func newStudentService(t *testing.T) (*StudentService, *recordingQueue) {
	t.Helper()
	queue := &recordingQueue{}
	svc := NewStudentService(store.New(store.NewHistory(10)), queue, NewMetricsService(), nil, nil)
	return svc, queue
}

func createReq(roll, name string, courses []string, grades []float64) dto.CreateStudentRequest {
	return dto.CreateStudentRequest{RollNumber: roll, Name: name, Email: roll + "@school.test", Courses: courses, Grades: grades}
}

func seed(t *testing.T, svc *StudentService) {
	t.Helper()
	ctx := context.Background()
	for _, req := range []dto.CreateStudentRequest{
		createReq("S1", "Alice Smith", []string{"Math", "Bio"}, []float64{95, 85}),
		createReq("S2", "Bob Jones", []string{"Math"}, []float64{70}),
		createReq("S3", "Carol White", nil, nil),
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}
}

func TestStudentServiceCreate(t *testing.T) {
	svc, queue := newStudentService(t)
	rec, err := svc.Create(context.Background(), createReq("S1", "Alice", []string{"Math"}, []float64{90}))
	require.NoError(t, err)
	assert.Equal(t, "S1", rec.RollNumber)
	assert.False(t, rec.CreatedAt.IsZero())

	payloads := queue.payloads()
	require.Len(t, payloads, 1)
	assert.Len(t, payloads[0].Records, 1)
	assert.Equal(t, svc.Version(), payloads[0].Version)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, queue := newStudentService(t)
	ctx := context.Background()

	cases := map[string]dto.CreateStudentRequest{
		"missing roll":    {Name: "A", Email: "a@x.test"},
		"bad email":       {RollNumber: "S1", Name: "A", Email: "nope"},
		"length mismatch": createReq("S1", "A", []string{"Math", "Bio"}, []float64{90}),
		"blank course":    createReq("S1", "A", []string{""}, []float64{90}),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, queue.payloads())
	assert.Equal(t, 0, svc.History(ctx, 0).Size)
}

func TestStudentServiceCreateDuplicate(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	_, err := svc.Create(context.Background(), createReq("S1", "Other", nil, nil))
	assert.ErrorIs(t, err, appErrors.ErrDuplicateKey)
	assert.Equal(t, 3, svc.History(context.Background(), 0).Size)
}

func TestStudentServiceList(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	ctx := context.Background()

	all, page, err := svc.List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: defaultPageSize, TotalCount: 3}, page)

	inMath, _, err := svc.List(ctx, models.StudentFilter{Course: "Math"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, rollsOf(inMath))

	lo := 80.0
	graded, _, err := svc.List(ctx, models.StudentFilter{Course: "Math", MinGrade: &lo})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, rollsOf(graded))

	found, _, err := svc.List(ctx, models.StudentFilter{Search: "white"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S3"}, rollsOf(found))

	paged, p, err := svc.List(ctx, models.StudentFilter{Search: "SCHOOL", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"S2"}, rollsOf(paged))
	assert.Equal(t, 3, p.TotalCount)

	beyond, p, err := svc.List(ctx, models.StudentFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond)
	assert.Equal(t, 3, p.TotalCount)

	hi := 10.0
	_, _, err = svc.List(ctx, models.StudentFilter{MinGrade: &lo, MaxGrade: &hi})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceListSortedByAverage(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	ctx := context.Background()
	_, err := svc.Create(ctx, createReq("S4", "Zed", []string{"Art"}, []float64{99}))
	require.NoError(t, err)

	sorted, _, err := svc.List(ctx, models.StudentFilter{Sort: "avg_grade"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S4", "S1", "S2", "S3"}, rollsOf(sorted))

	_, _, err = svc.List(ctx, models.StudentFilter{Sort: "name"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceUpdateAndUndo(t *testing.T) {
	svc, queue := newStudentService(t)
	seed(t, svc)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "S2", dto.UpdateStudentRequest{Name: "Robert", Email: "bob@school.test", Courses: []string{"Art"}, Grades: []float64{88}})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)

	res, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OperationUpdate, res.Action)
	assert.Equal(t, "S2", res.RollNumber)

	got, err := svc.Get(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, "Bob Jones", got.Name)
	assert.Equal(t, []float64{70}, got.Grades)

	payloads := queue.payloads()
	last := payloads[len(payloads)-1]
	assert.Equal(t, svc.Version(), last.Version)
	assert.Equal(t, "Bob Jones", last.Records[1].Name)
}

func TestStudentServiceUpdateMissing(t *testing.T) {
	svc, _ := newStudentService(t)
	_, err := svc.Update(context.Background(), "nope", dto.UpdateStudentRequest{Name: "X", Email: "x@x.test"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceDeleteAndUndoRestoresPosition(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	ctx := context.Background()

	removed, err := svc.Delete(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, "Bob Jones", removed.Name)
	_, err = svc.Get(ctx, "S2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Undo(ctx)
	require.NoError(t, err)
	snapshot, _ := svc.Snapshot(ctx)
	assert.Equal(t, []string{"S1", "S2", "S3"}, rollsOf(snapshot))
}

func TestStudentServiceUndoEmpty(t *testing.T) {
	svc, _ := newStudentService(t)
	_, err := svc.Undo(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNothingToUndo)
}

func TestStudentServiceHistory(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	h := svc.History(context.Background(), 2)
	require.Len(t, h.Entries, 2)
	assert.Equal(t, "S3", h.Entries[0].RollNumber)
	assert.Equal(t, 3, h.Size)
	assert.Equal(t, 10, h.Capacity)
}

func TestStudentServiceImport(t *testing.T) {
	svc, queue := newStudentService(t)
	seed(t, svc)
	before := len(queue.payloads())

	res, err := svc.Import(context.Background(), dto.ImportRequest{Students: []dto.CreateStudentRequest{
		createReq("S4", "Dan", nil, nil),
		createReq("S1", "Dup", nil, nil),
		{RollNumber: "S5", Name: "Eve"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "students[2]")
	assert.Len(t, queue.payloads(), before+1)
}

func TestStudentServiceRestore(t *testing.T) {
	svc, _ := newStudentService(t)
	seed(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Restore(ctx, []models.StudentRecord{{RollNumber: "R1", Name: "Restored", Email: "r@x.test"}}))
	snapshot, _ := svc.Snapshot(ctx)
	assert.Equal(t, []string{"R1"}, rollsOf(snapshot))
	assert.Equal(t, 0, svc.History(ctx, 0).Size)

	err := svc.Restore(ctx, []models.StudentRecord{{RollNumber: "D"}, {RollNumber: "D"}})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateKey)
}

func TestStudentServiceWithoutQueue(t *testing.T) {
	svc := NewStudentService(nil, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), createReq("S1", "Alice", nil, nil))
	require.NoError(t, err)
	records, history := svc.Stats()
	assert.Equal(t, 1, records)
	assert.Equal(t, 1, history)
}

func rollsOf(records []models.StudentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RollNumber
	}
	return out
}
