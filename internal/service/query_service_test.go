package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return errors.New("connection refused")
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func newQueryFixture(t *testing.T) (*QueryService, *StudentService, *memoryCache, *MetricsService) {
	t.Helper()
	students, _ := newStudentService(t)
	seed(t, students)
	metrics := NewMetricsService()
	mem := newMemoryCache()
	cacheSvc := NewCacheService(mem, metrics, time.Minute, nil, true)
	return NewQueryService(students, nil, cacheSvc, metrics, time.Minute, nil), students, mem, metrics
}

func TestQueryServiceExecuteCachesByVersion(t *testing.T) {
	svc, students, mem, metrics := newQueryFixture(t)
	ctx := context.Background()

	first, err := svc.Execute(ctx, "SELECT name FROM students WHERE avg_grade > 80")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Len(t, first.Result.Rows, 1)
	assert.Equal(t, "Alice Smith", first.Result.Rows[0]["name"])

	second, err := svc.Execute(ctx, "  select name from students where avg_grade > 80 ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.Rows, second.Result.Rows)

	_, err = students.Create(ctx, createReq("S9", "Zed", []string{"Art"}, []float64{99}))
	require.NoError(t, err)

	third, err := svc.Execute(ctx, "SELECT name FROM students WHERE avg_grade > 80")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Len(t, third.Result.Rows, 2)
	assert.Equal(t, 2, mem.size())

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
	assert.Equal(t, uint64(3), snap.QueriesTotal)

	svc.PurgeCache(ctx)
	assert.Equal(t, 0, mem.size())
}

func TestQueryServiceErrorsAreNotCached(t *testing.T) {
	svc, _, mem, metrics := newQueryFixture(t)
	ctx := context.Background()

	_, err := svc.Execute(ctx, "DROP TABLE students")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedQuery)
	_, err = svc.Execute(ctx, "SELECT * FROM students LIMIT abc")
	assert.ErrorIs(t, err, appErrors.ErrQueryExecution)

	assert.Equal(t, 0, mem.size())
	assert.Equal(t, uint64(2), metrics.Snapshot().QueryErrors)
}

func TestQueryServiceCacheFailureFallsThrough(t *testing.T) {
	svc, _, mem, _ := newQueryFixture(t)
	mem.failGet = true

	res, err := svc.Execute(context.Background(), "SELECT * FROM students")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 3, res.Result.Count)
}

func TestQueryServiceWithoutCache(t *testing.T) {
	students, _ := newStudentService(t)
	seed(t, students)
	svc := NewQueryService(students, nil, nil, nil, 0, nil)

	res, err := svc.Execute(context.Background(), "SELECT * FROM students GROUP BY course_count")
	require.NoError(t, err)
	assert.Len(t, res.Result.Groups, 3)
}

func TestQueryServiceValidate(t *testing.T) {
	svc, _, _, _ := newQueryFixture(t)
	assert.Equal(t, true, svc.Validate("SELECT * FROM students").Valid)

	v := svc.Validate("FROM students")
	assert.False(t, v.Valid)
	assert.Equal(t, appErrors.ErrSyntax.Code, v.Code)
	assert.NotEmpty(t, svc.Samples())
}
