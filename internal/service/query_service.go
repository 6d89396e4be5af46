package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/query"
	"github.com/noah-isme/student-records/pkg/cache"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

type snapshotSource interface {
	Snapshot(ctx context.Context) ([]models.StudentRecord, uint64)
	Version() uint64
}

// QueryService runs read-only queries over store snapshots, caching results per store version.
type QueryService struct {
	source  snapshotSource
	engine  *query.Engine
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewQueryService constructs a QueryService. cache may be nil.
func NewQueryService(source snapshotSource, engine *query.Engine, cacheSvc *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *QueryService {
	if engine == nil {
		engine = query.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{source: source, engine: engine, cache: cacheSvc, metrics: metrics, logger: logger, ttl: ttl}
}

// Execute parses and evaluates text. Parse failures are never cached.
func (s *QueryService) Execute(ctx context.Context, text string) (*dto.QueryResponse, error) {
	start := time.Now()
	text = strings.TrimSpace(text)

	if err := s.engine.Validate(text); err != nil {
		s.observe(err, start)
		return nil, err
	}

	key := queryCacheKey(s.source.Version(), text)
	var cached query.Result
	if s.cache.Get(ctx, key, &cached) {
		s.observe(nil, start)
		return &dto.QueryResponse{Query: text, Result: &cached, Cached: true, DurationMs: elapsedMs(start), Version: s.source.Version()}, nil
	}

	snapshot, version := s.source.Snapshot(ctx)
	result, err := s.engine.Execute(text, snapshot)
	s.observe(err, start)
	if err != nil {
		s.logger.Debug("query failed", zap.String("query", text), zap.Error(err))
		return nil, err
	}

	s.cache.Set(ctx, queryCacheKey(version, text), result, s.ttl)
	return &dto.QueryResponse{Query: text, Result: result, DurationMs: elapsedMs(start), Version: version}, nil
}

// Validate reports whether text parses, with the error code when it does not.
func (s *QueryService) Validate(text string) dto.QueryValidation {
	err := s.engine.Validate(strings.TrimSpace(text))
	if err == nil {
		return dto.QueryValidation{Valid: true}
	}
	appErr := appErrors.FromError(err)
	return dto.QueryValidation{Valid: false, Error: appErr.Message, Code: appErr.Code}
}

// Samples returns example queries.
func (s *QueryService) Samples() []string {
	return s.engine.SampleQueries()
}

// PurgeCache drops cached results for every version.
func (s *QueryService) PurgeCache(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.Key("query", "*"))
}

func (s *QueryService) observe(err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.ObserveQuery(outcome, time.Since(start))
}

func queryCacheKey(version uint64, text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	return cache.Key("query", strconv.FormatUint(version, 10), hex.EncodeToString(sum[:12]))
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
