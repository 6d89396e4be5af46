package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records/internal/dto"
	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/stats"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
	"github.com/noah-isme/student-records/pkg/export"
	"github.com/noah-isme/student-records/pkg/storage"
)

const (
	defaultTopPerformers = 5
	lowPerformerCutoff   = 70
	lowPerformerLimit    = 10
)

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportConfig tunes report exports.
type ReportConfig struct {
	APIPrefix string
	FileTTL   time.Duration
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ReportService builds statistics reports and file exports from store snapshots.
type ReportService struct {
	source  snapshotSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     datasetRenderer
	pdf     datasetRenderer
	cfg     ReportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs a ReportService. Nil renderers fall back to the pkg/export defaults.
func NewReportService(source snapshotSource, files fileStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{
		source:  source,
		storage: files,
		signer:  signer,
		csv:     csv,
		pdf:     pdf,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Summary computes the statistics report. top <= 0 uses the default of five.
func (s *ReportService) Summary(ctx context.Context, top int) *models.StudentReport {
	if top <= 0 {
		top = defaultTopPerformers
	}
	snapshot, _ := s.source.Snapshot(ctx)
	courses := stats.CourseStatistics(snapshot)
	return &models.StudentReport{
		Summary:           stats.Describe(snapshot),
		AverageGrade:      stats.AverageGrade(snapshot),
		TotalCourses:      len(courses),
		TopPerformers:     stats.TopPerformers(snapshot, top),
		LowPerformers:     stats.LowPerformers(snapshot, lowPerformerCutoff, lowPerformerLimit),
		CourseStatistics:  courses,
		CourseGroups:      stats.GroupByCourse(snapshot),
		GradeDistribution: stats.GradeDistribution(snapshot),
		GeneratedAt:       s.now().UTC(),
	}
}

// Export renders every record in format, stores the file and returns a signed download link.
func (s *ReportService) Export(ctx context.Context, format models.ExportFormat) (*dto.ExportResponse, error) {
	snapshot, version := s.source.Snapshot(ctx)

	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ExportFormatJSON:
		payload, err = json.MarshalIndent(snapshot, "", "  ")
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(studentDataset(snapshot))
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(studentDataset(snapshot))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}

	exportID := uuid.NewString()
	now := s.now().UTC()
	relPath := path.Join(now.Format("20060102"), fmt.Sprintf("student_records_%s_%s.%s", now.Format("150405"), exportID[:8], format))
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove unsigned export", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to sign export")
	}

	s.logger.Info("export generated",
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("records", len(snapshot)),
		zap.Uint64("version", version),
	)

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.ExportResponse{
		ExportID:  exportID,
		Format:    string(format),
		URL:       fmt.Sprintf("%s/export/%s", prefix, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a download token to the stored file. The caller closes the file.
func (s *ReportService) Open(token string) (*ExportFile, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.ErrExportExpired
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	f, err := s.storage.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrNotFound, err, "export not found")
	}
	return &ExportFile{File: f, Filename: path.Base(parsed.Path), ContentType: contentType(parsed.Path)}, nil
}

// Cleanup removes export files older than the configured TTL.
func (s *ReportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.FileTTL)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ReportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(); err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}

func studentDataset(records []models.StudentRecord) export.Dataset {
	d := export.Dataset{
		Title:   "Student Records",
		Headers: []string{"Roll No", "Name", "Email", "Courses", "Grades", "Average", "Letter"},
	}
	for _, r := range records {
		grades := make([]string, len(r.Grades))
		for i, g := range r.Grades {
			grades[i] = strconv.FormatFloat(g, 'f', -1, 64)
		}
		avg, letter := "", ""
		if len(r.Grades) > 0 {
			avg = strconv.FormatFloat(models.Round2(r.AverageGrade()), 'f', 2, 64)
			letter = stats.LetterGrade(r.AverageGrade())
		}
		d.Append(r.RollNumber, r.Name, r.Email, strings.Join(r.Courses, ", "), strings.Join(grades, ", "), avg, letter)
	}
	return d
}

func contentType(p string) string {
	switch path.Ext(p) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
