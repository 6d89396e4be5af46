package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/student-records/internal/models"
)

// studentRow is the table shape; position keeps insertion order stable across restarts.
type studentRow struct {
	RollNumber string          `db:"roll_no"`
	Position   int             `db:"position"`
	Name       string          `db:"name"`
	Email      string          `db:"email"`
	Courses    pq.StringArray  `db:"courses"`
	Grades     pq.Float64Array `db:"grades"`
	CreatedAt  time.Time       `db:"created_at"`
}

func toRow(pos int, r models.StudentRecord) studentRow {
	courses := r.Courses
	if courses == nil {
		courses = []string{}
	}
	grades := r.Grades
	if grades == nil {
		grades = []float64{}
	}
	return studentRow{
		RollNumber: r.RollNumber,
		Position:   pos,
		Name:       r.Name,
		Email:      r.Email,
		Courses:    pq.StringArray(courses),
		Grades:     pq.Float64Array(grades),
		CreatedAt:  r.CreatedAt,
	}
}

func (row studentRow) toRecord() models.StudentRecord {
	rec := models.StudentRecord{
		RollNumber: row.RollNumber,
		Name:       row.Name,
		Email:      row.Email,
		CreatedAt:  row.CreatedAt.UTC(),
	}
	if len(row.Courses) > 0 {
		rec.Courses = []string(row.Courses)
	}
	if len(row.Grades) > 0 {
		rec.Grades = []float64(row.Grades)
	}
	return rec
}

// StudentRepository persists snapshots of the record store in PostgreSQL.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// LoadAll returns every persisted record in insertion order.
func (r *StudentRepository) LoadAll(ctx context.Context) ([]models.StudentRecord, error) {
	const query = `SELECT roll_no, position, name, email, courses, grades, created_at FROM students ORDER BY position`
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	records := make([]models.StudentRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}

// ReplaceAll overwrites the table with records inside a single transaction.
func (r *StudentRepository) ReplaceAll(ctx context.Context, records []models.StudentRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM students`); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}

	const insert = `INSERT INTO students (roll_no, position, name, email, courses, grades, created_at)
        VALUES (:roll_no, :position, :name, :email, :courses, :grades, :created_at)`
	for i, rec := range records {
		if _, err = tx.NamedExecContext(ctx, insert, toRow(i, rec)); err != nil {
			return fmt.Errorf("insert student %s: %w", rec.RollNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *StudentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
