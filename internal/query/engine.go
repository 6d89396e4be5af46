// Package query implements a restricted, read-only SELECT language over
// snapshots of student records.
//
// Supported shape:
//
//	SELECT * | field[, field...] [FROM students]
//	  [WHERE cond [AND cond...] | cond [OR cond...]]
//	  [GROUP BY field] [ORDER BY field [ASC|DESC]]
//	  [LIMIT n]
//
// Anything outside that shape fails closed.
package query

import (
	"github.com/noah-isme/student-records/internal/models"
)

// Engine parses and evaluates queries. It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine constructs a query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Execute parses text and evaluates it against snapshot.
func (e *Engine) Execute(text string, snapshot []models.StudentRecord) (*Result, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Evaluate(q, snapshot)
}

// Validate reports the parse error for text, if any, without evaluating it.
func (e *Engine) Validate(text string) error {
	_, err := Parse(text)
	return err
}

// SampleQueries lists example queries for the query page.
func (e *Engine) SampleQueries() []string {
	return []string{
		"SELECT * FROM students",
		"SELECT name, avg_grade FROM students WHERE avg_grade > 80",
		"SELECT * FROM students WHERE name LIKE 'John'",
		"SELECT * FROM students WHERE avg_grade >= 70 AND avg_grade <= 90",
		"SELECT * FROM students ORDER BY avg_grade DESC",
		"SELECT * FROM students ORDER BY name ASC LIMIT 5",
		"SELECT name FROM students WHERE courses LIKE 'Math'",
		"SELECT * FROM students GROUP BY course_count",
		"SELECT * FROM students WHERE course_count > 2",
		"SELECT roll_no, name FROM students WHERE roll_no IN ('S1', 'S2')",
	}
}
