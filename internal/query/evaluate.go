package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// ResultKind tells which part of a Result is populated.
type ResultKind string

const (
	KindRecords ResultKind = "records"
	KindRows    ResultKind = "rows"
	KindGroups  ResultKind = "groups"
)

// Row is a projected record holding only the requested fields.
type Row map[string]interface{}

// Group is the summary of one distinct GROUP BY value.
type Group struct {
	Key      string                 `json:"group"`
	Count    int                    `json:"count"`
	Students []models.StudentRecord `json:"students"`
}

// Result is the outcome of evaluating a query.
type Result struct {
	Kind    ResultKind             `json:"kind"`
	Columns []string               `json:"columns,omitempty"`
	Records []models.StudentRecord `json:"records,omitempty"`
	Rows    []Row                  `json:"rows,omitempty"`
	Groups  []Group                `json:"groups,omitempty"`
	Count   int                    `json:"count"`
}

const nullGroupKey = "NULL"

// Evaluate runs a parsed query over a snapshot: WHERE, then GROUP BY (which
// short-circuits), then ORDER BY, LIMIT and finally the projection.
func Evaluate(q *ParsedQuery, snapshot []models.StudentRecord) (*Result, error) {
	records := snapshot
	if q.Where != nil {
		records = filter(records, q.Where)
	} else {
		records = append(make([]models.StudentRecord, 0, len(records)), records...)
	}

	if q.GroupBy != "" {
		groups := group(records, q.GroupBy)
		return &Result{Kind: KindGroups, Groups: groups, Count: len(groups)}, nil
	}

	if q.OrderBy != nil {
		orderBy(records, q.OrderBy)
	}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrQueryExecution, err, fmt.Sprintf("query execution error: invalid LIMIT %q", q.Limit))
		}
		if limit < 0 {
			return nil, appErrors.Clone(appErrors.ErrQueryExecution, fmt.Sprintf("query execution error: LIMIT must not be negative, got %d", limit))
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	if q.Wildcard {
		return &Result{Kind: KindRecords, Records: records, Count: len(records)}, nil
	}
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		row := make(Row, len(q.Fields))
		for _, field := range q.Fields {
			value, _ := resolveField(r, field)
			row[field] = value
		}
		rows = append(rows, row)
	}
	return &Result{Kind: KindRows, Columns: q.Fields, Rows: rows, Count: len(rows)}, nil
}

// resolveField returns the value of a named field, including the computed ones.
// Unknown fields resolve to nil.
func resolveField(r models.StudentRecord, field string) (interface{}, bool) {
	switch strings.ToLower(field) {
	case "roll_no":
		return r.RollNumber, true
	case "name":
		return r.Name, true
	case "email":
		return r.Email, true
	case "courses":
		return strings.Join(r.Courses, ", "), true
	case "grades":
		parts := make([]string, len(r.Grades))
		for i, g := range r.Grades {
			parts[i] = formatNumber(g)
		}
		return strings.Join(parts, ", "), true
	case "avg_grade":
		return r.AverageGrade(), true
	case "course_count":
		return r.CourseCount(), true
	case "created_at":
		if r.CreatedAt.IsZero() {
			return nil, true
		}
		return r.CreatedAt.Format(time.RFC3339), true
	default:
		return nil, false
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func display(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return formatNumber(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func filter(records []models.StudentRecord, where *WhereClause) []models.StudentRecord {
	out := make([]models.StudentRecord, 0, len(records))
	for _, r := range records {
		if matches(r, where) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r models.StudentRecord, where *WhereClause) bool {
	if where.Combinator == CombinatorOr {
		for _, c := range where.Conditions {
			if evaluateCondition(r, c) {
				return true
			}
		}
		return false
	}
	for _, c := range where.Conditions {
		if !evaluateCondition(r, c) {
			return false
		}
	}
	return true
}

// evaluateCondition treats absent values as never matching.
func evaluateCondition(r models.StudentRecord, c Condition) bool {
	value, _ := resolveField(r, c.Field)
	if value == nil {
		return false
	}
	switch c.Operator {
	case OpEqual:
		return equalValues(value, c.Value)
	case OpNotEqual:
		return !equalValues(value, c.Value)
	case OpLike:
		return strings.Contains(strings.ToUpper(display(value)), strings.ToUpper(c.Value))
	case OpIn:
		for _, candidate := range c.Values {
			if equalValues(value, candidate) {
				return true
			}
		}
		return false
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		cmp := compareValues(value, c.Value)
		switch c.Operator {
		case OpGreater:
			return cmp > 0
		case OpLess:
			return cmp < 0
		case OpGreaterEqual:
			return cmp >= 0
		default:
			return cmp <= 0
		}
	default:
		return false
	}
}

// equalValues compares stored text case-insensitively. Only computed numeric
// fields compare by value, so '007' and '7' stay distinct roll numbers.
func equalValues(value interface{}, literal string) bool {
	switch value.(type) {
	case float64, int:
		a, _ := toNumber(value)
		if b, ok := toNumber(literal); ok {
			return a == b
		}
	}
	return strings.EqualFold(display(value), literal)
}

// compareValues compares numerically when both sides parse, otherwise as upper-cased strings.
func compareValues(value interface{}, literal string) int {
	if a, ok := toNumber(value); ok {
		if b, ok := toNumber(literal); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(strings.ToUpper(display(value)), strings.ToUpper(literal))
}

// orderBy sorts in place. Keys are numeric only when every record's value is numeric.
// DESC reverses the stable ascending order.
func orderBy(records []models.StudentRecord, order *OrderBy) {
	values := make([]interface{}, len(records))
	numeric := true
	for i, r := range records {
		values[i], _ = resolveField(r, order.Field)
		if _, ok := toNumber(values[i]); !ok {
			numeric = false
		}
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	if numeric {
		nums := make([]float64, len(values))
		for i, v := range values {
			nums[i], _ = toNumber(v)
		}
		sort.SliceStable(idx, func(a, b int) bool { return nums[idx[a]] < nums[idx[b]] })
	} else {
		keys := make([]string, len(values))
		for i, v := range values {
			keys[i] = strings.ToUpper(display(v))
		}
		sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
	}

	if order.Direction == Descending {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	sorted := make([]models.StudentRecord, len(records))
	for i, from := range idx {
		sorted[i] = records[from]
	}
	copy(records, sorted)
}

func group(records []models.StudentRecord, field string) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, r := range records {
		value, _ := resolveField(r, field)
		key := nullGroupKey
		if value != nil {
			key = display(value)
		}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{Key: key})
		}
		groups[pos].Students = append(groups[pos].Students, r)
		groups[pos].Count++
	}
	return groups
}
