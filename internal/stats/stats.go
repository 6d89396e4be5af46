// Package stats computes read-only aggregates over a snapshot of student records.
package stats

import (
	"sort"

	"github.com/noah-isme/student-records/internal/models"
)

// AverageGrade is the mean of every grade across all records, 0 when there are none.
func AverageGrade(records []models.StudentRecord) float64 {
	var sum float64
	var n int
	for _, r := range records {
		for _, g := range r.Grades {
			sum += g
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return models.Round2(sum / float64(n))
}

// SortByAverage returns the records ordered by descending average grade. Ties keep snapshot order.
func SortByAverage(records []models.StudentRecord) []models.StudentRecord {
	out := models.CloneRecords(records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageGrade() > out[j].AverageGrade()
	})
	return out
}

// TopPerformers ranks records with at least one grade by average and keeps the first n.
func TopPerformers(records []models.StudentRecord, n int) []models.RankedStudent {
	ranked := make([]models.RankedStudent, 0, len(records))
	for _, r := range records {
		if len(r.Grades) == 0 {
			continue
		}
		ranked = append(ranked, models.RankedStudent{StudentRecord: r.Clone(), AvgGrade: r.AverageGrade()})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgGrade > ranked[j].AvgGrade
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].AvgGrade = models.Round2(ranked[i].AvgGrade)
	}
	return ranked
}

// LowPerformers lists graded records whose average is below threshold, weakest first, at most n.
func LowPerformers(records []models.StudentRecord, threshold float64, n int) []models.RankedStudent {
	low := make([]models.RankedStudent, 0)
	for _, r := range records {
		if len(r.Grades) == 0 {
			continue
		}
		if avg := r.AverageGrade(); avg < threshold {
			low = append(low, models.RankedStudent{StudentRecord: r.Clone(), AvgGrade: models.Round2(avg)})
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return low[i].AvgGrade < low[j].AvgGrade
	})
	if n >= 0 && n < len(low) {
		low = low[:n]
	}
	return low
}

// CourseStatistics zips each record's courses with its grades and aggregates per course,
// in the order courses are first seen.
func CourseStatistics(records []models.StudentRecord) []models.CourseStat {
	stats := make([]models.CourseStat, 0)
	index := make(map[string]int)
	for _, r := range records {
		for i, course := range r.Courses {
			if i >= len(r.Grades) {
				break
			}
			pos, ok := index[course]
			if !ok {
				pos = len(stats)
				index[course] = pos
				stats = append(stats, models.CourseStat{Course: course})
			}
			stats[pos].Students = append(stats[pos].Students, r.Name)
			stats[pos].Grades = append(stats[pos].Grades, r.Grades[i])
			stats[pos].TotalStudents++
		}
	}
	for i := range stats {
		var sum float64
		for _, g := range stats[i].Grades {
			sum += g
		}
		stats[i].AvgGrade = models.Round2(sum / float64(len(stats[i].Grades)))
	}
	return stats
}

// GroupByCourse lists the members of every course in first-seen order.
func GroupByCourse(records []models.StudentRecord) []models.CourseGroup {
	groups := make([]models.CourseGroup, 0)
	index := make(map[string]int)
	for _, r := range records {
		for _, course := range r.Courses {
			pos, ok := index[course]
			if !ok {
				pos = len(groups)
				index[course] = pos
				groups = append(groups, models.CourseGroup{Course: course})
			}
			groups[pos].Students = append(groups[pos].Students, r.Clone())
		}
	}
	return groups
}

// LetterGrade maps a numeric grade to its band. Lower bounds are inclusive.
func LetterGrade(grade float64) string {
	switch {
	case grade >= 90:
		return "A"
	case grade >= 80:
		return "B"
	case grade >= 70:
		return "C"
	case grade >= 60:
		return "D"
	default:
		return "F"
	}
}

// GradeDistribution buckets every grade into letter bands.
func GradeDistribution(records []models.StudentRecord) models.GradeDistribution {
	var dist models.GradeDistribution
	for _, r := range records {
		for _, g := range r.Grades {
			switch LetterGrade(g) {
			case "A":
				dist.A++
			case "B":
				dist.B++
			case "C":
				dist.C++
			case "D":
				dist.D++
			default:
				dist.F++
			}
		}
	}
	return dist
}

// Describe summarises a snapshot: counts, average, median, extremes and course popularity.
func Describe(records []models.StudentRecord) models.StatisticsSummary {
	summary := models.StatisticsSummary{
		TotalStudents:      len(records),
		CourseDistribution: courseCounts(records),
	}
	if len(summary.CourseDistribution) > 0 {
		summary.MostPopularCourse = mostPopular(summary.CourseDistribution)
	}

	all := make([]float64, 0)
	for _, r := range records {
		all = append(all, r.Grades...)
	}
	if len(all) == 0 {
		return summary
	}

	sort.Float64s(all)
	var sum float64
	for _, g := range all {
		sum += g
	}
	summary.TotalGrades = len(all)
	summary.AverageGrade = models.Round2(sum / float64(len(all)))
	summary.MedianGrade = models.Round2(median(all))
	summary.MinGrade = all[0]
	summary.MaxGrade = all[len(all)-1]
	return summary
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func courseCounts(records []models.StudentRecord) []models.CourseCount {
	counts := make([]models.CourseCount, 0)
	index := make(map[string]int)
	for _, r := range records {
		for _, course := range r.Courses {
			pos, ok := index[course]
			if !ok {
				pos = len(counts)
				index[course] = pos
				counts = append(counts, models.CourseCount{Course: course})
			}
			counts[pos].Count++
		}
	}
	return counts
}

// mostPopular picks the highest count; the first-encountered course wins ties.
func mostPopular(counts []models.CourseCount) string {
	best := counts[0]
	for _, c := range counts[1:] {
		if c.Count > best.Count {
			best = c
		}
	}
	return best.Course
}
