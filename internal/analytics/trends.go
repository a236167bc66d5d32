// Package analytics derives longitudinal insight from stored trend records:
// per-student trajectories with an improvement score and trend label, and
// class-level summaries across students.
package analytics

import (
	"sort"

	"student-predictor/internal/storage"
)

// Trend labels for a student's trajectory.
const (
	TrendImproving = "Improving"
	TrendDeclining = "Declining"
	TrendStable    = "Stable"
)

// StudentTrend is the analyzed trajectory of one student across weeks.
type StudentTrend struct {
	StudentName      string                `json:"student_name"`
	WeeklyData       []storage.TrendRecord `json:"weekly_data"`
	OverallTrend     string                `json:"overall_trend"`
	ImprovementScore float64               `json:"improvement_score"`
}

// ClassTrends summarizes trend data across all students.
type ClassTrends struct {
	TotalStudents      int      `json:"total_students"`
	TopPerformers      []string `json:"top_performers"`
	AtRiskStudents     []string `json:"at_risk_students"`
	AverageImprovement float64  `json:"average_improvement"`
}

// AnalyzeStudent builds a StudentTrend from the student's stored weekly
// rows, which must already be ordered by week ascending.
func AnalyzeStudent(name string, weekly []storage.TrendRecord) StudentTrend {
	return StudentTrend{
		StudentName:      name,
		WeeklyData:       weekly,
		OverallTrend:     trendLabel(weekly),
		ImprovementScore: improvementScore(weekly),
	}
}

// AnalyzeClass summarizes all students' trend rows. Students are ranked by
// their accumulated engagement score; the three highest are top performers
// and the three lowest are at risk.
func AnalyzeClass(records []storage.TrendRecord) ClassTrends {
	byStudent := make(map[string][]storage.TrendRecord)
	for _, r := range records {
		byStudent[r.StudentName] = append(byStudent[r.StudentName], r)
	}

	type ranked struct {
		name  string
		score float64
	}
	students := make([]ranked, 0, len(byStudent))
	totalImprovement := 0.0
	for name, rows := range byStudent {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })
		score := 0.0
		for _, r := range rows {
			score += 0.5*r.StudyHours + 0.5*r.Attendance
		}
		students = append(students, ranked{name: name, score: score})
		totalImprovement += improvementScore(rows)
	}

	sort.Slice(students, func(i, j int) bool {
		if students[i].score != students[j].score {
			return students[i].score > students[j].score
		}
		return students[i].name < students[j].name
	})

	ct := ClassTrends{TotalStudents: len(students)}
	for i := 0; i < len(students) && i < 3; i++ {
		ct.TopPerformers = append(ct.TopPerformers, students[i].name)
	}
	for i := len(students) - 1; i >= 0 && len(ct.AtRiskStudents) < 3; i-- {
		ct.AtRiskStudents = append(ct.AtRiskStudents, students[i].name)
	}
	if len(students) > 0 {
		ct.AverageImprovement = totalImprovement / float64(len(students))
	}
	return ct
}

// improvementScore weighs the first-to-last week change in study hours and
// attendance (60/40), clamped to [0,10].
func improvementScore(weekly []storage.TrendRecord) float64 {
	if len(weekly) < 2 {
		return 0
	}
	first, last := weekly[0], weekly[len(weekly)-1]
	score := (last.StudyHours-first.StudyHours)*0.6 + (last.Attendance-first.Attendance)*0.4
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// trendLabel compares the first and last week's confidence with a 0.1 band.
func trendLabel(weekly []storage.TrendRecord) string {
	if len(weekly) < 2 {
		return TrendStable
	}
	first := weekly[0].Confidence
	last := weekly[len(weekly)-1].Confidence
	switch {
	case last > first+0.1:
		return TrendImproving
	case last < first-0.1:
		return TrendDeclining
	default:
		return TrendStable
	}
}
