package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"student-predictor/internal/storage"
)

func weekly(confidences ...float64) []storage.TrendRecord {
	rows := make([]storage.TrendRecord, len(confidences))
	for i, c := range confidences {
		rows[i] = storage.TrendRecord{Week: i + 1, Confidence: c}
	}
	return rows
}

func TestAnalyzeStudent_TrendLabel(t *testing.T) {
	testCases := []struct {
		name string
		rows []storage.TrendRecord
		want string
	}{
		{"improving", weekly(0.4, 0.5, 0.7), TrendImproving},
		{"declining", weekly(0.8, 0.6, 0.5), TrendDeclining},
		{"within band", weekly(0.5, 0.9, 0.55), TrendStable},
		{"single week", weekly(0.5), TrendStable},
		{"no data", nil, TrendStable},
		{"exactly at band edge", weekly(0.5, 0.6), TrendStable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trend := AnalyzeStudent("alice", tc.rows)
			assert.Equal(t, tc.want, trend.OverallTrend)
			assert.Equal(t, "alice", trend.StudentName)
		})
	}
}

func TestAnalyzeStudent_ImprovementScore(t *testing.T) {
	rows := []storage.TrendRecord{
		{Week: 1, StudyHours: 2, Attendance: 50},
		{Week: 2, StudyHours: 3, Attendance: 60},
		{Week: 3, StudyHours: 5, Attendance: 70},
	}
	trend := AnalyzeStudent("bob", rows)

	// (5-2)*0.6 + (70-50)*0.4 = 1.8 + 8 = 9.8
	assert.InDelta(t, 9.8, trend.ImprovementScore, 1e-9)
}

func TestAnalyzeStudent_ImprovementScoreClamped(t *testing.T) {
	decline := []storage.TrendRecord{
		{Week: 1, StudyHours: 8, Attendance: 90},
		{Week: 2, StudyHours: 2, Attendance: 40},
	}
	assert.Equal(t, 0.0, AnalyzeStudent("x", decline).ImprovementScore,
		"negative change clamps to zero")

	surge := []storage.TrendRecord{
		{Week: 1, StudyHours: 0, Attendance: 0},
		{Week: 2, StudyHours: 20, Attendance: 100},
	}
	assert.Equal(t, 10.0, AnalyzeStudent("y", surge).ImprovementScore,
		"large change clamps to ten")

	assert.Equal(t, 0.0, AnalyzeStudent("z", weekly(0.5)).ImprovementScore,
		"a single week has no trajectory")
}

func TestAnalyzeClass_Ranking(t *testing.T) {
	var records []storage.TrendRecord
	// Engagement score per student is 0.5*hours + 0.5*attendance summed
	// over weeks, so higher inputs rank higher.
	students := map[string]float64{
		"alice": 90, "bob": 80, "carol": 70, "dave": 40, "erin": 30,
	}
	for name, attendance := range students {
		records = append(records, storage.TrendRecord{
			StudentName: name,
			Week:        1,
			StudyHours:  attendance / 10,
			Attendance:  attendance,
		})
	}

	ct := AnalyzeClass(records)

	assert.Equal(t, 5, ct.TotalStudents)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ct.TopPerformers)
	assert.Equal(t, []string{"erin", "dave", "carol"}, ct.AtRiskStudents)
}

func TestAnalyzeClass_AverageImprovement(t *testing.T) {
	records := []storage.TrendRecord{
		// alice improves: (6-2)*0.6 + (80-60)*0.4 = 10.4 -> clamped 10
		{StudentName: "alice", Week: 1, StudyHours: 2, Attendance: 60},
		{StudentName: "alice", Week: 2, StudyHours: 6, Attendance: 80},
		// bob declines: clamped to 0
		{StudentName: "bob", Week: 1, StudyHours: 8, Attendance: 90},
		{StudentName: "bob", Week: 2, StudyHours: 4, Attendance: 50},
	}

	ct := AnalyzeClass(records)
	assert.Equal(t, 2, ct.TotalStudents)
	assert.InDelta(t, 5.0, ct.AverageImprovement, 1e-9)
}

func TestAnalyzeClass_Empty(t *testing.T) {
	ct := AnalyzeClass(nil)
	assert.Equal(t, 0, ct.TotalStudents)
	assert.Empty(t, ct.TopPerformers)
	assert.Empty(t, ct.AtRiskStudents)
	assert.Equal(t, 0.0, ct.AverageImprovement)
}

func TestAnalyzeClass_SortsWeeksBeforeScoring(t *testing.T) {
	// Rows arrive out of week order; improvement must still be first-to-last.
	records := []storage.TrendRecord{
		{StudentName: "alice", Week: 3, StudyHours: 6, Attendance: 80},
		{StudentName: "alice", Week: 1, StudyHours: 2, Attendance: 60},
		{StudentName: "alice", Week: 2, StudyHours: 4, Attendance: 70},
	}

	ct := AnalyzeClass(records)
	// (6-2)*0.6 + (80-60)*0.4 = 10.4 -> clamped 10
	assert.InDelta(t, 10.0, ct.AverageImprovement, 1e-9)
}
