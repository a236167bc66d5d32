package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
)

// TrendFilter narrows trend queries. StudentName is required; a zero week
// bound means unbounded on that side.
type TrendFilter struct {
	StudentName string
	FromWeek    int
	ToWeek      int
}

// ClassStatistics aggregates the full prediction history.
type ClassStatistics struct {
	TotalStudents int     `json:"total_students"`
	PassRate      float64 `json:"pass_rate"`
	AvgStudyHours float64 `json:"avg_study_hours"`
	AvgAttendance float64 `json:"avg_attendance"`
}

// WeeklyBucket aggregates predictions by the ISO week they were made in.
type WeeklyBucket struct {
	Week            string  `json:"week"`
	AvgStudyHours   float64 `json:"avg_study_hours"`
	AvgAttendance   float64 `json:"avg_attendance"`
	PassRate        float64 `json:"pass_rate"`
	PredictionCount int     `json:"prediction_count"`
}

// Predictions returns the full history in creation order. A name filter
// ("" matches all) narrows to one student.
func (s *Store) Predictions(name string) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.scan(predictionsBucket, func(v []byte) error {
		var rec PredictionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal prediction: %w", err)
		}
		if name == "" || rec.Name == name {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read predictions", Cause: err}
	}
	return records, nil
}

// RecentPredictions returns up to limit rows, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	records, err := s.Predictions("")
	if err != nil {
		return nil, err
	}
	// Reverse insertion order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Trends returns a student's trend rows ordered by week ascending.
func (s *Store) Trends(filter TrendFilter) ([]TrendRecord, error) {
	var records []TrendRecord
	err := s.scan(trendsBucket, func(v []byte) error {
		var rec TrendRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal trend: %w", err)
		}
		if filter.StudentName != "" && rec.StudentName != filter.StudentName {
			return nil
		}
		if filter.FromWeek > 0 && rec.Week < filter.FromWeek {
			return nil
		}
		if filter.ToWeek > 0 && rec.Week > filter.ToWeek {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read trends", Cause: err}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].StudentName != records[j].StudentName {
			return records[i].StudentName < records[j].StudentName
		}
		return records[i].Week < records[j].Week
	})
	return records, nil
}

// ModelVersions returns the training audit trail in creation order.
func (s *Store) ModelVersions() ([]ModelVersionRecord, error) {
	var records []ModelVersionRecord
	err := s.scan(modelVersionsBucket, func(v []byte) error {
		var rec ModelVersionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal model version: %w", err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read model versions", Cause: err}
	}
	return records, nil
}

// LatestModelVersion returns the most recent audit row, or nil if the log
// is empty.
func (s *Store) LatestModelVersion() (*ModelVersionRecord, error) {
	versions, err := s.ModelVersions()
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[len(versions)-1], nil
}

// ClassStats aggregates all stored predictions into class-level statistics.
func (s *Store) ClassStats() (ClassStatistics, error) {
	records, err := s.Predictions("")
	if err != nil {
		return ClassStatistics{}, err
	}

	stats := ClassStatistics{TotalStudents: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	passed := 0
	for _, r := range records {
		if r.PredictedPass {
			passed++
		}
		stats.AvgStudyHours += r.StudyHours
		stats.AvgAttendance += r.Attendance
	}
	n := float64(len(records))
	stats.PassRate = float64(passed) / n
	stats.AvgStudyHours /= n
	stats.AvgAttendance /= n
	return stats, nil
}

// WeeklyBuckets groups stored predictions by the ISO week of their creation
// time, newest week first, capped to the last limit weeks.
func (s *Store) WeeklyBuckets(limit int) ([]WeeklyBucket, error) {
	records, err := s.Predictions("")
	if err != nil {
		return nil, err
	}

	type agg struct {
		hours, attendance float64
		passed, count     int
	}
	byWeek := make(map[string]*agg)
	for _, r := range records {
		year, week := r.CreatedAt.ISOWeek()
		key := fmt.Sprintf("%04d-W%02d", year, week)
		a, ok := byWeek[key]
		if !ok {
			a = &agg{}
			byWeek[key] = a
		}
		a.hours += r.StudyHours
		a.attendance += r.Attendance
		if r.PredictedPass {
			a.passed++
		}
		a.count++
	}

	buckets := make([]WeeklyBucket, 0, len(byWeek))
	for key, a := range byWeek {
		n := float64(a.count)
		buckets = append(buckets, WeeklyBucket{
			Week:            key,
			AvgStudyHours:   a.hours / n,
			AvgAttendance:   a.attendance / n,
			PassRate:        float64(a.passed) / n,
			PredictionCount: a.count,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Week > buckets[j].Week })
	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets, nil
}

func (s *Store) scan(bucket string, visit func(v []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := visit(v); err != nil {
				return err
			}
		}
		return nil
	})
}
