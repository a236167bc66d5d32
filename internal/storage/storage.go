// Package storage persists prediction history, per-week trend snapshots and
// the model version audit trail. It uses BoltDB as the underlying engine,
// one bucket per record type, all append-only: every write assigns the next
// sequence id and defaults the creation timestamp to write time.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket   = "student_predictions"
	trendsBucket        = "student_trends"
	modelVersionsBucket = "model_versions"
)

// PersistenceError wraps storage-layer failures so callers can distinguish
// infrastructure problems from invalid requests. A failed write never
// invalidates an already computed prediction.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// IsPersistenceError reports whether err is a storage-layer failure.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// PredictionRecord is one row of prediction history, append-only.
type PredictionRecord struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	StudyHours    float64   `json:"study_hours"`
	Attendance    float64   `json:"attendance"`
	PredictedPass bool      `json:"predicted_pass"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// TrendRecord is a per-week snapshot of a student's inputs and prediction,
// used to reconstruct the student's trajectory across weeks.
type TrendRecord struct {
	ID            uint64    `json:"id"`
	StudentName   string    `json:"student_name"`
	Week          int       `json:"week"`
	StudyHours    float64   `json:"study_hours"`
	Attendance    float64   `json:"attendance"`
	PredictedPass bool      `json:"predicted_pass"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// ModelVersionRecord is one row of the training audit trail.
type ModelVersionRecord struct {
	ID           uint64    `json:"id"`
	Version      string    `json:"version"`
	Accuracy     float64   `json:"accuracy"`
	FeaturesUsed string    `json:"features_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store provides persistent storage for prediction data using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New creates a storage instance under the specified data path. It opens the
// BoltDB database and creates the buckets if needed.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "student-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{predictionsBucket, trendsBucket, modelVersionsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePrediction appends a prediction row, assigning its id and defaulting
// the creation timestamp if unset.
func (s *Store) SavePrediction(rec *PredictionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.append(predictionsBucket, func(id uint64) (interface{}, error) {
		rec.ID = id
		return rec, nil
	})
	if err != nil {
		return &PersistenceError{Op: "save prediction", Cause: err}
	}
	return nil
}

// SaveTrend appends a trend row, assigning its id and defaulting the
// creation timestamp if unset.
func (s *Store) SaveTrend(rec *TrendRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.append(trendsBucket, func(id uint64) (interface{}, error) {
		rec.ID = id
		return rec, nil
	})
	if err != nil {
		return &PersistenceError{Op: "save trend", Cause: err}
	}
	return nil
}

// SaveModelVersion appends a model version row, assigning its id and
// defaulting the creation timestamp if unset.
func (s *Store) SaveModelVersion(rec *ModelVersionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.append(modelVersionsBucket, func(id uint64) (interface{}, error) {
		rec.ID = id
		return rec, nil
	})
	if err != nil {
		return &PersistenceError{Op: "save model version", Cause: err}
	}
	return nil
}

// append writes one JSON record keyed by the bucket's next sequence number.
// Sequence keys are big-endian so cursor order equals insertion order.
func (s *Store) append(bucket string, build func(id uint64) (interface{}, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		id, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		rec, err := build(id)
		if err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}

		return b.Put(itob(id), data)
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
