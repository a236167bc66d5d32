package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-predictor/internal/cfg"
	"student-predictor/internal/dataset"
	"student-predictor/internal/metrics"
	"student-predictor/internal/ml"
	"student-predictor/internal/storage"
)

const trainingCSV = `name,study_hours,attendance,passed
a,8,80,1
b,9,85,1
c,10,90,1
d,8.5,95,1
e,9.5,88,1
f,1,40,0
g,2,35,0
h,3,30,0
i,2.5,20,0
j,1.5,38,0
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	settings := cfg.Settings{
		DatasetSource: writeCSV(t, trainingCSV),
		LearningRate:  0.1,
		Iterations:    1000,
		RESTTimeout:   5 * time.Second,
	}
	mw := metrics.NewWrapper(metrics.NewWithRegistry(prometheus.NewRegistry()))
	return New(settings, store, mw)
}

func trainedService(t *testing.T) *Service {
	t.Helper()
	svc := newTestService(t)
	_, err := svc.Retrain(context.Background(), "")
	require.NoError(t, err)
	return svc
}

func TestRetrain_ActivatesAndAudits(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ModelInfo()
	assert.ErrorIs(t, err, ml.ErrNoActiveModel)

	info, err := svc.Retrain(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, 1.0, info.Accuracy)
	assert.Equal(t, []string{"study_hours", "attendance"}, info.FeatureNames)

	got, err := svc.ModelInfo()
	require.NoError(t, err)
	assert.Equal(t, info.Version, got.Version)

	versions, err := svc.Store().ModelVersions()
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, info.Version, versions[0].Version)
	assert.Equal(t, "study_hours,attendance", versions[0].FeaturesUsed)
}

func TestRetrain_ExplicitSource(t *testing.T) {
	svc := trainedService(t)

	other := writeCSV(t, trainingCSV)
	info, err := svc.Retrain(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 1.0, info.Accuracy)

	versions, err := svc.Store().ModelVersions()
	require.NoError(t, err)
	assert.Len(t, versions, 2, "each retrain appends an audit row")
}

func TestRetrain_LoadFailureKeepsModel(t *testing.T) {
	svc := trainedService(t)
	before, err := svc.ModelInfo()
	require.NoError(t, err)

	_, err = svc.Retrain(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	after, infoErr := svc.ModelInfo()
	require.NoError(t, infoErr)
	assert.Equal(t, before.Version, after.Version, "a failed retrain must not disturb the active model")
}

func TestRetrain_DegenerateDatasetKeepsModel(t *testing.T) {
	svc := trainedService(t)

	onlyPasses := writeCSV(t, "name,study_hours,attendance,passed\na,8,90,1\nb,9,95,1\n")
	_, err := svc.Retrain(context.Background(), onlyPasses)
	assert.ErrorIs(t, err, ml.ErrDegenerateDataset)

	_, err = svc.ModelInfo()
	assert.NoError(t, err, "previous model must stay active")
}

func TestRetrain_EmptyDataset(t *testing.T) {
	svc := newTestService(t)

	headerOnly := writeCSV(t, "name,study_hours,attendance,passed\n")
	_, err := svc.Retrain(context.Background(), headerOnly)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
}

func TestRetrain_SerializedTraining(t *testing.T) {
	svc := trainedService(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	busy := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Retrain(context.Background(), ""); errors.Is(err, ErrTrainingInProgress) {
				mu.Lock()
				busy++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// At least one run completed; the rest either completed after the lock
	// freed or failed fast with the in-progress error.
	versions, err := svc.Store().ModelVersions()
	require.NoError(t, err)
	assert.Equal(t, 9-busy, len(versions), "every non-rejected retrain appends exactly one audit row")
}

func TestPredict_PersistsRecord(t *testing.T) {
	svc := trainedService(t)

	p, err := svc.Predict(context.Background(), "alice", 9, 90)
	require.NoError(t, err)
	assert.True(t, p.Passed)
	assert.True(t, p.Persisted)
	assert.NoError(t, p.PersistError)

	records, err := svc.Store().Predictions("alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 9.0, records[0].StudyHours)
	assert.Equal(t, 90.0, records[0].Attendance)
	assert.True(t, records[0].PredictedPass)
	assert.Equal(t, p.Confidence, records[0].Confidence)
}

func TestPredict_PartialSuccessOnStoreFailure(t *testing.T) {
	svc := trainedService(t)
	require.NoError(t, svc.Store().Close())

	p, err := svc.Predict(context.Background(), "alice", 9, 90)
	require.NoError(t, err, "a failed write must not invalidate the prediction")
	assert.True(t, p.Passed)
	assert.False(t, p.Persisted)
	require.Error(t, p.PersistError)
	assert.True(t, storage.IsPersistenceError(p.PersistError))
}

func TestPredict_InvalidInputNotPersisted(t *testing.T) {
	svc := trainedService(t)

	_, err := svc.Predict(context.Background(), "alice", -1, 50)
	var invalid *ml.InvalidInputError
	require.ErrorAs(t, err, &invalid)

	records, err := svc.Store().Predictions("")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPredict_NoActiveModel(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Predict(context.Background(), "alice", 5, 75)
	assert.ErrorIs(t, err, ml.ErrNoActiveModel)
}

type captureFeed struct {
	mu   sync.Mutex
	recs []storage.PredictionRecord
}

func (f *captureFeed) Publish(rec storage.PredictionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
}

func TestPredict_PublishesToFeed(t *testing.T) {
	svc := trainedService(t)
	feed := &captureFeed{}
	svc.SetFeed(feed)

	_, err := svc.Predict(context.Background(), "alice", 9, 90)
	require.NoError(t, err)

	require.Len(t, feed.recs, 1)
	assert.Equal(t, "alice", feed.recs[0].Name)
	assert.NotZero(t, feed.recs[0].ID, "published record carries its assigned id")
}

func TestRecordTrend(t *testing.T) {
	svc := trainedService(t)

	result, err := svc.RecordTrend(context.Background(), "alice", 1, 3, 60)
	require.NoError(t, err)
	assert.Equal(t, result.Passed, result.Probability >= 0.5)

	_, err = svc.RecordTrend(context.Background(), "alice", 2, 5, 75)
	require.NoError(t, err)

	trends, err := svc.Store().Trends(storage.TrendFilter{StudentName: "alice"})
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, 1, trends[0].Week)
	assert.Equal(t, 2, trends[1].Week)
}

func TestRecordTrend_InvalidWeek(t *testing.T) {
	svc := trainedService(t)

	for _, week := range []int{0, -3} {
		_, err := svc.RecordTrend(context.Background(), "alice", week, 5, 75)
		var invalid *ml.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "week", invalid.Field)
	}

	trends, err := svc.Store().Trends(storage.TrendFilter{StudentName: "alice"})
	require.NoError(t, err)
	assert.Empty(t, trends)
}

func TestRecordTrend_StoreFailureFailsOperation(t *testing.T) {
	svc := trainedService(t)
	require.NoError(t, svc.Store().Close())

	_, err := svc.RecordTrend(context.Background(), "alice", 1, 5, 75)
	require.Error(t, err)
	assert.True(t, storage.IsPersistenceError(err))
}
