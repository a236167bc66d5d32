package metrics

// Wrapper exposes the metrics as plain methods so consumers depend on a
// narrow interface instead of prometheus types (avoids circular imports and
// keeps test doubles trivial).
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc()                     { w.m.Predictions.Inc() }
func (w *Wrapper) PredictionFailuresInc()              { w.m.PredictionErrors.Inc() }
func (w *Wrapper) PredictionLatencyObserve(v float64)  { w.m.PredictionLatency.Observe(v) }
func (w *Wrapper) PredictionScoreObserve(v float64)    { w.m.PredictionScores.Observe(v) }
func (w *Wrapper) TrendRecordsInc()                    { w.m.TrendRecords.Inc() }
func (w *Wrapper) TrainingRunsInc()                    { w.m.TrainingRuns.Inc() }
func (w *Wrapper) TrainingFailuresInc()                { w.m.TrainingFailures.Inc() }
func (w *Wrapper) TrainingDurationObserve(v float64)   { w.m.TrainingDuration.Observe(v) }
func (w *Wrapper) ModelAccuracySet(v float64)          { w.m.ModelAccuracy.Set(v) }
func (w *Wrapper) ModelAgeSet(v float64)               { w.m.ModelAge.Set(v) }
func (w *Wrapper) PersistenceFailuresInc()             { w.m.PersistenceFailures.Inc() }
func (w *Wrapper) DatasetRowsRejectedAdd(n int)        { w.m.DatasetRowsRejected.Add(float64(n)) }
func (w *Wrapper) FeedClientsAdd(delta float64)        { w.m.FeedClients.Add(delta) }
