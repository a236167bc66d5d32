// Package server exposes the prediction service over HTTP: single and batch
// prediction, trend recording and queries, analytics, model metadata,
// retraining and a WebSocket live feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"student-predictor/internal/analytics"
	"student-predictor/internal/dataset"
	"student-predictor/internal/ml"
	"student-predictor/internal/service"
	"student-predictor/internal/storage"
)

// Server is the HTTP API over the prediction service.
type Server struct {
	svc    *service.Service
	feed   *Feed
	server *http.Server
}

// New creates the HTTP server. The feed may be nil to disable the live feed.
func New(svc *service.Service, feed *Feed, port int) *Server {
	s := &Server{svc: svc, feed: feed}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /batch-predict", s.handleBatchPredict)
	mux.HandleFunc("POST /trends", s.handleRecordTrend)
	mux.HandleFunc("GET /trends", s.handleGetTrends)
	mux.HandleFunc("GET /analytics/student/{name}", s.handleStudentAnalytics)
	mux.HandleFunc("GET /analytics/class", s.handleClassAnalytics)
	mux.HandleFunc("GET /predictions", s.handleRecentPredictions)
	mux.HandleFunc("GET /model/info", s.handleModelInfo)
	mux.HandleFunc("POST /model/retrain", s.handleRetrain)
	mux.HandleFunc("GET /tips", s.handleTips)
	mux.HandleFunc("GET /health", s.handleHealth)
	if feed != nil {
		mux.Handle("GET /ws", feed)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.feed != nil {
		s.feed.Close()
	}
	return s.server.Shutdown(ctx)
}

type predictRequest struct {
	Name       string  `json:"name"`
	Hours      float64 `json:"hours"`
	Attendance float64 `json:"attendance"`
}

type predictResponse struct {
	Probability  float64 `json:"probability"`
	Passed       bool    `json:"passed"`
	Confidence   float64 `json:"confidence"`
	Persisted    bool    `json:"persisted"`
	PersistError string  `json:"persist_error,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.svc.Predict(r.Context(), req.Name, req.Hours, req.Attendance)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := predictResponse{
		Probability: p.Probability,
		Passed:      p.Passed,
		Confidence:  p.Confidence,
		Persisted:   p.Persisted,
	}
	if p.PersistError != nil {
		resp.PersistError = p.PersistError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type batchPrediction struct {
	Name           string  `json:"name"`
	Hours          float64 `json:"hours"`
	Attendance     float64 `json:"attendance"`
	Prediction     string  `json:"prediction"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
	Error          string  `json:"error,omitempty"`
}

type batchSummary struct {
	PassCount     int     `json:"pass_count"`
	FailCount     int     `json:"fail_count"`
	PassRate      float64 `json:"pass_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type batchResponse struct {
	TotalStudents int               `json:"total_students"`
	Predictions   []batchPrediction `json:"predictions"`
	Summary       batchSummary      `json:"summary"`
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	var students []predictRequest
	if !decodeBody(w, r, &students) {
		return
	}
	if len(students) == 0 {
		http.Error(w, "no students provided", http.StatusBadRequest)
		return
	}

	resp := batchResponse{TotalStudents: len(students)}
	confidenceSum := 0.0
	scored := 0

	for _, st := range students {
		bp := batchPrediction{Name: st.Name, Hours: st.Hours, Attendance: st.Attendance}

		p, err := s.svc.Predict(r.Context(), st.Name, st.Hours, st.Attendance)
		if err != nil {
			if errors.Is(err, ml.ErrNoActiveModel) {
				writeError(w, err)
				return
			}
			bp.Error = err.Error()
			resp.Predictions = append(resp.Predictions, bp)
			continue
		}

		if p.Passed {
			bp.Prediction = "Pass"
			resp.Summary.PassCount++
		} else {
			bp.Prediction = "Fail"
			resp.Summary.FailCount++
		}
		bp.Confidence = p.Confidence
		bp.Recommendation = recommend(st.Hours, st.Attendance)
		confidenceSum += p.Confidence
		scored++
		resp.Predictions = append(resp.Predictions, bp)
	}

	if scored > 0 {
		resp.Summary.PassRate = float64(resp.Summary.PassCount) / float64(scored)
		resp.Summary.AvgConfidence = confidenceSum / float64(scored)
	}
	writeJSON(w, http.StatusOK, resp)
}

func recommend(hours, attendance float64) string {
	switch {
	case hours < 5 && attendance < 75:
		return "Increase weekly study time and attendance"
	case hours < 5:
		return "Increase weekly study time"
	case attendance < 75:
		return "Improve class attendance"
	default:
		return "Keep up the good work"
	}
}

type trendRequest struct {
	StudentName string  `json:"student_name"`
	Week        int     `json:"week"`
	Hours       float64 `json:"hours"`
	Attendance  float64 `json:"attendance"`
}

func (s *Server) handleRecordTrend(w http.ResponseWriter, r *http.Request) {
	var req trendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.svc.RecordTrend(r.Context(), req.StudentName, req.Week, req.Hours, req.Attendance)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"passed":     result.Passed,
		"confidence": result.Confidence,
	})
}

func (s *Server) handleGetTrends(w http.ResponseWriter, r *http.Request) {
	filter := storage.TrendFilter{
		StudentName: r.URL.Query().Get("student"),
		FromWeek:    queryInt(r, "from_week"),
		ToWeek:      queryInt(r, "to_week"),
	}

	trends, err := s.svc.Store().Trends(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if trends == nil {
		trends = []storage.TrendRecord{}
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleStudentAnalytics(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	trends, err := s.svc.Store().Trends(storage.TrendFilter{StudentName: name})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(trends) == 0 {
		http.Error(w, "no trend data for student", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, analytics.AnalyzeStudent(name, trends))
}

func (s *Server) handleClassAnalytics(w http.ResponseWriter, r *http.Request) {
	store := s.svc.Store()

	stats, err := store.ClassStats()
	if err != nil {
		writeError(w, err)
		return
	}
	weekly, err := store.WeeklyBuckets(10)
	if err != nil {
		writeError(w, err)
		return
	}
	trends, err := store.Trends(storage.TrendFilter{})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statistics":   stats,
		"weekly":       weekly,
		"class_trends": analytics.AnalyzeClass(trends),
	})
}

func (s *Server) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = 20
	}

	records, err := s.svc.Store().RecentPredictions(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ModelInfo()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type retrainRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	var req retrainRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	info, err := s.svc.Retrain(r.Context(), req.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":  info.Version,
		"accuracy": info.Accuracy,
	})
}

var successTips = []string{
	"Study at least 5 hours weekly for better results",
	"Maintain 80%+ attendance for higher pass rates",
	"Consistent daily study beats last-minute cramming",
	"Practice with past papers regularly",
	"Review class notes within 24 hours",
	"Join study groups for difficult subjects",
	"Get 7-8 hours sleep for optimal memory retention",
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successTips)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.ModelInfo()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"model_ready": err == nil,
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var invalidInput *ml.InvalidInputError
	var formatErr *dataset.FormatError

	switch {
	case errors.As(err, &invalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ml.ErrNoActiveModel):
		http.Error(w, "service not ready: no trained model", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrTrainingInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &formatErr),
		errors.Is(err, dataset.ErrEmptyDataset),
		errors.Is(err, ml.ErrDegenerateDataset):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case storage.IsPersistenceError(err):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
