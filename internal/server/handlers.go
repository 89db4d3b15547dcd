package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// Query defaults and caps.
const (
	defaultTopN   = 5
	defaultMonths = 3
	defaultRuns   = 20
	maxBodyBytes  = 10 << 20
)

// apiError is the body of every error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// respondPredictError maps predictor errors onto status codes.
func (s *Server) respondPredictError(w http.ResponseWriter, err error) {
	var inErr *predict.InputError
	switch {
	case errors.As(err, &inErr):
		s.metrics.predictionErrors.WithLabelValues("invalid_input").Inc()
		s.respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, trainer.ErrModelNotFound):
		s.metrics.predictionErrors.WithLabelValues("no_model").Inc()
		s.respondError(w, http.StatusServiceUnavailable, "MODEL_NOT_FOUND", err.Error())
	default:
		s.metrics.predictionErrors.WithLabelValues("internal").Inc()
		s.logger.Error("prediction failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "PREDICTION_FAILED", err.Error())
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// intParam reads a positive integer query parameter.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (s *Server) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_ID", "customer id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) churnPredictor() *predict.ChurnPredictor {
	if p := s.predictor.Load(); p != nil {
		return p
	}
	return predict.NewChurnPredictor(nil, features.DefaultOptions(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok", "model_loaded": false}
	if p := s.predictor.Load(); p != nil && p.Bundle() != nil {
		body["model_loaded"] = true
		body["model"] = p.Bundle().Name
	}
	s.respondJSON(w, http.StatusOK, body)
}

// record stores a served prediction. Failures are logged only.
func (s *Server) record(r *http.Request, res *predict.PredictionResult) {
	s.metrics.observePrediction(string(res.RiskTier), res.ChurnProbability)
	if s.cfg.Store == nil {
		return
	}
	err := s.cfg.Store.RecordPrediction(r.Context(), &state.Prediction{
		CustomerID:       res.CustomerID,
		Model:            res.Model,
		ChurnProbability: res.ChurnProbability,
		RiskTier:         string(res.RiskTier),
	})
	if err != nil {
		s.logger.Warn("failed to record prediction", "customer_id", res.CustomerID, "error", err)
	}
}

// handlePredict scores one customer. With ?explain=true the response also
// lists the model's dominant features.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if !s.decodeBody(w, r, &rec) {
		return
	}

	p := s.churnPredictor()
	if explain, _ := strconv.ParseBool(r.URL.Query().Get("explain")); explain {
		exp, err := p.Explain(rec)
		if err != nil {
			s.respondPredictError(w, err)
			return
		}
		s.record(r, exp.Prediction)
		s.respondJSON(w, http.StatusOK, exp)
		return
	}

	res, err := p.Predict(rec)
	if err != nil {
		s.respondPredictError(w, err)
		return
	}
	s.record(r, res)
	s.respondJSON(w, http.StatusOK, res)
}

type batchResponse struct {
	Scored  int                   `json:"scored"`
	Failed  int                   `json:"failed"`
	Results []predict.BatchResult `json:"results"`
}

// handlePredictBatch scores a JSON array of customers. Rows that fail are
// reported individually and the response is still 200.
func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var recs []map[string]any
	if !s.decodeBody(w, r, &recs) {
		return
	}
	p := s.churnPredictor()
	if p.Bundle() == nil {
		s.respondPredictError(w, trainer.ErrModelNotFound)
		return
	}

	resp := batchResponse{Results: p.PredictBatch(recs)}
	for _, br := range resp.Results {
		if br.OK() {
			resp.Scored++
			s.record(r, br.Result)
		} else {
			resp.Failed++
			s.metrics.predictionErrors.WithLabelValues("invalid_input").Inc()
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNextPurchase(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sales == nil {
		s.respondError(w, http.StatusServiceUnavailable, "NO_HISTORY", "purchase history not loaded")
		return
	}
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}

	np := s.cfg.Sales.PredictNextPurchase(id)
	status := http.StatusOK
	if np.Status == predict.StatusNotFound {
		status = http.StatusNotFound
	}
	s.respondJSON(w, status, np)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Products == nil {
		s.respondError(w, http.StatusServiceUnavailable, "NO_HISTORY", "purchase history not loaded")
		return
	}
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	top, ok := intParam(r, "top", defaultTopN)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "top must be a positive integer")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"customer_id":     id,
		"recommendations": s.cfg.Products.RecommendProducts(id, top),
	})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sales == nil {
		s.respondError(w, http.StatusServiceUnavailable, "NO_HISTORY", "purchase history not loaded")
		return
	}
	months, ok := intParam(r, "months", defaultMonths)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "months must be a positive integer")
		return
	}
	s.respondJSON(w, http.StatusOK, s.cfg.Sales.PredictRevenue(months))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "NO_STATE", "state store not configured")
		return
	}
	limit, ok := intParam(r, "limit", defaultRuns)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be a positive integer")
		return
	}
	runs, err := s.cfg.Store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.respondError(w, http.StatusInternalServerError, "STATE_ERROR", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
