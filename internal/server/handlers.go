package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"exohab/internal/common"
	"exohab/internal/ml"
	"exohab/internal/predict"
	"exohab/internal/storage"
	"exohab/internal/validate"

	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Success         bool                  `json:"success"`
	Error           string                `json:"error"`
	MissingFeatures []string              `json:"missing_features,omitempty"`
	InvalidFeatures []validate.FieldIssue `json:"invalid_features,omitempty"`
	RequestID       string                `json:"request_id,omitempty"`
}

type predictionResponse struct {
	Success bool `json:"success"`
	predict.Result
	RequestID string `json:"request_id,omitempty"`
}

type batchResponse struct {
	Success bool `json:"success"`
	predict.BatchOutcome
	RequestID string `json:"request_id,omitempty"`
}

type featuresResponse struct {
	RequiredFeatures    []string          `json:"required_features"`
	FeatureDescriptions map[string]string `json:"feature_descriptions"`
	Count               int               `json:"count"`
}

type historyResponse struct {
	Success bool             `json:"success"`
	History []storage.Record `json:"history"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
}

type apiInfo struct {
	Message     string            `json:"message"`
	Version     string            `json:"version"`
	Endpoints   map[string]string `json:"endpoints"`
	ModelLoaded bool              `json:"model_loaded"`
	BatchLimit  int               `json:"batch_limit"`
	Model       ml.ModelInfo      `json:"model"`
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, apiInfo{
		Message: "Exoplanet Habitability Prediction API",
		Version: Version,
		Endpoints: map[string]string{
			"health":        "/health",
			"features":      "/features",
			"predict":       "/predict (POST)",
			"batch-predict": "/batch-predict (POST)",
			"history":       "/history",
			"stream":        "/ws/predict (WebSocket)",
			"metrics":       "/metrics",
		},
		ModelLoaded: s.svc.Ready(),
		BatchLimit:  s.svc.BatchLimit(),
		Model:       s.bundle.Info(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	status := http.StatusOK
	readiness := s.bundle.Status()
	if readiness.Status != ml.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readiness)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	schema := s.svc.Schema()
	writeJSON(w, http.StatusOK, featuresResponse{
		RequiredFeatures:    schema.Names(),
		FeatureDescriptions: schema.Descriptions(),
		Count:               schema.Len(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id := RequestID(r.Context())
	if err := s.svc.CheckReady(); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	res, err := s.svc.PredictRaw(raw)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	s.record(storage.SourceSingle, id, res)
	writeJSON(w, http.StatusOK, predictionResponse{Success: true, Result: res, RequestID: id})
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id := RequestID(r.Context())
	if err := s.svc.CheckReady(); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	items, err := batchItems(raw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	out, err := s.svc.PredictBatch(items)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	if s.opts.Store != nil && len(out.Results) > 0 {
		recs := make([]storage.Record, len(out.Results))
		now := time.Now().UTC()
		for i, item := range out.Results {
			// Offset by index so history keeps batch order.
			ts := now.Add(time.Duration(item.Index))
			recs[i] = historyRecord(fmt.Sprintf("%s-%d", id, item.Index), storage.SourceBatch, ts, item.Result)
		}
		if err := s.opts.Store.SavePredictions(recs); err != nil {
			log.Error().Err(err).Str("request_id", id).Msg("failed to store batch predictions")
		}
	}

	writeJSON(w, http.StatusOK, batchResponse{Success: true, BatchOutcome: out, RequestID: id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.opts.Store == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New(common.ErrMsgNoHistory))
		return
	}

	query := r.URL.Query()
	limit := s.opts.HistoryLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer, got %q", v))
			return
		}
		limit = min(n, common.MaxHistoryLimit)
	}

	start, err := parseTimeParam(query.Get("start"), time.Time{})
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	end, err := parseTimeParam(query.Get("end"), time.Now().UTC())
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var recs []storage.Record
	if query.Has("start") || query.Has("end") {
		if end.Before(start) {
			s.writeError(w, r, http.StatusBadRequest, errors.New("end must not be before start"))
			return
		}
		recs, err = s.opts.Store.Range(start, end, limit)
	} else {
		recs, err = s.opts.Store.Recent(limit)
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("read history: %w", err))
		return
	}
	total, err := s.opts.Store.Count()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("count history: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: recs, Count: len(recs), Total: total})
}

// parseTimeParam parses an RFC3339 query value, returning def when v is empty.
func parseTimeParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected RFC3339", v)
	}
	return t, nil
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, errors.New(common.ErrMsgNotFound))
}

// decodeBody reads one JSON value. Numbers are kept as json.Number so values
// outside float64 range reach validation as infinities.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw any
	err := dec.Decode(&raw)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return nil, false
	case errors.Is(err, io.EOF):
		s.writeError(w, r, http.StatusBadRequest, errors.New(common.ErrMsgNoJSON))
		return nil, false
	case err != nil:
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("Invalid JSON: %v", err))
		return nil, false
	case raw == nil:
		s.writeError(w, r, http.StatusBadRequest, errors.New(common.ErrMsgNoJSON))
		return nil, false
	}
	return raw, true
}

// batchItems extracts the item list from {"items": [...]} or the legacy {"planets": [...]}.
func batchItems(raw any) ([]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New(common.ErrMsgBatchShape)
	}
	key := "items"
	value, ok := obj[key]
	if !ok {
		key = "planets"
		if value, ok = obj[key]; !ok {
			return nil, errors.New(common.ErrMsgBatchShape)
		}
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be a list", key)
	}
	return items, nil
}

func (s *Server) record(source, id string, res predict.Result) {
	if s.opts.Store == nil {
		return
	}
	rec := historyRecord(id, source, time.Now().UTC(), res)
	if err := s.opts.Store.SavePredictions([]storage.Record{rec}); err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("failed to store prediction")
	}
}

func historyRecord(id, source string, ts time.Time, res predict.Result) storage.Record {
	return storage.Record{
		ID:         id,
		Timestamp:  ts,
		Source:     source,
		Input:      res.Input.Map(),
		Prediction: res.Prediction,
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		verr     *validate.Error
		tooLarge *predict.BatchTooLargeError
	)
	switch {
	case errors.Is(err, predict.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.As(err, &verr), errors.As(err, &tooLarge):
		return http.StatusBadRequest
	default:
		// *predict.FailedError and anything unexpected
		return http.StatusInternalServerError
	}
}

func errorBody(err error, id string) errorResponse {
	resp := errorResponse{Error: err.Error(), RequestID: id}
	var verr *validate.Error
	if errors.As(err, &verr) {
		resp.MissingFeatures = verr.Missing
		resp.InvalidFeatures = verr.Invalid
	}
	return resp
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody(err, RequestID(r.Context())))
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:     fmt.Sprintf("method %s not allowed", r.Method),
		RequestID: RequestID(r.Context()),
	})
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
