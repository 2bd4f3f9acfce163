package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/meeting"
	"github.com/jonwraymond/aicache/observe"
	"github.com/jonwraymond/aicache/provider"
	"github.com/jonwraymond/aicache/resilience"
)

// TranscriptRequest is the body of both meeting endpoints.
type TranscriptRequest struct {
	Transcript string          `json:"transcript"`
	Options    meeting.Options `json:"options"`
}

// StatsResponse is the body of GET /v1/cache/stats.
type StatsResponse struct {
	cache.Stats
	HitRatio float64 `json:"hit_ratio"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscript(w, r)
	if !ok {
		return
	}
	summary, err := s.summarizer.Summarize(r.Context(), req.Transcript, req.Options)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleActionItems(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscript(w, r)
	if !ok {
		return
	}
	items, err := s.extractor.Extract(r.Context(), req.Transcript, req.Options)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{Stats: stats, HitRatio: stats.HitRatio()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := cache.ValidateKey(key); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.Delete(r.Context(), key)
	w.WriteHeader(http.StatusNoContent)
}

func decodeTranscript(w http.ResponseWriter, r *http.Request) (TranscriptRequest, bool) {
	var req TranscriptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	return req, true
}

// writeError maps an operation error to an HTTP status.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", observe.Field{Key: "error", Value: err.Error()})
	}
	writeJSONError(w, code, err.Error())
}

// StatusClientClosedRequest reports a request whose client went away before
// the response was ready.
const StatusClientClosedRequest = 499

func statusFor(err error) int {
	var se *provider.StatusError
	switch {
	case errors.Is(err, meeting.ErrEmptyTranscript):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrBulkheadFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, meeting.ErrParseResponse), errors.Is(err, provider.ErrEmptyResponse), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Error: ErrorDetail{Message: message, Code: code}})
}
