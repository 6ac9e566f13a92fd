package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"streamfi/internal/store"
	"streamfi/internal/stream"
)

const (
	idempotencyHeader    = "X-Idempotency-Key"
	idempotencyKeyPrefix = "idem:streams:"
	maxBodyBytes         = 64 << 10

	kindStream = "stream"
	kindClaim  = "claim"
	kindFund   = "fund"
)

type errorResponse struct {
	Error   string          `json:"error"`
	Session stream.Snapshot `json:"session"`
}

type submissionResponse struct {
	Receipt stream.Receipt  `json:"receipt"`
	Session stream.Snapshot `json:"session"`
}

// cachedResponse is what an idempotency record holds.
type cachedResponse struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.connect(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Session: s.ctrl.Snapshot()})
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.disconnect(r.Context())
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" {
		if cached := s.lookupResponse(ctx, key); cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(cached.StatusCode)
			_, _ = w.Write(cached.Body)
			s.metrics.incSubmission(kindStream, "cached")
			return
		}
	}

	var payload stream.StreamRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json payload", Session: s.ctrl.Snapshot()})
		return
	}

	receipt, err := s.createStream(ctx, payload)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error(), Session: s.ctrl.Snapshot()})
		return
	}

	body, _ := json.Marshal(submissionResponse{Receipt: receipt, Session: s.ctrl.Snapshot()})
	if key != "" {
		s.saveResponse(ctx, key, http.StatusCreated, body)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	receipt, err := s.ctrl.Claim(r.Context())
	s.recordSubmission(kindClaim, start, err)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error(), Session: s.ctrl.Snapshot()})
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Receipt: receipt, Session: s.ctrl.Snapshot()})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var payload stream.FundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json payload", Session: s.ctrl.Snapshot()})
		return
	}

	start := time.Now()
	receipt, err := s.ctrl.Fund(r.Context(), payload)
	s.recordSubmission(kindFund, start, err)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error(), Session: s.ctrl.Snapshot()})
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Receipt: receipt, Session: s.ctrl.Snapshot()})
}

func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	acc, err := s.ctrl.Claimable(r.Context())
	if err != nil {
		s.logger.Warn("read claimable balance", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) connect(ctx context.Context) error {
	err := s.ctrl.Connect(ctx)
	if err != nil {
		s.metrics.incWallet("connect", "failed")
	} else {
		s.metrics.incWallet("connect", "ok")
	}
	s.metrics.setConnected(s.ctrl.Snapshot().Account != "")
	return err
}

func (s *Server) disconnect(ctx context.Context) {
	s.ctrl.Disconnect(ctx)
	s.metrics.incWallet("disconnect", "ok")
	s.metrics.setConnected(false)
}

func (s *Server) createStream(ctx context.Context, req stream.StreamRequest) (stream.Receipt, error) {
	start := time.Now()
	receipt, err := s.ctrl.CreateStream(ctx, req)
	s.recordSubmission(kindStream, start, err)
	return receipt, err
}

func (s *Server) recordSubmission(kind string, start time.Time, err error) {
	switch {
	case err == nil:
		s.metrics.incSubmission(kind, "submitted")
		s.metrics.observeSubmission(kind, start)
	case stream.IsNotice(err):
		s.metrics.incSubmission(kind, "rejected")
	case errors.Is(err, stream.ErrInvalidRequest):
		s.metrics.incSubmission(kind, "invalid")
	default:
		s.metrics.incSubmission(kind, "failed")
	}
}

func (s *Server) lookupResponse(ctx context.Context, key string) *cachedResponse {
	rec, err := s.store.Get(ctx, idempotencyKeyPrefix+key)
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if rec == nil {
		return nil
	}
	var cached cachedResponse
	if err := json.Unmarshal(rec.Value, &cached); err != nil {
		s.logger.Warn("idempotency record unreadable", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &cached
}

func (s *Server) saveResponse(ctx context.Context, key string, status int, body []byte) {
	value, err := json.Marshal(cachedResponse{StatusCode: status, Body: body})
	if err != nil {
		return
	}
	now := time.Now()
	record := store.Record{
		Value:     value,
		CreatedAt: now,
	}
	if s.cfg.Idempotency.Window > 0 {
		record.ExpiresAt = now.Add(s.cfg.Idempotency.Window)
	}
	if err := s.store.Save(ctx, idempotencyKeyPrefix+key, record); err != nil {
		s.logger.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
	}
}

func statusForError(err error) int {
	switch {
	case stream.IsNotice(err):
		return http.StatusConflict
	case errors.Is(err, stream.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
