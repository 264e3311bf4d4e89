// Package server exposes the score ledger over a JSON HTTP API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/karasu-dev/score-ledger-system/internal/ledger"
)

// Server wires HTTP handlers to the ledger. Identity resolution happens
// on the caller's side; every endpoint takes plain numeric uids.
type Server struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// New creates a Server.
func New(l *ledger.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: l, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /balance", s.handleBalance)
	mux.HandleFunc("GET /sufficient", s.handleSufficient)
	mux.HandleFunc("POST /credit", s.handleCredit)
	mux.HandleFunc("POST /debit", s.handleDebit)
	mux.HandleFunc("POST /transfer", s.handleTransfer)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /rank", s.handleRank)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	uid, err := queryUID(r, "uid")
	if err != nil {
		s.writeError(w, err)
		return
	}

	balance, err := s.ledger.GetBalance(r.Context(), uid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"uid": uid, "balance": balance})
}

func (s *Server) handleSufficient(w http.ResponseWriter, r *http.Request) {
	uid, err := queryUID(r, "uid")
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The predicate never errors: a malformed amount means "no".
	sufficient := false
	if amount, err := ledger.ParseAmount(r.URL.Query().Get("amount")); err == nil {
		sufficient = s.ledger.HasSufficient(r.Context(), uid, amount)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"uid": uid, "sufficient": sufficient})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID    int64  `json:"uid"`
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	balance, err := s.ledger.Credit(r.Context(), req.UID, amount, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"uid": req.UID, "balance": balance})
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID    int64  `json:"uid"`
		Amount string `json:"amount"`
		Reason string `json:"reason"`
		Force  bool   `json:"force"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	balance, err := s.ledger.Debit(r.Context(), req.UID, amount, req.Reason, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"uid": req.UID, "balance": balance})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromUID int64  `json:"from_uid"`
		ToUID   int64  `json:"to_uid"`
		Amount  string `json:"amount"`
		Force   bool   `json:"force"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	fromBalance, toBalance, err := s.ledger.Transfer(r.Context(), req.FromUID, req.ToUID, amount, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"from_uid":     req.FromUID,
		"from_balance": fromBalance,
		"to_uid":       req.ToUID,
		"to_balance":   toBalance,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	uid, err := queryUID(r, "uid")
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.ledger.History(r.Context(), uid, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"uid": uid, "entries": entries})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberIDs []int64 `json:"member_ids"`
		Limit     int     `json:"limit"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	recs, err := s.ledger.Rank(r.Context(), req.MemberIDs, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"rank": recs})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, &ledger.InvalidArgumentError{Reason: "malformed request body"})
		return false
	}
	return true
}

func queryUID(r *http.Request, key string) (int64, error) {
	uid, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0, &ledger.InvalidArgumentError{Reason: "malformed " + key}
	}
	return uid, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

// writeError maps the ledger error taxonomy onto HTTP statuses.
// Business errors are the caller's to handle; store failures are ours.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		status int
		code   string
	)
	switch {
	case ledger.IsInvalidArgument(err):
		status, code = http.StatusBadRequest, "invalid_argument"
	case ledger.IsInsufficientBalance(err):
		status, code = http.StatusConflict, "insufficient_balance"
	case ledger.IsQuotaExceeded(err):
		status, code = http.StatusTooManyRequests, "quota_exceeded"
	default:
		status, code = http.StatusInternalServerError, "store_error"
		s.logger.Error("ledger operation failed", "error", err)
	}

	s.writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
}
