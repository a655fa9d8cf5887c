// Package server exposes the service layer as a thin JSON-over-HTTP facade.
// It owns no allocation semantics: handlers decode requests, call services,
// and encode results. Actor identity arrives in the X-Participant-ID header;
// authentication itself is handled outside this system.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/service"
	"github.com/tabsplit/tabsplit/internal/sharecode"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// participantHeader carries the acting participant's id on mutating requests.
const participantHeader = "X-Participant-ID"

// Server wires HTTP routes to the receipt and share services.
type Server struct {
	receipts *service.ReceiptService
	shares   *service.ShareService
}

// New creates a Server over the given services.
func New(receipts *service.ReceiptService, shares *service.ShareService) *Server {
	return &Server{receipts: receipts, shares: shares}
}

// Handler returns the full route table wrapped in logging and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/receipts", s.handleIngest)
	mux.HandleFunc("GET /api/receipts/{id}", s.handleGetReceipt)
	mux.HandleFunc("DELETE /api/receipts/{id}", s.handleDeleteReceipt)
	mux.HandleFunc("POST /api/receipts/{id}/reparse", s.handleReparse)
	mux.HandleFunc("POST /api/receipts/{id}/parsing", s.handleMarkParsing)
	mux.HandleFunc("POST /api/receipts/{id}/parse-error", s.handleMarkParseError)
	mux.HandleFunc("GET /api/receipts/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/receipts/{id}/participants/{participantID}/breakdown", s.handleBreakdown)
	mux.HandleFunc("POST /api/receipts/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/receipts/{id}/tip", s.handleSetTip)
	mux.HandleFunc("POST /api/receipts/{id}/tip/confirm", s.handleConfirmTip)
	mux.HandleFunc("POST /api/receipts/{id}/share-code", s.handleCreateShareCode)
	mux.HandleFunc("GET /api/share-codes/{code}", s.handleResolveShareCode)

	mux.HandleFunc("POST /api/items/{itemID}/claim", s.handleClaim)
	mux.HandleFunc("DELETE /api/items/{itemID}/claim", s.handleUnclaim)
	mux.HandleFunc("PUT /api/items/{itemID}/claimants", s.handleAssign)

	mux.Handle("GET /metrics", promhttp.Handler())

	return Logging(CORS(mux))
}

type ingestRequest struct {
	Host    models.Participant   `json:"host"`
	Receipt models.ParsedReceipt `json:"receipt"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Host.ID == "" {
		writeError(w, http.StatusBadRequest, "host.id is required")
		return
	}

	receipt, err := s.receipts.Ingest(r.Context(), req.Host, req.Receipt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, items, err := s.receipts.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipt": receipt,
		"items":   items,
	})
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.receipts.Delete(r.Context(), r.PathValue("id"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReparse(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var parsed models.ParsedReceipt
	if !decodeJSON(w, r, &parsed) {
		return
	}

	receipt, err := s.receipts.Reparse(r.Context(), r.PathValue("id"), actor, parsed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleMarkParsing(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.receipts.MarkParsing(r.Context(), r.PathValue("id"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkParseError(w http.ResponseWriter, r *http.Request) {
	if err := s.receipts.MarkParseError(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.receipts.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.receipts.Breakdown(r.Context(), r.PathValue("id"), r.PathValue("participantID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var p models.Participant
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	receipt, err := s.receipts.Join(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type tipRequest struct {
	TipCents int64 `json:"tip_cents"`
}

func (s *Server) handleSetTip(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req tipRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.receipts.SetTip(r.Context(), r.PathValue("id"), actor, req.TipCents); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmTip(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.receipts.ConfirmTip(r.Context(), r.PathValue("id"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateShareCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	code, err := s.shares.GetOrCreateCode(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleResolveShareCode(w http.ResponseWriter, r *http.Request) {
	receiptID, err := s.shares.ResolveCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"receipt_id": receiptID})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.receipts.Claim(r.Context(), r.PathValue("itemID"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnclaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.receipts.Unclaim(r.Context(), r.PathValue("itemID"), actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.receipts.Assign(r.Context(), r.PathValue("itemID"), actor, req.ParticipantIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireActor extracts the acting participant id, rejecting the request if
// the header is missing.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := r.Header.Get(participantHeader)
	if actor == "" {
		writeError(w, http.StatusBadRequest, participantHeader+" header required")
		return "", false
	}
	return actor, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service and storage errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrReceiptNotFound),
		errors.Is(err, storage.ErrItemNotFound),
		errors.Is(err, sharecode.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotHost),
		errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
