package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/docstore"
	"github.com/teamvault/budgetvault/internal/remote"
	"github.com/teamvault/budgetvault/internal/types"
)

// Handler holds the dependencies for the remote ledger service endpoints.
type Handler struct {
	store   *docstore.Store
	apiKey  string
	version string
}

// NewHandler creates a Handler.
func NewHandler(store *docstore.Store, apiKey, version string) *Handler {
	return &Handler{store: store, apiKey: apiKey, version: version}
}

// Health reports service liveness. Public, unauthenticated.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// AppendRecord appends a document to the owner's collection. The server
// assigns the document id and creation timestamp; owner and kind come from
// the path, never from the body.
func (h *Handler) AppendRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, kind, ok := pathScope(w, r)
	if !ok {
		return
	}

	var doc remote.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	doc.OwnerID = ownerID
	doc.Kind = kind

	if detail, ok := validateDocument(doc); !ok {
		WriteProblem(w, r, http.StatusUnprocessableEntity, detail)
		return
	}

	created, err := h.store.Append(r.Context(), doc)
	if err != nil {
		slog.Error("append document failed", "owner_id", ownerID, "kind", kind, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// LookupRecord finds documents matching a content key, at most two.
func (h *Handler) LookupRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, kind, ok := pathScope(w, r)
	if !ok {
		return
	}

	var req remote.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	key := dedup.ContentKey{
		OwnerID:      ownerID,
		Kind:         kind,
		Amount:       dedup.CanonicalAmount(req.Amount),
		OccurredDate: req.OccurredDate,
		Category:     req.Category,
	}
	if req.Description != nil {
		key.HasDescription = true
		key.Description = *req.Description
	}

	docs, err := h.store.FindByContentKey(r.Context(), key)
	if err != nil {
		slog.Error("lookup failed", "owner_id", ownerID, "kind", kind, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeDocumentList(w, docs)
}

// ListRecords returns the owner's documents created strictly after the
// created_after query parameter (epoch milliseconds, default 0), newest
// first.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ownerID, kind, ok := pathScope(w, r)
	if !ok {
		return
	}

	var since int64
	if raw := r.URL.Query().Get("created_after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "created_after must be epoch milliseconds")
			return
		}
		since = parsed
	}

	docs, err := h.store.QueryCreatedAfter(r.Context(), ownerID, kind, since)
	if err != nil {
		slog.Error("list failed", "owner_id", ownerID, "kind", kind, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeDocumentList(w, docs)
}

// pathScope extracts and validates the owner and record kind path segments.
func pathScope(w http.ResponseWriter, r *http.Request) (string, types.RecordKind, bool) {
	ownerID := chi.URLParam(r, "ownerID")
	kind := types.RecordKind(chi.URLParam(r, "kind"))

	if ownerID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "Owner id is required")
		return "", "", false
	}
	if !kind.Valid() {
		WriteProblem(w, r, http.StatusBadRequest, "Record kind must be expense or income")
		return "", "", false
	}
	return ownerID, kind, true
}

// validateDocument checks the business fields of an incoming document.
func validateDocument(doc remote.Document) (string, bool) {
	if doc.Category == "" {
		return "Category is required", false
	}
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return "Amount must be a decimal number", false
	}
	if amount.IsNegative() {
		return "Amount must not be negative", false
	}
	if _, err := types.ParseDisplayDate(doc.OccurredDate); err != nil {
		return "Occurred date must be dd/mm/yyyy", false
	}
	return "", true
}

func writeDocumentList(w http.ResponseWriter, docs []remote.Document) {
	if docs == nil {
		docs = []remote.Document{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(remote.DocumentList{Documents: docs}); err != nil {
		slog.Error("failed to encode document list", "error", err)
	}
}
