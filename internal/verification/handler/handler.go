package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"credhub/internal/verification/models"
	"credhub/internal/verification/proof"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/httputil"
	"credhub/pkg/requestcontext"
)

// Service defines the verification operations used by the handler.
type Service interface {
	Verify(ctx context.Context, proofBlob, predicate string) (*models.Outcome, error)
	History(ctx context.Context, limit int) ([]models.Record, int, int, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Get("/verification-history", h.HandleHistory)
}

// VerifyRequest is the request body for proof verification. ProofBlob is
// either a JSON string holding the proof or the proof object itself.
type VerifyRequest struct {
	ProofBlob json.RawMessage `json:"proofBlob"`
	Predicate string          `json:"predicate"`
}

// HandleVerify handles POST /verify requests. A proof that fails its checks
// is still a 200; only proofs that cannot be checked are 400.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Verify(ctx, proof.Normalize(req.ProofBlob), req.Predicate)
	if err != nil {
		h.logger.WarnContext(ctx, "proof rejected",
			"request_id", requestID,
			"error", err,
		)
		message := "Invalid proof format or verification failed"
		if dErrors.HasCode(err, dErrors.CodeMissingProof) {
			message = "Proof blob is required"
		}
		httputil.WriteErrorWith(w, err, map[string]any{
			"verified": false,
			"message":  message,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// HistoryResponse is the response body for GET /verification-history.
type HistoryResponse struct {
	History []models.Record `json:"history"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
}

// HandleHistory handles GET /verification-history?limit=N. A missing or
// unparsable limit means the default.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, total, applied, err := h.service.History(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read verification history",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{History: records, Total: total, Limit: applied})
}
