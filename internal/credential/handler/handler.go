package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"credhub/internal/credential/models"
	credservice "credhub/internal/credential/service"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/httputil"
	"credhub/pkg/platform/middleware/requesttime"
	"credhub/pkg/requestcontext"
)

// Service defines the credential operations used by the handler.
type Service interface {
	Issue(ctx context.Context, req models.IssueRequest) (*credservice.IssueResult, error)
	Revoke(ctx context.Context, id string) (bool, error)
	ListBySubject(ctx context.Context, subject string) ([]models.Credential, error)
	All(ctx context.Context) ([]models.Credential, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/issue", h.HandleIssue)
	r.Post("/revoke", h.HandleRevoke)
	r.Get("/credentials/{subject}", h.HandleListBySubject)
	r.Get("/templates", h.HandleTemplates)
}

// RegisterDebug mounts the credential dump. main only calls it when debug
// endpoints are enabled.
func (h *Handler) RegisterDebug(r chi.Router) {
	r.Get("/debug/credentials", h.HandleDebugCredentials)
}

// IssueRequest is the request body for credential issuance. The older field
// names user and meta are accepted for subject and type.
type IssueRequest struct {
	Subject    string `json:"subject"`
	User       string `json:"user"`
	Commitment string `json:"commitment"`
	Type       string `json:"type"`
	Meta       string `json:"meta"`
}

// Normalize folds aliases into the canonical fields and trims whitespace.
// Validation happens in the service so the failure order stays in one place.
func (r *IssueRequest) Normalize() {
	if strings.TrimSpace(r.Subject) == "" {
		r.Subject = r.User
	}
	if strings.TrimSpace(r.Type) == "" {
		r.Type = r.Meta
	}
	r.Subject = strings.TrimSpace(r.Subject)
	r.Commitment = strings.TrimSpace(r.Commitment)
	r.Type = strings.TrimSpace(r.Type)
}

// CredentialResponse is a stored credential plus its status at response time.
type CredentialResponse struct {
	models.Credential
	Status models.Status `json:"status"`
}

func toResponse(c models.Credential, now time.Time) CredentialResponse {
	return CredentialResponse{Credential: c, Status: c.StatusAt(now)}
}

// IssueResponse is the response body for credential issuance.
type IssueResponse struct {
	Status               string             `json:"status"`
	CredentialID         string             `json:"credentialId"`
	ContractCredentialID string             `json:"contractCredentialId,omitempty"`
	Credential           CredentialResponse `json:"credential"`
	Message              string             `json:"message"`
	Warning              string             `json:"warning,omitempty"`
}

// HandleIssue handles POST /issue requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Issue(ctx, models.IssueRequest{
		Subject:    req.Subject,
		Commitment: req.Commitment,
		Type:       req.Type,
	})
	if result == nil {
		h.logger.WarnContext(ctx, "credential issuance rejected",
			"request_id", requestID,
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeUnsupportedType) || dErrors.HasCode(err, dErrors.CodeMissingField) {
			httputil.WriteErrorWith(w, err, map[string]any{"supportedTypes": models.SupportedTypeNames()})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	response := IssueResponse{
		Status:               "issued",
		CredentialID:         result.Credential.ID.String(),
		ContractCredentialID: result.ContractCredentialID,
		Credential:           toResponse(result.Credential, requesttime.Now(ctx)),
		Message:              fmt.Sprintf("Credential of type '%s' issued successfully", result.Credential.Type),
	}
	if err != nil {
		// The credential exists in memory; only its durable copy is missing.
		response.Warning = "credential issued but not persisted"
	}

	httputil.WriteJSON(w, http.StatusCreated, response)
}

// RevokeRequest is the request body for revocation.
type RevokeRequest struct {
	CredentialID string `json:"credentialId"`
}

func (r *RevokeRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
}

func (r *RevokeRequest) Validate() error {
	if r.CredentialID == "" {
		return dErrors.New(dErrors.CodeMissingField, "credentialId is required")
	}
	return nil
}

// RevokeResponse is the response body for revocation.
type RevokeResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

// HandleRevoke handles POST /revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	revoked, err := h.service.Revoke(ctx, req.CredentialID)
	if !revoked {
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to revoke credential",
				"request_id", requestID,
				"credential_id", req.CredentialID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, RevokeResponse{Status: "not found"})
		return
	}

	response := RevokeResponse{Status: "revoked"}
	if err != nil {
		response.Warning = "credential revoked but not persisted"
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleListBySubject handles GET /credentials/{subject} requests.
func (h *Handler) HandleListBySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := chi.URLParam(r, "subject")

	creds, err := h.service.ListBySubject(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list credentials",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	now := requesttime.Now(ctx)
	response := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		response = append(response, toResponse(c, now))
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// TemplateResponse describes one catalog entry. DefaultExpiry is in milliseconds.
type TemplateResponse struct {
	Description   string `json:"description"`
	Category      string `json:"category"`
	DefaultExpiry int64  `json:"defaultExpiry"`
}

// TemplatesResponse is the response body for GET /templates.
type TemplatesResponse struct {
	Templates map[string]TemplateResponse `json:"templates"`
	Types     []string                    `json:"types"`
	Message   string                      `json:"message"`
}

// HandleTemplates handles GET /templates requests.
func (h *Handler) HandleTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := models.Templates()
	response := TemplatesResponse{
		Templates: make(map[string]TemplateResponse, len(templates)),
		Types:     models.SupportedTypeNames(),
		Message:   "Available credential templates",
	}
	for _, tpl := range templates {
		response.Templates[string(tpl.Type)] = TemplateResponse{
			Description:   tpl.Description,
			Category:      tpl.Category,
			DefaultExpiry: tpl.DefaultDuration.Milliseconds(),
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type debugCredential struct {
	CredentialID string                `json:"credentialId"`
	Subject      string                `json:"subject"`
	Type         models.CredentialType `json:"type"`
	IssuedAt     time.Time             `json:"issuedAt"`
	Revoked      bool                  `json:"revoked"`
}

type debugResponse struct {
	Total       int               `json:"total"`
	Credentials []debugCredential `json:"credentials"`
}

// HandleDebugCredentials handles GET /debug/credentials requests.
func (h *Handler) HandleDebugCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds, err := h.service.All(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	response := debugResponse{Total: len(creds), Credentials: make([]debugCredential, 0, len(creds))}
	for _, c := range creds {
		response.Credentials = append(response.Credentials, debugCredential{
			CredentialID: c.ID.String(),
			Subject:      c.Subject,
			Type:         c.Type,
			IssuedAt:     c.IssuedAt,
			Revoked:      c.Revoked,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}
