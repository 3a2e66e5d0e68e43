// Package stats summarizes the credential store and verification history.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	credmodels "credhub/internal/credential/models"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/httputil"
	"credhub/pkg/platform/middleware/requesttime"
	"credhub/pkg/requestcontext"
)

// CredentialLister returns every issued credential.
type CredentialLister interface {
	All(ctx context.Context) ([]credmodels.Credential, error)
}

// VerificationCounter counts recorded verifications.
type VerificationCounter interface {
	Count(ctx context.Context) (total int, verified int, err error)
}

// Stats is a point-in-time summary. Statuses are derived at the request time.
type Stats struct {
	TotalCredentials        int            `json:"totalCredentials"`
	ActiveCredentials       int            `json:"activeCredentials"`
	RevokedCredentials      int            `json:"revokedCredentials"`
	ExpiredCredentials      int            `json:"expiredCredentials"`
	TotalVerifications      int            `json:"totalVerifications"`
	SuccessfulVerifications int            `json:"successfulVerifications"`
	CredentialTypes         map[string]int `json:"credentialTypes"`
}

type Service struct {
	credentials   CredentialLister
	verifications VerificationCounter
}

func NewService(credentials CredentialLister, verifications VerificationCounter) *Service {
	return &Service{credentials: credentials, verifications: verifications}
}

// Stats counts credentials by derived status and type. Every catalog type
// appears in CredentialTypes, with zero when none were issued.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	creds, err := s.credentials.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	total, verified, err := s.verifications.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count verifications")
	}

	now := requesttime.Now(ctx)
	byStatus := lo.CountValuesBy(creds, func(c credmodels.Credential) credmodels.Status {
		return c.StatusAt(now)
	})
	byType := lo.CountValuesBy(creds, func(c credmodels.Credential) credmodels.CredentialType {
		return c.Type
	})

	types := make(map[string]int, len(credmodels.SupportedTypes()))
	for _, t := range credmodels.SupportedTypes() {
		types[string(t)] = byType[t]
	}

	return &Stats{
		TotalCredentials:        len(creds),
		ActiveCredentials:       byStatus[credmodels.StatusValid],
		RevokedCredentials:      byStatus[credmodels.StatusRevoked],
		ExpiredCredentials:      byStatus[credmodels.StatusExpired],
		TotalVerifications:      total,
		SuccessfulVerifications: verified,
		CredentialTypes:         types,
	}, nil
}

// Handler serves GET /stats.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.HandleStats)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute stats",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
