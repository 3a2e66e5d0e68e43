package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"credhub/internal/credential/models"
	"credhub/internal/credential/store"
	"credhub/internal/ledger"
	"credhub/internal/platform/tracer"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/middleware/requesttime"
	"credhub/pkg/platform/privacy"
	"credhub/pkg/requestcontext"
)

const (
	defaultLedgerTimeout = 3 * time.Second

	// maxIDAttempts bounds id regeneration when Create reports a collision.
	maxIDAttempts = 3
)

// Metrics receives issuance and revocation counters.
type Metrics interface {
	IncrementCredentialsIssued(credType string)
	IncrementCredentialsRevoked()
	IncrementIssuanceRejected(reason string)
	IncrementLedgerFailures(operation string)
	IncrementPersistenceFailures(collection string)
}

// Option configures the credential service.
type Option func(*Service)

// Service issues, revokes and lists credentials. The ledger is optional and
// consulted after local issuance only.
type Service struct {
	store         store.Store
	ledger        ledger.Ledger
	ledgerTimeout time.Duration
	newID         func() models.CredentialID
	metrics       Metrics
	tracer        tracer.Tracer
	logger        *slog.Logger
}

// NewService creates a credential service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	svc := &Service{
		store:         st,
		ledgerTimeout: defaultLedgerTimeout,
		newID:         models.NewCredentialID,
		tracer:        tracer.NewNoop(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithLedger registers every issued credential with l.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithLedgerTimeout bounds each ledger call. Non-positive values are ignored.
func WithLedgerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ledgerTimeout = d
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator replaces credential id generation.
func WithIDGenerator(gen func() models.CredentialID) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// IssueResult is a newly issued credential plus the ledger's id for it,
// which is empty when registration failed or no ledger is configured.
type IssueResult struct {
	Credential           models.Credential
	ContractCredentialID string
}

// Issue validates req and stores a new credential issued at the request time.
//
// When the durable write fails the credential is still held in memory and
// both the result and a CodePersistence error are returned.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (result *IssueResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrCredentialType, strings.TrimSpace(req.Type)))
	defer func() { span.End(err) }()

	if err := req.Validate(); err != nil {
		s.incrementRejected(dErrors.CodeOf(err))
		return nil, err
	}

	tpl, _ := models.Lookup(models.CredentialType(strings.TrimSpace(req.Type)))
	now := requesttime.Now(ctx)

	var (
		credential *models.Credential
		persistErr error
	)
	for attempt := 1; ; attempt++ {
		credential = models.NewCredential(s.newID(), req.Subject, strings.TrimSpace(req.Commitment), tpl, now)
		createErr := s.store.Create(ctx, *credential)
		if createErr == nil {
			break
		}
		if dErrors.HasCode(createErr, dErrors.CodePersistence) {
			persistErr = createErr
			break
		}
		if errors.Is(createErr, store.ErrConflict) && attempt < maxIDAttempts {
			s.logger.WarnContext(ctx, "credential id collision, regenerating",
				"attempt", attempt,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		return nil, &dErrors.Error{Code: dErrors.CodeInternal, Message: "failed to store credential", Err: createErr}
	}

	span.SetAttributes(tracer.String(tracer.AttrCredentialID, credential.ID.String()))
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued(string(credential.Type))
	}
	if persistErr != nil {
		s.persistenceFailed(ctx, span, "issue", credential.ID, persistErr)
	}

	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", credential.ID,
		"type", credential.Type,
		"subject", privacy.ShortAddress(credential.Subject),
		"request_id", requestcontext.RequestID(ctx),
	)

	return &IssueResult{
		Credential:           *credential,
		ContractCredentialID: s.register(ctx, *credential),
	}, persistErr
}

// register anchors the credential on the ledger. Failures are logged and
// counted; issuance stands either way.
func (s *Service) register(ctx context.Context, c models.Credential) string {
	if s.ledger == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerRegister,
		tracer.String(tracer.AttrCredentialID, c.ID.String()),
		tracer.Duration(tracer.AttrLedgerTimeout, s.ledgerTimeout),
	)

	reg := ledger.Registration{
		CredentialID: c.ID.String(),
		Subject:      c.Subject,
		Commitment:   c.Commitment,
		Type:         string(c.Type),
	}
	contractID, err := ledger.Await(ctx, "register", func(ctx context.Context) (string, error) {
		return s.ledger.Register(ctx, reg)
	})
	span.End(err)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementLedgerFailures("register")
		}
		s.logger.WarnContext(ctx, "ledger registration failed",
			"credential_id", c.ID,
			"category", ledger.Category(err),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return ""
	}
	return contractID
}

// Revoke marks the credential revoked. Unknown ids return false with no error.
// A failed durable write returns true with a CodePersistence error; the
// revocation still holds in memory.
func (s *Service) Revoke(ctx context.Context, id string) (revoked bool, err error) {
	id = strings.TrimSpace(id)
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke, tracer.String(tracer.AttrCredentialID, id))
	defer func() { span.End(err) }()

	if id == "" {
		return false, dErrors.New(dErrors.CodeMissingField, "credentialId is required")
	}

	found, err := s.store.Revoke(ctx, models.CredentialID(id))
	if !found {
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
		}
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementCredentialsRevoked()
	}
	if err != nil {
		s.persistenceFailed(ctx, span, "revoke", models.CredentialID(id), err)
		return true, err
	}

	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return true, nil
}

// Get returns a credential by id or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id models.CredentialID) (models.Credential, error) {
	return s.store.FindByID(ctx, id)
}

// ListBySubject returns the subject's credentials; the lookup ignores case.
func (s *Service) ListBySubject(ctx context.Context, subject string) ([]models.Credential, error) {
	creds, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	if creds == nil {
		creds = []models.Credential{}
	}
	return creds, nil
}

// All returns every stored credential in issuance order.
func (s *Service) All(ctx context.Context) ([]models.Credential, error) {
	creds, err := s.store.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return creds, nil
}

func (s *Service) persistenceFailed(ctx context.Context, span tracer.Span, op string, id models.CredentialID, err error) {
	if s.metrics != nil {
		s.metrics.IncrementPersistenceFailures("credentials")
	}
	span.AddEvent(tracer.EventPersistFailed, tracer.String("operation", op))
	s.logger.ErrorContext(ctx, "failed to persist credentials; keeping in-memory state",
		"operation", op,
		"credential_id", id,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) incrementRejected(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementIssuanceRejected(string(code))
	}
}
