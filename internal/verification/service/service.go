package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	credmodels "credhub/internal/credential/models"
	credstore "credhub/internal/credential/store"
	"credhub/internal/ledger"
	"credhub/internal/platform/tracer"
	"credhub/internal/verification/models"
	"credhub/internal/verification/proof"
	"credhub/internal/verification/store"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/middleware/requesttime"
	"credhub/pkg/platform/privacy"
	"credhub/pkg/requestcontext"
)

const defaultLedgerTimeout = 3 * time.Second

// CredentialReader looks up issued credentials by id.
type CredentialReader interface {
	Get(ctx context.Context, id credmodels.CredentialID) (credmodels.Credential, error)
}

// Metrics receives verification counters.
type Metrics interface {
	IncrementVerifications(outcome string)
	ObserveCheck(check string, passed bool)
	IncrementLedgerFailures(operation string)
	IncrementPersistenceFailures(collection string)
}

// Option configures the verification service.
type Option func(*Service)

// Service checks signed proofs against issued credentials and the ledger,
// and keeps the verification history.
type Service struct {
	history       store.Store
	credentials   CredentialReader
	ledger        ledger.Ledger
	ledgerTimeout time.Duration
	metrics       Metrics
	tracer        tracer.Tracer
	logger        *slog.Logger
}

// NewService creates a verification service.
func NewService(history store.Store, credentials CredentialReader, l ledger.Ledger, opts ...Option) *Service {
	svc := &Service{
		history:       history,
		credentials:   credentials,
		ledger:        l,
		ledgerTimeout: defaultLedgerTimeout,
		tracer:        tracer.NewNoop(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithLedgerTimeout bounds each corroboration call. Non-positive values are ignored.
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

// Verify runs the signature, credential and ledger checks on proofBlob and
// records the verdict. Input that cannot be checked at all yields
// CodeMissingProof or CodeMalformedProof and is not recorded. A failed write
// of the history is logged and does not change the verdict.
func (s *Service) Verify(ctx context.Context, proofBlob, predicate string) (outcome *models.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify)
	defer func() { span.End(err) }()

	if strings.TrimSpace(proofBlob) == "" {
		s.countOutcome("malformed")
		return nil, dErrors.New(dErrors.CodeMissingProof, "proof blob is required")
	}

	p, err := proof.Parse(proofBlob)
	if err != nil {
		s.countOutcome("malformed")
		return nil, err
	}
	recovered, err := proof.RecoverSigner(p.Message, p.Signature)
	if err != nil {
		s.countOutcome("malformed")
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrCredentialID, p.CredentialID))

	signature := models.Check{Name: models.CheckSignature, Passed: proof.SignedBy(recovered, p.PublicKey)}
	credential, status := s.checkCredential(ctx, p.CredentialID)
	contract := models.Check{Name: models.CheckContract, Passed: s.corroborate(ctx, proofBlob, predicate)}

	checks := []models.Check{signature, credential, contract}
	verified := models.Conjoin(checks...)
	for _, c := range checks {
		if s.metrics != nil {
			s.metrics.ObserveCheck(c.Name, c.Passed)
		}
	}

	message := models.MessageFailed
	if verified {
		message = models.MessageVerified
	}
	now := requesttime.Now(ctx).UTC().Truncate(time.Millisecond)

	record := models.Record{
		Verified:         verified,
		Message:          message,
		RecoveredAddress: recovered,
		ClaimedAddress:   p.PublicKey,
		CredentialID:     p.CredentialID,
		Predicate:        predicate,
		CredentialStatus: status,
		Timestamp:        now,
	}
	if appendErr := s.history.Append(ctx, record); appendErr != nil {
		if s.metrics != nil {
			s.metrics.IncrementPersistenceFailures("verifications")
		}
		span.AddEvent(tracer.EventPersistFailed)
		s.logger.ErrorContext(ctx, "failed to persist verification history",
			"error", appendErr,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	span.SetAttributes(
		tracer.Bool(tracer.AttrSignatureValid, signature.Passed),
		tracer.Bool(tracer.AttrCredentialOK, credential.Passed),
		tracer.Bool(tracer.AttrContractValid, contract.Passed),
		tracer.String(tracer.AttrStatus, string(status)),
		tracer.Bool(tracer.AttrVerified, verified),
	)
	if verified {
		s.countOutcome("verified")
	} else {
		s.countOutcome("rejected")
	}
	s.logger.InfoContext(ctx, "proof verified",
		"verified", verified,
		"signature_valid", signature.Passed,
		"credential_valid", credential.Passed,
		"contract_valid", contract.Passed,
		"credential_status", status,
		"signer", privacy.ShortAddress(recovered),
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.Outcome{
		Verified:         verified,
		Message:          message,
		RecoveredAddress: recovered,
		ClaimedAddress:   p.PublicKey,
		CredentialID:     p.CredentialID,
		CredentialStatus: status,
		Timestamp:        now,
		Details: models.Details{
			SignatureValid:   signature.Passed,
			CredentialValid:  credential.Passed,
			ContractValid:    contract.Passed,
			CredentialStatus: status,
		},
	}, nil
}

// checkCredential passes when no credential is referenced or when the
// referenced one is valid at request time.
func (s *Service) checkCredential(ctx context.Context, id string) (models.Check, credmodels.Status) {
	check := models.Check{Name: models.CheckCredential}
	if id == "" {
		check.Passed = true
		return check, credmodels.StatusNotApplicable
	}

	cred, err := s.credentials.Get(ctx, credmodels.CredentialID(id))
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			s.logger.ErrorContext(ctx, "credential lookup failed",
				"credential_id", id,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return check, credmodels.StatusNotFound
	}

	status := cred.StatusAt(requesttime.Now(ctx))
	check.Passed = status == credmodels.StatusValid
	return check, status
}

// corroborate asks the ledger under the configured timeout. Errors and
// timeouts count as a negative answer, including answers that arrive after
// the deadline.
func (s *Service) corroborate(ctx context.Context, proofBlob, predicate string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerCorroborate,
		tracer.Duration(tracer.AttrLedgerTimeout, s.ledgerTimeout),
	)

	ok, err := ledger.Await(ctx, "corroborate", func(ctx context.Context) (bool, error) {
		return s.ledger.Corroborate(ctx, proofBlob, predicate)
	})
	span.End(err)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementLedgerFailures("corroborate")
		}
		s.logger.WarnContext(ctx, "ledger corroboration failed",
			"category", ledger.Category(err),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return false
	}
	return ok
}

// History returns the newest records, the total count and the limit applied.
func (s *Service) History(ctx context.Context, limit int) ([]models.Record, int, int, error) {
	limit = models.ClampLimit(limit)
	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification history")
	}
	total, _, err := s.history.Count(ctx)
	if err != nil {
		return nil, 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count verifications")
	}
	return records, total, limit, nil
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerifications(outcome)
	}
}
