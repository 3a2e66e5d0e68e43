package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	credmodels "credhub/internal/credential/models"
	credservice "credhub/internal/credential/service"
	credstore "credhub/internal/credential/store"
	ledgermocks "credhub/internal/ledger/mocks"
	"credhub/internal/platform/metrics"
	"credhub/internal/verification/models"
	"credhub/internal/verification/store"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/middleware/requesttime"
	tu "credhub/pkg/testutil"
)

var issuedAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	ledger      *ledgermocks.MockLedger
	credentials *credservice.Service
	history     *store.InMemoryStore
	metrics     *metrics.Metrics
	service     *Service
	wallet      tu.Wallet
	ctx         context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = ledgermocks.NewMockLedger(s.ctrl)
	s.credentials = credservice.NewService(credstore.NewInMemoryStore(), credservice.WithLogger(discard()))
	s.history = store.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = NewService(s.history, s.credentials, s.ledger,
		WithLedgerTimeout(50*time.Millisecond),
		WithMetrics(s.metrics),
		WithLogger(discard()),
	)
	s.wallet = tu.NewWallet(s.T())
	s.ctx = requesttime.WithTime(context.Background(), issuedAt)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ServiceSuite) issue(typ string) credmodels.Credential {
	result, err := s.credentials.Issue(s.ctx, credmodels.IssueRequest{
		Subject:    s.wallet.Address,
		Commitment: tu.Commitment,
		Type:       typ,
	})
	s.Require().NoError(err)
	return result.Credential
}

func (s *ServiceSuite) corroborates(ok bool) {
	s.ledger.EXPECT().Corroborate(gomock.Any(), gomock.Any(), gomock.Any()).Return(ok, nil)
}

// =============================================================================
// Verdicts
// =============================================================================

func (s *ServiceSuite) TestKYCScenario() {
	cred := s.issue("KYC")
	s.Equal(credmodels.CredentialTypeKYC, cred.Type)
	s.Equal(365*24*time.Hour, cred.ExpiresAt.Sub(cred.IssuedAt))

	blob := s.wallet.SignProof(s.T(), "I am over 18", cred.ID.String()).Blob(s.T())
	s.ledger.EXPECT().Corroborate(gomock.Any(), blob, "age>18").Return(true, nil)

	later := requesttime.WithTime(context.Background(), issuedAt.Add(30*24*time.Hour))
	outcome, err := s.service.Verify(later, blob, "age>18")

	s.Require().NoError(err)
	s.True(outcome.Verified)
	s.Equal(models.MessageVerified, outcome.Message)
	s.Equal(credmodels.StatusValid, outcome.CredentialStatus)
	s.Equal(models.Details{SignatureValid: true, CredentialValid: true, ContractValid: true, CredentialStatus: credmodels.StatusValid}, outcome.Details)
	s.Equal(s.wallet.Address, outcome.RecoveredAddress)
}

func (s *ServiceSuite) TestRevokedCredentialFailsDespiteGoodSignature() {
	cred := s.issue("Age")
	ok, err := s.credentials.Revoke(s.ctx, cred.ID.String())
	s.Require().NoError(err)
	s.Require().True(ok)
	s.corroborates(true)

	outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", cred.ID.String()).Blob(s.T()), "")

	s.Require().NoError(err)
	s.False(outcome.Verified)
	s.True(outcome.Details.SignatureValid)
	s.False(outcome.Details.CredentialValid)
	s.Equal(credmodels.StatusRevoked, outcome.CredentialStatus)
	s.Equal(models.MessageFailed, outcome.Message)
}

func (s *ServiceSuite) TestExpiredCredential() {
	cred := s.issue("Income")
	s.corroborates(true)

	afterExpiry := requesttime.WithTime(context.Background(), cred.ExpiresAt)
	outcome, err := s.service.Verify(afterExpiry, s.wallet.SignProof(s.T(), "msg", cred.ID.String()).Blob(s.T()), "")

	s.Require().NoError(err)
	s.False(outcome.Verified)
	s.Equal(credmodels.StatusExpired, outcome.Details.CredentialStatus)
}

func (s *ServiceSuite) TestWrongSignerFailsRegardlessOfCredential() {
	cred := s.issue("KYC")
	other := tu.NewWallet(s.T())

	p := other.SignProof(s.T(), "msg", cred.ID.String())
	p.PublicKey = s.wallet.Address
	s.corroborates(true)

	outcome, err := s.service.Verify(s.ctx, p.Blob(s.T()), "")

	s.Require().NoError(err)
	s.False(outcome.Verified)
	s.False(outcome.Details.SignatureValid)
	s.True(outcome.Details.CredentialValid)
	s.Equal(other.Address, outcome.RecoveredAddress)
	s.Equal(s.wallet.Address, outcome.ClaimedAddress)
}

func (s *ServiceSuite) TestUnknownCredential() {
	s.corroborates(true)

	outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "vc_unknown").Blob(s.T()), "")

	s.Require().NoError(err)
	s.False(outcome.Verified)
	s.False(outcome.Details.CredentialValid)
	s.Equal(credmodels.StatusNotFound, outcome.CredentialStatus)
}

func (s *ServiceSuite) TestNoCredentialReferenced() {
	s.corroborates(true)

	outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")

	s.Require().NoError(err)
	s.True(outcome.Verified)
	s.True(outcome.Details.CredentialValid)
	s.Equal(credmodels.StatusNotApplicable, outcome.CredentialStatus)
}

func (s *ServiceSuite) TestCredentialIDIsLookedUpVerbatim() {
	cred := s.issue("KYC")

	s.Run("whitespace-only id is not found", func() {
		s.corroborates(true)
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "   ").Blob(s.T()), "")

		s.Require().NoError(err)
		s.False(outcome.Verified)
		s.False(outcome.Details.CredentialValid)
		s.Equal(credmodels.StatusNotFound, outcome.CredentialStatus)
	})

	s.Run("padded id does not match the stored one", func() {
		s.corroborates(true)
		padded := " " + cred.ID.String() + " "
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", padded).Blob(s.T()), "")

		s.Require().NoError(err)
		s.Equal(credmodels.StatusNotFound, outcome.CredentialStatus)
	})
}

func (s *ServiceSuite) TestNullCredentialIDIsAbsent() {
	s.corroborates(true)
	p := s.wallet.SignProof(s.T(), "msg", "")
	blob := `{"message":"msg","signature":"` + p.Signature + `","publicKey":"` + p.PublicKey + `","credentialId":null}`

	outcome, err := s.service.Verify(s.ctx, blob, "")

	s.Require().NoError(err)
	s.True(outcome.Verified)
	s.Equal(credmodels.StatusNotApplicable, outcome.CredentialStatus)
}

// =============================================================================
// Ledger
// =============================================================================

func (s *ServiceSuite) TestLedgerVerdicts() {
	s.Run("ledger rejects", func() {
		s.corroborates(false)
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")
		s.Require().NoError(err)
		s.False(outcome.Verified)
		s.False(outcome.Details.ContractValid)
	})

	s.Run("ledger error", func() {
		s.ledger.EXPECT().Corroborate(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, errors.New("boom"))
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")
		s.Require().NoError(err)
		s.False(outcome.Details.ContractValid)
	})

	s.Run("ledger timeout", func() {
		s.ledger.EXPECT().Corroborate(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _, _ string) (bool, error) {
				<-ctx.Done()
				return false, ctx.Err()
			})

		start := time.Now()
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")

		s.Require().NoError(err)
		s.False(outcome.Verified)
		s.True(outcome.Details.SignatureValid)
		s.False(outcome.Details.ContractValid)
		s.Less(time.Since(start), 2*time.Second)
	})

	s.Run("late answer from a ledger that ignores the deadline", func() {
		release := make(chan struct{})
		defer close(release)
		s.ledger.EXPECT().Corroborate(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, string, string) (bool, error) {
				<-release
				return true, nil
			})

		start := time.Now()
		outcome, err := s.service.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")

		s.Require().NoError(err)
		s.Less(time.Since(start), time.Second)
		s.False(outcome.Details.ContractValid)
		s.False(outcome.Verified)
	})

	s.Equal(3.0, testutil.ToFloat64(s.metrics.LedgerFailures.WithLabelValues("corroborate")))
}

// =============================================================================
// Input errors
// =============================================================================

func (s *ServiceSuite) TestInputErrorsAreNotRecorded() {
	cases := []struct {
		name string
		blob string
		code dErrors.Code
	}{
		{"empty", "", dErrors.CodeMissingProof},
		{"whitespace", "   ", dErrors.CodeMissingProof},
		{"not json", "{", dErrors.CodeMalformedProof},
		{"missing fields", `{"message":"m"}`, dErrors.CodeMalformedProof},
		{"bad signature", `{"message":"m","signature":"0x1234","publicKey":"0xabc"}`, dErrors.CodeMalformedProof},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			outcome, err := s.service.Verify(s.ctx, tc.blob, "")
			s.Nil(outcome)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	total, _, _ := s.history.Count(s.ctx)
	s.Zero(total)
	s.Equal(float64(len(cases)), testutil.ToFloat64(s.metrics.Verifications.WithLabelValues("malformed")))
}

// =============================================================================
// History
// =============================================================================

func (s *ServiceSuite) TestHistoryRecordsEveryVerdict() {
	s.ledger.EXPECT().Corroborate(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(3)
	for i := 0; i < 3; i++ {
		ctx := requesttime.WithTime(context.Background(), issuedAt.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Verify(ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "p")
		s.Require().NoError(err)
	}

	records, total, limit, err := s.service.History(s.ctx, 2)

	s.Require().NoError(err)
	s.Equal(3, total)
	s.Equal(2, limit)
	s.Require().Len(records, 2)
	s.True(records[0].Timestamp.After(records[1].Timestamp))
	s.Equal("p", records[0].Predicate)
	s.Equal(credmodels.StatusNotApplicable, records[0].CredentialStatus)

	_, _, limit, _ = s.service.History(s.ctx, 0)
	s.Equal(models.DefaultHistoryLimit, limit)
	_, _, limit, _ = s.service.History(s.ctx, 9999)
	s.Equal(models.MaxHistoryLimit, limit)
}

func (s *ServiceSuite) TestHistoryPersistenceFailureKeepsVerdict() {
	blocker := filepath.Join(s.T().TempDir(), "blocked")
	s.Require().NoError(os.WriteFile(blocker, []byte("x"), 0o600))
	history := store.NewFileStore(blocker)
	svc := NewService(history, s.credentials, s.ledger, WithLogger(discard()), WithMetrics(s.metrics))
	s.corroborates(true)

	outcome, err := svc.Verify(s.ctx, s.wallet.SignProof(s.T(), "msg", "").Blob(s.T()), "")

	s.Require().NoError(err)
	s.True(outcome.Verified)
	total, _, _ := history.Count(s.ctx)
	s.Equal(1, total)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.PersistenceFailures.WithLabelValues("verifications")))
}
