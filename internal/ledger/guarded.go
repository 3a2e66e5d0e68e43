package ledger

import (
	"context"
	"log/slog"

	"credhub/pkg/platform/circuit"
)

// Guarded wraps a Ledger with a circuit breaker so an unreachable ledger
// fails fast instead of costing every request a full timeout.
type Guarded struct {
	next    Ledger
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded wraps next. A nil logger falls back to slog.Default.
func NewGuarded(next Ledger, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Register(ctx context.Context, reg Registration) (string, error) {
	if !g.breaker.Allow() {
		return "", g.rejected("register")
	}
	id, err := g.next.Register(ctx, reg)
	g.record(ctx, "register", err)
	return id, err
}

func (g *Guarded) Corroborate(ctx context.Context, proofBlob, predicate string) (bool, error) {
	if !g.breaker.Allow() {
		return false, g.rejected("corroborate")
	}
	ok, err := g.next.Corroborate(ctx, proofBlob, predicate)
	g.record(ctx, "corroborate", err)
	return ok, err
}

func (g *Guarded) rejected(op string) error {
	return newError(ErrorOutage, op, "circuit open", nil)
}

// record counts only failures that point at the ledger itself. Rejected
// input is the caller's problem and leaves the circuit alone.
func (g *Guarded) record(ctx context.Context, op string, err error) {
	if err == nil || Category(err) == ErrorBadData {
		if change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "ledger circuit closed", "breaker", g.breaker.Name(), "operation", op)
		}
		return
	}
	if change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "ledger circuit opened",
			"breaker", g.breaker.Name(),
			"operation", op,
			"category", string(Category(err)),
		)
	}
}
