// Package tracer provides a small tracing abstraction for issuance and
// verification. Services depend on the Tracer interface; main wires the
// OpenTelemetry adapter and tests use the no-op tracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span and returns a context carrying it.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanVerify,
	//       tracer.String(tracer.AttrCredentialID, id),
	//   )
	//   defer span.End(nil)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanIssue              = "credential.issue"
	SpanRevoke             = "credential.revoke"
	SpanVerify             = "verification.verify"
	SpanLedgerRegister     = "ledger.register"
	SpanLedgerCorroborate  = "ledger.corroborate"
	SpanPersistCredentials = "store.persist.credentials"
)

// Attribute keys. Subjects are recorded in shortened form only.
const (
	AttrCredentialID   = "credential.id"
	AttrCredentialType = "credential.type"
	AttrSubject        = "credential.subject_short"
	AttrSignatureValid = "check.signature"
	AttrCredentialOK   = "check.credential"
	AttrContractValid  = "check.contract"
	AttrStatus         = "credential.status"
	AttrVerified       = "verified"
	AttrLedgerTimeout  = "ledger.timeout_ms"
)

// Event names.
const (
	EventPersistFailed = "persist.failed"
	EventLedgerFailed  = "ledger.failed"
)
