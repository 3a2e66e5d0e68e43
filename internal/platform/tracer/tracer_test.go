package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"credhub/internal/platform/tracer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrCredentialID, "vc_1"),
		tracer.Bool(tracer.AttrVerified, true),
	)

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Int64("count", 42))
	span.AddEvent(tracer.EventLedgerFailed)
	span.End(errors.New("ledger down"))
}

func TestOTelTracer_WithInjectedTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), tracer.SpanIssue,
		tracer.String(tracer.AttrCredentialType, "KYC"),
		tracer.Duration(tracer.AttrLedgerTimeout, 3*time.Second),
	)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	assert.NotPanics(t, func() {
		span.SetAttributes(tracer.Bool(tracer.AttrSignatureValid, true), tracer.Attribute{Key: "n", Value: 3})
		span.AddEvent(tracer.EventPersistFailed, tracer.String("collection", "credentials"))
		span.End(errors.New("disk full"))
	})
}

func TestOTelTracer_DefaultsToGlobalProvider(t *testing.T) {
	tr := tracer.NewOTel()
	_, span := tr.Start(context.Background(), tracer.SpanRevoke)
	assert.NotPanics(t, func() { span.End(nil) })
}

func TestDurationIsMilliseconds(t *testing.T) {
	attr := tracer.Duration("d", 1500*time.Millisecond)
	assert.Equal(t, int64(1500), attr.Value)
}
