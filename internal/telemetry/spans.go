package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "propdesk"

// StartRedeemSpan starts a span for one redemption attempt.
func StartRedeemSpan(ctx context.Context, kind, userID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "invite.redeem",
		trace.WithAttributes(
			attribute.String("invite.kind", kind),
			attribute.String("user.id", userID),
		),
	)
}

// StartIssueSpan starts a span for issuing an invite.
func StartIssueSpan(ctx context.Context, kind, orgID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "invite.issue",
		trace.WithAttributes(
			attribute.String("invite.kind", kind),
			attribute.String("organization.id", orgID),
		),
	)
}

// HTTPMiddleware returns a chi-compatible middleware that creates spans for HTTP requests.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName)
	}
}
