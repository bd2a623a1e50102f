// Package telemetry holds the OpenTelemetry instruments of the service. They
// report to the global providers, which InitProviders replaces with exporting
// SDK providers; without it every call is a no-op.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "propdesk"

// Metrics holds all invite metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	RedemptionsSucceeded metric.Int64Counter
	RedemptionsFailed    metric.Int64Counter
	InvitesIssued        metric.Int64Counter
	InvitesRevoked       metric.Int64Counter
	InvitesExpired       metric.Int64Counter
	RedeemDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates all metric instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RedemptionsSucceeded, err = meter.Int64Counter("propdesk.invites.redemptions.succeeded",
		metric.WithDescription("Number of successful invite redemptions"))
	if err != nil {
		return nil, err
	}

	m.RedemptionsFailed, err = meter.Int64Counter("propdesk.invites.redemptions.failed",
		metric.WithDescription("Number of rejected or failed invite redemptions"))
	if err != nil {
		return nil, err
	}

	m.InvitesIssued, err = meter.Int64Counter("propdesk.invites.issued",
		metric.WithDescription("Number of invites issued"))
	if err != nil {
		return nil, err
	}

	m.InvitesRevoked, err = meter.Int64Counter("propdesk.invites.revoked",
		metric.WithDescription("Number of invites revoked"))
	if err != nil {
		return nil, err
	}

	m.InvitesExpired, err = meter.Int64Counter("propdesk.invites.expired",
		metric.WithDescription("Number of invites moved to expired by the sweeper"))
	if err != nil {
		return nil, err
	}

	m.RedeemDuration, err = meter.Float64Histogram("propdesk.invites.redeem.duration_seconds",
		metric.WithDescription("Redemption latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RedemptionSucceeded counts a successful redemption of kind.
func (m *Metrics) RedemptionSucceeded(ctx context.Context, kind string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("invite.kind", kind))
	m.RedemptionsSucceeded.Add(ctx, 1, attrs)
	m.RedeemDuration.Record(ctx, seconds, attrs)
}

// RedemptionFailed counts a rejected redemption, labelled with the error code.
func (m *Metrics) RedemptionFailed(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	m.RedemptionsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("invite.kind", kind),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) InviteIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.InvitesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("invite.kind", kind)))
}

func (m *Metrics) InviteRevoked(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.InvitesRevoked.Add(ctx, 1, metric.WithAttributes(attribute.String("invite.kind", kind)))
}

func (m *Metrics) InvitesExpiredBy(ctx context.Context, kind string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.InvitesExpired.Add(ctx, n, metric.WithAttributes(attribute.String("invite.kind", kind)))
}
