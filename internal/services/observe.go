package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/abrezinsky/sportsmeet/internal/services")

// MetricsRecorder receives engine counters. *metrics.Metrics satisfies it.
type MetricsRecorder interface {
	ResultRecorded(kind string)
	VoteCast(outcome string)
	ReconcileRepaired(aggregate string, n int)
	ObserveStandings(d time.Duration)
}

// Broadcaster pushes change notifications to live clients
type Broadcaster interface {
	BroadcastVotingStatus(eventID *int, open bool, closeTime string)
	BroadcastStandingsUpdated(eventID int)
	BroadcastVotesUpdated(eventID int)
}

type nopMetrics struct{}

func (nopMetrics) ResultRecorded(string)          {}
func (nopMetrics) VoteCast(string)                {}
func (nopMetrics) ReconcileRepaired(string, int)  {}
func (nopMetrics) ObserveStandings(time.Duration) {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastVotingStatus(*int, bool, string) {}
func (nopBroadcaster) BroadcastStandingsUpdated(int)            {}
func (nopBroadcaster) BroadcastVotesUpdated(int)                {}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span (if any) and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
