// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QuestionMetrics tracks question throughput and answer outcomes.
type QuestionMetrics struct {
	// questionCounter tracks questions by route (numeric/semantic)
	questionCounter metric.Int64Counter

	// errorCounter tracks per-question failures by error code
	errorCounter metric.Int64Counter

	// answerLatency tracks end-to-end answer latency in milliseconds
	answerLatency metric.Float64Histogram
}

// NewQuestionMetrics creates a metrics tracker with OTEL meters.
func NewQuestionMetrics() (*QuestionMetrics, error) {
	meter := otel.Meter("retailqa/questions")

	questionCounter, err := meter.Int64Counter(
		"retailqa.questions.total",
		metric.WithDescription("Questions answered by route"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"retailqa.questions.errors",
		metric.WithDescription("Per-question failures by error code"),
	)
	if err != nil {
		return nil, err
	}

	answerLatency, err := meter.Float64Histogram(
		"retailqa.questions.latency_ms",
		metric.WithDescription("End-to-end answer latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &QuestionMetrics{
		questionCounter: questionCounter,
		errorCounter:    errorCounter,
		answerLatency:   answerLatency,
	}, nil
}

// RecordQuestion counts a routed question.
func (m *QuestionMetrics) RecordQuestion(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.questionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
	))
}

// RecordError counts a per-question failure.
func (m *QuestionMetrics) RecordError(ctx context.Context, route, code string) {
	if m == nil {
		return
	}
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("code", code),
	))
}

// RecordLatency records end-to-end answer latency.
func (m *QuestionMetrics) RecordLatency(ctx context.Context, route string, ms float64) {
	if m == nil {
		return
	}
	m.answerLatency.Record(ctx, ms, metric.WithAttributes(
		attribute.String("route", route),
	))
}
