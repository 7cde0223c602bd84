package checkout

import (
	"context"

	"github.com/metinatakli/design-storefront/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/metinatakli/design-storefront/internal/checkout"

type metrics struct {
	transitions metric.Int64Counter
}

func newMetrics() *metrics {
	counter, err := otel.Meter(meterName).Int64Counter(
		"checkout.transitions",
		metric.WithDescription("Number of checkout state machine transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		otel.Handle(err)
		return &metrics{}
	}

	return &metrics{transitions: counter}
}

func (m *metrics) recordTransition(from, to domain.Step, event Event) {
	if m == nil || m.transitions == nil {
		return
	}

	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
		attribute.String("event", event.String()),
	))
}
