package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// MeterObserver records object-created events as OpenTelemetry metrics.
type MeterObserver struct {
	created metric.Int64Counter
	alive   metric.Int64Histogram
}

// NewMeterObserver creates instruments on mp. A nil provider means the
// global one.
func NewMeterObserver(mp metric.MeterProvider) (*MeterObserver, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(InstrumentationName)

	created, err := meter.Int64Counter("objectpool.objects.created",
		metric.WithDescription("Objects built by pool generators"),
		metric.WithUnit("{object}"))
	if err != nil {
		return nil, err
	}
	alive, err := meter.Int64Histogram("objectpool.objects.alive",
		metric.WithDescription("Pool object count observed at each creation"),
		metric.WithUnit("{object}"))
	if err != nil {
		return nil, err
	}

	return &MeterObserver{created: created, alive: alive}, nil
}

// ObjectCreated implements pool.Observer.
func (o *MeterObserver) ObjectCreated(e pool.CreatedEvent) {
	attrs := metric.WithAttributes(attribute.String("pool.name", e.Name))
	ctx := context.Background()
	o.created.Add(ctx, 1, attrs)
	o.alive.Record(ctx, int64(e.Count), attrs)
}
