// Package observability wires object pools into OpenTelemetry tracing and
// metrics.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans and instruments created by this module.
const InstrumentationName = "github.com/ajitpratap0/objectpool"

// Version is reported as the service version of exported telemetry.
var Version = "dev"

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// User is implemented by pool.Pool and pool.ShimmedPool.
type User[T any] interface {
	Name() string
	Use(work func(T) error) error
}

// TracedUse runs work through p inside a "pool.use" span. The span records
// the pool name and any error returned by the pool or by work.
func TracedUse[T any](ctx context.Context, p User[T], work func(context.Context, T) error) error {
	ctx, span := Tracer().Start(ctx, "pool.use",
		trace.WithAttributes(attribute.String("pool.name", p.Name())))
	defer span.End()

	err := p.Use(func(obj T) error {
		span.AddEvent("object acquired")
		return work(ctx, obj)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
