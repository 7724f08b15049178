package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer that application services start spans on
const TracerName = "stockledger"

// Span attribute keys used by the application services
const (
	AttrProductID   = attribute.Key("stock.product_id")
	AttrWarehouseID = attribute.Key("stock.warehouse_id")
	AttrOrderNumber = attribute.Key("purchase_order.number")
	AttrOrderLineID = attribute.Key("purchase_order.line_id")
)

// StartServiceSpan starts a "{service}.{operation}" span on the global tracer
// provider. The caller ends it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record")
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

// RecordError marks the span failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
