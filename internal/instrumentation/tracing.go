package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for deployctl spans.
const TracerName = "github.com/giantswarm/deployctl"

// Span attribute keys.
const (
	SpanAttrCluster     = "deployctl.cluster"
	SpanAttrClusterType = "deployctl.cluster_type"
	SpanAttrSelector    = "deployctl.selector"
	SpanAttrAction      = "deployctl.action"
	SpanAttrDeployment  = "deployctl.deployment"
	SpanAttrClusters    = "deployctl.cluster_count"
	SpanAttrResults     = "deployctl.result_count"
	SpanAttrNamespace   = "k8s.namespace"
)

// StartSpan starts a span with the given name and attributes. The caller
// ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartFleetSpan starts the span covering one fleet listing.
func StartFleetSpan(ctx context.Context, labelSelector string, clusters int) (context.Context, trace.Span) {
	return StartSpan(ctx, "fleet.list",
		attribute.String(SpanAttrSelector, labelSelector),
		attribute.Int(SpanAttrClusters, clusters),
	)
}

// StartClusterSpan starts a client span for work against one cluster.
func StartClusterSpan(ctx context.Context, cluster, namespace string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "fleet.cluster",
		trace.WithAttributes(
			attribute.String(SpanAttrCluster, cluster),
			attribute.String(SpanAttrClusterType, ClassifyCluster(cluster)),
			attribute.String(SpanAttrNamespace, namespace),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartActionSpan starts the span for a dispatched action.
func StartActionSpan(ctx context.Context, action, cluster, deployment string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(SpanAttrAction, action)}
	if cluster != "" {
		attrs = append(attrs, attribute.String(SpanAttrCluster, cluster))
	}
	if deployment != "" {
		attrs = append(attrs, attribute.String(SpanAttrDeployment, deployment))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "action."+action,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// SetSpanError records err on the span and marks it failed.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
