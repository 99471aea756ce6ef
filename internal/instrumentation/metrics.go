package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod      = "method"
	attrPath        = "path"
	attrStatus      = "status"
	attrAction      = "action"
	attrClusterType = "cluster_type"
	attrKind        = "kind"
	attrLevel       = "level"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEmpty   = "empty"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0, 30.0}

// Metrics records deployctl metrics. A nil *Metrics or one built from a
// no-op meter is safe to use.
type Metrics struct {
	clusterQueriesTotal  metric.Int64Counter
	clusterQueryDuration metric.Float64Histogram
	actionsTotal         metric.Int64Counter
	actionDuration       metric.Float64Histogram
	noticesTotal         metric.Int64Counter

	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.clusterQueriesTotal, err = meter.Int64Counter(
		"deployctl_cluster_queries_total",
		metric.WithDescription("Total number of per-cluster deployment queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployctl_cluster_queries_total counter: %w", err)
	}

	m.clusterQueryDuration, err = meter.Float64Histogram(
		"deployctl_cluster_query_duration_seconds",
		metric.WithDescription("Per-cluster deployment query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployctl_cluster_query_duration_seconds histogram: %w", err)
	}

	m.actionsTotal, err = meter.Int64Counter(
		"deployctl_actions_total",
		metric.WithDescription("Total number of dispatched actions"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployctl_actions_total counter: %w", err)
	}

	m.actionDuration, err = meter.Float64Histogram(
		"deployctl_action_duration_seconds",
		metric.WithDescription("Dispatched action duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployctl_action_duration_seconds histogram: %w", err)
	}

	m.noticesTotal, err = meter.Int64Counter(
		"deployctl_notices_total",
		metric.WithDescription("Total number of notices returned to callers"),
		metric.WithUnit("{notice}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployctl_notices_total counter: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordClusterQuery records one cluster's part of a fleet listing.
func (m *Metrics) RecordClusterQuery(ctx context.Context, cluster, status string, duration time.Duration) {
	if m == nil || m.clusterQueriesTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.String(attrClusterType, ClassifyCluster(cluster)),
	)
	m.clusterQueriesTotal.Add(ctx, 1, attrs)
	m.clusterQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAction records a dispatched action.
func (m *Metrics) RecordAction(ctx context.Context, action, status string, duration time.Duration) {
	if m == nil || m.actionsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	)
	m.actionsTotal.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordNotice counts a notice handed back to a caller.
func (m *Metrics) RecordNotice(ctx context.Context, kind, level string) {
	if m == nil || m.noticesTotal == nil {
		return
	}
	m.noticesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrLevel, level),
	))
}

// RecordHTTPRequest records an HTTP request with method, path, status code and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}
