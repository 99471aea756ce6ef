// Package instrumentation provides OpenTelemetry metrics and tracing for
// deployctl.
//
// Instrumentation is off unless INSTRUMENTATION_ENABLED=true. When it is off
// the global no-op providers are used and every Record* call is cheap.
//
// # Metrics
//
//   - deployctl_cluster_queries_total{status,cluster_type}
//   - deployctl_cluster_query_duration_seconds{status,cluster_type}
//   - deployctl_actions_total{action,status}
//   - deployctl_action_duration_seconds{action,status}
//   - deployctl_notices_total{kind,level}
//   - http_requests_total / http_request_duration_seconds for the HTTP surface
//
// Cluster names are reduced to a cluster type (production, uat, staging,
// development, other) before they are used as metric labels. Full names go
// on spans only.
//
// # Tracing
//
// Spans are started for a fleet listing (fleet.list), for each cluster
// queried within it (fleet.cluster) and for each dispatched action
// (action.<name>).
//
// # Configuration
//
//	INSTRUMENTATION_ENABLED       true|false (default false)
//	METRICS_EXPORTER              prometheus|otlp|stdout (default prometheus)
//	TRACING_EXPORTER              otlp|stdout|none (default none)
//	OTEL_EXPORTER_OTLP_ENDPOINT   e.g. http://localhost:4318
//	OTEL_EXPORTER_OTLP_INSECURE   true|false (default false)
//	OTEL_TRACES_SAMPLER_ARG       0.0-1.0 (default 0.1)
//	OTEL_SERVICE_NAME             default deployctl
package instrumentation
