package logging

import (
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyNamespace  = "namespace"
	KeyCluster    = "cluster"
	KeyDeployment = "deployment"
	KeySelector   = "selector"
	KeyAction     = "action"
	KeyKind       = "kind"
	KeyRequestID  = "request_id"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyHost       = "host"
	KeyTool       = "tool"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const redactedIP = "<redacted-ip>"

var (
	ipv4Regex = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

	// Full, compressed and bracketed IPv6 forms.
	ipv6Regex = regexp.MustCompile(`\[?([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}\]?`)
)

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetupKlog silences client-go's klog output unless debug is set, in which
// case klog lines are forwarded to logger.
func SetupKlog(logger *slog.Logger, debug bool) {
	if !debug {
		klog.SetOutput(io.Discard)
		klog.LogToStderr(false)
		return
	}
	klog.SetSlogLogger(logger.With(slog.String("source", "klog")))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithCluster returns a logger with the cluster attribute set.
func WithCluster(logger *slog.Logger, cluster string) *slog.Logger {
	return logger.With(slog.String(KeyCluster, cluster))
}

// WithRequest returns a logger tagged with a dispatcher request ID.
func WithRequest(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(slog.String(KeyRequestID, requestID))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

func Cluster(name string) slog.Attr {
	return slog.String(KeyCluster, name)
}

func Deployment(name string) slog.Attr {
	return slog.String(KeyDeployment, name)
}

func Selector(sel string) slog.Attr {
	return slog.String(KeySelector, sel)
}

func Action(name string) slog.Attr {
	return slog.String(KeyAction, name)
}

// Kind returns a slog attribute for a notice or error kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Duration returns the elapsed time since start.
func Duration(start time.Time) slog.Attr {
	return slog.Duration(KeyDuration, time.Since(start))
}

// Err returns a slog attribute for an error with IP addresses redacted.
// Errors from the API server routinely embed the endpoint address.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

// Host returns a slog attribute for a host with IP addresses sanitized.
func Host(host string) slog.Attr {
	return slog.String(KeyHost, SanitizeHost(host))
}

// SanitizeHost redacts IPv4 and IPv6 addresses in host while keeping the
// scheme, hostnames and ports.
//
//	"https://192.168.1.100:6443"          -> "https://<redacted-ip>:6443"
//	"https://api.cluster.example.com:6443" -> unchanged
//	"2001:db8::1"                         -> "<redacted-ip>"
//	""                                    -> "<empty>"
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}

	if !strings.Contains(host, "://") {
		return redactIPs(host)
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return redactIPs(host)
	}
	if !ipv4Regex.MatchString(parsed.Host) && !ipv6Regex.MatchString(parsed.Host) {
		return host
	}
	parsed.Host = redactIPs(parsed.Host)
	return parsed.String()
}

func redactIPs(s string) string {
	s = ipv4Regex.ReplaceAllString(s, redactedIP)
	return ipv6Regex.ReplaceAllString(s, redactedIP)
}
