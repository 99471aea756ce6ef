package notice

import (
	"context"
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Sentinel errors for each failure kind.
// These errors can be checked using errors.Is() for programmatic error handling.
var (
	// ErrConfiguration indicates that no cluster contexts could be found or
	// the kubeconfig could not be loaded.
	ErrConfiguration = errors.New("configuration error")

	// ErrClientConstruction indicates that a client for a cluster context
	// could not be built (invalid credentials, unknown context, bad endpoint).
	ErrClientConstruction = errors.New("client construction failed")

	// ErrAPI indicates that a well-formed Kubernetes API call was rejected or
	// failed server-side, including timeouts.
	ErrAPI = errors.New("kubernetes API error")

	// ErrAction indicates that a resource an action depends on is missing or
	// malformed, e.g. the replicas ConfigMap for a start action.
	ErrAction = errors.New("action failed")

	// ErrExportIO indicates that a deployment export could not be written.
	ErrExportIO = errors.New("export write failed")

	// ErrInvalidRequest indicates that a dispatcher request was malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrForbidden indicates that a write action was refused by configuration.
	ErrForbidden = errors.New("action not allowed")

	// ErrInternal indicates an unexpected failure, such as a recovered panic.
	ErrInternal = errors.New("internal error")
)

// Error carries the failure kind together with the operation and cluster
// that produced it.
//
// # Error Matching Semantics
//
// Is() matches the sentinel error corresponding to Kind, so callers can write
// errors.Is(err, notice.ErrAPI) regardless of the wrapped cause. Unwrap()
// returns the underlying cause, allowing errors.Is() and errors.As() to also
// reach e.g. a *apierrors.StatusError.
type Error struct {
	Kind    Kind
	Op      string
	Cluster string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.Op
	if e.Cluster != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Op, e.Cluster)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements custom error matching against the kind sentinels.
func (e *Error) Is(target error) bool {
	return sentinelFor(e.Kind) == target
}

func sentinelFor(kind Kind) error {
	switch kind {
	case KindConfiguration:
		return ErrConfiguration
	case KindClientConstruction:
		return ErrClientConstruction
	case KindAPI:
		return ErrAPI
	case KindAction:
		return ErrAction
	case KindExportIO:
		return ErrExportIO
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindForbidden:
		return ErrForbidden
	case KindInternal:
		return ErrInternal
	}
	return nil
}

// Wrap returns err as an *Error of the given kind. A nil err stays nil.
func Wrap(kind Kind, op, cluster string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Cluster: cluster, Err: err}
}

// Errorf builds an *Error of the given kind from a format string.
func Errorf(kind Kind, op, cluster, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Cluster: cluster, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies err. Errors already carrying a kind keep it; raw
// client-go status errors and context deadlines are API errors; anything
// else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		return KindAPI
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindAPI
	}

	return KindInternal
}

// ClusterOf returns the cluster recorded on err, if any.
func ClusterOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Cluster
	}
	return ""
}
