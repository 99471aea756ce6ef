package notice

import (
	"fmt"
)

// Kind is the machine-readable category attached to every notice.
type Kind string

// Notice kinds.
const (
	KindConfiguration      Kind = "configuration"
	KindClientConstruction Kind = "client_construction"
	KindAPI                Kind = "api"
	KindAction             Kind = "action"
	KindExportIO           Kind = "export_io"
	KindInvalidRequest     Kind = "invalid_request"
	KindForbidden          Kind = "forbidden"
	KindInternal           Kind = "internal"

	// KindNoMatch reports a reachable cluster without matching deployments.
	KindNoMatch Kind = "no_match"

	// KindStatus is used for plain progress and success messages.
	KindStatus Kind = "status"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a short human-readable message with a kind that callers can
// switch on.
type Notice struct {
	Level   Level  `json:"level"`
	Kind    Kind   `json:"kind"`
	Cluster string `json:"cluster,omitempty"`
	Message string `json:"message"`
}

// String renders the notice the way the CLI prints it.
func (n Notice) String() string {
	if n.Cluster != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", n.Level, n.Cluster, n.Kind, n.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Kind, n.Message)
}

// Info builds an info-level status notice.
func Info(format string, args ...any) Notice {
	return Notice{Level: LevelInfo, Kind: KindStatus, Message: fmt.Sprintf(format, args...)}
}

// FromError converts err into a warning notice, keeping its kind and cluster.
// Internal failures are reported at error level.
func FromError(err error) Notice {
	kind := KindOf(err)
	level := LevelWarning
	if kind == KindInternal {
		level = LevelError
	}
	return Notice{
		Level:   level,
		Kind:    kind,
		Cluster: ClusterOf(err),
		Message: err.Error(),
	}
}

// List is an ordered collection of notices.
type List []Notice

// Add appends notices.
func (l *List) Add(n ...Notice) {
	*l = append(*l, n...)
}

// AddError appends the notice for err; nil errors are ignored.
func (l *List) AddError(err error) {
	if err == nil {
		return
	}
	*l = append(*l, FromError(err))
}

// Warnings returns notices at warning level or above.
func (l List) Warnings() List {
	var out List
	for _, n := range l {
		if n.Level != LevelInfo {
			out = append(out, n)
		}
	}
	return out
}

// OfKind returns the notices with the given kind.
func (l List) OfKind(kind Kind) List {
	var out List
	for _, n := range l {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
