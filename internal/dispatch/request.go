package dispatch

import (
	"fmt"
	"strings"

	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/fleet"
	"github.com/giantswarm/deployctl/internal/notice"
)

// Action names a dispatcher operation.
type Action string

// Supported actions.
const (
	ActionGet                    Action = "get"
	ActionGetPodInfo             Action = "get_pod_info"
	ActionRestart                Action = "restart"
	ActionStart                  Action = "start"
	ActionStop                   Action = "stop"
	ActionUpdateConfigMap        Action = "update_configmap"
	ActionUpdateConfigMapRestart Action = "update_configmap_restart"
)

// Actions lists every supported action.
var Actions = []Action{
	ActionGet,
	ActionGetPodInfo,
	ActionRestart,
	ActionStart,
	ActionStop,
	ActionUpdateConfigMap,
	ActionUpdateConfigMapRestart,
}

// Mutating reports whether the action changes cluster state.
func (a Action) Mutating() bool {
	switch a {
	case ActionRestart, ActionStart, ActionStop, ActionUpdateConfigMap, ActionUpdateConfigMapRestart:
		return true
	}
	return false
}

// ConfigMapEdit identifies one ConfigMap entry and its new value.
type ConfigMapEdit struct {
	// Namespace defaults to the namespace of the request's context.
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	Key       string `json:"key"`

	// Value is raw YAML text; it is normalized before patching.
	Value string `json:"value"`

	// RestartDeployment is restarted after a successful patch by
	// ActionUpdateConfigMapRestart.
	RestartDeployment string `json:"restartDeployment,omitempty"`
}

// Request is one dispatcher call.
type Request struct {
	Action Action `json:"action"`

	// Label is the raw label for ActionGet.
	Label string `json:"label,omitempty"`

	// Context is the target cluster for single-cluster actions.
	Context string `json:"context,omitempty"`

	// App is the app label used to find pods for ActionGetPodInfo.
	App string `json:"app,omitempty"`

	Deployment string         `json:"deployment,omitempty"`
	ConfigMap  *ConfigMapEdit `json:"configMap,omitempty"`
}

// Validate checks that the fields the action needs are present.
func (r Request) Validate() error {
	var missing []string
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}

	switch r.Action {
	case ActionGet:
		require("label", r.Label)
	case ActionGetPodInfo:
		require("context", r.Context)
		require("app", r.App)
		require("deployment", r.Deployment)
	case ActionRestart, ActionStart, ActionStop:
		require("context", r.Context)
		require("deployment", r.Deployment)
	case ActionUpdateConfigMap, ActionUpdateConfigMapRestart:
		require("context", r.Context)
		if r.ConfigMap == nil {
			missing = append(missing, "configMap")
			break
		}
		require("configMap.name", r.ConfigMap.Name)
		require("configMap.key", r.ConfigMap.Key)
		if r.Action == ActionUpdateConfigMapRestart {
			require("configMap.restartDeployment", r.ConfigMap.RestartDeployment)
		}
	default:
		return notice.Errorf(notice.KindInvalidRequest, "dispatch", r.Context, "unknown action %q", r.Action)
	}

	if len(missing) > 0 {
		return notice.Errorf(notice.KindInvalidRequest, string(r.Action), r.Context,
			"missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// Step is one stage of a multi-step write.
type Step struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pipeline reports which steps of a write were applied. A failed step
// skips every later step; nothing is retried or rolled back.
type Pipeline struct {
	Steps []Step `json:"steps"`
}

// Completed reports whether every step completed.
func (p Pipeline) Completed() bool {
	for _, s := range p.Steps {
		if !s.Completed {
			return false
		}
	}
	return len(p.Steps) > 0
}

// String summarizes the pipeline, e.g. "patch_configmap=ok restart=skipped".
func (p Pipeline) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		state := "ok"
		switch {
		case s.Skipped:
			state = "skipped"
		case !s.Completed:
			state = "failed"
		}
		parts[i] = fmt.Sprintf("%s=%s", s.Name, state)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a dispatcher call. Only the field matching the
// action is set.
type Result struct {
	RequestID string `json:"requestId"`
	Action    Action `json:"action"`

	Fleet    *fleet.View               `json:"fleet,omitempty"`
	PodInfo  *deployment.PodInfoResult `json:"podInfo,omitempty"`
	Replicas *int32                    `json:"replicas,omitempty"`
	Pipeline *Pipeline                 `json:"pipeline,omitempty"`
	Notices  notice.List               `json:"notices,omitempty"`
}

// Failed reports whether any warning or error notice was produced.
func (r Result) Failed() bool {
	return len(r.Notices.Warnings()) > 0
}
