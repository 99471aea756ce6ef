package deployment

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"

	"github.com/giantswarm/deployctl/internal/notice"
)

// Action tokens offered for every listed Deployment.
const (
	ActionGetInfo = "get_info"
	ActionRestart = "restart"
	ActionStart   = "start"
	ActionStop    = "stop"
)

// SummaryActions is the fixed action set attached to each Summary.
var SummaryActions = []string{ActionGetInfo, ActionRestart, ActionStart, ActionStop}

// Summary is the per-cluster projection of one Deployment.
type Summary struct {
	// Index is the 1-based position in the cluster's listing.
	Index       int      `json:"index"`
	AppLabel    string   `json:"app"`
	Desired     int32    `json:"desired"`
	Ready       int32    `json:"ready"`
	Unavailable int32    `json:"unavailable"`
	Actions     []string `json:"actions"`
	Name        string   `json:"name"`
}

// PodInfo is the per-pod projection returned by GetPodInfo.
type PodInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Node   string `json:"node"`
	HostIP string `json:"hostIP"`
	Phase  string `json:"phase"`

	// Restarts is taken from the first container status only.
	Restarts int32 `json:"restarts"`

	// Age is zero for pods without a start time. It is rendered as AgeText
	// and AgeSeconds.
	Age        time.Duration `json:"-"`
	AgeText    string        `json:"age"`
	AgeSeconds int64         `json:"ageSeconds"`
	Spec       string        `json:"spec"`
}

// Export is a Deployment snapshot and the file it was written to.
type Export struct {
	Deployment *appsv1.Deployment `json:"-"`
	Dir        string             `json:"dir"`
	Path       string             `json:"path"`
	YAML       string             `json:"-"`

	// Written is false when the file could not be written; the snapshot is
	// still valid.
	Written bool        `json:"written"`
	Notices notice.List `json:"notices,omitempty"`
}

// ConfigMapRef describes the ConfigMap mounted by a Deployment's first volume.
type ConfigMapRef struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Data      map[string]string `json:"data,omitempty"`

	// Key and Value are the entry offered for editing: the last key in
	// sorted order.
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// PodInfoResult is the detail view of one Deployment.
type PodInfoResult struct {
	Context          string        `json:"context"`
	Namespace        string        `json:"namespace"`
	Deployment       string        `json:"deployment"`
	Pods             []PodInfo     `json:"pods"`
	Export           *Export       `json:"export"`
	TemplateSpecYAML string        `json:"templateSpec"`
	ConfigMap        *ConfigMapRef `json:"configMap,omitempty"`
}
