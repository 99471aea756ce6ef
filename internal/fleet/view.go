package fleet

import (
	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/notice"
)

// ClusterDeployments is one cluster's entry in a View.
type ClusterDeployments struct {
	Context     string               `json:"context"`
	Namespace   string               `json:"namespace"`
	Deployments []deployment.Summary `json:"deployments"`
}

// View is the fleet-wide listing. Clusters appear in resolver order and
// only when they returned at least one Deployment.
type View struct {
	Selector string               `json:"selector"`
	Clusters []ClusterDeployments `json:"clusters"`
}

// Cluster returns the entry for contextName.
func (v View) Cluster(contextName string) (ClusterDeployments, bool) {
	for _, c := range v.Clusters {
		if c.Context == contextName {
			return c, true
		}
	}
	return ClusterDeployments{}, false
}

// Contexts returns the context names present in the view, in order.
func (v View) Contexts() []string {
	names := make([]string, len(v.Clusters))
	for i, c := range v.Clusters {
		names[i] = c.Context
	}
	return names
}

// Result is a View together with the notices produced while building it.
type Result struct {
	View    View        `json:"view"`
	Notices notice.List `json:"notices,omitempty"`
}
