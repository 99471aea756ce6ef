package fleettools

import (
	"github.com/giantswarm/deployctl/internal/fleet"
	"github.com/giantswarm/deployctl/internal/notice"
)

// Limits for deployments returned per cluster by fleet_list_deployments.
const (
	DefaultMaxDeployments  = 100
	AbsoluteMaxDeployments = 1000
)

// truncateView caps every cluster's deployment list at maxItems in place.
// It returns an info notice when anything was cut.
func truncateView(view *fleet.View, maxItems int) (notice.Notice, bool) {
	if maxItems <= 0 {
		maxItems = DefaultMaxDeployments
	}
	if maxItems > AbsoluteMaxDeployments {
		maxItems = AbsoluteMaxDeployments
	}

	shown, total := 0, 0
	for i := range view.Clusters {
		deployments := view.Clusters[i].Deployments
		total += len(deployments)
		if len(deployments) > maxItems {
			view.Clusters[i].Deployments = deployments[:maxItems]
		}
		shown += len(view.Clusters[i].Deployments)
	}
	if shown == total {
		return notice.Notice{}, false
	}

	return notice.Info("Output truncated. Showing %d of %d deployments (at most %d per cluster). Use a more specific label for complete results.",
		shown, total, maxItems), true
}
