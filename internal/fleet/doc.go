// Package fleet fans a deployment listing out across every configured
// cluster and merges the answers into one ordered FleetView.
//
// Clusters are queried concurrently by a bounded pool of workers, each with
// its own deadline. A cluster that errors or has no matching Deployments is
// left out of the view; the returned notices say which of the two happened.
package fleet
