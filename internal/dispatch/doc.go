// Package dispatch is the single entry point for operator actions.
//
// A Dispatcher routes a Request to the fleet aggregator, the deployment
// query service or the action service for one cluster. Dispatch never
// returns an error and never panics: every failure below it becomes a
// notice on the Result, together with whatever partial data was produced.
//
// Cluster configuration is re-read on every call, so kubeconfig edits take
// effect without restarting a long-running server.
package dispatch
