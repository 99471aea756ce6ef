// Package deployment implements the single-cluster Deployment operations:
// listing and describing Deployments and their Pods, exporting a Deployment
// snapshot to disk, and the mutating actions (restart, start, stop and
// ConfigMap patches).
//
// Services are bound to one cluster client and never touch another cluster.
// Errors are returned as *notice.Error values; turning them into notices is
// left to the caller.
package deployment
