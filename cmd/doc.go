// Package cmd provides the command-line interface for deployctl.
//
// This package implements a Cobra-based CLI with these subcommands:
//   - get: lists deployments matching a label in every cluster
//   - info: shows pods, template and ConfigMap of one deployment
//   - restart, start, stop: act on one deployment in one cluster
//   - configmap update: replaces a ConfigMap key, optionally restarting
//   - contexts: lists the cluster contexts of the fleet
//   - serve: starts the MCP server
//   - version: displays the application version
//   - self-update: updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	deployctl get <label>                          # Fleet-wide listing
//	deployctl info <context> <app> <deployment>    # Pod details and export
//	deployctl restart <context> <deployment>       # Delete the deployment's pods
//	deployctl configmap update --context uat1 --name checkout-config \
//	    --key config.yml --value-file config.yml --restart checkout
//	deployctl serve --transport streamable-http --http-addr :8080
//
// Results are written to stdout as JSON, or YAML with -o yaml. Notices are
// written to stderr, and any warning makes the command exit non-zero.
//
// Configuration comes from flags, DEPLOYCTL_* environment variables, an
// optional .env file and an optional --config file, in that order of
// precedence.
package cmd
