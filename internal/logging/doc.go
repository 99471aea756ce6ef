// Package logging provides structured logging utilities for deployctl.
//
// All components log through log/slog. This package holds the shared
// attribute keys, logger constructors and the sanitization helpers used
// when API server addresses end up in log lines.
//
// Create a logger scoped to one cluster and operation:
//
//	logger := logging.WithCluster(logging.WithOperation(slog.Default(), "fleet.list"), "uat1")
//	logger.Info("listing deployments",
//	    logging.Namespace("uat1"),
//	    logging.Selector("app=checkout"))
//
// client-go logs through klog. SetupKlog routes it into the same slog
// handler when debugging and discards it otherwise.
package logging
