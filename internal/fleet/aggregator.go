package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/notice"
	"github.com/giantswarm/deployctl/internal/selector"
)

// TargetSource enumerates the clusters to query.
type TargetSource interface {
	Targets() ([]k8s.Target, error)
}

// Lister lists Deployments in one cluster.
type Lister interface {
	ListDeployments(ctx context.Context, namespace, labelSelector string) ([]deployment.Summary, error)
}

// ListerFactory builds a Lister for a cluster target.
type ListerFactory func(target k8s.Target) (Lister, error)

// Aggregator runs fleet-wide listings.
type Aggregator struct {
	targets        TargetSource
	newLister      ListerFactory
	workers        int
	clusterTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records per-cluster query metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithListerFactory replaces how per-cluster listers are built.
func WithListerFactory(f ListerFactory) Option {
	return func(a *Aggregator) {
		a.newLister = f
	}
}

// NewAggregator creates an Aggregator. By default each cluster is listed
// through a deployment.QueryService built from factory.
func NewAggregator(cfg config.Config, targets TargetSource, factory k8s.ClientFactory, opts ...Option) *Aggregator {
	a := &Aggregator{
		targets:        targets,
		workers:        cfg.Workers,
		clusterTimeout: cfg.ClusterTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.newLister == nil {
		a.newLister = func(target k8s.Target) (Lister, error) {
			client, err := k8s.NewClusterClient(factory, target)
			if err != nil {
				return nil, err
			}
			return deployment.NewQueryService(client, cfg,
				deployment.WithLogger(logging.WithCluster(a.logger, target.Context))), nil
		}
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a
}

// clusterOutcome is written by exactly one worker.
type clusterOutcome struct {
	deployments []deployment.Summary
	err         error
}

// List resolves rawLabel to a selector and lists matching Deployments in
// every cluster. It never fails: missing configuration, unreachable
// clusters and API errors all become notices.
func (a *Aggregator) List(ctx context.Context, rawLabel string) Result {
	sel := selector.Resolve(rawLabel)
	result := Result{View: View{Selector: sel, Clusters: []ClusterDeployments{}}}

	targets, err := a.targets.Targets()
	if err != nil {
		a.logger.Warn("no clusters to query", logging.Err(err))
		result.Notices.AddError(err)
		return result
	}

	ctx, span := instrumentation.StartFleetSpan(ctx, sel, len(targets))
	defer span.End()

	outcomes := make([]clusterOutcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, target := range targets {
		g.Go(func() error {
			deployments, err := a.listCluster(gctx, target, sel)
			outcomes[i] = clusterOutcome{deployments: deployments, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, target := range targets {
		out := outcomes[i]
		switch {
		case out.err != nil:
			result.Notices.AddError(out.err)
		case len(out.deployments) == 0:
			result.Notices.Add(notice.Notice{
				Level:   notice.LevelInfo,
				Kind:    notice.KindNoMatch,
				Cluster: target.Context,
				Message: fmt.Sprintf("no deployments match %s in namespace %s", sel, target.Namespace),
			})
		default:
			result.View.Clusters = append(result.View.Clusters, ClusterDeployments{
				Context:     target.Context,
				Namespace:   target.Namespace,
				Deployments: out.deployments,
			})
		}
	}

	a.logger.Info("fleet listing complete",
		logging.Selector(sel),
		slog.Int("clusters", len(targets)),
		slog.Int("with_results", len(result.View.Clusters)),
		slog.Int("warnings", len(result.Notices.Warnings())))
	instrumentation.SetSpanSuccess(span)
	return result
}

// listCluster queries one cluster under its own deadline.
func (a *Aggregator) listCluster(ctx context.Context, target k8s.Target, sel string) (deployments []deployment.Summary, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.clusterTimeout)
	defer cancel()

	ctx, span := instrumentation.StartClusterSpan(ctx, target.Context, target.Namespace)
	defer span.End()

	start := time.Now()
	logger := logging.WithCluster(a.logger, target.Context)

	defer func() {
		if r := recover(); r != nil {
			err = notice.Errorf(notice.KindInternal, "list deployments", target.Context, "panic: %v", r)
		}

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
			logger.Warn("cluster query failed",
				logging.Namespace(target.Namespace),
				logging.Kind(string(notice.KindOf(err))),
				logging.Err(err),
				logging.Duration(start))
		case len(deployments) == 0:
			status = instrumentation.StatusEmpty
		}
		a.metrics.RecordClusterQuery(context.WithoutCancel(ctx), target.Context, status, time.Since(start))
	}()

	lister, err := a.newLister(target)
	if err != nil {
		return nil, err
	}

	deployments, err = lister.ListDeployments(ctx, target.Namespace, sel)
	if err != nil {
		if notice.ClusterOf(err) == "" {
			err = notice.Wrap(notice.KindOf(err), "list deployments", target.Context, err)
		}
		return nil, err
	}
	return deployments, nil
}
