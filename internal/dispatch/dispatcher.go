package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/fleet"
	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/notice"
)

// Pipeline step names.
const (
	StepPatchConfigMap = "patch_configmap"
	StepRestart        = "restart"
)

// Resolver enumerates and resolves cluster contexts. It is expected to
// re-read its configuration on every call.
type Resolver interface {
	Targets() ([]k8s.Target, error)
	Target(contextName string) (k8s.Target, error)
}

// Dispatcher routes requests to the component implementing each action.
type Dispatcher struct {
	cfg      config.Config
	resolver Resolver
	factory  k8s.ClientFactory
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(cfg config.Config, resolver Resolver, factory k8s.ClientFactory, metrics *instrumentation.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		resolver: resolver,
		factory:  factory,
		metrics:  metrics,
		logger:   logger,
	}
}

// Config returns the configuration the dispatcher was built with.
func (d *Dispatcher) Config() config.Config {
	return d.cfg
}

// Dispatch runs req. It always returns a Result; failures are reported as
// notices.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (result Result) {
	requestID := uuid.NewString()
	result = Result{RequestID: requestID, Action: req.Action}

	logger := logging.WithRequest(d.logger, requestID).With(
		logging.Action(string(req.Action)),
		logging.Cluster(req.Context))

	ctx, span := instrumentation.StartActionSpan(ctx, string(req.Action), req.Context, req.Deployment)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result.Notices.AddError(notice.Errorf(notice.KindInternal, string(req.Action), req.Context, "unexpected failure: %v", r))
		}

		status := instrumentation.StatusSuccess
		if result.Failed() {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, fmt.Errorf("%s", result.Notices.Warnings()[0].Message))
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()

		mctx := context.WithoutCancel(ctx)
		d.metrics.RecordAction(mctx, string(req.Action), status, time.Since(start))
		for _, n := range result.Notices {
			d.metrics.RecordNotice(mctx, string(n.Kind), string(n.Level))
		}

		logger.Info("dispatch complete",
			logging.Status(status),
			slog.Int("notices", len(result.Notices)),
			logging.Duration(start))
	}()

	if err := req.Validate(); err != nil {
		result.Notices.AddError(err)
		return result
	}

	if err := d.checkWrite(req.Action); err != nil {
		result.Notices.AddError(err)
		return result
	}

	switch req.Action {
	case ActionGet:
		d.get(ctx, req, &result, logger)
	case ActionGetPodInfo:
		d.podInfo(ctx, req, &result, logger)
	case ActionRestart:
		d.restart(ctx, req, &result, logger)
	case ActionStart:
		d.start(ctx, req, &result, logger)
	case ActionStop:
		d.stop(ctx, req, &result, logger)
	case ActionUpdateConfigMap, ActionUpdateConfigMapRestart:
		d.updateConfigMap(ctx, req, &result, logger)
	}
	return result
}

// Contexts lists the resolved cluster contexts with their namespaces.
func (d *Dispatcher) Contexts(ctx context.Context) ([]k8s.Target, error) {
	_, span := instrumentation.StartSpan(ctx, "fleet.contexts")
	defer span.End()

	targets, err := d.resolver.Targets()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return targets, nil
}

// checkWrite refuses mutating actions in read-only mode. Dry runs are
// always allowed since nothing is persisted.
func (d *Dispatcher) checkWrite(action Action) error {
	if !action.Mutating() || !d.cfg.ReadOnly || d.cfg.DryRun {
		return nil
	}
	name := cases.Title(language.English).String(strings.ReplaceAll(string(action), "_", " "))
	return notice.Errorf(notice.KindForbidden, string(action), "",
		"%s is not allowed in read-only mode (use --dry-run to validate without applying)", name)
}

func (d *Dispatcher) get(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	agg := fleet.NewAggregator(d.cfg, d.resolver, d.factory,
		fleet.WithLogger(logger),
		fleet.WithMetrics(d.metrics))

	listing := agg.List(ctx, req.Label)
	result.Fleet = &listing.View
	result.Notices.Add(listing.Notices...)
}

// cluster resolves the request's context and bounds ctx by the per-cluster
// timeout.
func (d *Dispatcher) cluster(ctx context.Context, contextName string) (context.Context, context.CancelFunc, *k8s.ClusterClient, error) {
	target, err := d.resolver.Target(contextName)
	if err != nil {
		return ctx, func() {}, nil, err
	}
	client, err := k8s.NewClusterClient(d.factory, target)
	if err != nil {
		return ctx, func() {}, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ClusterTimeout)
	return ctx, cancel, client, nil
}

func (d *Dispatcher) podInfo(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	ctx, cancel, client, err := d.cluster(ctx, req.Context)
	defer cancel()
	if err != nil {
		result.Notices.AddError(err)
		return
	}

	qs := deployment.NewQueryService(client, d.cfg, deployment.WithLogger(logger))
	info, err := qs.GetPodInfo(ctx, client.Namespace, req.App, req.Deployment)
	if err != nil {
		result.Notices.AddError(err)
		return
	}
	result.PodInfo = info
	if info.Export != nil {
		result.Notices.Add(info.Export.Notices...)
	}
}

func (d *Dispatcher) restart(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	result.Notices.Add(notice.Info("Restarting service: %s", req.Deployment))

	ctx, cancel, client, err := d.cluster(ctx, req.Context)
	defer cancel()
	if err != nil {
		result.Notices.AddError(err)
		return
	}

	svc := deployment.NewActionService(client, d.cfg, logger)
	result.Notices.AddError(svc.Restart(ctx, client.Namespace, req.Deployment))
}

func (d *Dispatcher) start(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	result.Notices.Add(notice.Info("Starting service: %s", req.Deployment))

	ctx, cancel, client, err := d.cluster(ctx, req.Context)
	defer cancel()
	if err != nil {
		result.Notices.AddError(err)
		return
	}

	svc := deployment.NewActionService(client, d.cfg, logger)
	replicas, err := svc.Start(ctx, client.Namespace, req.Deployment)
	if err != nil {
		result.Notices.AddError(err)
		return
	}
	result.Replicas = &replicas
}

func (d *Dispatcher) stop(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	result.Notices.Add(notice.Info("Stopping service: %s", req.Deployment))

	ctx, cancel, client, err := d.cluster(ctx, req.Context)
	defer cancel()
	if err != nil {
		result.Notices.AddError(err)
		return
	}

	svc := deployment.NewActionService(client, d.cfg, logger)
	if err := svc.Stop(ctx, client.Namespace, req.Deployment); err != nil {
		result.Notices.AddError(err)
		return
	}
	zero := int32(0)
	result.Replicas = &zero
}

// updateConfigMap patches one ConfigMap entry and, for
// ActionUpdateConfigMapRestart, restarts the dependent deployment only
// when the patch succeeded.
func (d *Dispatcher) updateConfigMap(ctx context.Context, req Request, result *Result, logger *slog.Logger) {
	edit := req.ConfigMap
	pipeline := &Pipeline{Steps: []Step{{Name: StepPatchConfigMap}}}
	if req.Action == ActionUpdateConfigMapRestart {
		pipeline.Steps = append(pipeline.Steps, Step{Name: StepRestart})
	}
	result.Pipeline = pipeline

	fail := func(from int, err error) {
		pipeline.Steps[from].Error = err.Error()
		for i := from + 1; i < len(pipeline.Steps); i++ {
			pipeline.Steps[i].Skipped = true
		}
		result.Notices.AddError(err)
	}

	ctx, cancel, client, err := d.cluster(ctx, req.Context)
	defer cancel()
	if err != nil {
		fail(0, err)
		return
	}

	namespace := edit.Namespace
	if namespace == "" {
		namespace = client.Namespace
	}

	value, err := deployment.NormalizeYAML(edit.Value)
	if err != nil {
		fail(0, notice.Wrap(notice.KindAction, "normalize configmap value", client.Context, err))
		return
	}

	svc := deployment.NewActionService(client, d.cfg, logger)
	if err := svc.UpdateConfigMap(ctx, namespace, edit.Name, map[string]string{edit.Key: value}); err != nil {
		fail(0, err)
		return
	}
	pipeline.Steps[0].Completed = true
	result.Notices.Add(notice.Info("ConfigMap %s/%s updated", namespace, edit.Name))

	if req.Action != ActionUpdateConfigMapRestart {
		return
	}

	result.Notices.Add(notice.Info("Restarting service: %s", edit.RestartDeployment))
	if err := svc.Restart(ctx, namespace, edit.RestartDeployment); err != nil {
		fail(1, err)
		logger.Warn("configmap patched but restart failed",
			logging.Deployment(edit.RestartDeployment),
			logging.Err(err))
		return
	}
	pipeline.Steps[1].Completed = true
}
