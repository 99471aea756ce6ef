package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/yaml"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/notice"
	"github.com/giantswarm/deployctl/internal/selector"
)

// QueryService lists and describes Deployments and Pods in one cluster.
type QueryService struct {
	clientset   kubernetes.Interface
	cluster     string
	listTimeout int64
	exportDir   string
	logger      *slog.Logger
	now         func() time.Time
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) QueryOption {
	return func(s *QueryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used to compute pod ages.
func WithClock(now func() time.Time) QueryOption {
	return func(s *QueryService) {
		s.now = now
	}
}

// NewQueryService creates a query service for client. A logger set with
// WithLogger is expected to carry the cluster attribute already.
func NewQueryService(client *k8s.ClusterClient, cfg config.Config, opts ...QueryOption) *QueryService {
	s := &QueryService{
		clientset:   client.Clientset,
		cluster:     client.Context,
		listTimeout: cfg.ListTimeoutSeconds,
		exportDir:   cfg.ExportDir,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDeployments returns the Deployments in namespace matching the label
// selector, in API order. No match is an empty slice, not an error.
func (s *QueryService) ListDeployments(ctx context.Context, namespace, labelSelector string) ([]Summary, error) {
	opts := metav1.ListOptions{LabelSelector: labelSelector}
	if s.listTimeout > 0 {
		opts.TimeoutSeconds = &s.listTimeout
	}

	list, err := s.clientset.AppsV1().Deployments(namespace).List(ctx, opts)
	if err != nil {
		return nil, notice.Wrap(notice.KindAPI, "list deployments", s.cluster, err)
	}

	summaries := make([]Summary, 0, len(list.Items))
	for i := range list.Items {
		summaries = append(summaries, summarize(i+1, &list.Items[i]))
	}

	s.logger.Debug("listed deployments",
		logging.Namespace(namespace),
		logging.Selector(labelSelector),
		slog.Int("count", len(summaries)))
	return summaries, nil
}

func summarize(index int, dep *appsv1.Deployment) Summary {
	var desired int32
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	actions := make([]string, len(SummaryActions))
	copy(actions, SummaryActions)

	return Summary{
		Index:       index,
		AppLabel:    dep.Labels["app"],
		Desired:     desired,
		Ready:       dep.Status.ReadyReplicas,
		Unavailable: dep.Status.UnavailableReplicas,
		Actions:     actions,
		Name:        dep.Name,
	}
}

// ExportDeployment reads the Deployment and writes it as YAML to
// <ExportDir>/<namespace>/<name>.yml. Writing is best-effort: a failure is
// logged and reported on the returned Export, which still carries the
// Deployment.
func (s *QueryService) ExportDeployment(ctx context.Context, namespace, name string) (*Export, error) {
	dep, err := s.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, notice.Wrap(notice.KindAPI, "get deployment", s.cluster, err)
	}

	export := &Export{Deployment: dep}

	data, err := renderDeployment(dep)
	if err == nil {
		export.YAML = string(data)
		export.Dir, export.Path, err = ExportPath(s.exportDir, namespace, name)
	}
	if err == nil {
		err = writeExport(export.Dir, export.Path, data)
	}
	if err != nil {
		s.logger.Warn("deployment export failed",
			logging.Namespace(namespace),
			logging.Deployment(name),
			logging.Err(err))
		export.Notices.AddError(notice.Wrap(notice.KindExportIO, "export deployment", s.cluster, err))
		return export, nil
	}

	export.Written = true
	return export, nil
}

// GetPodInfo exports the Deployment, then describes the pods labeled
// app=<appName> and the ConfigMap mounted by the first volume. Any API
// failure aborts the call.
func (s *QueryService) GetPodInfo(ctx context.Context, namespace, appName, deploymentName string) (*PodInfoResult, error) {
	export, err := s.ExportDeployment(ctx, namespace, deploymentName)
	if err != nil {
		return nil, err
	}

	pods, err := s.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector.App(appName),
	})
	if err != nil {
		return nil, notice.Wrap(notice.KindAPI, "list pods", s.cluster, err)
	}

	result := &PodInfoResult{
		Context:    s.cluster,
		Namespace:  namespace,
		Deployment: export.Deployment.Name,
		Pods:       make([]PodInfo, 0, len(pods.Items)),
		Export:     export,
	}

	now := s.now().UTC()
	for i := range pods.Items {
		result.Pods = append(result.Pods, describePod(i+1, &pods.Items[i], now))
	}

	templateSpec, err := MarshalCleanYAML(&export.Deployment.Spec.Template.Spec)
	if err != nil {
		return nil, notice.Wrap(notice.KindInternal, "render template spec", s.cluster, err)
	}
	result.TemplateSpecYAML = string(templateSpec)

	volumes := export.Deployment.Spec.Template.Spec.Volumes
	if len(pods.Items) > 0 {
		volumes = pods.Items[0].Spec.Volumes
	}
	if len(volumes) > 0 && volumes[0].ConfigMap != nil {
		ref, err := s.configMapRef(ctx, namespace, volumes[0].ConfigMap.Name)
		if err != nil {
			return nil, err
		}
		result.ConfigMap = ref
	}

	s.logger.Debug("collected pod info",
		logging.Namespace(namespace),
		logging.Deployment(deploymentName),
		slog.Int("pods", len(result.Pods)),
		slog.Bool("configmap", result.ConfigMap != nil))
	return result, nil
}

func (s *QueryService) configMapRef(ctx context.Context, namespace, name string) (*ConfigMapRef, error) {
	cm, err := s.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, notice.Wrap(notice.KindAPI, "get configmap", s.cluster, err)
	}

	ref := &ConfigMapRef{
		Name:      cm.Name,
		Namespace: cm.Namespace,
		Data:      cm.Data,
	}

	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		ref.Key = keys[len(keys)-1]
		ref.Value = cm.Data[ref.Key]
	}
	return ref, nil
}

func describePod(index int, pod *corev1.Pod, now time.Time) PodInfo {
	info := PodInfo{
		Index:  index,
		Name:   pod.Name,
		Node:   pod.Spec.NodeName,
		HostIP: pod.Status.HostIP,
		Phase:  string(pod.Status.Phase),
		Spec:   containerSnapshot(pod.Spec.Containers),
	}
	if len(pod.Status.ContainerStatuses) > 0 {
		info.Restarts = pod.Status.ContainerStatuses[0].RestartCount
	}
	if pod.Status.StartTime != nil {
		info.Age = now.Sub(pod.Status.StartTime.UTC())
		info.AgeText = info.Age.Round(time.Second).String()
		info.AgeSeconds = int64(info.Age / time.Second)
	}
	return info
}

// containerSnapshot renders the containers as YAML, falling back to a
// name/image list if rendering fails.
func containerSnapshot(containers []corev1.Container) string {
	if len(containers) == 0 {
		return ""
	}
	data, err := yaml.Marshal(containers)
	if err == nil {
		return string(data)
	}

	parts := make([]string, len(containers))
	for i, c := range containers {
		parts[i] = fmt.Sprintf("%s=%s", c.Name, c.Image)
	}
	return strings.Join(parts, ", ")
}
