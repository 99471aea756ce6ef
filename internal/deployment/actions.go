package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/notice"
	"github.com/giantswarm/deployctl/internal/selector"
)

// ActionService runs mutating actions against one cluster.
type ActionService struct {
	clientset    kubernetes.Interface
	cluster      string
	replicasName func(deployment string) string
	replicasKey  string
	dryRun       bool
	logger       *slog.Logger
}

// NewActionService creates an action service for client. logger is expected
// to carry the cluster attribute already.
func NewActionService(client *k8s.ClusterClient, cfg config.Config, logger *slog.Logger) *ActionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionService{
		clientset:    client.Clientset,
		cluster:      client.Context,
		replicasName: cfg.ReplicasConfigMapName,
		replicasKey:  cfg.ReplicasKey,
		dryRun:       cfg.DryRun,
		logger:       logger,
	}
}

func (s *ActionService) dryRunOpt() []string {
	if s.dryRun {
		return []string{metav1.DryRunAll}
	}
	return nil
}

// Restart deletes every pod matching selector.Resolve(deployment) and lets
// the Deployment controller recreate them. The Deployment itself is not
// touched.
func (s *ActionService) Restart(ctx context.Context, namespace, deployment string) error {
	sel := selector.Resolve(deployment)

	err := s.clientset.CoreV1().Pods(namespace).DeleteCollection(ctx,
		metav1.DeleteOptions{DryRun: s.dryRunOpt()},
		metav1.ListOptions{LabelSelector: sel})
	if err != nil {
		return notice.Wrap(notice.KindAPI, "restart", s.cluster, err)
	}

	s.logger.Info("deleted pods for restart",
		logging.Namespace(namespace),
		logging.Deployment(deployment),
		logging.Selector(sel),
		slog.Bool("dry_run", s.dryRun))
	return nil
}

// Start scales the Deployment to the replica count stored in the
// <deployment><suffix> ConfigMap and returns that count.
func (s *ActionService) Start(ctx context.Context, namespace, deployment string) (int32, error) {
	replicas, err := s.storedReplicas(ctx, namespace, deployment)
	if err != nil {
		return 0, err
	}
	if err := s.scale(ctx, "start", namespace, deployment, replicas); err != nil {
		return 0, err
	}
	return replicas, nil
}

// Stop scales the Deployment to zero replicas.
func (s *ActionService) Stop(ctx context.Context, namespace, deployment string) error {
	return s.scale(ctx, "stop", namespace, deployment, 0)
}

func (s *ActionService) storedReplicas(ctx context.Context, namespace, deployment string) (int32, error) {
	name := s.replicasName(deployment)

	cm, err := s.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return 0, notice.Wrap(notice.KindAction, "start", s.cluster,
			fmt.Errorf("replicas configmap %s/%s not found: %w", namespace, name, err))
	}
	if err != nil {
		return 0, notice.Wrap(notice.KindAPI, "start", s.cluster, err)
	}

	raw, ok := cm.Data[s.replicasKey]
	if !ok {
		return 0, notice.Errorf(notice.KindAction, "start", s.cluster,
			"configmap %s/%s has no %q key", namespace, name, s.replicasKey)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || n < 0 {
		return 0, notice.Errorf(notice.KindAction, "start", s.cluster,
			"configmap %s/%s key %q is not a valid replica count: %q", namespace, name, s.replicasKey, raw)
	}
	return int32(n), nil
}

type scalePatch struct {
	Spec struct {
		Replicas int32 `json:"replicas"`
	} `json:"spec"`
}

// scale patches the Deployment's scale subresource.
func (s *ActionService) scale(ctx context.Context, op, namespace, deployment string, replicas int32) error {
	var patch scalePatch
	patch.Spec.Replicas = replicas
	body, err := json.Marshal(patch)
	if err != nil {
		return notice.Wrap(notice.KindInternal, op, s.cluster, err)
	}

	_, err = s.clientset.AppsV1().Deployments(namespace).Patch(ctx, deployment, types.MergePatchType, body,
		metav1.PatchOptions{DryRun: s.dryRunOpt()}, "scale")
	if err != nil {
		return notice.Wrap(notice.KindAPI, op, s.cluster, err)
	}

	s.logger.Info("scaled deployment",
		logging.Namespace(namespace),
		logging.Deployment(deployment),
		slog.Int("replicas", int(replicas)),
		slog.Bool("dry_run", s.dryRun))
	return nil
}

// UpdateConfigMap patches data into the named ConfigMap. Only the given keys
// are sent; other keys are left untouched.
func (s *ActionService) UpdateConfigMap(ctx context.Context, namespace, name string, data map[string]string) error {
	manifest := corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Data: data,
	}
	body, err := json.Marshal(manifest)
	if err != nil {
		return notice.Wrap(notice.KindInternal, "update configmap", s.cluster, err)
	}

	_, err = s.clientset.CoreV1().ConfigMaps(namespace).Patch(ctx, name, types.StrategicMergePatchType, body,
		metav1.PatchOptions{DryRun: s.dryRunOpt()})
	if err != nil {
		return notice.Wrap(notice.KindAPI, "update configmap", s.cluster, err)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	s.logger.Info("patched configmap",
		logging.Namespace(namespace),
		slog.String("configmap", name),
		slog.Any("keys", keys),
		slog.Bool("dry_run", s.dryRun))
	return nil
}
