package fleet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/notice"
)

type staticTargets struct {
	targets []k8s.Target
	err     error
}

func (s staticTargets) Targets() ([]k8s.Target, error) {
	return s.targets, s.err
}

func targetsFor(names ...string) staticTargets {
	out := staticTargets{}
	for _, n := range names {
		out.targets = append(out.targets, k8s.Target{Context: n, Namespace: n})
	}
	return out
}

// stubLister returns a canned answer per cluster, optionally after a delay.
type stubLister struct {
	count int
	err   error
	delay time.Duration

	gotSelector *string
}

func (s stubLister) ListDeployments(ctx context.Context, namespace, sel string) ([]deployment.Summary, error) {
	if s.gotSelector != nil {
		*s.gotSelector = sel
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]deployment.Summary, s.count)
	for i := range out {
		out[i] = deployment.Summary{Index: i + 1, Name: fmt.Sprintf("%s-%d", namespace, i)}
	}
	return out, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ClusterTimeout = 2 * time.Second
	return cfg
}

func newStubAggregator(cfg config.Config, targets TargetSource, listers map[string]stubLister) *Aggregator {
	return NewAggregator(cfg, targets, nil, WithListerFactory(func(target k8s.Target) (Lister, error) {
		l, ok := listers[target.Context]
		if !ok {
			return nil, notice.Errorf(notice.KindClientConstruction, "build client", target.Context, "context not found")
		}
		return l, nil
	}))
}

func TestList_OmitsEmptyAndFailingClusters(t *testing.T) {
	agg := newStubAggregator(testConfig(), targetsFor("uat1", "uat2", "prod-eu", "prod-us", "missing"), map[string]stubLister{
		"uat1":    {count: 2},
		"uat2":    {count: 0},
		"prod-eu": {err: errors.New("connection refused")},
		"prod-us": {count: 1},
	})

	result := agg.List(context.Background(), "checkout")

	assert.Equal(t, "app=checkout", result.View.Selector)
	assert.Equal(t, []string{"uat1", "prod-us"}, result.View.Contexts())

	uat1, ok := result.View.Cluster("uat1")
	require.True(t, ok)
	assert.Len(t, uat1.Deployments, 2)
	assert.Equal(t, "uat1", uat1.Namespace)

	noMatch := result.Notices.OfKind(notice.KindNoMatch)
	require.Len(t, noMatch, 1)
	assert.Equal(t, "uat2", noMatch[0].Cluster)
	assert.Equal(t, notice.LevelInfo, noMatch[0].Level)

	warnings := result.Notices.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "prod-eu", warnings[0].Cluster)
	assert.Equal(t, notice.KindInternal, warnings[0].Kind)
	assert.Equal(t, "missing", warnings[1].Cluster)
	assert.Equal(t, notice.KindClientConstruction, warnings[1].Kind)
}

// A cluster is in the view iff it returned a non-empty list without error,
// and the view keeps resolver order.
func TestList_OmissionAndOrderingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		n := rng.Intn(8)
		names := make([]string, n)
		listers := map[string]stubLister{}
		var want []string

		for i := range names {
			names[i] = fmt.Sprintf("ctx-%02d", rng.Intn(100)*10+i)
			l := stubLister{count: rng.Intn(3), delay: time.Duration(rng.Intn(5)) * time.Millisecond}
			if rng.Intn(4) == 0 {
				l.err = errors.New("boom")
			}
			listers[names[i]] = l
			if l.err == nil && l.count > 0 {
				want = append(want, names[i])
			}
		}

		cfg := testConfig()
		cfg.Workers = 1 + rng.Intn(4)
		result := newStubAggregator(cfg, targetsFor(names...), listers).List(context.Background(), "all")

		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, result.View.Contexts(), "run %d", run)
	}
}

func TestList_MissingContexts(t *testing.T) {
	agg := newStubAggregator(testConfig(), staticTargets{
		err: notice.Errorf(notice.KindConfiguration, "list contexts", "", "no cluster contexts found in kubeconfig"),
	}, nil)

	var result Result
	require.NotPanics(t, func() { result = agg.List(context.Background(), "checkout") })

	assert.Empty(t, result.View.Clusters)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, notice.KindConfiguration, result.Notices[0].Kind)
	assert.Equal(t, notice.LevelWarning, result.Notices[0].Level)
}

func TestList_SlowClusterTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.ClusterTimeout = 50 * time.Millisecond

	agg := newStubAggregator(cfg, targetsFor("uat1", "prod-eu"), map[string]stubLister{
		"uat1":    {count: 1},
		"prod-eu": {count: 1, delay: time.Minute},
	})

	start := time.Now()
	result := agg.List(context.Background(), "checkout")
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.Equal(t, []string{"uat1"}, result.View.Contexts())
	warnings := result.Notices.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "prod-eu", warnings[0].Cluster)
	assert.Equal(t, notice.KindAPI, warnings[0].Kind)
}

func TestList_RespectsWorkerLimit(t *testing.T) {
	var running, peak int32
	var mu sync.Mutex

	cfg := testConfig()
	cfg.Workers = 2

	names := []string{"a", "b", "c", "d", "e", "f"}
	agg := NewAggregator(cfg, targetsFor(names...), nil, WithListerFactory(func(k8s.Target) (Lister, error) {
		return listerFunc(func(ctx context.Context) ([]deployment.Summary, error) {
			cur := atomic.AddInt32(&running, 1)
			mu.Lock()
			if cur > peak {
				peak = cur
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return []deployment.Summary{{Index: 1}}, nil
		}), nil
	}))

	result := agg.List(context.Background(), "all")
	assert.Equal(t, names, result.View.Contexts())
	assert.LessOrEqual(t, peak, int32(2))
}

func TestList_RecoversPanickingCluster(t *testing.T) {
	agg := NewAggregator(testConfig(), targetsFor("uat1", "uat2"), nil, WithListerFactory(func(target k8s.Target) (Lister, error) {
		if target.Context == "uat1" {
			return listerFunc(func(context.Context) ([]deployment.Summary, error) { panic("nil map") }), nil
		}
		return stubLister{count: 1}, nil
	}))

	result := agg.List(context.Background(), "checkout")
	assert.Equal(t, []string{"uat2"}, result.View.Contexts())
	require.Len(t, result.Notices.Warnings(), 1)
	assert.Equal(t, notice.LevelError, result.Notices.Warnings()[0].Level)
}

func TestList_PassesResolvedSelector(t *testing.T) {
	for label, want := range map[string]string{
		"all":      "heritage=Tiller",
		"prod-x":   "release=prod-x",
		"checkout": "app=checkout",
	} {
		var got string
		agg := newStubAggregator(testConfig(), targetsFor("uat1"), map[string]stubLister{
			"uat1": {count: 1, gotSelector: &got},
		})
		agg.List(context.Background(), label)
		assert.Equal(t, want, got, label)
	}
}

type listerFunc func(ctx context.Context) ([]deployment.Summary, error)

func (f listerFunc) ListDeployments(ctx context.Context, _, _ string) ([]deployment.Summary, error) {
	return f(ctx)
}

// TestList_WithFakeClusters runs the default QueryService path against fake
// clientsets.
func TestList_WithFakeClusters(t *testing.T) {
	deploymentFor := func(ns, name string) runtime.Object {
		replicas := int32(2)
		return &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns, Labels: map[string]string{"app": "checkout"}},
			Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
			Status:     appsv1.DeploymentStatus{ReadyReplicas: 1, UnavailableReplicas: 1},
		}
	}

	factory := k8s.StaticClientFactory{
		"uat1":    fake.NewSimpleClientset(deploymentFor("uat1", "checkout")),
		"uat2":    fake.NewSimpleClientset(),
		"prod-eu": fake.NewSimpleClientset(deploymentFor("prod-eu", "checkout"), deploymentFor("other", "checkout")),
	}

	agg := NewAggregator(testConfig(), targetsFor("prod-eu", "uat2", "uat1", "gone"), factory)

	result := agg.List(context.Background(), "checkout")
	assert.Equal(t, []string{"prod-eu", "uat1"}, result.View.Contexts())

	prod, _ := result.View.Cluster("prod-eu")
	require.Len(t, prod.Deployments, 1)
	assert.Equal(t, deployment.Summary{
		Index: 1, AppLabel: "checkout", Desired: 2, Ready: 1, Unavailable: 1,
		Actions: deployment.SummaryActions, Name: "checkout",
	}, prod.Deployments[0])

	assert.Len(t, result.Notices.OfKind(notice.KindNoMatch), 1)
	assert.Len(t, result.Notices.OfKind(notice.KindClientConstruction), 1)
}

func TestList_ClusterLogsTagClusterOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	factory := k8s.StaticClientFactory{"uat1": fake.NewSimpleClientset()}
	agg := NewAggregator(testConfig(), targetsFor("uat1"), factory, WithLogger(logger))
	agg.List(context.Background(), "checkout")

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.Contains(line, `msg="listed deployments"`) {
			continue
		}
		found = true
		assert.Equal(t, 1, strings.Count(line, "cluster="), line)
		assert.Contains(t, line, "cluster=uat1")
	}
	assert.True(t, found, "expected a listed deployments log line")
}
