package deployment

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/k8s"
)

func int32Ptr(i int32) *int32 { return &i }

func testDeployment(namespace, name string, labels map[string]string, replicas int32, volumes ...corev1.Volume) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: name, Image: "registry.example.com/" + name + ":1.0"}},
					Volumes:    volumes,
				},
			},
		},
		Status: appsv1.DeploymentStatus{ReadyReplicas: replicas, UnavailableReplicas: 0},
	}
}

func testPod(namespace, name, app string, started time.Time, restarts int32, volumes ...corev1.Volume) *corev1.Pod {
	start := metav1.NewTime(started)
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: map[string]string{"app": app}},
		Spec: corev1.PodSpec{
			NodeName:   "node-1",
			Containers: []corev1.Container{{Name: app, Image: "registry.example.com/" + app + ":1.0"}},
			Volumes:    volumes,
		},
		Status: corev1.PodStatus{
			Phase:     corev1.PodRunning,
			HostIP:    "10.0.0.5",
			StartTime: &start,
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: app, RestartCount: restarts},
				{Name: "sidecar", RestartCount: 42},
			},
		},
	}
}

func configMapVolume(name string) corev1.Volume {
	return corev1.Volume{
		Name: "config",
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{LocalObjectReference: corev1.LocalObjectReference{Name: name}},
		},
	}
}

func emptyDirVolume() corev1.Volume {
	return corev1.Volume{Name: "scratch", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}}
}

func newTestClient(contextName string, objects ...runtime.Object) (*k8s.ClusterClient, *fake.Clientset) {
	cs := fake.NewSimpleClientset(objects...)
	return &k8s.ClusterClient{
		Target:    k8s.Target{Context: contextName, Namespace: contextName},
		Clientset: cs,
	}, cs
}

func testConfig(exportDir string) config.Config {
	cfg := config.Default()
	cfg.ExportDir = exportDir
	return cfg
}
