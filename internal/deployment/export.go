package deployment

import (
	"fmt"
	"os"
	"path/filepath"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/yaml"
)

// ExportFileExt is the extension of exported Deployment files.
const ExportFileExt = ".yml"

// ExportPath returns the export directory and file for a Deployment:
// <root>/<namespace>/ and <root>/<namespace>/<deployment>.yml. Both names
// must be valid Kubernetes object names so they cannot escape root.
func ExportPath(root, namespace, deployment string) (dir, file string, err error) {
	if errs := validation.IsDNS1123Label(namespace); len(errs) > 0 {
		return "", "", fmt.Errorf("invalid namespace %q: %s", namespace, errs[0])
	}
	if errs := validation.IsDNS1123Subdomain(deployment); len(errs) > 0 {
		return "", "", fmt.Errorf("invalid deployment name %q: %s", deployment, errs[0])
	}
	dir = filepath.Join(root, namespace)
	return dir, filepath.Join(dir, deployment+ExportFileExt), nil
}

// MarshalCleanYAML renders obj as YAML after stripping null values with
// CleanNullTerms.
func MarshalCleanYAML(obj any) ([]byte, error) {
	u, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert object: %w", err)
	}
	return yaml.Marshal(CleanNullTerms(u))
}

// renderDeployment renders the full Deployment with its type information set.
func renderDeployment(dep *appsv1.Deployment) ([]byte, error) {
	out := dep.DeepCopy()
	out.APIVersion = appsv1.SchemeGroupVersion.String()
	out.Kind = "Deployment"
	return MarshalCleanYAML(out)
}

// writeExport writes data to file, creating dir when needed. Concurrent
// exports of the same Deployment overwrite each other.
func writeExport(dir, file string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(file, data, 0o644); err != nil { //nolint:gosec // exports are meant to be downloadable
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
