package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/giantswarm/deployctl/internal/deployment"
	"github.com/giantswarm/deployctl/internal/logging"
)

// ExportsPattern is the route the export handler is mounted on.
const ExportsPattern = "GET /exports/{namespace}/{deployment}"

// ExportContentType is the media type of downloaded exports.
const ExportContentType = "text/x-yaml"

// ExportHandler streams previously exported Deployment YAML files as
// attachments. Files are written by the get_pod_info action.
type ExportHandler struct {
	root   string
	logger *slog.Logger
}

// NewExportHandler serves files below the configured export directory.
func NewExportHandler(sc *ServerContext) *ExportHandler {
	return &ExportHandler{
		root:   sc.Config().ExportDir,
		logger: sc.Logger(),
	}
}

// ServeHTTP implements http.Handler. It expects the namespace and
// deployment path values of ExportsPattern.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")
	name := r.PathValue("deployment")

	_, path, err := deployment.ExportPath(h.root, namespace, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file := filepath.Base(path)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, fmt.Sprintf("no export for %s/%s", namespace, name), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to open export",
			logging.Namespace(namespace),
			logging.Deployment(name),
			logging.Err(err))
		http.Error(w, "failed to read export", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "failed to read export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ExportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	http.ServeContent(w, r, file, info.ModTime(), f)
}
