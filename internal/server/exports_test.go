package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/deployctl/internal/config"
)

func exportMux(t *testing.T) (*http.ServeMux, string) {
	t.Helper()
	cfg := config.Default()
	cfg.ExportDir = t.TempDir()

	mux := http.NewServeMux()
	mux.Handle(ExportsPattern, NewExportHandler(newTestServerContext(t, cfg, "uat1")))
	return mux, cfg.ExportDir
}

func TestExportHandler_ServesAttachment(t *testing.T) {
	mux, root := exportMux(t)
	content := "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: checkout\n"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uat1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uat1", "checkout.yml"), []byte(content), 0o644))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/uat1/checkout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ExportContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="checkout.yml"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, content, rec.Body.String())
}

func TestExportHandler_Errors(t *testing.T) {
	mux, _ := exportMux(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "missing export", method: http.MethodGet, path: "/exports/uat1/checkout", wantStatus: http.StatusNotFound},
		{name: "invalid namespace", method: http.MethodGet, path: "/exports/UAT_1/checkout", wantStatus: http.StatusBadRequest},
		{name: "hidden file", method: http.MethodGet, path: "/exports/uat1/.checkout", wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPost, path: "/exports/uat1/checkout", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
