package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	scanDir        = "scans"
	maxUploadBytes = 50 << 20 // 50 MB
)

// ScanHandler serves and accepts manuscript scan images.
type ScanHandler struct {
	archiveRoot string
}

// NewScanHandler creates a handler rooted at the archive directory.
func NewScanHandler(archiveRoot string) *ScanHandler {
	return &ScanHandler{archiveRoot: archiveRoot}
}

// scanPath returns the absolute path to the scans directory.
func (h *ScanHandler) scanPath() string {
	return filepath.Join(h.archiveRoot, scanDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the scans dir.
func (h *ScanHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	// Reject anything with path separators or traversal.
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.scanPath(), cleaned)
	// Double-check the resolved path is under the scans dir.
	if !strings.HasPrefix(abs, h.scanPath()+string(os.PathSeparator)) && abs != h.scanPath() {
		return "", fmt.Errorf("path escapes scans directory")
	}
	return abs, nil
}

// ServeFile handles GET /scans/{filename}.
func (h *ScanHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/scans (multipart/form-data, field "file").
func (h *ScanHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Ensure scans directory exists.
	if err := os.MkdirAll(h.scanPath(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create scans dir"))
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"filename": header.Filename,
		"size":     written,
		"url":      "/scans/" + header.Filename,
	})
}
