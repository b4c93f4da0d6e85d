package companion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File modes for saved documents.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// SaveSVGRequest is the body of POST /api/save-svg.
type SaveSVGRequest struct {
	SVG  string `json:"svg"`
	Path string `json:"path"`
}

// SaveSVGResponse is the answer to POST /api/save-svg.
type SaveSVGResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSaveSVG(w http.ResponseWriter, r *http.Request) {
	var req SaveSVGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SaveSVGResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	path, err := s.SaveSVG(req.Path, req.SVG)
	switch {
	case errors.Is(err, ErrEmptyPath), errors.Is(err, ErrPathEscapes):
		writeJSON(w, http.StatusBadRequest, SaveSVGResponse{Error: err.Error()})
	case err != nil:
		s.logger.Warn("saving svg failed", "path", req.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, SaveSVGResponse{Error: err.Error()})
	default:
		s.logger.Info("svg saved", "path", path, "bytes", len(req.SVG))
		writeJSON(w, http.StatusOK, SaveSVGResponse{Success: true, Path: path})
	}
}

// SaveSVG writes svg to rel under the base directory, creating parent
// directories.
//
// Returns:
//   - string: The absolute path written
//   - error: ErrEmptyPath, ErrPathEscapes, or the filesystem error
func (s *Server) SaveSVG(rel, svg string) (string, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(svg), filePerm); err != nil { //nolint:gosec // Development aid writing under base dir
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// resolve maps a request path onto the base directory.
func (s *Server) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", ErrEmptyPath
	}

	path := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	within, err := filepath.Rel(s.baseDir, path)
	if err != nil || within == "." || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, rel)
	}
	return path, nil
}
