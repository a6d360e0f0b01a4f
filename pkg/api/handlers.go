package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bcsv-io/benchstand/pkg/leaderboard"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleHosts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"run index not enabled"})

		return
	}

	hosts, err := s.store.ListHosts(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list hosts")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"failed to list hosts"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"hosts": hosts})
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"run index not enabled"})

		return
	}

	host := r.URL.Query().Get("host")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"invalid limit"})

			return
		}

		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), host, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"failed to list runs"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")

	hostRoot, ok := s.resolvePath(host)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid path"})

		return
	}

	board, err := leaderboard.Load(hostRoot)
	if err != nil {
		s.log.WithError(err).Error("Failed to load leaderboard")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"failed to load leaderboard"})

		return
	}

	writeJSON(w, http.StatusOK, board)
}

// handleFileRequest serves raw result files from the results root.
func (s *server) handleFileRequest(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")

	path, ok := s.resolvePath(rel)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid path"})

		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorResponse{"not found"})

		return
	}

	http.ServeFile(w, r, path)
}

// resolvePath joins rel onto the results root and rejects any path that
// escapes it.
func (s *server) resolvePath(rel string) (string, bool) {
	cleaned := filepath.Clean("/" + rel)
	path := filepath.Join(s.resultsRoot, cleaned)

	root, err := filepath.Abs(s.resultsRoot)
	if err != nil {
		return "", false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", false
	}

	return path, true
}
