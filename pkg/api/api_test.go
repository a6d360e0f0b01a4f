package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/leaderboard"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, cfg *config.APIConfig, resultsRoot string) http.Handler {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	srv := &server{
		log:         log.WithField("component", "api"),
		cfg:         cfg,
		resultsRoot: resultsRoot,
	}

	return srv.buildRouter()
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, &config.APIConfig{}, t.TempDir())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunsWithoutStore(t *testing.T) {
	handler := newTestServer(t, &config.APIConfig{}, t.TempDir())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	root := t.TempDir()
	hostRoot := filepath.Join(root, "buildbox")
	require.NoError(t, os.MkdirAll(hostRoot, 0755))

	board := &leaderboard.Board{Entries: map[string]leaderboard.Entry{}}
	board.Update([]results.ResultRecord{{
		Dataset: "d", Mode: "m", NumColumns: 1, NumRows: 100,
		WriteTimeMS: 10, ReadTimeMS: 5, Status: results.StatusOK,
	}}, "run1", "v1", time.Now().UTC())
	require.NoError(t, leaderboard.Save(hostRoot, board))

	handler := newTestServer(t, &config.APIConfig{}, root)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/buildbox", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got leaderboard.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got.Entries, "d/m")
}

func TestFileServing(t *testing.T) {
	root := t.TempDir()
	runDir := filepath.Join(root, "buildbox", "v1", "20260801_090000")
	require.NoError(t, os.MkdirAll(runDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(runDir, "macro_small_results.json"), []byte(`{"results":[]}`), 0644))

	handler := newTestServer(t, &config.APIConfig{}, root)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/files/buildbox/v1/20260801_090000/macro_small_results.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestFileServingRejectsTraversal(t *testing.T) {
	root := t.TempDir()

	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))

	handler := newTestServer(t, &config.APIConfig{}, root)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/x", nil)
	// Bypass httptest path cleaning to exercise the resolver directly.
	req.URL.Path = "/api/v1/files/../secret.txt"

	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestFileServingMissingFile(t *testing.T) {
	handler := newTestServer(t, &config.APIConfig{}, t.TempDir())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/absent.json", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			Users: []config.BasicAuthUser{
				{Username: "admin", Password: string(hash)},
			},
		},
	}

	handler := newTestServer(t, cfg, t.TempDir())

	// Health stays public.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Protected endpoint without credentials.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	// Wrong password.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.SetBasicAuth("admin", "wrong")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct credentials reach the handler (404: no store configured).
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.SetBasicAuth("admin", "hunter2")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.APIConfig{
		Server: config.APIServerConfig{
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 2,
			},
		},
	}

	handler := newTestServer(t, cfg, t.TempDir())

	var codes []int

	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		handler.ServeHTTP(rec, req)

		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestRunsBadLimit(t *testing.T) {
	handler := newTestServer(t, &config.APIConfig{}, t.TempDir())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=zero", nil))

	// Store check precedes parameter validation.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateAuthUsersRejectsPlaintext(t *testing.T) {
	log := logrus.New()

	srv := &server{
		log: log.WithField("component", "api"),
		cfg: &config.APIConfig{
			Auth: config.APIAuthConfig{
				Enabled: true,
				Users: []config.BasicAuthUser{
					{Username: "admin", Password: "plaintext"},
				},
			},
		},
	}

	assert.Error(t, srv.validateAuthUsers())
}
