package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/service"
	"github.com/andresuchdata/revdeploy/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *storagetest.Store) {
	t.Helper()
	store := storagetest.New()
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Put("app-abc123.zip", "X", t1)
	store.Put("app-def456.zip", "Y", t1.Add(time.Hour))
	store.Put("live.zip", "Y", t1.Add(time.Hour))

	naming, err := revision.NewNaming("app-", ".zip", "live.zip")
	require.NoError(t, err)
	return NewRouter(service.NewDeployService(store, naming, service.Options{}), []string{"*"}), store
}

func do(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRevisions(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/v1/revisions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Revisions []revision.Record `json:"revisions"`
		Active    []revision.Record `json:"active"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Revisions, 2)
	assert.Equal(t, "def456", body.Revisions[0].Revision)
	require.Len(t, body.Active, 1)
	assert.Equal(t, "def456", body.Active[0].Revision)
}

func TestListRevisions_StoreFailure(t *testing.T) {
	router, store := newTestRouter(t)
	store.ListErr = errors.New("timeout")

	w := do(router, http.MethodGet, "/api/v1/revisions")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestActivate(t *testing.T) {
	router, store := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/v1/revisions/abc123/activate?validate=catalog")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Activation revision.Activation `json:"activation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, revision.PhaseDone, body.Activation.Phase)
	assert.Equal(t, "app-abc123.zip", body.Activation.Source)

	live, _ := store.Get("live.zip")
	assert.Equal(t, "X", live.ETag)
}

func TestActivate_NotFound(t *testing.T) {
	router, store := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/v1/revisions/nope/activate")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, store.Calls().Copy)
}

func TestActivate_BadStrategy(t *testing.T) {
	router, store := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/v1/revisions/abc123/activate?validate=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.Calls().Copy)
}

func TestActivate_CopyFailure(t *testing.T) {
	router, store := newTestRouter(t)
	store.CopyErr = errors.New("throttled")

	w := do(router, http.MethodPost, "/api/v1/revisions/abc123/activate")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"failed"`)
}

func TestHistory_NoopJournal(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/v1/activations?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"activations":[]}`, w.Body.String())
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.example, http://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
