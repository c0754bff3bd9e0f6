package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	backend "gen3d-backend/internal/api"
	"gen3d-backend/internal/cache"
	"gen3d-backend/internal/database"
	"gen3d-backend/internal/lifecycle"
	"gen3d-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testBackend struct {
	router     chi.Router
	db         *gorm.DB
	libraryDir string
}

func createBackend(t *testing.T) *testBackend {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	libraryDir := t.TempDir()

	simulation := lifecycle.NewSimulationGenerator(libraryDir, lifecycle.DefaultScorer)
	orchestrator := lifecycle.NewOrchestrator(lifecycle.OrchestratorParams{
		Simulation: simulation,
		Configured: func() bool { return false },
		Cache:      cache.NewMemoryStore(time.Minute),
		DB:         db,
	})

	service := backend.NewBackendService(db, orchestrator, libraryDir, "")

	router := chi.NewRouter()
	router.Route("/api", service.AddRoutes)

	return &testBackend{router: router, db: db, libraryDir: libraryDir}
}

func (b *testBackend) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var data T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	return data
}

func TestHealth(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateFromText(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "a red cube"})
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeResponse[api.GenerateResponse](t, w)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ModelId)
	assert.NotEmpty(t, res.ModelUrl)
	assert.Equal(t, "model generated (simulated)", res.Message)
	assert.Greater(t, res.QualityScore, 0.0)
}

func TestGenerateFromTextCached(t *testing.T) {
	b := createBackend(t)

	first := decodeResponse[api.GenerateResponse](t,
		b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "a red cube"}))

	w := b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "a red cube"})
	require.Equal(t, http.StatusOK, w.Code)

	second := decodeResponse[api.GenerateResponse](t, w)
	assert.Equal(t, "model retrieved from cache", second.Message)
	assert.Equal(t, first.ModelId, second.ModelId)
}

func TestGenerateFromTextRequiresText(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateFromTextRejectsUnknownComplexity(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodPost, "/api/generate/text",
		api.GenerateTextRequest{Text: "a red cube", Complexity: "extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown complexity tier")
}

func imageUpload(t *testing.T, contentType string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="shape.png"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestGenerateFromImage(t *testing.T) {
	b := createBackend(t)

	body, contentType := imageUpload(t, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/api/generate/image", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeResponse[api.GenerateResponse](t, w)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ModelUrl)
}

func TestGenerateFromImageRejectsNonImage(t *testing.T) {
	b := createBackend(t)

	body, contentType := imageUpload(t, "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/generate/image", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefineModel(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodPost, "/api/generate/refine", api.RefineRequest{TaskId: "task-1"})
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeResponse[api.RefineResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, database.StageRefined, res.Stage)
	assert.Len(t, res.DownloadUrls, 4)
}

func TestRefineModelRequiresTaskId(t *testing.T) {
	b := createBackend(t)

	w := b.request(t, http.MethodPost, "/api/generate/refine", api.RefineRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistory(t *testing.T) {
	b := createBackend(t)

	for i := 0; i < 3; i++ {
		w := b.request(t, http.MethodPost, "/api/generate/text",
			api.GenerateTextRequest{Text: fmt.Sprintf("shape %d", i)})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := b.request(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	history := decodeResponse[[]api.GenerationInfo](t, w)
	require.Len(t, history, 3)
	assert.Equal(t, database.InputTypeText, history[0].InputType)
	assert.Equal(t, database.StagePreview, history[0].Stage)

	w = b.request(t, http.MethodGet, "/api/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResponse[[]api.GenerationInfo](t, w), 2)
}

func TestGetStats(t *testing.T) {
	b := createBackend(t)

	empty := decodeResponse[api.StatsResponse](t, b.request(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, int64(0), empty.TotalModels)

	w := b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "a red cube"})
	require.Equal(t, http.StatusOK, w.Code)

	stats := decodeResponse[api.StatsResponse](t, b.request(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, int64(1), stats.TotalModels)
	assert.Greater(t, stats.AverageQuality, 0.0)
	assert.LessOrEqual(t, stats.AverageQuality, 1.0)
	assert.Equal(t, int64(0), stats.CacheHits)

	// A repeated prompt is served from the cache and counted.
	w = b.request(t, http.MethodPost, "/api/generate/text", api.GenerateTextRequest{Text: "a red cube"})
	require.Equal(t, http.StatusOK, w.Code)

	stats = decodeResponse[api.StatsResponse](t, b.request(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, int64(1), stats.TotalModels)
	assert.Equal(t, int64(1), stats.CacheHits)
	// No credential is configured, so the hit saved no provider call.
	assert.Equal(t, int64(0), stats.ApiCallsSaved)
}

func TestListLibraryModels(t *testing.T) {
	b := createBackend(t)

	require.NoError(t, os.WriteFile(filepath.Join(b.libraryDir, "duck.glb"), []byte("glTF binary"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(b.libraryDir, "notes.txt"), []byte("not a model"), 0644))

	w := b.request(t, http.MethodGet, "/api/models/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeResponse[api.ListModelsResponse](t, w)
	require.Len(t, res.Models, 1)
	assert.Equal(t, "duck.glb", res.Models[0].Filename)
	assert.Equal(t, "Duck", res.Models[0].Name)
	assert.Equal(t, "GLB", res.Models[0].Format)
	assert.Equal(t, "/api/models/duck.glb", res.Models[0].Url)
}

func TestGetLibraryModel(t *testing.T) {
	b := createBackend(t)

	require.NoError(t, os.WriteFile(filepath.Join(b.libraryDir, "duck.glb"), []byte("glTF binary"), 0644))

	w := b.request(t, http.MethodGet, "/api/models/duck.glb", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "model/gltf-binary", w.Header().Get("Content-Type"))
	assert.Equal(t, "glTF binary", w.Body.String())

	w = b.request(t, http.MethodGet, "/api/models/missing.glb", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// names with an unexpected extension never hit the filesystem
	w = b.request(t, http.MethodGet, "/api/models/secrets.env", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
