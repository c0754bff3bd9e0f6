package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gen3d-backend/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigured(t *testing.T) {
	assert.True(t, provider.NewClient("http://localhost", "sk-123").Configured())
	assert.False(t, provider.NewClient("http://localhost", "").Configured())
	assert.False(t, provider.NewClient("http://localhost", "your_meshy_api_key_here").Configured())
}

func TestCreatePreviewTask(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/openapi/v2/text-to-3d", r.URL.Path)
		require.Equal(t, "Bearer sk-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"result": "task-1"})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk-123")

	taskId, err := client.CreatePreviewTask(context.Background(), "a red cube", provider.PreviewParams{
		ArtStyle:        "realistic",
		AiModel:         "meshy-5",
		Topology:        "triangle",
		TargetPolycount: 30000,
		ShouldRemesh:    true,
		SymmetryMode:    "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskId)

	assert.Equal(t, "preview", received["mode"])
	assert.Equal(t, "a red cube", received["prompt"])
	assert.Equal(t, "realistic", received["art_style"])
	assert.Equal(t, float64(30000), received["target_polycount"])
}

func TestCreateRefineTask(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"result": "task-2"})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk-123")

	taskId, err := client.CreateRefineTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-2", taskId)

	assert.Equal(t, "refine", received["mode"])
	assert.Equal(t, "task-1", received["preview_task_id"])
}

func TestCreateTaskNotConfigured(t *testing.T) {
	client := provider.NewClient("http://localhost:1", "")

	_, err := client.CreatePreviewTask(context.Background(), "a red cube", provider.PreviewParams{})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestCreateTaskServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk-123")

	_, err := client.CreatePreviewTask(context.Background(), "a red cube", provider.PreviewParams{})
	require.Error(t, err)

	var reqErr *provider.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "bad request")
}

func TestGetTaskStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openapi/v2/text-to-3d/task-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "task-1",
			"status":        "SUCCEEDED",
			"model_urls":    map[string]string{"glb": "http://x/m.glb"},
			"thumbnail_url": "http://x/t.jpg",
		})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk-123")

	info, err := client.GetTaskStatus(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusSucceeded, info.Status)
	assert.Equal(t, map[string]string{"glb": "http://x/m.glb"}, info.ModelUrls)
	assert.Equal(t, "http://x/t.jpg", info.ThumbnailUrl)
}

func TestGetTaskStatusFailedTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "task-1",
			"status":     "FAILED",
			"task_error": map[string]string{"message": "bad prompt"},
		})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk-123")

	info, err := client.GetTaskStatus(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusFailed, info.Status)
	assert.Equal(t, "bad prompt", info.TaskError.Message)
}
