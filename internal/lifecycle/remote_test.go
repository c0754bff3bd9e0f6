package lifecycle_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gen3d-backend/internal/lifecycle"
	"gen3d-backend/internal/provider"
	"gen3d-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskClient struct {
	scriptedStatusClient
	previewTaskId string
	refineTaskId  string
}

func (c *fakeTaskClient) CreatePreviewTask(ctx context.Context, prompt string, params provider.PreviewParams) (string, error) {
	return c.previewTaskId, nil
}

func (c *fakeTaskClient) CreateRefineTask(ctx context.Context, previewTaskId string) (string, error) {
	return c.refineTaskId, nil
}

type fakeFetcher struct {
	failing map[string]bool
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, remoteURL, prefix, bucket string) (string, error) {
	if f.failing[remoteURL] {
		return "", fmt.Errorf("download failed")
	}
	f.fetched = append(f.fetched, remoteURL)
	return prefix + ".bin", nil
}

func (f *fakeFetcher) PublicURL(bucket, key string) string {
	return "/api/files/" + bucket + "/" + key
}

func (f *fakeFetcher) Location(bucket, key string) string {
	return filepath.Join("/data", bucket, key)
}

func succeededTask(id string, modelUrls map[string]string, thumbnail string) provider.TaskInfo {
	return provider.TaskInfo{
		Id:           id,
		Status:       provider.StatusSucceeded,
		ModelUrls:    modelUrls,
		ThumbnailUrl: thumbnail,
	}
}

func fixedScore(stage string) float64 { return 0.9 }

func TestRemotePreviewLocalizesAssets(t *testing.T) {
	client := &fakeTaskClient{previewTaskId: "task-1"}
	client.statuses = []provider.TaskInfo{
		succeededTask("task-1", map[string]string{"glb": "http://x/m.glb"}, "http://x/t.jpg"),
	}

	fetcher := &fakeFetcher{}
	poller := lifecycle.NewPoller(client, time.Millisecond, time.Second)
	gen := lifecycle.NewRemoteGenerator(client, poller, fetcher, fixedScore)

	res, err := gen.Preview(context.Background(), "a red cube", provider.PreviewParams{})
	require.NoError(t, err)

	assert.Equal(t, "task-1", res.TaskId)
	assert.Equal(t, "/api/files/"+storage.ModelsBucket+"/model_task-1.bin", res.ModelUrl)
	assert.Equal(t, "/api/files/"+storage.PreviewsBucket+"/preview_task-1.bin", res.ThumbnailUrl)
	assert.NotEmpty(t, res.LocalModelPath)
	assert.False(t, res.Simulated)
	assert.ElementsMatch(t, []string{"http://x/m.glb", "http://x/t.jpg"}, fetcher.fetched)
}

func TestRemotePreviewDegradesFailedThumbnail(t *testing.T) {
	client := &fakeTaskClient{previewTaskId: "task-1"}
	client.statuses = []provider.TaskInfo{
		succeededTask("task-1", map[string]string{"glb": "http://x/m.glb"}, "http://x/t.jpg"),
	}

	fetcher := &fakeFetcher{failing: map[string]bool{"http://x/t.jpg": true}}
	poller := lifecycle.NewPoller(client, time.Millisecond, time.Second)
	gen := lifecycle.NewRemoteGenerator(client, poller, fetcher, fixedScore)

	res, err := gen.Preview(context.Background(), "a red cube", provider.PreviewParams{})
	require.NoError(t, err)

	// The thumbnail falls back to the remote url; the model is unaffected.
	assert.Equal(t, "http://x/t.jpg", res.ThumbnailUrl)
	assert.Empty(t, res.LocalThumbnailPath)
	assert.True(t, strings.HasPrefix(res.ModelUrl, "/api/files/"))
}

func TestRemoteRefineLocalizesEachFormat(t *testing.T) {
	client := &fakeTaskClient{refineTaskId: "task-2"}
	client.statuses = []provider.TaskInfo{
		succeededTask("task-2", map[string]string{
			"glb": "http://x/m.glb",
			"fbx": "http://x/m.fbx",
			"obj": "http://x/m.obj",
		}, "http://x/t.jpg"),
	}

	fetcher := &fakeFetcher{failing: map[string]bool{"http://x/m.fbx": true}}
	poller := lifecycle.NewPoller(client, time.Millisecond, time.Second)
	gen := lifecycle.NewRemoteGenerator(client, poller, fetcher, fixedScore)

	res, err := gen.Refine(context.Background(), "task-1")
	require.NoError(t, err)

	assert.Len(t, res.DownloadUrls, 3)
	assert.Equal(t, "/api/files/"+storage.ModelsBucket+"/glb_task-2.bin", res.DownloadUrls["glb"])
	assert.Equal(t, "http://x/m.fbx", res.DownloadUrls["fbx"])
	assert.Equal(t, res.DownloadUrls["glb"], res.ModelUrl)
}

func TestRemoteRefinePropagatesTaskFailure(t *testing.T) {
	info := provider.TaskInfo{Id: "task-2", Status: provider.StatusFailed}
	info.TaskError.Message = "bad prompt"

	client := &fakeTaskClient{refineTaskId: "task-2"}
	client.statuses = []provider.TaskInfo{info}

	poller := lifecycle.NewPoller(client, time.Millisecond, time.Second)
	gen := lifecycle.NewRemoteGenerator(client, poller, &fakeFetcher{}, fixedScore)

	_, err := gen.Refine(context.Background(), "task-1")

	var failed *lifecycle.TaskFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "bad prompt", failed.Message)
}

func TestSimulationPreviewPrefersLibraryModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duck.glb"), []byte("glTF"), 0644))

	gen := lifecycle.NewSimulationGenerator(dir, fixedScore)

	res, err := gen.Preview(context.Background(), "a duck", provider.PreviewParams{})
	require.NoError(t, err)

	assert.Equal(t, "/api/models/duck.glb", res.ModelUrl)
	assert.True(t, res.Simulated)
}

func TestSimulationPreviewFabricatesURLWithoutLibrary(t *testing.T) {
	gen := lifecycle.NewSimulationGenerator(t.TempDir(), fixedScore)

	res, err := gen.Preview(context.Background(), "a duck", provider.PreviewParams{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.ModelUrl, "/api/models/"))
	assert.True(t, strings.HasSuffix(res.ModelUrl, ".glb"))
	assert.Len(t, res.ModelId, 12)
}

func TestSimulationRefineFabricatesURLsPerFormat(t *testing.T) {
	gen := lifecycle.NewSimulationGenerator(t.TempDir(), fixedScore)

	res, err := gen.Refine(context.Background(), "task-1")
	require.NoError(t, err)

	require.Len(t, res.DownloadUrls, 4)
	for format, url := range res.DownloadUrls {
		assert.Equal(t, fmt.Sprintf("/api/models/%s.%s", res.ModelId, format), url)
	}
	assert.Equal(t, res.DownloadUrls["glb"], res.ModelUrl)
}

func TestLoadTiersOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
high:
  art_style: realistic
  ai_model: meshy-5
  topology: quad
  target_polycount: 250000
  should_remesh: false
  symmetry_mode: auto
`), 0644))

	tiers, err := lifecycle.LoadTiers(path)
	require.NoError(t, err)

	assert.Equal(t, 250000, tiers[lifecycle.ComplexityHigh].TargetPolycount)
	// Untouched tiers keep their defaults.
	assert.Equal(t, 30000, tiers[lifecycle.ComplexityMedium].TargetPolycount)
}

func TestLoadTiersRejectsUnknownTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extreme:\n  topology: quad\n"), 0644))

	_, err := lifecycle.LoadTiers(path)
	assert.ErrorContains(t, err, "unknown complexity tier")
}
