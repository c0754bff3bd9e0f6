package lifecycle

import (
	"context"
	"log/slog"

	"gen3d-backend/internal/database"
	"gen3d-backend/internal/provider"
	"gen3d-backend/internal/storage"
)

type TaskClient interface {
	StatusClient
	CreatePreviewTask(ctx context.Context, prompt string, params provider.PreviewParams) (string, error)
	CreateRefineTask(ctx context.Context, previewTaskId string) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, remoteURL, prefix, bucket string) (string, error)
	PublicURL(bucket, key string) string
	Location(bucket, key string) string
}

// RemoteGenerator runs a provider task to completion and localizes the
// produced assets. A failed asset download degrades that single asset to its
// remote URL; it never fails the generation.
type RemoteGenerator struct {
	client    TaskClient
	poller    *Poller
	retriever Fetcher
	score     Scorer
}

var _ Generator = (*RemoteGenerator)(nil)

func NewRemoteGenerator(client TaskClient, poller *Poller, retriever Fetcher, score Scorer) *RemoteGenerator {
	return &RemoteGenerator{client: client, poller: poller, retriever: retriever, score: score}
}

// displayFormat picks the canonical renderable format: glb, else gltf, else
// whatever the provider produced first.
func displayFormat(modelUrls map[string]string) string {
	if _, ok := modelUrls["glb"]; ok {
		return "glb"
	}
	if _, ok := modelUrls["gltf"]; ok {
		return "gltf"
	}
	for format := range modelUrls {
		return format
	}
	return ""
}

// localize fetches remoteURL into bucket, returning the servable URL and the
// stored location. On failure the remote URL is used directly.
func (g *RemoteGenerator) localize(ctx context.Context, remoteURL, prefix, bucket string) (string, string) {
	if remoteURL == "" {
		return "", ""
	}

	key, err := g.retriever.Fetch(ctx, remoteURL, prefix, bucket)
	if err != nil {
		slog.Warn("asset download failed, falling back to remote url", "url", remoteURL, "error", err)
		return remoteURL, ""
	}

	return g.retriever.PublicURL(bucket, key), g.retriever.Location(bucket, key)
}

func (g *RemoteGenerator) Preview(ctx context.Context, prompt string, params provider.PreviewParams) (Result, error) {
	taskId, err := g.client.CreatePreviewTask(ctx, prompt, params)
	if err != nil {
		return Result{}, err
	}

	info, err := g.poller.Wait(ctx, taskId)
	if err != nil {
		return Result{}, err
	}

	modelUrl, localModel := g.localize(ctx, info.ModelUrls[displayFormat(info.ModelUrls)], "model_"+taskId, storage.ModelsBucket)
	thumbUrl, localThumb := g.localize(ctx, info.ThumbnailUrl, "preview_"+taskId, storage.PreviewsBucket)

	return Result{
		TaskId:             taskId,
		ModelId:            taskId,
		ModelUrl:           modelUrl,
		ThumbnailUrl:       thumbUrl,
		LocalModelPath:     localModel,
		LocalThumbnailPath: localThumb,
		QualityScore:       g.score(database.StagePreview),
		Stage:              database.StagePreview,
	}, nil
}

func (g *RemoteGenerator) Refine(ctx context.Context, previewTaskId string) (Result, error) {
	taskId, err := g.client.CreateRefineTask(ctx, previewTaskId)
	if err != nil {
		return Result{}, err
	}

	info, err := g.poller.Wait(ctx, taskId)
	if err != nil {
		return Result{}, err
	}

	// Each format download degrades independently; one dead URL must not
	// abort the batch.
	downloads := make(map[string]string, len(info.ModelUrls))
	locations := make(map[string]string, len(info.ModelUrls))
	for format, url := range info.ModelUrls {
		if url == "" {
			continue
		}
		downloads[format], locations[format] = g.localize(ctx, url, format+"_"+taskId, storage.ModelsBucket)
	}

	display := displayFormat(info.ModelUrls)
	thumbUrl, localThumb := g.localize(ctx, info.ThumbnailUrl, "preview_"+taskId, storage.PreviewsBucket)

	return Result{
		TaskId:             taskId,
		ModelId:            taskId,
		ModelUrl:           downloads[display],
		ThumbnailUrl:       thumbUrl,
		DownloadUrls:       downloads,
		LocalModelPath:     locations[display],
		LocalThumbnailPath: localThumb,
		QualityScore:       g.score(database.StageRefined),
		Stage:              database.StageRefined,
	}, nil
}
