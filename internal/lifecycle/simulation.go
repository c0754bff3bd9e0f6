package lifecycle

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"gen3d-backend/internal/database"
	"gen3d-backend/internal/provider"
)

// simulatedFormats are the output formats a refine pass is expected to
// produce; the simulation fabricates one URL per format.
var simulatedFormats = []string{"glb", "fbx", "obj", "usdz"}

// SimulationGenerator synthesizes plausible results when the provider is
// unconfigured or down. It prefers a random file from the local model
// library and otherwise fabricates a deterministic URL.
type SimulationGenerator struct {
	libraryDir string
	score      Scorer
}

var _ Generator = (*SimulationGenerator)(nil)

func NewSimulationGenerator(libraryDir string, score Scorer) *SimulationGenerator {
	return &SimulationGenerator{libraryDir: libraryDir, score: score}
}

func simulatedModelId(content string) string {
	sum := md5.Sum([]byte(content + ":" + time.Now().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

func (g *SimulationGenerator) libraryModels() []string {
	entries, err := os.ReadDir(g.libraryDir)
	if err != nil {
		return nil
	}

	var models []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".glb") || strings.HasSuffix(name, ".obj") {
			models = append(models, name)
		}
	}
	return models
}

func (g *SimulationGenerator) Preview(ctx context.Context, prompt string, params provider.PreviewParams) (Result, error) {
	id := simulatedModelId(prompt)

	modelUrl := fmt.Sprintf("/api/models/%s.glb", id)
	if models := g.libraryModels(); len(models) > 0 {
		modelUrl = "/api/models/" + models[rand.Intn(len(models))]
	}

	slog.Info("simulated preview generation", "model_id", id, "model_url", modelUrl)

	return Result{
		TaskId:       id,
		ModelId:      id,
		ModelUrl:     modelUrl,
		ThumbnailUrl: fmt.Sprintf("/api/previews/%s.jpg", id),
		QualityScore: g.score(database.StagePreview),
		Stage:        database.StagePreview,
		Simulated:    true,
	}, nil
}

func (g *SimulationGenerator) Refine(ctx context.Context, previewTaskId string) (Result, error) {
	id := simulatedModelId(previewTaskId)

	downloads := make(map[string]string, len(simulatedFormats))
	for _, format := range simulatedFormats {
		downloads[format] = fmt.Sprintf("/api/models/%s.%s", id, format)
	}

	slog.Info("simulated refine generation", "model_id", id, "preview_task_id", previewTaskId)

	return Result{
		TaskId:       id,
		ModelId:      id,
		ModelUrl:     downloads["glb"],
		ThumbnailUrl: fmt.Sprintf("/api/previews/%s.jpg", id),
		DownloadUrls: downloads,
		QualityScore: g.score(database.StageRefined),
		Stage:        database.StageRefined,
		Simulated:    true,
	}, nil
}
