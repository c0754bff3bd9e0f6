package lifecycle

import (
	"context"
	"math/rand"

	"gen3d-backend/internal/database"
	"gen3d-backend/internal/provider"
)

// Result is the outcome of one generation phase. Json tags exist because
// results are snapshotted into the cache verbatim.
type Result struct {
	TaskId  string `json:"task_id"`
	ModelId string `json:"model_id"`

	ModelUrl     string            `json:"model_url"`
	ThumbnailUrl string            `json:"preview_url"`
	DownloadUrls map[string]string `json:"download_urls,omitempty"`

	LocalModelPath     string `json:"local_model_path,omitempty"`
	LocalThumbnailPath string `json:"local_preview_path,omitempty"`

	QualityScore float64 `json:"quality_score"`
	Stage        string  `json:"stage"`
	Simulated    bool    `json:"simulated,omitempty"`

	// Cached is set by the orchestrator on a cache hit; never persisted.
	Cached bool `json:"-"`
}

// Generator produces a result for one phase. The remote implementation runs
// a provider task to completion; the simulation implementation fabricates a
// plausible result locally. The orchestrator decides which one runs.
type Generator interface {
	Preview(ctx context.Context, prompt string, params provider.PreviewParams) (Result, error)
	Refine(ctx context.Context, previewTaskId string) (Result, error)
}

// Scorer assigns the quality score for a finished stage. The default is a
// synthetic placeholder; swap it for a real metric without touching the
// orchestrator.
type Scorer func(stage string) float64

func DefaultScorer(stage string) float64 {
	if stage == database.StageRefined {
		return 0.85 + rand.Float64()*0.13
	}
	return 0.70 + rand.Float64()*0.25
}
