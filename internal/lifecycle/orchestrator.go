package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gen3d-backend/internal/cache"
	"gen3d-backend/internal/database"
	"gen3d-backend/internal/provider"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Orchestrator composes the remote and simulation generators across the
// preview and refine phases. Whether to go remote is decided once per
// request, up front, from the credential check; the simulation path is the
// same Generator interface, not exception-driven control flow.
type Orchestrator struct {
	remote     Generator
	simulation Generator
	configured func() bool

	cache cache.Store
	db    *gorm.DB
	tiers map[string]provider.PreviewParams

	cacheHits        atomic.Int64
	remoteCallsSaved atomic.Int64
}

type OrchestratorParams struct {
	Remote     Generator
	Simulation Generator
	Configured func() bool
	Cache      cache.Store
	DB         *gorm.DB
	Tiers      map[string]provider.PreviewParams
}

func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	tiers := params.Tiers
	if tiers == nil {
		tiers = DefaultTiers()
	}

	return &Orchestrator{
		remote:     params.Remote,
		simulation: params.Simulation,
		configured: params.Configured,
		cache:      params.Cache,
		db:         params.DB,
		tiers:      tiers,
	}
}

func (o *Orchestrator) cachedResult(ctx context.Context, key string) (Result, bool) {
	data, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		// A broken cache is a miss, never a failure.
		slog.Error("error reading cache, treating as miss", "key", key, "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Error("error decoding cached result, treating as miss", "key", key, "error", err)
		return Result{}, false
	}

	o.cacheHits.Add(1)
	if o.configured() {
		// This hit would otherwise have been a provider call.
		o.remoteCallsSaved.Add(1)
	}

	res.Cached = true
	return res, true
}

// CacheHits reports how many requests this process served from the cache.
func (o *Orchestrator) CacheHits() int64 {
	return o.cacheHits.Load()
}

// RemoteCallsSaved reports how many cache hits avoided a provider call.
func (o *Orchestrator) RemoteCallsSaved() int64 {
	return o.remoteCallsSaved.Load()
}

func (o *Orchestrator) persist(ctx context.Context, key string, res Result, record *database.GenerationRecord) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result for cache: %w", err)
	}

	if err := o.cache.Put(ctx, key, data); err != nil {
		// History is the durable record; a cache write failure only costs a
		// future provider call.
		slog.Error("error writing cache", "key", key, "error", err)
	}

	return database.SaveGeneration(ctx, o.db, record)
}

// GeneratePreview runs the preview phase for one input. Cache hits return
// without any remote call or history write. Any remote failure falls back to
// the simulation generator, so preview generation only fails outright on a
// storage error or cancellation.
func (o *Orchestrator) GeneratePreview(ctx context.Context, content, kind, complexity string) (Result, error) {
	key := cache.Key(content, kind, database.StagePreview)
	if res, ok := o.cachedResult(ctx, key); ok {
		return res, nil
	}

	if complexity == "" {
		complexity = ComplexityMedium
	}
	params, ok := o.tiers[complexity]
	if !ok {
		return Result{}, fmt.Errorf("%w %q", ErrUnknownComplexity, complexity)
	}

	var res Result
	var err error
	if o.configured() {
		res, err = o.remote.Preview(ctx, content, params)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			slog.Warn("remote preview failed, falling back to simulation", "error", err)
			res, err = o.simulation.Preview(ctx, content, params)
		}
	} else {
		res, err = o.simulation.Preview(ctx, content, params)
	}
	if err != nil {
		return Result{}, err
	}

	// A cancelled request must not commit partial results.
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	record := &database.GenerationRecord{
		Id:               uuid.New(),
		ModelId:          res.ModelId,
		TaskId:           res.TaskId,
		InputType:        kind,
		InputContent:     content,
		Complexity:       complexity,
		Stage:            database.StagePreview,
		ModelUrl:         res.ModelUrl,
		PreviewUrl:       res.ThumbnailUrl,
		QualityScore:     res.QualityScore,
		LocalModelPath:   res.LocalModelPath,
		LocalPreviewPath: res.LocalThumbnailPath,
		CreationTime:     time.Now().UTC(),
	}

	if err := o.persist(ctx, key, res, record); err != nil {
		return Result{}, err
	}

	return res, nil
}

// Refine runs the refine phase against a completed preview task. Unlike
// preview there is no fallback on remote failure: a failed or timed out
// refine surfaces to the caller, and nothing is written. Only a missing
// credential routes to the simulation generator.
func (o *Orchestrator) Refine(ctx context.Context, previewTaskId string) (Result, error) {
	key := cache.Key(previewTaskId, database.InputTypeTask, database.StageRefined)
	if res, ok := o.cachedResult(ctx, key); ok {
		return res, nil
	}

	var res Result
	var err error
	if o.configured() {
		res, err = o.remote.Refine(ctx, previewTaskId)
	} else {
		res, err = o.simulation.Refine(ctx, previewTaskId)
	}
	if err != nil {
		return Result{}, err
	}

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	downloads, err := json.Marshal(res.DownloadUrls)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode download urls: %w", err)
	}

	record := &database.GenerationRecord{
		Id:               uuid.New(),
		ModelId:          res.ModelId,
		TaskId:           res.TaskId,
		InputType:        database.InputTypeTask,
		InputContent:     "refined_from:" + previewTaskId,
		Stage:            database.StageRefined,
		ModelUrl:         res.ModelUrl,
		PreviewUrl:       res.ThumbnailUrl,
		DownloadUrls:     downloads,
		QualityScore:     res.QualityScore,
		LocalModelPath:   res.LocalModelPath,
		LocalPreviewPath: res.LocalThumbnailPath,
		CreationTime:     time.Now().UTC(),
	}

	if err := o.persist(ctx, key, res, record); err != nil {
		return Result{}, err
	}

	return res, nil
}
