package api

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gen3d-backend/internal/database"
	"gen3d-backend/internal/lifecycle"
	"gen3d-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var titleCaser = cases.Title(language.English)

const maxUploadBytes = 32 << 20 // 32MB

const defaultHistoryLimit = 50

type BackendService struct {
	db           *gorm.DB
	orchestrator *lifecycle.Orchestrator

	// libraryDir holds the built-in model files served under /models and
	// used by the simulation generator.
	libraryDir string

	// fileDir is the local asset storage root served under /files. Empty
	// when assets live in S3 and are served from there directly.
	fileDir string
}

func NewBackendService(db *gorm.DB, orchestrator *lifecycle.Orchestrator, libraryDir, fileDir string) *BackendService {
	return &BackendService{db: db, orchestrator: orchestrator, libraryDir: libraryDir, fileDir: fileDir}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/generate", func(r chi.Router) {
		r.Post("/text", RestHandler(s.GenerateFromText))
		r.Post("/image", RestHandler(s.GenerateFromImage))
		r.Post("/refine", RestHandler(s.RefineModel))
	})
	r.Get("/history", RestHandler(s.GetHistory))
	r.Get("/stats", RestHandler(s.GetStats))
	r.Route("/models", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListLibraryModels))
		r.Get("/{filename}", s.GetLibraryModel)
	})
	if s.fileDir != "" {
		r.Get("/files/*", s.GetAssetFile)
	}
}

// generationError maps lifecycle failures to response codes: bad caller
// input is a 400, provider failures and timeouts are bad-gateway, everything
// unclassified is a 500.
func generationError(err error) error {
	var failed *lifecycle.TaskFailedError
	switch {
	case errors.Is(err, lifecycle.ErrUnknownComplexity):
		return CodedErrorf(http.StatusBadRequest, "%v", err)
	case errors.As(err, &failed):
		return CodedErrorf(http.StatusBadGateway, "generation failed: %s", failed.Message)
	case errors.Is(err, lifecycle.ErrTaskTimeout):
		return CodedErrorf(http.StatusBadGateway, "generation timed out")
	case errors.Is(err, context.Canceled):
		return err
	default:
		return CodedErrorf(http.StatusInternalServerError, "generation failed: %v", err)
	}
}

func resultMessage(res lifecycle.Result) string {
	if res.Cached {
		return "model retrieved from cache"
	}
	if res.Simulated {
		return "model generated (simulated)"
	}
	return "model generated"
}

func (s *BackendService) GenerateFromText(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GenerateTextRequest](r)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "text is required")
	}

	res, err := s.orchestrator.GeneratePreview(r.Context(), req.Text, database.InputTypeText, req.Complexity)
	if err != nil {
		return nil, generationError(err)
	}

	return api.GenerateResponse{
		Success:      true,
		ModelId:      res.ModelId,
		TaskId:       res.TaskId,
		ModelUrl:     res.ModelUrl,
		PreviewUrl:   res.ThumbnailUrl,
		Message:      resultMessage(res),
		QualityScore: res.QualityScore,
	}, nil
}

func (s *BackendService) GenerateFromImage(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file upload")
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return nil, CodedErrorf(http.StatusBadRequest, "uploaded file must be an image")
	}

	content, err := io.ReadAll(file)
	if err != nil {
		slog.Error("error reading uploaded image", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "unable to read uploaded file")
	}

	// The cache key is derived from the image bytes, so re-uploading the
	// same image is a hit regardless of its filename.
	sum := md5.Sum(content)
	contentHash := hex.EncodeToString(sum[:])

	complexity := r.FormValue("complexity")

	res, err := s.orchestrator.GeneratePreview(r.Context(), contentHash, database.InputTypeImage, complexity)
	if err != nil {
		return nil, generationError(err)
	}

	return api.GenerateResponse{
		Success:      true,
		ModelId:      res.ModelId,
		TaskId:       res.TaskId,
		ModelUrl:     res.ModelUrl,
		PreviewUrl:   res.ThumbnailUrl,
		Message:      resultMessage(res),
		QualityScore: res.QualityScore,
	}, nil
}

func (s *BackendService) RefineModel(r *http.Request) (any, error) {
	req, err := ParseRequest[api.RefineRequest](r)
	if err != nil {
		return nil, err
	}

	if req.TaskId == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "task_id is required")
	}

	res, err := s.orchestrator.Refine(r.Context(), req.TaskId)
	if err != nil {
		return nil, generationError(err)
	}

	return api.RefineResponse{
		Success:      true,
		ModelId:      res.ModelId,
		TaskId:       res.TaskId,
		ModelUrl:     res.ModelUrl,
		PreviewUrl:   res.ThumbnailUrl,
		DownloadUrls: res.DownloadUrls,
		Stage:        res.Stage,
		Message:      resultMessage(res),
		QualityScore: res.QualityScore,
	}, nil
}

func (s *BackendService) GetHistory(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.HistoryQuery](r)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	records, err := database.ListHistory(r.Context(), s.db, limit)
	if err != nil {
		slog.Error("error listing history", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving generation history")
	}

	infos := make([]api.GenerationInfo, 0, len(records))
	for _, record := range records {
		var downloads map[string]string
		if len(record.DownloadUrls) > 0 {
			if err := json.Unmarshal(record.DownloadUrls, &downloads); err != nil {
				slog.Error("error decoding download urls", "record_id", record.Id, "error", err)
			}
		}

		infos = append(infos, api.GenerationInfo{
			Id:           record.ModelId,
			InputType:    record.InputType,
			InputContent: record.InputContent,
			Complexity:   record.Complexity,
			Format:       record.Format,
			Stage:        record.Stage,
			ModelUrl:     record.ModelUrl,
			PreviewUrl:   record.PreviewUrl,
			DownloadUrls: downloads,
			QualityScore: record.QualityScore,
			CreatedAt:    record.CreationTime,
		})
	}

	return infos, nil
}

func (s *BackendService) GetStats(r *http.Request) (any, error) {
	stats, err := database.GetStats(r.Context(), s.db)
	if err != nil {
		slog.Error("error computing stats", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error computing stats")
	}

	return api.StatsResponse{
		TotalModels:    stats.TotalModels,
		AverageQuality: stats.AverageQuality,
		CacheHits:      s.orchestrator.CacheHits(),
		ApiCallsSaved:  s.orchestrator.RemoteCallsSaved(),
	}, nil
}

func isLibraryModel(name string) bool {
	return strings.HasSuffix(name, ".glb") || strings.HasSuffix(name, ".obj")
}

func (s *BackendService) ListLibraryModels(r *http.Request) (any, error) {
	entries, err := os.ReadDir(s.libraryDir)
	if err != nil && !os.IsNotExist(err) {
		slog.Error("error listing model library", "dir", s.libraryDir, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing model library")
	}

	models := []api.LibraryModel{}
	for _, entry := range entries {
		if entry.IsDir() || !isLibraryModel(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := entry.Name()
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		models = append(models, api.LibraryModel{
			Filename: name,
			Name:     titleCaser.String(strings.TrimSuffix(name, filepath.Ext(name))),
			Size:     info.Size(),
			Format:   strings.ToUpper(ext),
			Url:      "/api/models/" + name,
		})
	}

	return api.ListModelsResponse{Models: models}, nil
}

func (s *BackendService) GetLibraryModel(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// no path traversal out of the library
	if filename != filepath.Base(filename) || !isLibraryModel(filename) {
		http.Error(w, "model file not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(s.libraryDir, filename)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "model file not found", http.StatusNotFound)
		return
	}

	switch filepath.Ext(filename) {
	case ".glb":
		w.Header().Set("Content-Type", "model/gltf-binary")
	case ".obj":
		w.Header().Set("Content-Type", "text/plain")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	http.ServeFile(w, r, path)
}

func (s *BackendService) GetAssetFile(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSuffix(r.URL.Path, chi.URLParam(r, "*"))
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(s.fileDir)))
	fs.ServeHTTP(w, r)
}
