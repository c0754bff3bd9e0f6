package api

import "time"

type GenerateTextRequest struct {
	Text       string `json:"text"`
	Complexity string `json:"complexity"`
	Format     string `json:"format"`
}

type GenerateResponse struct {
	Success      bool    `json:"success"`
	ModelId      string  `json:"model_id"`
	TaskId       string  `json:"task_id,omitempty"`
	ModelUrl     string  `json:"model_url,omitempty"`
	PreviewUrl   string  `json:"preview_url,omitempty"`
	Message      string  `json:"message"`
	QualityScore float64 `json:"quality_score,omitempty"`
}

type RefineRequest struct {
	TaskId string `json:"task_id"`
}

type RefineResponse struct {
	Success      bool              `json:"success"`
	ModelId      string            `json:"model_id"`
	TaskId       string            `json:"task_id,omitempty"`
	ModelUrl     string            `json:"model_url,omitempty"`
	PreviewUrl   string            `json:"preview_url,omitempty"`
	DownloadUrls map[string]string `json:"download_urls,omitempty"`
	Stage        string            `json:"stage"`
	Message      string            `json:"message"`
	QualityScore float64           `json:"quality_score,omitempty"`
}

type HistoryQuery struct {
	Limit int `schema:"limit"`
}

type GenerationInfo struct {
	Id           string            `json:"id"`
	InputType    string            `json:"input_type"`
	InputContent string            `json:"input_content"`
	Complexity   string            `json:"complexity,omitempty"`
	Format       string            `json:"format,omitempty"`
	Stage        string            `json:"stage"`
	ModelUrl     string            `json:"model_url,omitempty"`
	PreviewUrl   string            `json:"preview_url,omitempty"`
	DownloadUrls map[string]string `json:"download_urls,omitempty"`
	QualityScore float64           `json:"quality_score,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type StatsResponse struct {
	TotalModels    int64   `json:"total_models"`
	AverageQuality float64 `json:"average_quality"`
	CacheHits      int64   `json:"cache_hits"`
	ApiCallsSaved  int64   `json:"api_calls_saved"`
}

type LibraryModel struct {
	Filename string `json:"filename"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	Url      string `json:"url"`
}

type ListModelsResponse struct {
	Models []LibraryModel `json:"models"`
}
