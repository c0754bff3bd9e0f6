package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
)

// placeholderKey is the value shipped in example env files. It counts as no
// credential at all.
const placeholderKey = "your_meshy_api_key_here"

const textTo3dEndpoint = "/openapi/v2/text-to-3d"

// PreviewParams are the tunable knobs for a preview task. The orchestrator
// fills them from the complexity tier table.
type PreviewParams struct {
	ArtStyle        string `json:"art_style" yaml:"art_style"`
	AiModel         string `json:"ai_model" yaml:"ai_model"`
	Topology        string `json:"topology" yaml:"topology"`
	TargetPolycount int    `json:"target_polycount" yaml:"target_polycount"`
	ShouldRemesh    bool   `json:"should_remesh" yaml:"should_remesh"`
	SymmetryMode    string `json:"symmetry_mode" yaml:"symmetry_mode"`
	NegativePrompt  string `json:"negative_prompt,omitempty" yaml:"negative_prompt"`
}

// TaskInfo is the provider's view of a task. ModelUrls maps output format
// names (glb, fbx, ...) to download URLs.
type TaskInfo struct {
	Id           string            `json:"id"`
	Status       string            `json:"status"`
	ModelUrls    map[string]string `json:"model_urls"`
	ThumbnailUrl string            `json:"thumbnail_url"`
	TaskError    struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

type createTaskResponse struct {
	Result string `json:"result"`
}

// Client talks to the Meshy text-to-3d task API. It holds no mutable state
// besides the configured base URL and credential, so it is safe for
// concurrent use.
type Client struct {
	client *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	c := &Client{
		client: resty.New().SetBaseURL(baseURL),
		apiKey: apiKey,
	}

	if !c.Configured() {
		slog.Warn("meshy api key not configured, remote generation is disabled")
	}

	return c
}

// Configured reports whether a usable credential is present. When it returns
// false every call fails with ErrProviderUnavailable.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey
}

func (c *Client) createTask(ctx context.Context, body map[string]any) (string, error) {
	if !c.Configured() {
		return "", ErrProviderUnavailable
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(textTo3dEndpoint)
	if err != nil {
		return "", &RequestError{Err: err}
	}

	if !res.IsSuccess() {
		return "", &RequestError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	var created createTaskResponse
	if err := json.Unmarshal(res.Body(), &created); err != nil {
		return "", fmt.Errorf("error parsing create task response: %w", err)
	}

	if created.Result == "" {
		return "", fmt.Errorf("create task response contains no task id")
	}

	return created.Result, nil
}

func (c *Client) CreatePreviewTask(ctx context.Context, prompt string, params PreviewParams) (string, error) {
	body := map[string]any{
		"mode":             "preview",
		"prompt":           prompt,
		"art_style":        params.ArtStyle,
		"ai_model":         params.AiModel,
		"topology":         params.Topology,
		"target_polycount": params.TargetPolycount,
		"should_remesh":    params.ShouldRemesh,
		"symmetry_mode":    params.SymmetryMode,
		"moderation":       false,
	}
	if params.NegativePrompt != "" {
		body["negative_prompt"] = params.NegativePrompt
	}

	taskId, err := c.createTask(ctx, body)
	if err != nil {
		return "", err
	}

	slog.Info("created preview task", "task_id", taskId)
	return taskId, nil
}

func (c *Client) CreateRefineTask(ctx context.Context, previewTaskId string) (string, error) {
	body := map[string]any{
		"mode":            "refine",
		"preview_task_id": previewTaskId,
		"enable_pbr":      false,
		"ai_model":        "meshy-5",
		"moderation":      false,
	}

	taskId, err := c.createTask(ctx, body)
	if err != nil {
		return "", err
	}

	slog.Info("created refine task", "task_id", taskId, "preview_task_id", previewTaskId)
	return taskId, nil
}

func (c *Client) GetTaskStatus(ctx context.Context, taskId string) (TaskInfo, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		Get(textTo3dEndpoint + "/" + taskId)
	if err != nil {
		return TaskInfo{}, &RequestError{Err: err}
	}

	if !res.IsSuccess() {
		return TaskInfo{}, &RequestError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	var info TaskInfo
	if err := json.Unmarshal(res.Body(), &info); err != nil {
		return TaskInfo{}, fmt.Errorf("error parsing task status response: %w", err)
	}

	return info, nil
}
