package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"
)

const (
	defaultBaseURL = "https://api.replicate.com"

	// maxDownloadBytes は生成画像のダウンロードサイズの上限です
	maxDownloadBytes = 50 << 20
)

// 予測（prediction）の状態
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Client は、Replicate HTTP APIのクライアントです
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClient は新しいReplicateクライアントを作成します
// httpClient がnilの場合は http.DefaultClient を使用します
func NewClient(replicateConfig *config.ReplicateConfig, httpClient *http.Client) (*Client, error) {
	if replicateConfig == nil || replicateConfig.APIToken == "" {
		return nil, fmt.Errorf("Replicateクライアントの作成に失敗: %w", domain.ErrMissingCredential)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimRight(replicateConfig.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pollInterval := replicateConfig.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		baseURL:      baseURL,
		token:        replicateConfig.APIToken,
		httpClient:   httpClient,
		pollInterval: pollInterval,
	}, nil
}

// Prediction は、Replicate APIの予測リソースです
type Prediction struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Version string          `json:"version"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output"`
	Error   json.RawMessage `json:"error"`
	URLs    struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

// IsTerminal は予測が終了状態かどうかを返します
func (p *Prediction) IsTerminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// errorMessage は予測のerrorフィールドを文字列として返します
func (p *Prediction) errorMessage() string {
	if len(p.Error) == 0 || string(p.Error) == "null" {
		return ""
	}
	var message string
	if err := json.Unmarshal(p.Error, &message); err == nil {
		return message
	}
	return string(p.Error)
}

// APIError は、Replicate APIが2xx以外のステータスを返した場合のエラーです
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("Replicate APIエラー (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("Replicate APIエラー (status %d): %s: %s", e.StatusCode, e.Title, e.Detail)
}

// PredictionError は、予測が failed または canceled で終了した場合のエラーです
type PredictionError struct {
	ID      string
	Status  string
	Message string
}

func (e *PredictionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("予測 %s が %s で終了しました", e.ID, e.Status)
	}
	return fmt.Sprintf("予測 %s が %s で終了しました: %s", e.ID, e.Status, e.Message)
}

// CreatePrediction は、モデルの予測を作成し、終了状態になるまで待機します
// model は "owner/name" または "owner/name:version" 形式です
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	path, body, err := predictionRequest(model, input)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	log.Printf("Replicate APIに予測を作成中: model=%s", model)

	var prediction Prediction
	if err := c.do(req, &prediction); err != nil {
		return nil, err
	}

	return c.Wait(ctx, &prediction)
}

// Wait は、予測が終了状態になるまで urls.get をポーリングします
func (c *Client) Wait(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	for !prediction.IsTerminal() {
		log.Printf("予測の完了を待機中: id=%s status=%s", prediction.ID, prediction.Status)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("予測 %s の待機を中断しました: %w", prediction.ID, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		next, err := c.GetPrediction(ctx, prediction)
		if err != nil {
			return nil, err
		}
		prediction = next
	}

	log.Printf("予測が終了しました: id=%s status=%s", prediction.ID, prediction.Status)

	if prediction.Status != StatusSucceeded {
		return nil, &PredictionError{
			ID:      prediction.ID,
			Status:  prediction.Status,
			Message: prediction.errorMessage(),
		}
	}
	return prediction, nil
}

// GetPrediction は、予測の最新の状態を取得します
func (c *Client) GetPrediction(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	url := prediction.URLs.Get
	if url == "" {
		url = c.baseURL + "/v1/predictions/" + prediction.ID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	var next Prediction
	if err := c.do(req, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Download は、生成物のURLからデータを取得します
// 配信用URLは認証不要のため、トークンは送信しません
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("生成画像のダウンロードに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("生成画像の読み込みに失敗: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// do は、認証ヘッダーを付けてリクエストを送信し、JSON応答をデコードします
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("応答のデコードに失敗: %w", err)
	}
	return nil
}

// newAPIError は、エラー応答（problem+json）からAPIErrorを作成します
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && (problem.Title != "" || problem.Detail != "") {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}

// predictionRequest は、モデル指定からリクエストパスと本文を組み立てます
func predictionRequest(model string, input map[string]any) (string, map[string]any, error) {
	name, version, hasVersion := strings.Cut(model, ":")
	owner, modelName, ok := strings.Cut(name, "/")
	if !ok || owner == "" || modelName == "" || strings.Contains(modelName, "/") {
		return "", nil, fmt.Errorf("モデル名の形式が不正です（owner/name[:version]）: %q", model)
	}

	if hasVersion {
		if version == "" {
			return "", nil, fmt.Errorf("モデルのバージョンが空です: %q", model)
		}
		return "/v1/predictions", map[string]any{"version": version, "input": input}, nil
	}
	return fmt.Sprintf("/v1/models/%s/%s/predictions", owner, modelName), map[string]any{"input": input}, nil
}
