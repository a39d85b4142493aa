package replicate

import (
	"context"
	"encoding/json"
	"fmt"

	"multimodalgen/internal/application"
	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"
)

// ImageModel は、Replicate上の画像生成モデル（ステージ2）です
type ImageModel struct {
	client     *Client
	model      string
	generation *config.GenerationConfig
}

// NewImageModel は新しいImageModelを作成します
func NewImageModel(client *Client, model string, generationConfig *config.GenerationConfig) *ImageModel {
	if generationConfig == nil {
		generationConfig = config.DefaultGenerationConfig()
	}
	return &ImageModel{
		client:     client,
		model:      model,
		generation: generationConfig,
	}
}

// ModelName はモデル名を返します
func (m *ImageModel) ModelName() string {
	return m.model
}

// GenerateImage は、プロンプトから画像を1枚生成し、そのデータを取得します
func (m *ImageModel) GenerateImage(ctx context.Context, input application.ImageGenerationInput) (domain.GeneratedImage, error) {
	prediction, err := m.client.CreatePrediction(ctx, m.model, map[string]any{
		"prompt":              input.Prompt.Content(),
		"num_outputs":         1,
		"aspect_ratio":        m.generation.AspectRatio,
		"output_format":       m.generation.OutputFormat,
		"num_inference_steps": input.Quality,
	})
	if err != nil {
		return domain.GeneratedImage{}, fmt.Errorf("画像生成に失敗: %w", err)
	}

	url, err := parseImageOutput(prediction.Output)
	if err != nil {
		return domain.GeneratedImage{}, err
	}

	data, mimeType, err := m.client.Download(ctx, url)
	if err != nil {
		return domain.GeneratedImage{}, err
	}

	return domain.GeneratedImage{
		Data:     data,
		MIMEType: mimeType,
		URL:      url,
	}, nil
}

// parseImageOutput は、URL配列の先頭または単一のURLを取り出します
func parseImageOutput(raw json.RawMessage) (string, error) {
	if isNullOutput(raw) {
		return "", fmt.Errorf("画像出力がありません: %w", domain.ErrMalformedResponse)
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		if len(urls) == 0 || urls[0] == "" {
			return "", fmt.Errorf("画像出力が空です: %w", domain.ErrMalformedResponse)
		}
		return urls[0], nil
	}

	var url string
	if err := json.Unmarshal(raw, &url); err == nil && url != "" {
		return url, nil
	}

	return "", fmt.Errorf("画像出力を解釈できません: %w", domain.ErrMalformedResponse)
}
