package replicate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"multimodalgen/internal/application"
	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"
)

// TextModel は、Replicate上のマルチモーダルテキストモデル（ステージ1）です
type TextModel struct {
	client     *Client
	model      string
	generation *config.GenerationConfig
}

// NewTextModel は新しいTextModelを作成します
func NewTextModel(client *Client, model string, generationConfig *config.GenerationConfig) *TextModel {
	if generationConfig == nil {
		generationConfig = config.DefaultGenerationConfig()
	}
	return &TextModel{
		client:     client,
		model:      model,
		generation: generationConfig,
	}
}

// ModelName はモデル名を返します
func (m *TextModel) ModelName() string {
	return m.model
}

// GenerateText は、画像とプロンプトをモデルに送信し、生成テキストを返します
func (m *TextModel) GenerateText(ctx context.Context, input application.TextGenerationInput) (string, error) {
	prediction, err := m.client.CreatePrediction(ctx, m.model, map[string]any{
		"image":          dataURI(input.Image),
		"prompt":         input.Prompt.Content(),
		"temperature":    input.Creativity,
		"max_new_tokens": m.generation.MaxNewTokens,
		"top_p":          m.generation.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗: %w", err)
	}

	return parseTextOutput(prediction.Output)
}

// parseTextOutput は、文字列配列（ストリーミング出力）または文字列の出力を1つのテキストにします
func parseTextOutput(raw json.RawMessage) (string, error) {
	if isNullOutput(raw) {
		return "", fmt.Errorf("テキスト出力がありません: %w", domain.ErrMalformedResponse)
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	return "", fmt.Errorf("テキスト出力を解釈できません: %w", domain.ErrMalformedResponse)
}

// dataURI は、画像をそのままbase64エンコードしたdata URIにします
func dataURI(image domain.UploadedImage) string {
	return "data:" + image.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(image.Data())
}

func isNullOutput(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
