package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"multimodalgen/internal/application"
	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"

	"google.golang.org/genai"
)

// GeminiAPIClient は、Gemini APIとの通信を行うクライアントです
type GeminiAPIClient struct {
	client     *genai.Client
	config     *config.GeminiConfig
	generation *config.GenerationConfig
}

// NewGeminiAPIClient は新しいGeminiAPIClientインスタンスを作成します
func NewGeminiAPIClient(ctx context.Context, geminiConfig *config.GeminiConfig, generationConfig *config.GenerationConfig) (*GeminiAPIClient, error) {
	if geminiConfig == nil || geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", domain.ErrMissingCredential)
	}
	if generationConfig == nil {
		generationConfig = config.DefaultGenerationConfig()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err)
	}

	return &GeminiAPIClient{
		client:     client,
		config:     geminiConfig,
		generation: generationConfig,
	}, nil
}

// TextModel は、ステージ1のテキスト生成クライアントを返します
func (g *GeminiAPIClient) TextModel() *TextModel {
	return &TextModel{api: g}
}

// ImageModel は、ステージ2の画像生成クライアントを返します
func (g *GeminiAPIClient) ImageModel() *ImageModel {
	return &ImageModel{api: g}
}

// createSafetySettings は、安全フィルターの設定を作成します（中程度の制限）
func createSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// createTextGenerateConfig は、テキスト生成用の設定を作成します
func (g *GeminiAPIClient) createTextGenerateConfig(creativity float64) *genai.GenerateContentConfig {
	temperature := float32(creativity)
	topP := g.generation.TopP
	return &genai.GenerateContentConfig{
		MaxOutputTokens: g.generation.MaxNewTokens,
		Temperature:     &temperature,
		TopP:            &topP,
		SafetySettings:  createSafetySettings(),
	}
}

// TextModel は、Geminiのマルチモーダルモデルによるテキスト生成（ステージ1）です
type TextModel struct {
	api *GeminiAPIClient
}

// ModelName はモデル名を返します
func (m *TextModel) ModelName() string {
	return m.api.config.ModelName
}

// GenerateText は、画像とプロンプトを送信してテキストを生成します
func (m *TextModel) GenerateText(ctx context.Context, input application.TextGenerationInput) (string, error) {
	log.Printf("Gemini APIにテキスト生成をリクエスト中: プロンプト=%d文字, 画像=%d bytes", len([]rune(input.Prompt.Content())), input.Image.Size())

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: input.Prompt.Content()},
				{InlineData: &genai.Blob{Data: input.Image.Data(), MIMEType: input.Image.MIMEType()}},
			},
		},
	}

	resp, err := m.api.client.Models.GenerateContent(ctx, m.ModelName(), contents, m.api.createTextGenerateConfig(input.Creativity))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("Gemini APIへのリクエストがタイムアウトしました: %w", err)
		}
		return "", fmt.Errorf("Gemini APIからの応答取得に失敗: %w", err)
	}

	return processTextResponse(resp)
}

// firstCandidate は、応答の最初の候補を取り出し、ブロックされていないか確認します
func firstCandidate(resp *genai.GenerateContentResponse) (*genai.Candidate, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("Gemini APIから有効な応答が得られませんでした: %w", domain.ErrMalformedResponse)
	}

	candidate := resp.Candidates[0]
	log.Printf("Gemini APIレスポンス: Candidates数=%d, FinishReason=%s", len(resp.Candidates), candidate.FinishReason)

	// FinishReasonをチェックして安全フィルターによるブロックを検出
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return nil, fmt.Errorf("Gemini APIの安全フィルターによって応答がブロックされました")
	case genai.FinishReasonRecitation:
		return nil, fmt.Errorf("Gemini APIが著作権保護された内容を検出しました")
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("Gemini APIの応答にコンテンツが含まれていません: %w", domain.ErrMalformedResponse)
	}
	return candidate, nil
}

// processTextResponse は、Gemini APIのレスポンスからテキスト部分を連結します
func processTextResponse(resp *genai.GenerateContentResponse) (string, error) {
	candidate, err := firstCandidate(resp)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			builder.WriteString(part.Text)
		}
	}

	log.Printf("Gemini APIから応答を取得: %d文字", len([]rune(builder.String())))
	return builder.String(), nil
}
