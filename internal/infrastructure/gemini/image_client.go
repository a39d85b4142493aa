package gemini

import (
	"context"
	"fmt"
	"log"

	"multimodalgen/internal/application"
	"multimodalgen/internal/domain"

	"google.golang.org/genai"
)

// qualityHints は、推論ステップ数の代わりに画像プロンプトへ付け加える描き込みの指示です
var qualityHints = map[int]string{
	1: "シンプルな構図で素早く描いてください。",
	2: "要点を押さえた構図で描いてください。",
	3: "適度に細部まで描いてください。",
	4: "細部まで精密に描き込んだ高品質な画像にしてください。",
}

// ImageModel は、Geminiの画像生成モデル（ステージ2）です
type ImageModel struct {
	api *GeminiAPIClient
}

// ModelName はモデル名を返します
func (m *ImageModel) ModelName() string {
	return m.api.config.ImageModelName
}

// GenerateImage は、プロンプトから画像を生成します
func (m *ImageModel) GenerateImage(ctx context.Context, input application.ImageGenerationInput) (domain.GeneratedImage, error) {
	prompt := buildImagePrompt(input.Prompt.Content(), input.Quality, m.api.generation.AspectRatio)
	log.Printf("Gemini APIに画像生成をリクエスト中: モデル=%s, プロンプト=%d文字", m.ModelName(), len([]rune(prompt)))

	resp, err := m.api.client.Models.GenerateContent(ctx, m.ModelName(), genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		SafetySettings:     createSafetySettings(),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return domain.GeneratedImage{}, fmt.Errorf("Gemini APIへの画像生成リクエストがタイムアウトしました: %w", err)
		}
		return domain.GeneratedImage{}, fmt.Errorf("Gemini APIからの画像取得に失敗: %w", err)
	}

	return processImageResponse(resp)
}

// buildImagePrompt は、品質とアスペクト比の指示を付け加えた画像プロンプトを作成します
func buildImagePrompt(prompt string, quality int, aspectRatio string) string {
	hint, ok := qualityHints[quality]
	if !ok {
		hint = qualityHints[domain.DefaultImageQuality]
	}
	if aspectRatio == "" {
		return fmt.Sprintf("次の情景を画像にしてください。%s\n\n%s", hint, prompt)
	}
	return fmt.Sprintf("次の情景をアスペクト比 %s の画像にしてください。%s\n\n%s", aspectRatio, hint, prompt)
}

// processImageResponse は、画像生成レスポンスから最初のインライン画像を取り出します
func processImageResponse(resp *genai.GenerateContentResponse) (domain.GeneratedImage, error) {
	candidate, err := firstCandidate(resp)
	if err != nil {
		return domain.GeneratedImage{}, err
	}

	for i, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Printf("Part[%d]から画像を取得: MIMEType=%s, %d bytes", i, part.InlineData.MIMEType, len(part.InlineData.Data))
			return domain.GeneratedImage{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}, nil
		}
		if part.Text != "" {
			log.Printf("Part[%d]: Text長=%d", i, len(part.Text))
		}
	}

	return domain.GeneratedImage{}, fmt.Errorf("画像生成レスポンスに画像が含まれていません: %w", domain.ErrMalformedResponse)
}
