package application

import (
	"context"

	"multimodalgen/internal/domain"
)

// TextGenerator は、画像とプロンプトからテキストを生成するマルチモーダルモデルのインターフェースです
type TextGenerator interface {
	// GenerateText は、推論APIを呼び出して生成テキストを返します
	GenerateText(ctx context.Context, input TextGenerationInput) (string, error)

	// ModelName は、使用しているモデル名を返します
	ModelName() string
}

// ImageGenerator は、テキストから画像を生成するモデルのインターフェースです
type ImageGenerator interface {
	// GenerateImage は、推論APIを呼び出して生成画像を返します
	GenerateImage(ctx context.Context, input ImageGenerationInput) (domain.GeneratedImage, error)

	// ModelName は、使用しているモデル名を返します
	ModelName() string
}

// TextGenerationInput は、ステージ1に渡す入力です
type TextGenerationInput struct {
	Image      domain.UploadedImage
	Prompt     domain.Prompt
	Creativity float64 // temperature としてそのまま送信される
}

// ImageGenerationInput は、ステージ2に渡す入力です
type ImageGenerationInput struct {
	Prompt  domain.Prompt
	Quality int // 推論ステップ数
}
