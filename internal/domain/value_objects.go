package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInstruction は、プロンプトが空の場合にテキストモデルへ送る既定の指示です
const DefaultInstruction = "この画像を説明し、未来の情景を想像してください。"

// Prompt は、推論APIに送信するために整形されたテキストを表現する値オブジェクトです
type Prompt struct {
	content string
}

// NewPrompt は、前後の空白を取り除いたPromptを作成します
func NewPrompt(content string) Prompt {
	return Prompt{content: strings.TrimSpace(content)}
}

// Content はプロンプト本文を返します
func (p Prompt) Content() string {
	return p.content
}

// IsEmpty はプロンプトが空かどうかを返します
func (p Prompt) IsEmpty() bool {
	return p.content == ""
}

// OrDefault は、空の場合に指定した指示へ置き換えたPromptを返します
func (p Prompt) OrDefault(instruction string) Prompt {
	if p.IsEmpty() {
		return NewPrompt(instruction)
	}
	return p
}

// GenerationRequest は、1回の送信操作で作られる生成リクエストです
// 送信後に変更されないよう、フィールドはすべて非公開です
type GenerationRequest struct {
	image      UploadedImage
	prompt     Prompt
	parameters GenerationParameters
}

// NewGenerationRequest は新しいGenerationRequestを作成します
// パラメータがゼロ値の場合はデフォルトを使用します
func NewGenerationRequest(image UploadedImage, prompt string, parameters GenerationParameters) (GenerationRequest, error) {
	if image.IsEmpty() {
		return GenerationRequest{}, NewValidationError("image", ErrImageRequired)
	}
	if parameters.IsZero() {
		parameters = DefaultGenerationParameters()
	}
	return GenerationRequest{
		image:      image,
		prompt:     NewPrompt(prompt),
		parameters: parameters,
	}, nil
}

// Image はアップロード画像を返します
func (r GenerationRequest) Image() UploadedImage {
	return r.image
}

// Prompt はユーザーが入力したプロンプトを返します（空の場合もあります）
func (r GenerationRequest) Prompt() Prompt {
	return r.prompt
}

// Parameters は生成パラメータを返します
func (r GenerationRequest) Parameters() GenerationParameters {
	return r.parameters
}

// String はGenerationRequestの文字列表現を返します（画像データは含みません）
func (r GenerationRequest) String() string {
	return fmt.Sprintf("GenerationRequest{Image: %s (%s, %d bytes), Prompt: %d文字, Creativity: %.2f, Quality: %d}",
		r.image.Filename(), r.image.Format().DisplayName(), r.image.Size(),
		len([]rune(r.prompt.Content())), r.parameters.Creativity(), r.parameters.ImageQuality())
}

// GeneratedImage は、画像生成モデルが返した画像です
// Data と URL の少なくとも一方が設定されます
type GeneratedImage struct {
	Data     []byte
	MIMEType string
	URL      string
}

// IsEmpty は画像データもURLもない場合にtrueを返します
func (img GeneratedImage) IsEmpty() bool {
	return len(img.Data) == 0 && img.URL == ""
}

// GenerationResult は、オーケストレーターが組み立てる生成結果です
type GenerationResult struct {
	Text        string
	Image       GeneratedImage
	TextModel   string
	ImageModel  string
	ImagePrompt string
	GeneratedAt time.Time
}
