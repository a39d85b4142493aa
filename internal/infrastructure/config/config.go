package config

import "time"

// 推論プロバイダーの種類
const (
	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
)

// ReplicateConfig は、Replicate API関連の設定を定義します
type ReplicateConfig struct {
	APIToken     string        `envconfig:"REPLICATE_API_TOKEN"`
	BaseURL      string        `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com"`
	TextModel    string        `envconfig:"REPLICATE_TEXT_MODEL" default:"google-deepmind/gemma-3-27b-it:c0f0aebe8e578c15a7531e08a62cf01206f5870e9d0a67804b8152822db58c54"`
	ImageModel   string        `envconfig:"REPLICATE_IMAGE_MODEL" default:"black-forest-labs/flux-schnell"`
	PollInterval time.Duration `envconfig:"REPLICATE_POLL_INTERVAL" default:"1s"`
}

// GeminiConfig は、Gemini API関連の設定を定義します
type GeminiConfig struct {
	APIKey         string `envconfig:"GEMINI_API_KEY"`
	ModelName      string `envconfig:"GEMINI_MODEL_NAME" default:"gemini-2.5-flash"`
	ImageModelName string `envconfig:"GEMINI_IMAGE_MODEL_NAME" default:"gemini-2.5-flash-image"` // 画像生成用モデル名
}

// GenerationConfig は、両ステージ共通の生成設定を定義します
type GenerationConfig struct {
	MaxNewTokens   int32         `envconfig:"MAX_NEW_TOKENS" default:"512"`
	TopP           float32       `envconfig:"TOP_P" default:"0.95"`
	AspectRatio    string        `envconfig:"ASPECT_RATIO" default:"1:1"`
	OutputFormat   string        `envconfig:"OUTPUT_FORMAT" default:"png"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"2m"`
	DefaultPrompt  string        `envconfig:"DEFAULT_PROMPT" default:"この画像を説明し、未来の情景を想像してください。"`
}

// ServerConfig は、Web UIサーバーの設定を定義します
type ServerConfig struct {
	Addr           string `envconfig:"HTTP_ADDR" default:":8501"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"` // 20MiB
}

// DiscordConfig は、Discord関連の設定を定義します
// BotToken が空の場合、Discord連携は無効になります
type DiscordConfig struct {
	BotToken string `envconfig:"DISCORD_BOT_TOKEN"`
}

// Enabled はDiscord連携が有効かどうかを返します
func (c DiscordConfig) Enabled() bool {
	return c.BotToken != ""
}

// DefaultGeminiConfig は、デフォルトのGemini設定を返します
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		ModelName:      "gemini-2.5-flash",
		ImageModelName: "gemini-2.5-flash-image",
	}
}

// DefaultGenerationConfig は、デフォルトの生成設定を返します
func DefaultGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		MaxNewTokens:   512,
		TopP:           0.95,
		AspectRatio:    "1:1",
		OutputFormat:   "png",
		RequestTimeout: 2 * time.Minute,
		DefaultPrompt:  "この画像を説明し、未来の情景を想像してください。",
	}
}
