package configs

import (
	"fmt"
	"log"
	"strings"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Provider   string `envconfig:"PROVIDER" default:"replicate"`
	Replicate  config.ReplicateConfig
	Gemini     config.GeminiConfig
	Generation config.GenerationConfig
	Server     config.ServerConfig
	Discord    config.DiscordConfig
}

// LoadConfig は、環境変数から設定を読み込みます
// 必須のAPIトークンがない場合は *domain.ConfigurationError を返します
func LoadConfig() (*Config, error) {
	// .envファイルを読み込み（ファイルが存在しない場合は無視）
	if err := godotenv.Load(); err != nil {
		log.Printf("警告: .envファイルの読み込みに失敗しました: %v", err)
	}

	// ネストした設定はタグ名（例: REPLICATE_API_TOKEN）でそのまま参照される
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, &domain.ConfigurationError{
			Message: fmt.Sprintf("環境変数の解析に失敗しました: %v", err),
			Err:     err,
		}
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	// 必須設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は、設定の妥当性を検証します
func (c *Config) Validate() error {
	switch c.Provider {
	case config.ProviderReplicate:
		if c.Replicate.APIToken == "" {
			return &domain.ConfigurationError{
				Key:     "REPLICATE_API_TOKEN",
				Message: "REPLICATE_API_TOKEN が設定されていません",
				Err:     domain.ErrMissingCredential,
			}
		}
		if c.Replicate.TextModel == "" || c.Replicate.ImageModel == "" {
			return domain.NewConfigurationError("REPLICATE_TEXT_MODEL", "REPLICATE_TEXT_MODEL と REPLICATE_IMAGE_MODEL を指定してください")
		}
		if c.Replicate.PollInterval <= 0 {
			return domain.NewConfigurationError("REPLICATE_POLL_INTERVAL", "REPLICATE_POLL_INTERVAL は正の値である必要があります")
		}
	case config.ProviderGemini:
		if c.Gemini.APIKey == "" {
			return &domain.ConfigurationError{
				Key:     "GEMINI_API_KEY",
				Message: "GEMINI_API_KEY が設定されていません",
				Err:     domain.ErrMissingCredential,
			}
		}
		if c.Gemini.ModelName == "" || c.Gemini.ImageModelName == "" {
			return domain.NewConfigurationError("GEMINI_MODEL_NAME", "GEMINI_MODEL_NAME と GEMINI_IMAGE_MODEL_NAME を指定してください")
		}
	default:
		return domain.NewConfigurationError("PROVIDER", fmt.Sprintf("PROVIDER は %s または %s である必要があります: %q",
			config.ProviderReplicate, config.ProviderGemini, c.Provider))
	}

	if c.Generation.MaxNewTokens <= 0 {
		return domain.NewConfigurationError("MAX_NEW_TOKENS", "MAX_NEW_TOKENS は正の整数である必要があります")
	}

	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		return domain.NewConfigurationError("TOP_P", "TOP_P は0より大きく1以下の値である必要があります")
	}

	if c.Generation.RequestTimeout <= 0 {
		return domain.NewConfigurationError("REQUEST_TIMEOUT", "REQUEST_TIMEOUT は正の値である必要があります")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return domain.NewConfigurationError("MAX_UPLOAD_BYTES", "MAX_UPLOAD_BYTES は正の整数である必要があります")
	}

	return nil
}

// CredentialHint は、APIトークン未設定時に表示する設定例を返します
func (c *Config) CredentialHint() string {
	if c != nil && c.Provider == config.ProviderGemini {
		return "export GEMINI_API_KEY='your-api-key-here'"
	}
	return "export REPLICATE_API_TOKEN='your-token-here'"
}

// TextModelName は、使用中のテキストモデル名を返します
func (c *Config) TextModelName() string {
	if c.Provider == config.ProviderGemini {
		return c.Gemini.ModelName
	}
	return c.Replicate.TextModel
}

// ImageModelName は、使用中の画像生成モデル名を返します
func (c *Config) ImageModelName() string {
	if c.Provider == config.ProviderGemini {
		return c.Gemini.ImageModelName
	}
	return c.Replicate.ImageModel
}
