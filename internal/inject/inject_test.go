package inject

import (
	"context"
	"testing"

	"multimodalgen/configs"
	"multimodalgen/internal/application"
	"multimodalgen/internal/infrastructure/config"
	discordPres "multimodalgen/internal/presentation/discord"
	"multimodalgen/internal/presentation/web"

	"github.com/samber/do"
)

func testConfig(provider string) *configs.Config {
	return &configs.Config{
		Provider: provider,
		Replicate: config.ReplicateConfig{
			APIToken:   "r8_test-token",
			BaseURL:    "https://api.replicate.com",
			TextModel:  "owner/text-model",
			ImageModel: "owner/image-model",
		},
		Gemini: config.GeminiConfig{
			APIKey:         "gemini-test-key",
			ModelName:      "gemini-text",
			ImageModelName: "gemini-image",
		},
		Generation: *config.DefaultGenerationConfig(),
		Server:     config.ServerConfig{Addr: ":0", MaxUploadBytes: 1 << 20},
	}
}

func TestSetup_Providers(t *testing.T) {
	tests := []struct {
		name           string
		provider       string
		wantTextModel  string
		wantImageModel string
	}{
		{name: "Replicate", provider: config.ProviderReplicate, wantTextModel: "owner/text-model", wantImageModel: "owner/image-model"},
		{name: "Gemini", provider: config.ProviderGemini, wantTextModel: "gemini-text", wantImageModel: "gemini-image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			injector := Setup(context.Background(), testConfig(tt.provider))

			service, err := do.Invoke[*application.GenerationService](injector)
			if err != nil {
				t.Fatalf("生成サービスの解決に失敗: %v", err)
			}
			textModel, imageModel := service.ModelNames()
			if textModel != tt.wantTextModel || imageModel != tt.wantImageModel {
				t.Errorf("期待されるモデル: %s/%s, 実際: %s/%s", tt.wantTextModel, tt.wantImageModel, textModel, imageModel)
			}

			if _, err := do.Invoke[*web.Handler](injector); err != nil {
				t.Errorf("Webハンドラーの解決に失敗: %v", err)
			}
		})
	}
}

func TestSetup_DiscordDisabled(t *testing.T) {
	injector := Setup(context.Background(), testConfig(config.ProviderReplicate))

	if _, err := do.Invoke[*discordPres.DiscordHandler](injector); err == nil {
		t.Error("トークン未設定時にDiscordハンドラーが登録されています")
	}
}

func TestSetup_DiscordEnabled(t *testing.T) {
	cfg := testConfig(config.ProviderReplicate)
	cfg.Discord.BotToken = "discord-test-token"
	injector := Setup(context.Background(), cfg)

	if _, err := do.Invoke[*discordPres.DiscordHandler](injector); err != nil {
		t.Errorf("Discordハンドラーの解決に失敗: %v", err)
	}
}
