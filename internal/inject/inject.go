package inject

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"multimodalgen/configs"
	"multimodalgen/internal/application"
	"multimodalgen/internal/infrastructure/config"
	"multimodalgen/internal/infrastructure/gemini"
	"multimodalgen/internal/infrastructure/replicate"
	discordPres "multimodalgen/internal/presentation/discord"
	"multimodalgen/internal/presentation/web"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/do"
)

// Setup は、設定に従って依存関係を登録したインジェクターを返します
// 推論プロバイダーは cfg.Provider で切り替わり、Discord連携はトークンがある場合のみ登録されます
func Setup(ctx context.Context, cfg *configs.Config) *do.Injector {
	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Printf("[inject] "+format, args...)
		},
	})

	do.ProvideValue[*configs.Config](injector, cfg)
	do.ProvideValue[*http.Client](injector, &http.Client{})

	switch cfg.Provider {
	case config.ProviderGemini:
		do.Provide[*gemini.GeminiAPIClient](injector, func(i *do.Injector) (*gemini.GeminiAPIClient, error) {
			cfg := do.MustInvoke[*configs.Config](i)
			return gemini.NewGeminiAPIClient(ctx, &cfg.Gemini, &cfg.Generation)
		})
		do.Provide[application.TextGenerator](injector, func(i *do.Injector) (application.TextGenerator, error) {
			client, err := do.Invoke[*gemini.GeminiAPIClient](i)
			if err != nil {
				return nil, err
			}
			return client.TextModel(), nil
		})
		do.Provide[application.ImageGenerator](injector, func(i *do.Injector) (application.ImageGenerator, error) {
			client, err := do.Invoke[*gemini.GeminiAPIClient](i)
			if err != nil {
				return nil, err
			}
			return client.ImageModel(), nil
		})
	default:
		do.Provide[*replicate.Client](injector, func(i *do.Injector) (*replicate.Client, error) {
			cfg := do.MustInvoke[*configs.Config](i)
			return replicate.NewClient(&cfg.Replicate, do.MustInvoke[*http.Client](i))
		})
		do.Provide[application.TextGenerator](injector, func(i *do.Injector) (application.TextGenerator, error) {
			client, err := do.Invoke[*replicate.Client](i)
			if err != nil {
				return nil, err
			}
			cfg := do.MustInvoke[*configs.Config](i)
			return replicate.NewTextModel(client, cfg.Replicate.TextModel, &cfg.Generation), nil
		})
		do.Provide[application.ImageGenerator](injector, func(i *do.Injector) (application.ImageGenerator, error) {
			client, err := do.Invoke[*replicate.Client](i)
			if err != nil {
				return nil, err
			}
			cfg := do.MustInvoke[*configs.Config](i)
			return replicate.NewImageModel(client, cfg.Replicate.ImageModel, &cfg.Generation), nil
		})
	}

	do.Provide[*application.GenerationService](injector, func(i *do.Injector) (*application.GenerationService, error) {
		text, err := do.Invoke[application.TextGenerator](i)
		if err != nil {
			return nil, err
		}
		image, err := do.Invoke[application.ImageGenerator](i)
		if err != nil {
			return nil, err
		}
		return application.NewGenerationService(text, image, &do.MustInvoke[*configs.Config](i).Generation)
	})

	do.Provide[*web.Handler](injector, func(i *do.Injector) (*web.Handler, error) {
		service, err := do.Invoke[*application.GenerationService](i)
		if err != nil {
			return nil, err
		}
		cfg := do.MustInvoke[*configs.Config](i)
		return web.NewHandler(service, web.NewRenderer(), &cfg.Server, cfg.Generation.DefaultPrompt), nil
	})

	if cfg.Discord.Enabled() {
		do.Provide[*discordgo.Session](injector, func(i *do.Injector) (*discordgo.Session, error) {
			session, err := discordgo.New("Bot " + do.MustInvoke[*configs.Config](i).Discord.BotToken)
			if err != nil {
				return nil, fmt.Errorf("Discordセッションの作成に失敗: %w", err)
			}
			return session, nil
		})
		do.Provide[*discordPres.DiscordHandler](injector, func(i *do.Injector) (*discordPres.DiscordHandler, error) {
			service, err := do.Invoke[*application.GenerationService](i)
			if err != nil {
				return nil, err
			}
			session, err := do.Invoke[*discordgo.Session](i)
			if err != nil {
				return nil, err
			}
			cfg := do.MustInvoke[*configs.Config](i)
			return discordPres.NewDiscordHandler(session, service, do.MustInvoke[*http.Client](i), cfg.Server.MaxUploadBytes), nil
		})
	}

	return injector
}
