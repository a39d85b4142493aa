package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"multimodalgen/configs"
	"multimodalgen/internal/application"
	"multimodalgen/internal/domain"
	"multimodalgen/internal/inject"
	discordPres "multimodalgen/internal/presentation/discord"
	"multimodalgen/internal/presentation/web"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/do"
)

func main() {
	log.Println("マルチモーダル生成アプリを起動中...")

	// 設定を読み込み
	config, err := configs.LoadConfig()
	if err != nil {
		if errors.Is(err, domain.ErrMissingCredential) {
			hint := (&configs.Config{Provider: strings.ToLower(strings.TrimSpace(os.Getenv("PROVIDER")))}).CredentialHint()
			log.Fatalf("設定の読み込みに失敗: %v\n次のように設定してください: %s", err, hint)
		}
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := inject.Setup(ctx, config)

	service := do.MustInvoke[*application.GenerationService](injector)
	textModel, imageModel := service.ModelNames()
	log.Printf("推論プロバイダー: %s (テキスト: %s, 画像: %s)", config.Provider, textModel, imageModel)

	// Web UIサーバーを起動
	server := &http.Server{
		Addr:              config.Server.Addr,
		Handler:           do.MustInvoke[*web.Handler](injector).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Web UIを %s で公開しました", config.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Webサーバーの起動に失敗: %v", err)
		}
	}()

	// Discord連携はトークンが設定されている場合のみ起動
	var session *discordgo.Session
	if config.Discord.Enabled() {
		session = do.MustInvoke[*discordgo.Session](injector)
		handler := do.MustInvoke[*discordPres.DiscordHandler](injector)
		handler.SetupHandlers()

		if err := session.Open(); err != nil {
			log.Fatalf("Discordへの接続に失敗: %v", err)
		}
		if err := handler.SetupCommands(); err != nil {
			log.Fatalf("スラッシュコマンドの設定に失敗: %v", err)
		}
		log.Println("Discordに接続しました。利用可能なスラッシュコマンド: /imagine")
	}

	// 終了シグナルを待機
	<-ctx.Done()
	log.Println("終了シグナルを受信しました。停止中...")

	// クリーンアップ
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Webサーバーの停止に失敗: %v", err)
	}
	if session != nil {
		if err := session.Close(); err != nil {
			log.Printf("Discordセッションのクローズに失敗: %v", err)
		}
	}
	if err := injector.Shutdown(); err != nil {
		log.Printf("依存関係の停止に失敗: %v", err)
	}

	log.Println("正常に停止しました。")
}
