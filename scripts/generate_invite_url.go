package main

import (
	"fmt"
	"log"

	"multimodalgen/internal/infrastructure/config"
	discordPres "multimodalgen/internal/presentation/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("警告: .envファイルの読み込みに失敗しました: %v", err)
	}

	var discordConfig config.DiscordConfig
	if err := envconfig.Process("", &discordConfig); err != nil {
		log.Fatalf("環境変数の解析に失敗: %v", err)
	}
	if !discordConfig.Enabled() {
		log.Fatal("DISCORD_BOT_TOKEN が設定されていません")
	}

	// Discordセッションを作成
	session, err := discordgo.New("Bot " + discordConfig.BotToken)
	if err != nil {
		log.Fatalf("Discordセッションの作成に失敗: %v", err)
	}
	defer session.Close()

	// Botの情報を取得
	user, err := session.User("@me")
	if err != nil {
		log.Fatalf("Bot情報の取得に失敗: %v", err)
	}

	fmt.Printf("🤖 Bot情報:\n")
	fmt.Printf("   名前: %s#%s\n", user.Username, user.Discriminator)
	fmt.Printf("   Client ID: %s\n", user.ID)
	fmt.Println()

	fmt.Printf("🔗 Bot招待URL:\n")
	fmt.Printf("   %s\n", discordPres.InviteURL(user.ID))
	fmt.Println()

	fmt.Printf("📋 必要な権限:\n")
	fmt.Printf("   - View Channels (1024)\n")
	fmt.Printf("   - Send Messages (2048)\n")
	fmt.Printf("   - Attach Files (32768)\n")
	fmt.Printf("   - 合計: %d\n", discordPres.InvitePermissions)
	fmt.Println()

	fmt.Printf("🎯 Botの使い方:\n")
	fmt.Printf("   1. チャンネルで /imagine を入力\n")
	fmt.Printf("   2. image に画像を添付し、必要なら prompt・creativity・quality を指定\n")
	fmt.Printf("   3. Botが生成したテキストと画像を返信します\n")
}
