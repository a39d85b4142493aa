package discord

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"multimodalgen/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// Generator は、生成リクエストを処理するサービスのインターフェースです
type Generator interface {
	Generate(ctx context.Context, request domain.GenerationRequest) (*domain.GenerationResult, error)
	ModelNames() (string, string)
}

// DiscordHandler は、Discordのイベントハンドラです
type DiscordHandler struct {
	session             *discordgo.Session
	slashCommandHandler *SlashCommandHandler
}

// NewDiscordHandler は新しいDiscordHandlerインスタンスを作成します
func NewDiscordHandler(session *discordgo.Session, generator Generator, httpClient *http.Client, maxUploadBytes int64) *DiscordHandler {
	// ResponseHandlerを作成
	responseHandler := NewResponseHandler()

	return &DiscordHandler{
		session:             session,
		slashCommandHandler: NewSlashCommandHandler(session, generator, responseHandler, httpClient, maxUploadBytes),
	}
}

// SetupHandlers は、Discordのイベントハンドラを設定します
func (h *DiscordHandler) SetupHandlers() {
	h.session.AddHandler(h.handleReady)
	h.slashCommandHandler.SetupSlashCommandHandlers()
}

// SetupCommands は、スラッシュコマンドを登録します。セッションを開いた後に呼び出してください
func (h *DiscordHandler) SetupCommands() error {
	return h.slashCommandHandler.SetupSlashCommands()
}

func (h *DiscordHandler) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord Botが起動しました: %s#%s", event.User.Username, event.User.Discriminator)
}

// InvitePermissions は、Botの招待に必要な権限です（View Channels、Send Messages、Attach Files）
const InvitePermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles

// InviteURL は、スラッシュコマンドを利用できるBot招待URLを返します
func InviteURL(clientID string) string {
	return fmt.Sprintf("https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands", clientID, InvitePermissions)
}
