package discord

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"multimodalgen/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// imagineCommandName は、生成を実行するスラッシュコマンド名です
const imagineCommandName = "imagine"

// SlashCommandHandler は、Discordのスラッシュコマンドを処理するハンドラーです
type SlashCommandHandler struct {
	session         *discordgo.Session
	generator       Generator
	responseHandler *ResponseHandler
	httpClient      *http.Client
	maxUploadBytes  int64
}

// NewSlashCommandHandler は新しいSlashCommandHandlerインスタンスを作成します
func NewSlashCommandHandler(
	session *discordgo.Session,
	generator Generator,
	responseHandler *ResponseHandler,
	httpClient *http.Client,
	maxUploadBytes int64,
) *SlashCommandHandler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if responseHandler == nil {
		responseHandler = NewResponseHandler()
	}
	return &SlashCommandHandler{
		session:         session,
		generator:       generator,
		responseHandler: responseHandler,
		httpClient:      httpClient,
		maxUploadBytes:  maxUploadBytes,
	}
}

// imagineCommand は、/imagine コマンドの定義を返します
func imagineCommand() *discordgo.ApplicationCommand {
	minCreativity := domain.MinCreativity
	minQuality := float64(domain.MinImageQuality)

	return &discordgo.ApplicationCommand{
		Name:        imagineCommandName,
		Description: "画像とプロンプトから説明文と新しい画像を生成します",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "image",
				Description: "元になる画像（JPG、JPEG、PNG）",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prompt",
				Description: "AIの生成を導く追加の指示（任意）",
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "creativity",
				Description: fmt.Sprintf("創造性（%.1f〜%.1f、既定 %.1f）", domain.MinCreativity, domain.MaxCreativity, domain.DefaultCreativity),
				MinValue:    &minCreativity,
				MaxValue:    domain.MaxCreativity,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "quality",
				Description: fmt.Sprintf("画像品質（%d〜%d、既定 %d）", domain.MinImageQuality, domain.MaxImageQuality, domain.DefaultImageQuality),
				MinValue:    &minQuality,
				MaxValue:    float64(domain.MaxImageQuality),
			},
		},
	}
}

// SetupSlashCommands は、スラッシュコマンドを設定します
func (h *SlashCommandHandler) SetupSlashCommands() error {
	// BotのユーザーIDを取得
	user, err := h.session.User("@me")
	if err != nil {
		return fmt.Errorf("Botユーザー情報の取得に失敗: %w", err)
	}

	// グローバルコマンドとして登録
	command := imagineCommand()
	if _, err := h.session.ApplicationCommandCreate(user.ID, "", command); err != nil {
		return fmt.Errorf("スラッシュコマンド %s の登録に失敗: %w", command.Name, err)
	}
	log.Printf("スラッシュコマンド %s を登録しました", command.Name)

	return nil
}

// SetupSlashCommandHandlers は、スラッシュコマンドのハンドラーを設定します
func (h *SlashCommandHandler) SetupSlashCommandHandlers() {
	h.session.AddHandler(h.handleInteractionCreate)
}

// handleInteractionCreate は、インタラクション作成イベントを処理します
func (h *SlashCommandHandler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case imagineCommandName:
		h.handleImagineCommand(s, i)
	default:
		log.Printf("未知のスラッシュコマンド: %s", i.ApplicationCommandData().Name)
	}
}

// handleImagineCommand は、/imagine コマンドを処理します
func (h *SlashCommandHandler) handleImagineCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// 応答を保留してから生成する
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Printf("インタラクションへの応答に失敗: %v", err)
		return
	}

	result, err := h.generate(context.Background(), i.ApplicationCommandData())
	if err != nil {
		log.Printf("/imagine の処理に失敗: %v", err)
		h.responseHandler.SendError(s, i.Interaction, err)
		return
	}

	h.responseHandler.SendResult(s, i.Interaction, result)
}

// generate は、コマンドのオプションから生成リクエストを組み立てて実行します
func (h *SlashCommandHandler) generate(ctx context.Context, data discordgo.ApplicationCommandInteractionData) (*domain.GenerationResult, error) {
	options, err := parseImagineOptions(data)
	if err != nil {
		return nil, err
	}

	if h.maxUploadBytes > 0 && int64(options.attachment.Size) > h.maxUploadBytes {
		return nil, domain.NewValidationError("image", domain.ErrImageTooLarge)
	}

	imageData, err := h.downloadAttachment(ctx, options.attachment.URL)
	if err != nil {
		return nil, domain.NewValidationError("image", err)
	}

	image, err := domain.NewUploadedImage(options.attachment.Filename, options.attachment.ContentType, imageData)
	if err != nil {
		return nil, err
	}

	request, err := domain.NewGenerationRequest(image, options.prompt, options.parameters)
	if err != nil {
		return nil, err
	}
	return h.generator.Generate(ctx, request)
}

// imagineOptions は、/imagine コマンドのオプションです
type imagineOptions struct {
	attachment *discordgo.MessageAttachment
	prompt     string
	parameters domain.GenerationParameters
}

// parseImagineOptions は、インタラクションのデータからオプションを取り出します
func parseImagineOptions(data discordgo.ApplicationCommandInteractionData) (imagineOptions, error) {
	byName := lo.Associate(data.Options, func(o *discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.ApplicationCommandInteractionDataOption) {
		return o.Name, o
	})

	creativity := domain.DefaultCreativity
	if o, ok := byName["creativity"]; ok {
		creativity = o.FloatValue()
	}
	quality := domain.DefaultImageQuality
	if o, ok := byName["quality"]; ok {
		quality = int(o.IntValue())
	}

	options := imagineOptions{
		parameters: domain.NewGenerationParameters(creativity, quality),
	}
	if o, ok := byName["prompt"]; ok {
		options.prompt = o.StringValue()
	}

	o, ok := byName["image"]
	if !ok || data.Resolved == nil {
		return imagineOptions{}, domain.NewValidationError("image", domain.ErrImageRequired)
	}
	id, _ := o.Value.(string)
	attachment, ok := data.Resolved.Attachments[id]
	if !ok || attachment == nil {
		return imagineOptions{}, domain.NewValidationError("image", domain.ErrImageRequired)
	}
	options.attachment = attachment

	return options, nil
}

// downloadAttachment は、Discordの添付ファイルを取得します
func (h *SlashCommandHandler) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("添付ファイルの取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("添付ファイルの取得に失敗: unexpected status code: %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(resp.Body, h.maxUploadBytes)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("添付ファイルの読み込みに失敗: %w", err)
	}
	return data, nil
}
