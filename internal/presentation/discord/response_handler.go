package discord

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/presentation/message"

	"github.com/bwmarrin/discordgo"
)

// ResponseHandler は、Discordのレスポンス送信・フォーマット処理を担当するハンドラーです
type ResponseHandler struct{}

// DiscordMessageLimit は、Discordのメッセージ文字数制限です
const DiscordMessageLimit = 2000

// NewResponseHandler は新しいResponseHandlerインスタンスを作成します
func NewResponseHandler() *ResponseHandler {
	return &ResponseHandler{}
}

// SendResult は、保留中のインタラクションに生成結果を送信します
func (h *ResponseHandler) SendResult(s *discordgo.Session, i *discordgo.Interaction, result *domain.GenerationResult) {
	chunks, file := h.buildResultMessages(result)
	h.sendChunks(s, i, chunks, file)
}

// SendError は、保留中のインタラクションにエラーを送信します
// 途中まで生成されたテキストはエラーより先に表示されます
func (h *ResponseHandler) SendError(s *discordgo.Session, i *discordgo.Interaction, err error) {
	h.sendChunks(s, i, h.splitMessage(message.FormatError(err).Markdown()), nil)
}

// sendChunks は、最初のチャンクで保留中の応答を編集し、残りをフォローアップとして送信します
func (h *ResponseHandler) sendChunks(s *discordgo.Session, i *discordgo.Interaction, chunks []string, file *discordgo.File) {
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	first := chunks[0]
	edit := &discordgo.WebhookEdit{Content: &first}
	// チャンクが1つだけの場合は画像を最初のメッセージに付ける
	if file != nil && len(chunks) == 1 {
		edit.Files = []*discordgo.File{file}
		file = nil
	}
	if _, err := s.InteractionResponseEdit(i, edit); err != nil {
		log.Printf("インタラクション応答の編集に失敗: %v", err)
		return
	}

	for idx, chunk := range chunks[1:] {
		params := &discordgo.WebhookParams{Content: chunk}
		// 画像は最後のチャンクに付ける
		if file != nil && idx == len(chunks)-2 {
			params.Files = []*discordgo.File{file}
		}
		if _, err := s.FollowupMessageCreate(i, true, params); err != nil {
			log.Printf("フォローアップメッセージの送信に失敗 (チャンク %d): %v", idx+2, err)
			return
		}
	}
}

// buildResultMessages は、生成結果を送信用のメッセージと画像ファイルに変換します
func (h *ResponseHandler) buildResultMessages(result *domain.GenerationResult) ([]string, *discordgo.File) {
	if result == nil {
		return []string{"❌ 生成結果がありません"}, nil
	}

	var b strings.Builder
	b.WriteString("✨ **生成が完了しました！**\n\n")
	b.WriteString("📝 **生成されたテキスト**\n")
	b.WriteString(result.Text)

	var file *discordgo.File
	switch {
	case len(result.Image.Data) > 0:
		file = &discordgo.File{
			Name:        "generated" + extensionFor(result.Image.MIMEType),
			ContentType: result.Image.MIMEType,
			Reader:      bytes.NewReader(result.Image.Data),
		}
	case result.Image.URL != "":
		fmt.Fprintf(&b, "\n\n🖼️ %s", result.Image.URL)
	}

	if result.TextModel != "" || result.ImageModel != "" {
		fmt.Fprintf(&b, "\n\n-# %s → %s", result.TextModel, result.ImageModel)
	}

	return h.splitMessage(b.String()), file
}

// extensionFor は、MIMEタイプに対応するファイル拡張子を返します
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// splitMessage は、メッセージをDiscordの制限に合わせて分割します
// 制限は文字数で数え、改行、空白の順に分割位置を探します
func (h *ResponseHandler) splitMessage(message string) []string {
	runes := []rune(message)
	if len(runes) <= DiscordMessageLimit {
		return []string{message}
	}

	var chunks []string
	remaining := runes

	for len(remaining) > 0 {
		if len(remaining) <= DiscordMessageLimit {
			chunks = append(chunks, string(remaining))
			break
		}

		// 2000文字以内で最も近い改行位置を探す
		splitIndex := lastIndexRune(remaining[:DiscordMessageLimit], '\n')

		// 改行が見つからない場合は、単語の境界で分割
		if splitIndex <= 0 {
			splitIndex = lastIndexRune(remaining[:DiscordMessageLimit], ' ')
		}

		// それでも見つからない場合は強制的に分割
		if splitIndex <= 0 {
			splitIndex = DiscordMessageLimit
		}

		chunks = append(chunks, string(remaining[:splitIndex]))
		remaining = remaining[splitIndex:]

		// 先頭の空白を除去
		for len(remaining) > 0 && (remaining[0] == ' ' || remaining[0] == '\n') {
			remaining = remaining[1:]
		}
	}

	return chunks
}

// lastIndexRune は、区切り文字の直後の位置を返します。見つからない場合は0です
func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes); i > 0; i-- {
		if runes[i-1] == r {
			return i
		}
	}
	return 0
}
