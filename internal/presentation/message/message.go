package message

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"multimodalgen/internal/domain"
)

// ErrorMessage は、利用者に表示するエラーの内容です
type ErrorMessage struct {
	Icon        string
	Title       string
	Detail      string
	PartialText string // ステージ2で失敗した場合のステージ1のテキスト
}

// fieldLabels は、入力項目の表示名です
var fieldLabels = map[string]string{
	"image":      "画像",
	"prompt":     "プロンプト",
	"creativity": "創造性",
	"quality":    "画像品質",
}

// timeoutKeywords は、タイムアウトと判定するエラーメッセージのキーワードです
var timeoutKeywords = []string{
	"timeout",
	"タイムアウト",
	"deadline exceeded",
	"context deadline",
	"request timeout",
}

// IsTimeoutError は、エラーがタイムアウトエラーかどうかを判定します
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// タイムアウト関連のエラーメッセージを検出
	errorMsg := strings.ToLower(err.Error())
	for _, keyword := range timeoutKeywords {
		if strings.Contains(errorMsg, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// FormatError は、エラーを利用者向けのメッセージに変換します
func FormatError(err error) ErrorMessage {
	if err == nil {
		return ErrorMessage{}
	}

	msg := ErrorMessage{PartialText: domain.PartialTextOf(err)}

	var (
		validationErr *domain.ValidationError
		configErr     *domain.ConfigurationError
		renderErr     *domain.RenderError
		remoteErr     *domain.RemoteServiceError
	)

	switch {
	case errors.As(err, &validationErr):
		msg.Icon = "⚠️"
		msg.Title = "入力内容を確認してください"
		msg.Detail = validationErr.Err.Error()
		if label, ok := fieldLabels[validationErr.Field]; ok {
			msg.Detail = fmt.Sprintf("%s: %s", label, validationErr.Err.Error())
		}
	case errors.As(err, &configErr):
		msg.Icon = "🔑"
		msg.Title = "設定エラー"
		msg.Detail = configErr.Message
	case IsTimeoutError(err):
		msg.Icon = "⏰"
		msg.Title = "タイムアウトしました"
		msg.Detail = "推論APIの処理に時間がかかりすぎました。しばらく待ってから再度お試しください。"
	case errors.As(err, &renderErr):
		msg.Icon = "🖼️"
		msg.Title = fmt.Sprintf("%sの結果を表示できませんでした", renderErr.Stage.DisplayName())
		msg.Detail = "推論APIから想定外の形式の応答が返されました。"
	case errors.As(err, &remoteErr):
		msg.Icon = "❌"
		msg.Title = fmt.Sprintf("%sに失敗しました", remoteErr.Stage.DisplayName())
		msg.Detail = remoteErr.Err.Error()
	default:
		msg.Icon = "❌"
		msg.Title = "エラーが発生しました"
		msg.Detail = err.Error()
	}

	return msg
}

// Markdown は、チャット向けのMarkdown形式でメッセージを返します
func (m ErrorMessage) Markdown() string {
	var builder strings.Builder
	if m.PartialText != "" {
		builder.WriteString("📝 **生成されたテキスト**\n")
		builder.WriteString(m.PartialText)
		builder.WriteString("\n\n")
	}
	builder.WriteString(fmt.Sprintf("%s **%s**\n%s", m.Icon, m.Title, m.Detail))
	return builder.String()
}

// HTTPStatus は、エラーに対応するHTTPステータスコードを返します
func HTTPStatus(err error) int {
	var (
		validationErr *domain.ValidationError
		renderErr     *domain.RenderError
		remoteErr     *domain.RemoteServiceError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case IsTimeoutError(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &renderErr), errors.As(err, &remoteErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
