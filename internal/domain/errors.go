package domain

import (
	"errors"
	"fmt"
)

// ドメイン固有のエラー型を定義
var (
	// ErrMissingCredential は、APIトークンが設定されていない場合のエラーです
	ErrMissingCredential = errors.New("APIトークンが設定されていません")

	// ErrImageRequired は、画像がアップロードされていない場合のエラーです
	ErrImageRequired = errors.New("画像をアップロードしてください")

	// ErrEmptyImage は、画像データが空の場合のエラーです
	ErrEmptyImage = errors.New("画像データが空です")

	// ErrUnsupportedFormat は、対応していない画像形式の場合のエラーです
	ErrUnsupportedFormat = errors.New("対応していない画像形式です（JPG、JPEG、PNGのみ対応）")

	// ErrImageTooLarge は、アップロードサイズの上限を超えた場合のエラーです
	ErrImageTooLarge = errors.New("画像サイズが上限を超えています")

	// ErrInvalidParameter は、生成パラメータが数値として解釈できない場合のエラーです
	ErrInvalidParameter = errors.New("生成パラメータが不正です")

	// ErrMalformedResponse は、推論APIの応答が想定外の形式だった場合のエラーです
	ErrMalformedResponse = errors.New("推論APIの応答形式が不正です")
)

// Stage は、生成パイプラインのどの段階かを表します
type Stage int

const (
	// StageText は、マルチモーダルテキスト生成（ステージ1）です
	StageText Stage = 1
	// StageImage は、画像生成（ステージ2）です
	StageImage Stage = 2
)

// String は "stage 1" / "stage 2" 形式の識別子を返します
func (s Stage) String() string {
	return fmt.Sprintf("stage %d", int(s))
}

// DisplayName はステージの日本語名を返します
func (s Stage) DisplayName() string {
	switch s {
	case StageText:
		return "テキスト生成"
	case StageImage:
		return "画像生成"
	default:
		return "不明なステージ"
	}
}

// ConfigurationError は、起動時の設定不備を表します。起動を中止すべき致命的なエラーです
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError は、指定した環境変数に関するConfigurationErrorを作成します
func NewConfigurationError(key, message string) *ConfigurationError {
	return &ConfigurationError{Key: key, Message: message}
}

// ValidationError は、入力の検証に失敗したことを表します。ネットワーク呼び出しの前に返されます
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError は新しいValidationErrorを作成します
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// RemoteServiceError は、推論API呼び出しの失敗を表します
// PartialText には、ステージ2で失敗した場合にステージ1の生成テキストが保持されます
type RemoteServiceError struct {
	Stage       Stage
	PartialText string
	Err         error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s（%s）の呼び出しに失敗しました: %v", e.Stage, e.Stage.DisplayName(), e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// RenderError は、推論APIの応答が表示できない形だった場合のエラーです
type RenderError struct {
	Stage       Stage
	PartialText string
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s（%s）の結果を表示できません: %v", e.Stage, e.Stage.DisplayName(), e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// PartialTextOf は、エラーに保持されているステージ1のテキストを取り出します
func PartialTextOf(err error) string {
	var remoteErr *RemoteServiceError
	if errors.As(err, &remoteErr) {
		return remoteErr.PartialText
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return renderErr.PartialText
	}
	return ""
}
