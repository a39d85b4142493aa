package domain

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ImageFormat は、受け付ける画像形式を表します
type ImageFormat int

const (
	ImageFormatUnknown ImageFormat = iota
	ImageFormatJPEG
	ImageFormatPNG
)

// imageFormatData はImageFormatのMIMEタイプと表示名を保持します
type imageFormatData struct {
	MIMEType    string
	DisplayName string
}

var imageFormats = map[ImageFormat]imageFormatData{
	ImageFormatJPEG: {"image/jpeg", "JPEG"},
	ImageFormatPNG:  {"image/png", "PNG"},
}

// AllowedExtensions は、アップロードを受け付ける拡張子の一覧です
var AllowedExtensions = []string{".jpg", ".jpeg", ".png"}

// MIMEType はImageFormatのMIMEタイプを返します
func (f ImageFormat) MIMEType() string {
	if data, ok := imageFormats[f]; ok {
		return data.MIMEType
	}
	return "application/octet-stream"
}

// DisplayName はImageFormatの表示名を返します
func (f ImageFormat) DisplayName() string {
	if data, ok := imageFormats[f]; ok {
		return data.DisplayName
	}
	return "不明"
}

// imageFormatFromMIME は、MIMEタイプからImageFormatを判定します
func imageFormatFromMIME(mimeType string) ImageFormat {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ImageFormatJPEG
	case "image/png":
		return ImageFormatPNG
	default:
		return ImageFormatUnknown
	}
}

// UploadedImage は、ユーザーがアップロードした画像を表す値オブジェクトです
// バイト列はリサイズや変換をせずそのまま推論APIへ渡します
type UploadedImage struct {
	filename string
	format   ImageFormat
	data     []byte
}

// NewUploadedImage は、アップロードされたファイルを検証してUploadedImageを作成します
// 拡張子、申告されたContent-Type、実データの三点がJPEGまたはPNGであることを確認します
func NewUploadedImage(filename, contentType string, data []byte) (UploadedImage, error) {
	if filename == "" && len(data) == 0 {
		return UploadedImage{}, NewValidationError("image", ErrImageRequired)
	}
	if len(data) == 0 {
		return UploadedImage{}, NewValidationError("image", ErrEmptyImage)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !lo.Contains(AllowedExtensions, ext) {
		return UploadedImage{}, NewValidationError("image", ErrUnsupportedFormat)
	}

	// 汎用的なContent-Typeはブラウザが判定できなかっただけなので検証対象外
	if contentType != "" && !isGenericContentType(contentType) {
		if imageFormatFromMIME(contentType) == ImageFormatUnknown {
			return UploadedImage{}, NewValidationError("image", ErrUnsupportedFormat)
		}
	}

	format := imageFormatFromMIME(http.DetectContentType(data))
	if format == ImageFormatUnknown {
		return UploadedImage{}, NewValidationError("image", ErrUnsupportedFormat)
	}

	return UploadedImage{
		filename: filepath.Base(filename),
		format:   format,
		data:     data,
	}, nil
}

func isGenericContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/octet-stream"
}

// Filename は元のファイル名を返します
func (img UploadedImage) Filename() string {
	return img.filename
}

// Format は検出された画像形式を返します
func (img UploadedImage) Format() ImageFormat {
	return img.format
}

// MIMEType は画像のMIMEタイプを返します
func (img UploadedImage) MIMEType() string {
	return img.format.MIMEType()
}

// Data は画像の生データを返します
func (img UploadedImage) Data() []byte {
	return img.data
}

// Size は画像のバイト数を返します
func (img UploadedImage) Size() int {
	return len(img.data)
}

// IsEmpty は画像が未設定かどうかを返します
func (img UploadedImage) IsEmpty() bool {
	return len(img.data) == 0
}
