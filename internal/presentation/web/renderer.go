package web

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"sync"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/presentation/message"
)

//go:embed templates/index.html
var indexTmpl string

// PageData は、画面全体の描画に使うデータです
type PageData struct {
	Prompt         string
	Creativity     float64
	Quality        int
	MinCreativity  float64
	MaxCreativity  float64
	CreativityStep float64
	QualityLevels  []domain.ImageQualityLevel
	TextModel      string
	ImageModel     string
	Uploaded       *UploadedPreview
	Result         *ResultView
}

// UploadedPreview は、アップロードされた画像のプレビューです
type UploadedPreview struct {
	Filename string
	Source   template.URL
}

// ResultView は、生成結果またはエラーの表示内容です
type ResultView struct {
	Success     bool
	Text        string
	ImageSource template.URL
	ImagePrompt string
	Error       *message.ErrorMessage
}

// NewResultView は、生成結果とエラーから表示内容を作成します
// ステージ2で失敗した場合、ステージ1のテキストはエラーと一緒に表示されます
func NewResultView(result *domain.GenerationResult, err error) ResultView {
	if err != nil {
		msg := message.FormatError(err)
		return ResultView{
			Text:  msg.PartialText,
			Error: &msg,
		}
	}
	if result == nil {
		return ResultView{}
	}

	return ResultView{
		Success:     true,
		Text:        result.Text,
		ImageSource: imageSource(result.Image),
		ImagePrompt: result.ImagePrompt,
	}
}

// NewPageData は、既定値で埋めたPageDataを作成します
func NewPageData(prompt string, params domain.GenerationParameters, textModel, imageModel string) PageData {
	return PageData{
		Prompt:         prompt,
		Creativity:     params.Creativity(),
		Quality:        params.ImageQuality(),
		MinCreativity:  domain.MinCreativity,
		MaxCreativity:  domain.MaxCreativity,
		CreativityStep: domain.CreativityStep,
		QualityLevels:  domain.AllImageQualityLevels(),
		TextModel:      textModel,
		ImageModel:     imageModel,
	}
}

// NewUploadedPreview は、アップロード画像のプレビューを作成します
func NewUploadedPreview(image domain.UploadedImage) *UploadedPreview {
	if image.IsEmpty() {
		return nil
	}
	return &UploadedPreview{
		Filename: image.Filename(),
		Source:   dataURI(image.MIMEType(), image.Data()),
	}
}

// Renderer は、埋め込みテンプレートでHTMLを描画します
type Renderer struct {
	tmpl *template.Template
	once sync.Once
}

// NewRenderer は新しいRendererインスタンスを作成します
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render は、ページを描画して w に書き込みます
// 描画に失敗した場合は何も書き込みません
func (r *Renderer) Render(w io.Writer, data PageData) error {
	r.once.Do(func() {
		r.tmpl = template.Must(template.New("index").Parse(indexTmpl))
	})

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("テンプレートの描画に失敗: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// imageSource は、画像データがあればdata URI、なければURLを返します
func imageSource(image domain.GeneratedImage) template.URL {
	if len(image.Data) > 0 {
		mimeType := image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return dataURI(mimeType, image.Data)
	}
	return template.URL(image.URL)
}

func dataURI(mimeType string, data []byte) template.URL {
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
