package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"
)

var testPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
}

// MockTextGenerator は、テスト用のモックテキスト生成クライアントです
type MockTextGenerator struct {
	response string
	error    error
	panicMsg string
	calls    []TextGenerationInput
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, input TextGenerationInput) (string, error) {
	m.calls = append(m.calls, input)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.response, m.error
}

func (m *MockTextGenerator) ModelName() string {
	return "mock-text-model"
}

// MockImageGenerator は、テスト用のモック画像生成クライアントです
type MockImageGenerator struct {
	response domain.GeneratedImage
	error    error
	calls    []ImageGenerationInput
}

func (m *MockImageGenerator) GenerateImage(ctx context.Context, input ImageGenerationInput) (domain.GeneratedImage, error) {
	m.calls = append(m.calls, input)
	return m.response, m.error
}

func (m *MockImageGenerator) ModelName() string {
	return "mock-image-model"
}

func newTestRequest(t *testing.T, prompt string, params domain.GenerationParameters) domain.GenerationRequest {
	t.Helper()
	img, err := domain.NewUploadedImage("photo.png", "image/png", testPNG)
	if err != nil {
		t.Fatalf("画像の作成に失敗: %v", err)
	}
	req, err := domain.NewGenerationRequest(img, prompt, params)
	if err != nil {
		t.Fatalf("リクエストの作成に失敗: %v", err)
	}
	return req
}

func newTestService(t *testing.T, text *MockTextGenerator, image *MockImageGenerator) *GenerationService {
	t.Helper()
	service, err := NewGenerationService(text, image, &config.GenerationConfig{RequestTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("サービスの作成に失敗: %v", err)
	}
	return service
}

func TestNewGenerationService(t *testing.T) {
	_, err := NewGenerationService(nil, &MockImageGenerator{}, nil)
	if err == nil {
		t.Error("テキスト生成クライアントがnilの場合はエラーが期待されます")
	}

	service, err := NewGenerationService(&MockTextGenerator{}, &MockImageGenerator{}, nil)
	if err != nil {
		t.Fatalf("予期しないエラーが発生しました: %v", err)
	}
	if service.config.RequestTimeout != 2*time.Minute {
		t.Errorf("デフォルト設定が使用されていません: %v", service.config.RequestTimeout)
	}

	textModel, imageModel := service.ModelNames()
	if textModel != "mock-text-model" || imageModel != "mock-image-model" {
		t.Errorf("予期しないモデル名: %s, %s", textModel, imageModel)
	}
}

func TestGenerationService_Generate_Success(t *testing.T) {
	text := &MockTextGenerator{response: "  未来の港町が広がっている  "}
	image := &MockImageGenerator{response: domain.GeneratedImage{Data: []byte("img"), MIMEType: "image/png"}}
	service := newTestService(t, text, image)

	result, err := service.Generate(context.Background(), newTestRequest(t, "港の写真", domain.DefaultGenerationParameters()))
	if err != nil {
		t.Fatalf("予期しないエラーが発生しました: %v", err)
	}

	if result.Text != "未来の港町が広がっている" {
		t.Errorf("期待されるText: 未来の港町が広がっている, 実際: %s", result.Text)
	}
	if string(result.Image.Data) != "img" {
		t.Errorf("期待されるImage: img, 実際: %s", string(result.Image.Data))
	}
	if len(image.calls) != 1 {
		t.Fatalf("画像生成の呼び出し回数: 期待 1, 実際 %d", len(image.calls))
	}
	if image.calls[0].Prompt.Content() != "未来の港町が広がっている" {
		t.Errorf("ステージ2に生成テキストが渡されていません: %s", image.calls[0].Prompt.Content())
	}
	if result.ImagePrompt != "未来の港町が広がっている" {
		t.Errorf("期待されるImagePrompt: 未来の港町が広がっている, 実際: %s", result.ImagePrompt)
	}
	if result.TextModel != "mock-text-model" || result.ImageModel != "mock-image-model" {
		t.Errorf("モデル名が設定されていません: %s, %s", result.TextModel, result.ImageModel)
	}
	if result.GeneratedAt.IsZero() {
		t.Error("GeneratedAtが設定されていません")
	}
}

func TestGenerationService_Generate_EmptyPromptUsesDefaultInstruction(t *testing.T) {
	text := &MockTextGenerator{response: "説明文"}
	image := &MockImageGenerator{response: domain.GeneratedImage{URL: "https://example.com/out.png"}}
	service := newTestService(t, text, image)

	if _, err := service.Generate(context.Background(), newTestRequest(t, "   ", domain.DefaultGenerationParameters())); err != nil {
		t.Fatalf("予期しないエラーが発生しました: %v", err)
	}

	if len(text.calls) != 1 {
		t.Fatalf("テキスト生成の呼び出し回数: 期待 1, 実際 %d", len(text.calls))
	}
	if text.calls[0].Prompt.Content() != domain.DefaultInstruction {
		t.Errorf("デフォルト指示が送信されていません: '%s'", text.calls[0].Prompt.Content())
	}
	if text.calls[0].Image.Filename() != "photo.png" {
		t.Errorf("画像がステージ1に渡されていません: %s", text.calls[0].Image.Filename())
	}
}

func TestGenerationService_Generate_BlankTextFallsBackToPrompt(t *testing.T) {
	text := &MockTextGenerator{response: " \n "}
	image := &MockImageGenerator{response: domain.GeneratedImage{Data: []byte("img")}}
	service := newTestService(t, text, image)

	result, err := service.Generate(context.Background(), newTestRequest(t, "夜の森", domain.DefaultGenerationParameters()))
	if err != nil {
		t.Fatalf("予期しないエラーが発生しました: %v", err)
	}

	if image.calls[0].Prompt.Content() != "夜の森" {
		t.Errorf("空のテキストの代わりに入力プロンプトが使われるべきです: '%s'", image.calls[0].Prompt.Content())
	}
	if result.Text != "" {
		t.Errorf("空のテキストが期待されましたが、実際: '%s'", result.Text)
	}
}

func TestGenerationService_Generate_ParametersPassThrough(t *testing.T) {
	tests := []struct {
		name           string
		creativity     float64
		quality        int
		wantCreativity float64
		wantQuality    int
	}{
		{name: "下限", creativity: 0.1, quality: 1, wantCreativity: 0.1, wantQuality: 1},
		{name: "上限", creativity: 1.0, quality: 4, wantCreativity: 1.0, wantQuality: 4},
		{name: "デフォルト", creativity: 0.7, quality: 3, wantCreativity: 0.7, wantQuality: 3},
		{name: "範囲外は丸められる", creativity: 5, quality: -2, wantCreativity: 1.0, wantQuality: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &MockTextGenerator{response: "T"}
			image := &MockImageGenerator{response: domain.GeneratedImage{Data: []byte("I")}}
			service := newTestService(t, text, image)

			params := domain.NewGenerationParameters(tt.creativity, tt.quality)
			if _, err := service.Generate(context.Background(), newTestRequest(t, "p", params)); err != nil {
				t.Fatalf("予期しないエラーが発生しました: %v", err)
			}

			if text.calls[0].Creativity != tt.wantCreativity {
				t.Errorf("期待されるCreativity: %v, 実際: %v", tt.wantCreativity, text.calls[0].Creativity)
			}
			if image.calls[0].Quality != tt.wantQuality {
				t.Errorf("期待されるQuality: %d, 実際: %d", tt.wantQuality, image.calls[0].Quality)
			}
		})
	}
}

func TestGenerationService_Generate_TextStageFailure(t *testing.T) {
	cause := errors.New("503 Service Unavailable")
	text := &MockTextGenerator{error: cause}
	image := &MockImageGenerator{}
	service := newTestService(t, text, image)

	result, err := service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters()))
	if result != nil {
		t.Error("失敗時に結果が返されました")
	}

	var remoteErr *domain.RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("RemoteServiceErrorが期待されましたが、実際: %v", err)
	}
	if remoteErr.Stage != domain.StageText {
		t.Errorf("期待されるStage: %s, 実際: %s", domain.StageText, remoteErr.Stage)
	}
	if !errors.Is(err, cause) {
		t.Error("元のエラーがUnwrapで辿れません")
	}
	if len(image.calls) != 0 {
		t.Errorf("ステージ1失敗時に画像生成が呼び出されました: %d回", len(image.calls))
	}
}

func TestGenerationService_Generate_ImageStageFailurePreservesText(t *testing.T) {
	text := &MockTextGenerator{response: "T"}
	image := &MockImageGenerator{error: errors.New("rate limited")}
	service := newTestService(t, text, image)

	_, err := service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters()))

	var remoteErr *domain.RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("RemoteServiceErrorが期待されましたが、実際: %v", err)
	}
	if remoteErr.Stage != domain.StageImage {
		t.Errorf("期待されるStage: %s, 実際: %s", domain.StageImage, remoteErr.Stage)
	}
	if remoteErr.PartialText != "T" {
		t.Errorf("期待されるPartialText: T, 実際: %s", remoteErr.PartialText)
	}
}

func TestGenerationService_Generate_MalformedResponses(t *testing.T) {
	tests := []struct {
		name        string
		text        *MockTextGenerator
		image       *MockImageGenerator
		wantStage   domain.Stage
		wantPartial string
	}{
		{
			name:      "ステージ1の応答形式が不正",
			text:      &MockTextGenerator{error: domain.ErrMalformedResponse},
			image:     &MockImageGenerator{},
			wantStage: domain.StageText,
		},
		{
			name:        "ステージ2の応答形式が不正",
			text:        &MockTextGenerator{response: "T"},
			image:       &MockImageGenerator{error: domain.ErrMalformedResponse},
			wantStage:   domain.StageImage,
			wantPartial: "T",
		},
		{
			name:        "ステージ2が画像を返さない",
			text:        &MockTextGenerator{response: "T"},
			image:       &MockImageGenerator{response: domain.GeneratedImage{}},
			wantStage:   domain.StageImage,
			wantPartial: "T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, tt.text, tt.image)

			_, err := service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters()))

			var renderErr *domain.RenderError
			if !errors.As(err, &renderErr) {
				t.Fatalf("RenderErrorが期待されましたが、実際: %v", err)
			}
			if renderErr.Stage != tt.wantStage {
				t.Errorf("期待されるStage: %s, 実際: %s", tt.wantStage, renderErr.Stage)
			}
			if renderErr.PartialText != tt.wantPartial {
				t.Errorf("期待されるPartialText: %s, 実際: %s", tt.wantPartial, renderErr.PartialText)
			}
		})
	}
}

func TestGenerationService_Generate_RecoversPanic(t *testing.T) {
	text := &MockTextGenerator{panicMsg: "nil map"}
	image := &MockImageGenerator{}
	service := newTestService(t, text, image)

	_, err := service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters()))

	var remoteErr *domain.RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("RemoteServiceErrorが期待されましたが、実際: %v", err)
	}
	if remoteErr.Stage != domain.StageText {
		t.Errorf("期待されるStage: %s, 実際: %s", domain.StageText, remoteErr.Stage)
	}

	// パニック後もサービスは再利用できる
	text.panicMsg = ""
	text.response = "T"
	image.response = domain.GeneratedImage{Data: []byte("I")}
	if _, err := service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters())); err != nil {
		t.Errorf("パニック後の再実行に失敗しました: %v", err)
	}
}

func TestGenerationService_Generate_MissingImage(t *testing.T) {
	text := &MockTextGenerator{}
	image := &MockImageGenerator{}
	service := newTestService(t, text, image)

	_, err := service.Generate(context.Background(), domain.GenerationRequest{})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("ValidationErrorが期待されましたが、実際: %v", err)
	}
	if len(text.calls) != 0 || len(image.calls) != 0 {
		t.Error("検証エラー時に生成モデルが呼び出されました")
	}
}

func TestGenerationService_Generate_Timeout(t *testing.T) {
	text := &blockingTextGenerator{}
	service, err := NewGenerationService(text, &MockImageGenerator{}, &config.GenerationConfig{RequestTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("サービスの作成に失敗: %v", err)
	}

	_, err = service.Generate(context.Background(), newTestRequest(t, "p", domain.DefaultGenerationParameters()))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("タイムアウトエラーが期待されましたが、実際: %v", err)
	}
}

// blockingTextGenerator は、コンテキストが終了するまで応答しないクライアントです
type blockingTextGenerator struct{}

func (b *blockingTextGenerator) GenerateText(ctx context.Context, input TextGenerationInput) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingTextGenerator) ModelName() string {
	return "blocking"
}
