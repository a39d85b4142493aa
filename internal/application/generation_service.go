package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// GenerationService は、1回の送信操作に対してテキスト生成と画像生成を順番に実行するアプリケーションサービスです
type GenerationService struct {
	textGenerator  TextGenerator
	imageGenerator ImageGenerator
	config         *config.GenerationConfig
	now            func() time.Time
}

// NewGenerationService は新しいGenerationServiceインスタンスを作成します
func NewGenerationService(textGenerator TextGenerator, imageGenerator ImageGenerator, generationConfig *config.GenerationConfig) (*GenerationService, error) {
	if textGenerator == nil || imageGenerator == nil {
		return nil, fmt.Errorf("生成モデルのクライアントが指定されていません")
	}
	if generationConfig == nil {
		generationConfig = config.DefaultGenerationConfig()
	}

	return &GenerationService{
		textGenerator:  textGenerator,
		imageGenerator: imageGenerator,
		config:         generationConfig,
		now:            time.Now,
	}, nil
}

// ModelNames は、テキストモデルと画像モデルの名前を返します
func (s *GenerationService) ModelNames() (string, string) {
	return s.textGenerator.ModelName(), s.imageGenerator.ModelName()
}

// Generate は、アップロード画像とプロンプトからテキストと画像を生成します
// ステージ1が失敗した場合、ステージ2は呼び出されません
func (s *GenerationService) Generate(ctx context.Context, request domain.GenerationRequest) (*domain.GenerationResult, error) {
	if request.Image().IsEmpty() {
		return nil, domain.NewValidationError("image", domain.ErrImageRequired)
	}

	requestID := uuid.NewString()
	log.Printf("[%s] 生成リクエストを処理中: %s", requestID, request.String())

	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	parameters := request.Parameters()
	prompt := request.Prompt().OrDefault(domain.DefaultInstruction)

	// 1. 画像とプロンプトからテキストを生成
	log.Printf("[%s] ステージ1を開始: モデル=%s", requestID, s.textGenerator.ModelName())
	started := s.now()
	rawText, err := s.callTextGenerator(ctx, TextGenerationInput{
		Image:      request.Image(),
		Prompt:     prompt,
		Creativity: parameters.Creativity(),
	})
	if err != nil {
		log.Printf("[%s] ステージ1に失敗: %v", requestID, err)
		return nil, stageError(ctx, domain.StageText, "", err)
	}
	text := domain.NewPrompt(rawText)
	log.Printf("[%s] ステージ1が完了: %d文字, %v", requestID, len([]rune(text.Content())), s.now().Sub(started))

	// 2. 生成テキストから画像を生成（テキストが空の場合は入力プロンプトを使用）
	imagePrompt := lo.Ternary(text.IsEmpty(), prompt, text)
	log.Printf("[%s] ステージ2を開始: モデル=%s, ステップ数=%d", requestID, s.imageGenerator.ModelName(), parameters.ImageQuality())
	started = s.now()
	image, err := s.callImageGenerator(ctx, ImageGenerationInput{
		Prompt:  imagePrompt,
		Quality: parameters.ImageQuality(),
	})
	if err != nil {
		log.Printf("[%s] ステージ2に失敗: %v", requestID, err)
		return nil, stageError(ctx, domain.StageImage, text.Content(), err)
	}
	if image.IsEmpty() {
		log.Printf("[%s] ステージ2の応答に画像が含まれていません", requestID)
		return nil, &domain.RenderError{Stage: domain.StageImage, PartialText: text.Content(), Err: domain.ErrMalformedResponse}
	}
	log.Printf("[%s] ステージ2が完了: %d bytes, %v", requestID, len(image.Data), s.now().Sub(started))

	return &domain.GenerationResult{
		Text:        text.Content(),
		Image:       image,
		TextModel:   s.textGenerator.ModelName(),
		ImageModel:  s.imageGenerator.ModelName(),
		ImagePrompt: imagePrompt.Content(),
		GeneratedAt: s.now(),
	}, nil
}

func (s *GenerationService) callTextGenerator(ctx context.Context, input TextGenerationInput) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("テキスト生成中に予期しないパニックが発生しました: %v", r)
		}
	}()
	return s.textGenerator.GenerateText(ctx, input)
}

func (s *GenerationService) callImageGenerator(ctx context.Context, input ImageGenerationInput) (image domain.GeneratedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("画像生成中に予期しないパニックが発生しました: %v", r)
		}
	}()
	return s.imageGenerator.GenerateImage(ctx, input)
}

// stageError は、生成モデルのエラーをステージ付きのドメインエラーに変換します
func stageError(ctx context.Context, stage domain.Stage, partialText string, err error) error {
	if errors.Is(err, domain.ErrMalformedResponse) {
		return &domain.RenderError{Stage: stage, PartialText: partialText, Err: err}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("タイムアウトしました: %w: %w", context.DeadlineExceeded, err)
	}
	return &domain.RemoteServiceError{Stage: stage, PartialText: partialText, Err: err}
}
