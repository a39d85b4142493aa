package domain

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// 創造性（temperature）の範囲と既定値
const (
	MinCreativity     = 0.1
	MaxCreativity     = 1.0
	DefaultCreativity = 0.7
	CreativityStep    = 0.05
)

// 画像品質（推論ステップ数）の範囲と既定値
const (
	MinImageQuality     = 1
	MaxImageQuality     = 4
	DefaultImageQuality = 3
)

// imageQualityLabels は各品質段階の表示名です
var imageQualityLabels = map[int]string{
	1: "速度優先",
	2: "やや速い",
	3: "標準",
	4: "高品質",
}

// GenerationParameters は、パラメータパネルから読み取る生成パラメータです
// フィールドは非公開で、コンストラクタが範囲内に丸めるため範囲外の値は作成できません
type GenerationParameters struct {
	creativity   float64
	imageQuality int
}

// NewGenerationParameters は、値を範囲内に丸めてGenerationParametersを作成します
func NewGenerationParameters(creativity float64, imageQuality int) GenerationParameters {
	return GenerationParameters{
		creativity:   lo.Clamp(creativity, MinCreativity, MaxCreativity),
		imageQuality: lo.Clamp(imageQuality, MinImageQuality, MaxImageQuality),
	}
}

// DefaultGenerationParameters は、デフォルトの生成パラメータを返します
func DefaultGenerationParameters() GenerationParameters {
	return GenerationParameters{
		creativity:   DefaultCreativity,
		imageQuality: DefaultImageQuality,
	}
}

// ParseGenerationParameters は、フォーム等から受け取った文字列をパラメータに変換します
// 空文字はデフォルト値、数値として解釈できない値はValidationErrorになります
func ParseGenerationParameters(creativity, imageQuality string) (GenerationParameters, error) {
	params := DefaultGenerationParameters()

	c := params.creativity
	if v := strings.TrimSpace(creativity); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return GenerationParameters{}, NewValidationError("creativity", ErrInvalidParameter)
		}
		c = parsed
	}

	q := params.imageQuality
	if v := strings.TrimSpace(imageQuality); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return GenerationParameters{}, NewValidationError("quality", ErrInvalidParameter)
		}
		q = parsed
	}

	return NewGenerationParameters(c, q), nil
}

// Creativity は創造性（temperature）を返します
func (p GenerationParameters) Creativity() float64 {
	return p.creativity
}

// ImageQuality は画像品質（推論ステップ数）を返します
func (p GenerationParameters) ImageQuality() int {
	return p.imageQuality
}

// IsZero はゼロ値（未初期化）かどうかを返します
func (p GenerationParameters) IsZero() bool {
	return p.creativity == 0 && p.imageQuality == 0
}

// ImageQualityLevel は、品質段階の選択肢を表します
type ImageQualityLevel struct {
	Value       int
	DisplayName string
}

// AllImageQualityLevels はすべての品質段階を返します
func AllImageQualityLevels() []ImageQualityLevel {
	levels := make([]ImageQualityLevel, 0, MaxImageQuality-MinImageQuality+1)
	for q := MinImageQuality; q <= MaxImageQuality; q++ {
		levels = append(levels, ImageQualityLevel{Value: q, DisplayName: imageQualityLabels[q]})
	}
	return levels
}
