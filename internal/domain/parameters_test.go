package domain

import (
	"errors"
	"testing"
)

func TestDefaultGenerationParameters(t *testing.T) {
	params := DefaultGenerationParameters()

	if params.Creativity() != 0.7 {
		t.Errorf("期待されるCreativity: 0.7, 実際: %f", params.Creativity())
	}
	if params.ImageQuality() != 3 {
		t.Errorf("期待されるImageQuality: 3, 実際: %d", params.ImageQuality())
	}
}

func TestNewGenerationParameters_Bounds(t *testing.T) {
	tests := []struct {
		name           string
		creativity     float64
		quality        int
		wantCreativity float64
		wantQuality    int
	}{
		{"最小値はそのまま", MinCreativity, MinImageQuality, MinCreativity, MinImageQuality},
		{"最大値はそのまま", MaxCreativity, MaxImageQuality, MaxCreativity, MaxImageQuality},
		{"範囲内の値はそのまま", 0.42, 2, 0.42, 2},
		{"下限未満は下限に丸める", 0.0, 0, MinCreativity, MinImageQuality},
		{"負の値は下限に丸める", -3.5, -1, MinCreativity, MinImageQuality},
		{"上限超過は上限に丸める", 1.5, 10, MaxCreativity, MaxImageQuality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := NewGenerationParameters(tt.creativity, tt.quality)
			if params.Creativity() != tt.wantCreativity {
				t.Errorf("期待されるCreativity: %f, 実際: %f", tt.wantCreativity, params.Creativity())
			}
			if params.ImageQuality() != tt.wantQuality {
				t.Errorf("期待されるImageQuality: %d, 実際: %d", tt.wantQuality, params.ImageQuality())
			}
		})
	}
}

func TestParseGenerationParameters(t *testing.T) {
	tests := []struct {
		name           string
		creativity     string
		quality        string
		wantErr        bool
		wantCreativity float64
		wantQuality    int
	}{
		{name: "空文字はデフォルト", wantCreativity: DefaultCreativity, wantQuality: DefaultImageQuality},
		{name: "有効な値", creativity: "0.3", quality: "4", wantCreativity: 0.3, wantQuality: 4},
		{name: "空白を含む値", creativity: " 1.0 ", quality: " 1 ", wantCreativity: 1.0, wantQuality: 1},
		{name: "範囲外は丸める", creativity: "9", quality: "0", wantCreativity: MaxCreativity, wantQuality: MinImageQuality},
		{name: "数値でない創造性", creativity: "abc", quality: "3", wantErr: true},
		{name: "整数でない品質", creativity: "0.5", quality: "2.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseGenerationParameters(tt.creativity, tt.quality)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("ErrInvalidParameterが期待されましたが、実際: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラーが発生しました: %v", err)
			}
			if params.Creativity() != tt.wantCreativity {
				t.Errorf("期待されるCreativity: %f, 実際: %f", tt.wantCreativity, params.Creativity())
			}
			if params.ImageQuality() != tt.wantQuality {
				t.Errorf("期待されるImageQuality: %d, 実際: %d", tt.wantQuality, params.ImageQuality())
			}
		})
	}
}

func TestAllImageQualityLevels(t *testing.T) {
	levels := AllImageQualityLevels()

	if len(levels) != MaxImageQuality-MinImageQuality+1 {
		t.Fatalf("期待される段階数: %d, 実際: %d", MaxImageQuality-MinImageQuality+1, len(levels))
	}
	if levels[0].Value != MinImageQuality || levels[len(levels)-1].Value != MaxImageQuality {
		t.Errorf("品質段階の範囲が正しくありません: %+v", levels)
	}
	for _, level := range levels {
		if level.DisplayName == "" {
			t.Errorf("品質段階 %d に表示名がありません", level.Value)
		}
	}
}
