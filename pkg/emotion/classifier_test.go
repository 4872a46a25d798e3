package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/logger"
	"github.com/maumtalk/counselgo/pkg/types"
)

// stubLLM returns a canned response or error
type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(ctx context.Context, messages types.MessageList) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error {
	return s.err
}

func (s *stubLLM) GetModelInfo() map[string]interface{} { return nil }
func (s *stubLLM) Close() error                         { return nil }

func newTestClassifier(llm *stubLLM) *Classifier {
	return NewClassifier(llm, config.NewPipelineConfig(), logger.NewTestLogger())
}

func TestClassifyShortMessageSkipsModel(t *testing.T) {
	// The stub would fail if called; short input must not reach it
	classifier := newTestClassifier(&stubLLM{err: errors.New("must not be called")})

	result := classifier.Classify(context.Background(), "ㅎㅎ")

	assert.Equal(t, "중립", result.PrimaryEmotion)
	assert.Equal(t, types.EmotionCategoryNeutral, result.Category)
	assert.Equal(t, 0.0, result.Intensity)
	assert.Equal(t, types.ResponseStyleBalanced, result.ResponseStyle)
}

func TestClassifyParsesModelOutput(t *testing.T) {
	classifier := newTestClassifier(&stubLLM{response: `{
		"primary_emotion": "슬픔",
		"emotion_category": "negative",
		"intensity": 0.8,
		"secondary_emotions": ["불안", "외로움"],
		"keywords": ["힘들다"],
		"response_style": "empathetic"
	}`})

	result := classifier.Classify(context.Background(), "요즘 너무 힘들어요")

	assert.Equal(t, "슬픔", result.PrimaryEmotion)
	assert.Equal(t, types.EmotionCategoryNegative, result.Category)
	assert.Equal(t, 0.8, result.Intensity)
	assert.Equal(t, []string{"불안", "외로움"}, result.SecondaryEmotions)
	assert.Equal(t, types.ResponseStyleEmpathetic, result.ResponseStyle)
}

func TestClassifyStripsCodeFence(t *testing.T) {
	classifier := newTestClassifier(&stubLLM{response: "```json\n" + `{
		"primary_emotion": "기쁨",
		"emotion_category": "positive",
		"intensity": 0.6,
		"response_style": "encouraging"
	}` + "\n```"})

	result := classifier.Classify(context.Background(), "오늘 승진했어요!")

	assert.Equal(t, "기쁨", result.PrimaryEmotion)
	assert.Equal(t, types.EmotionCategoryPositive, result.Category)
}

func TestClassifyFallsBackToNeutral(t *testing.T) {
	tests := []struct {
		name string
		stub *stubLLM
	}{
		{"model error", &stubLLM{err: errors.New("api down")}},
		{"malformed json", &stubLLM{response: "죄송하지만 분석할 수 없습니다"}},
		{"truncated json", &stubLLM{response: `{"primary_emotion": "슬픔",`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := newTestClassifier(tt.stub)
			result := classifier.Classify(context.Background(), "요즘 너무 힘들어요")
			assert.Equal(t, types.NeutralEmotion(), result)
		})
	}
}

func TestClassifySanitizesBadFields(t *testing.T) {
	classifier := newTestClassifier(&stubLLM{response: `{
		"primary_emotion": "",
		"emotion_category": "unknown",
		"intensity": 3.5,
		"response_style": "aggressive"
	}`})

	result := classifier.Classify(context.Background(), "요즘 너무 힘들어요")

	assert.Equal(t, "중립", result.PrimaryEmotion)
	assert.Equal(t, types.EmotionCategoryNeutral, result.Category)
	assert.Equal(t, 1.0, result.Intensity)
	assert.Equal(t, types.ResponseStyleBalanced, result.ResponseStyle)
	assert.NotNil(t, result.SecondaryEmotions)
	assert.NotNil(t, result.Keywords)
}

func TestGuidance(t *testing.T) {
	cfg := config.NewPipelineConfig()

	t.Run("weak emotion gives no guidance", func(t *testing.T) {
		result := types.EmotionResult{
			PrimaryEmotion: "슬픔",
			Category:       types.EmotionCategoryNegative,
			Intensity:      0.2,
			ResponseStyle:  types.ResponseStyleEmpathetic,
		}
		assert.Empty(t, Guidance(result, cfg))
	})

	t.Run("empathetic style names the emotion", func(t *testing.T) {
		result := types.EmotionResult{
			PrimaryEmotion: "슬픔",
			Category:       types.EmotionCategoryNegative,
			Intensity:      0.5,
			ResponseStyle:  types.ResponseStyleEmpathetic,
		}
		guidance := Guidance(result, cfg)
		assert.Contains(t, guidance, "슬픔")
		assert.Contains(t, guidance, "공감")
		assert.NotContains(t, guidance, "⚠️")
	})

	t.Run("intense negative emotion adds caution", func(t *testing.T) {
		result := types.EmotionResult{
			PrimaryEmotion: "우울",
			Category:       types.EmotionCategoryNegative,
			Intensity:      0.9,
			ResponseStyle:  types.ResponseStyleEmpathetic,
		}
		guidance := Guidance(result, cfg)
		assert.Contains(t, guidance, "⚠️")
		assert.Contains(t, guidance, "우울")
	})

	t.Run("balanced style with intense negative still cautions", func(t *testing.T) {
		result := types.EmotionResult{
			PrimaryEmotion: "분노",
			Category:       types.EmotionCategoryNegative,
			Intensity:      0.8,
			ResponseStyle:  types.ResponseStyleBalanced,
		}
		guidance := Guidance(result, cfg)
		assert.Contains(t, guidance, "⚠️")
		assert.NotContains(t, guidance, "응답 지침")
	})
}

func TestFormatSummary(t *testing.T) {
	result := types.EmotionResult{
		PrimaryEmotion:    "슬픔",
		Category:          types.EmotionCategoryNegative,
		Intensity:         0.8,
		SecondaryEmotions: []string{"불안", "외로움", "피로"},
	}

	summary := FormatSummary(result)

	assert.Contains(t, summary, "슬픔")
	assert.Contains(t, summary, "(강함)")
	assert.Contains(t, summary, "불안, 외로움")
	assert.NotContains(t, summary, "피로")
}
