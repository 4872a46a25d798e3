// Package emotion classifies the emotional state of user messages and
// turns the result into response-style guidance for the prompt.
package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/llm"
	"github.com/maumtalk/counselgo/pkg/types"
)

const classifyPromptTemplate = `다음 메시지에서 사용자의 감정 상태를 분석해주세요.

메시지: "%s"

다음 형식의 JSON으로만 응답하세요:
{
  "primary_emotion": "주요 감정 (한국어)",
  "emotion_category": "positive|negative|neutral",
  "intensity": 0.0-1.0 (감정 강도),
  "secondary_emotions": ["부차적 감정들 (한국어)"],
  "keywords": ["감정을 나타내는 키워드들"],
  "response_style": "empathetic|supportive|calming|encouraging|balanced"
}

감정 카테고리:
- positive: 기쁨, 감사, 만족, 흥분, 평온
- negative: 슬픔, 분노, 불안, 스트레스, 우울, 외로움
- neutral: 중립적, 호기심, 일반적

응답 스타일 선택 가이드:
- empathetic: 슬픔, 외로움 → 공감과 위로
- supportive: 불안, 스트레스 → 지지와 격려
- calming: 분노, 초조함 → 진정과 이해
- encouraging: 기쁨, 만족 → 긍정 강화
- balanced: 중립, 호기심 → 균형잡힌 대화

중요:
- 반드시 유효한 JSON 형식으로만 응답
- 명확한 감정이 없으면 neutral 선택
- intensity는 메시지에서 드러나는 감정의 강도 (0.0=없음, 1.0=매우 강함)`

// Classifier analyzes messages with the configured LLM. Classification is
// advisory: every failure path degrades to the neutral result so a broken
// model never blocks a turn.
type Classifier struct {
	llm    interfaces.LLM
	cfg    *config.PipelineConfig
	logger interfaces.Logger
}

// NewClassifier creates a new emotion classifier
func NewClassifier(llmClient interfaces.LLM, cfg *config.PipelineConfig, logger interfaces.Logger) *Classifier {
	return &Classifier{
		llm:    llmClient,
		cfg:    cfg,
		logger: logger,
	}
}

// rawEmotion mirrors the JSON the model is asked to produce
type rawEmotion struct {
	PrimaryEmotion    string   `json:"primary_emotion"`
	EmotionCategory   string   `json:"emotion_category"`
	Intensity         float64  `json:"intensity"`
	SecondaryEmotions []string `json:"secondary_emotions"`
	Keywords          []string `json:"keywords"`
	ResponseStyle     string   `json:"response_style"`
}

// Classify analyzes one message. Never returns an error: short messages
// and every model failure yield the neutral classification.
func (c *Classifier) Classify(ctx context.Context, message string) types.EmotionResult {
	if utf8.RuneCountInString(strings.TrimSpace(message)) < c.cfg.EmotionMinMessageChars {
		return types.NeutralEmotion()
	}

	prompt := fmt.Sprintf(classifyPromptTemplate, message)
	raw, err := c.llm.Generate(ctx, types.MessageList{
		{Role: types.MessageRoleUser, Content: prompt},
	})
	if err != nil {
		c.logger.Warn("emotion classification failed, using neutral", map[string]interface{}{
			"error": err.Error(),
		})
		return types.NeutralEmotion()
	}

	var parsed rawEmotion
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		c.logger.Warn("emotion classification returned malformed JSON, using neutral", map[string]interface{}{
			"error": err.Error(),
		})
		return types.NeutralEmotion()
	}

	return c.sanitize(parsed)
}

// sanitize fills defaults and clamps out-of-range fields so the rest of
// the pipeline can trust the result shape
func (c *Classifier) sanitize(raw rawEmotion) types.EmotionResult {
	result := types.EmotionResult{
		PrimaryEmotion:    raw.PrimaryEmotion,
		Category:          types.EmotionCategory(raw.EmotionCategory),
		Intensity:         raw.Intensity,
		SecondaryEmotions: raw.SecondaryEmotions,
		Keywords:          raw.Keywords,
		ResponseStyle:     types.ResponseStyle(raw.ResponseStyle),
	}

	if result.PrimaryEmotion == "" {
		result.PrimaryEmotion = "중립"
	}
	switch result.Category {
	case types.EmotionCategoryPositive, types.EmotionCategoryNegative, types.EmotionCategoryNeutral:
	default:
		result.Category = types.EmotionCategoryNeutral
	}
	if result.Intensity < 0 {
		result.Intensity = 0
	}
	if result.Intensity > 1 {
		result.Intensity = 1
	}
	switch result.ResponseStyle {
	case types.ResponseStyleEmpathetic, types.ResponseStyleSupportive,
		types.ResponseStyleCalming, types.ResponseStyleEncouraging,
		types.ResponseStyleBalanced:
	default:
		result.ResponseStyle = types.ResponseStyleBalanced
	}
	if result.SecondaryEmotions == nil {
		result.SecondaryEmotions = []string{}
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}

	return result
}

// FormatSummary renders a compact one-line description of the result,
// used in stored message metadata and operator views
func FormatSummary(result types.EmotionResult) string {
	emoji := map[types.EmotionCategory]string{
		types.EmotionCategoryPositive: "😊",
		types.EmotionCategoryNegative: "😔",
		types.EmotionCategoryNeutral:  "😐",
	}

	summary := fmt.Sprintf("%s %s", emoji[result.Category], result.PrimaryEmotion)
	if result.Intensity >= 0.7 {
		summary += " (강함)"
	} else if result.Intensity >= 0.4 {
		summary += " (중간)"
	}
	if len(result.SecondaryEmotions) > 0 {
		limit := len(result.SecondaryEmotions)
		if limit > 2 {
			limit = 2
		}
		summary += " + " + strings.Join(result.SecondaryEmotions[:limit], ", ")
	}
	return summary
}
