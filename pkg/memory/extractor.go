// Package memory extracts long-term knowledge about a user from
// conversation windows and renders it back into prompt context.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/llm"
	"github.com/maumtalk/counselgo/pkg/types"
)

const extractPromptTemplate = `다음 대화에서 사용자에 대한 중요한 정보를 추출해주세요.

대화:
%s

다음 카테고리별로 정보를 추출하고 JSON 형식으로 반환해주세요:

1. **사실 정보 (facts)**: 사용자의 객관적 정보
   - 직업, 관계, 생활 상황, 구체적 사건 등
   - 예: {"fact": "소프트웨어 개발자로 일하고 있음", "confidence": 0.9}

2. **선호도 (preferences)**: 사용자의 취향이나 선호
   - 좋아하는 것, 싫어하는 것, 관심사 등
   - 예: {"preference": "아침 운동을 선호함", "confidence": 0.8}

3. **감정 패턴 (emotion_patterns)**: 반복되는 감정 상태나 트리거
   - 스트레스 요인, 기분 변화 패턴 등
   - 예: {"pattern": "업무 마감 전에 불안감을 느낌", "confidence": 0.85}

4. **대화 스타일 (tone_preferences)**: 사용자가 선호하는 대화 방식
   - 격식, 응답 길이, 스타일 등
   - 예: {"formality": "친근함", "warmth": "높음", "response_length": "간결함", "style": "격려적", "confidence": 0.9}

반환 형식:
{
  "facts": [
    {"fact": "내용", "confidence": 0.0-1.0}
  ],
  "preferences": [
    {"preference": "내용", "confidence": 0.0-1.0}
  ],
  "emotion_patterns": [
    {"pattern": "내용", "confidence": 0.0-1.0}
  ],
  "tone_preferences": {
    "formality": "격식 수준",
    "warmth": "따뜻함 수준",
    "response_length": "선호 응답 길이",
    "style": "선호 스타일",
    "confidence": 0.0-1.0
  }
}

중요:
- 명확하게 언급된 정보만 추출하세요
- 추측이나 가정은 하지 마세요
- 확실한 정보는 confidence를 높게, 불확실한 정보는 낮게 설정하세요
- 정보가 없으면 빈 배열을 반환하세요
- 반드시 유효한 JSON 형식으로만 응답하세요`

// defaultRecordConfidence is assigned when the model omits a score
const defaultRecordConfidence = 0.7

// Extractor mines MemoryRecords from conversation windows
type Extractor struct {
	llm      interfaces.LLM
	messages interfaces.MessageStore
	store    interfaces.MemoryStore
	cfg      *config.PipelineConfig
	logger   interfaces.Logger
}

// NewExtractor creates a new memory extractor
func NewExtractor(llmClient interfaces.LLM, messages interfaces.MessageStore, store interfaces.MemoryStore, cfg *config.PipelineConfig, logger interfaces.Logger) *Extractor {
	return &Extractor{
		llm:      llmClient,
		messages: messages,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

type extractedFact struct {
	Fact       string  `json:"fact"`
	Confidence float64 `json:"confidence"`
}

type extractedPreference struct {
	Preference string  `json:"preference"`
	Confidence float64 `json:"confidence"`
}

type extractedPattern struct {
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
}

type extractedTone struct {
	Formality      string  `json:"formality"`
	Warmth         string  `json:"warmth"`
	ResponseLength string  `json:"response_length"`
	Style          string  `json:"style"`
	Confidence     float64 `json:"confidence"`
}

type extraction struct {
	Facts           []extractedFact       `json:"facts"`
	Preferences     []extractedPreference `json:"preferences"`
	EmotionPatterns []extractedPattern    `json:"emotion_patterns"`
	TonePreferences *extractedTone        `json:"tone_preferences"`
}

// ShouldExtract reports whether this turn triggers extraction: every
// MemoryExtractionInterval-th message of a conversation.
func (e *Extractor) ShouldExtract(ctx context.Context, conversationID string) (bool, error) {
	count, err := e.messages.MessageCount(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return count > 0 && count%e.cfg.MemoryExtractionInterval == 0, nil
}

// ExtractFromWindow runs extraction over an explicit message window and
// appends the resulting records. Windows below the minimum are skipped;
// extraction failures are logged and yield no records, never an error
// that could surface into a turn.
func (e *Extractor) ExtractFromWindow(ctx context.Context, msgs []*types.Message, userID, personaID, conversationID string) []*types.MemoryRecord {
	if len(msgs) < e.cfg.MemoryMinWindow {
		return nil
	}

	var sb strings.Builder
	for _, msg := range msgs {
		role := "AI"
		if msg.Role == types.MessageRoleUser {
			role = "사용자"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}

	raw, err := e.llm.Generate(ctx, types.MessageList{
		{Role: types.MessageRoleUser, Content: fmt.Sprintf(extractPromptTemplate, sb.String())},
	})
	if err != nil {
		e.logger.Warn("memory extraction call failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return nil
	}

	var parsed extraction
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		e.logger.Warn("memory extraction returned malformed JSON", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return nil
	}

	records := e.toRecords(parsed, userID, personaID, conversationID)
	if len(records) == 0 {
		return nil
	}

	if err := e.store.AppendRecords(ctx, records); err != nil {
		e.logger.Error("failed to persist extracted memories", err, map[string]interface{}{
			"conversation_id": conversationID,
			"count":           len(records),
		})
		return nil
	}

	e.logger.Info("extracted user memories", map[string]interface{}{
		"conversation_id": conversationID,
		"count":           len(records),
	})
	return records
}

// Extract pulls the recent window of a conversation and extracts from it
func (e *Extractor) Extract(ctx context.Context, userID, personaID, conversationID string) []*types.MemoryRecord {
	msgs, err := e.messages.RecentMessages(ctx, conversationID, e.cfg.MemoryWindowSize)
	if err != nil {
		e.logger.Warn("failed to load extraction window", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return nil
	}
	return e.ExtractFromWindow(ctx, msgs, userID, personaID, conversationID)
}

func (e *Extractor) toRecords(parsed extraction, userID, personaID, conversationID string) []*types.MemoryRecord {
	now := time.Now().UTC()
	newRecord := func(kind types.MemoryKind, content map[string]string, confidence float64) *types.MemoryRecord {
		if confidence <= 0 {
			confidence = defaultRecordConfidence
		}
		return &types.MemoryRecord{
			ID:                   uuid.NewString(),
			UserID:               userID,
			PersonaID:            personaID,
			Kind:                 kind,
			Content:              content,
			Confidence:           confidence,
			SourceConversationID: conversationID,
			CreatedAt:            now,
		}
	}

	var records []*types.MemoryRecord
	for _, f := range parsed.Facts {
		if f.Fact == "" {
			continue
		}
		records = append(records, newRecord(types.MemoryKindFact, map[string]string{"fact": f.Fact}, f.Confidence))
	}
	for _, p := range parsed.Preferences {
		if p.Preference == "" {
			continue
		}
		records = append(records, newRecord(types.MemoryKindPreference, map[string]string{"preference": p.Preference}, p.Confidence))
	}
	for _, p := range parsed.EmotionPatterns {
		if p.Pattern == "" {
			continue
		}
		records = append(records, newRecord(types.MemoryKindEmotionPattern, map[string]string{"pattern": p.Pattern}, p.Confidence))
	}
	if tone := parsed.TonePreferences; tone != nil {
		content := map[string]string{}
		if tone.Formality != "" {
			content["formality"] = tone.Formality
		}
		if tone.Warmth != "" {
			content["warmth"] = tone.Warmth
		}
		if tone.ResponseLength != "" {
			content["response_length"] = tone.ResponseLength
		}
		if tone.Style != "" {
			content["style"] = tone.Style
		}
		if len(content) > 0 {
			records = append(records, newRecord(types.MemoryKindTonePreference, content, tone.Confidence))
		}
	}
	return records
}
