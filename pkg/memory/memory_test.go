package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/logger"
	"github.com/maumtalk/counselgo/pkg/types"
)

type stubLLM struct {
	response string
	err      error
	called   bool
}

func (s *stubLLM) Generate(ctx context.Context, messages types.MessageList) (string, error) {
	s.called = true
	return s.response, s.err
}

func (s *stubLLM) GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error {
	return s.err
}

func (s *stubLLM) GetModelInfo() map[string]interface{} { return nil }
func (s *stubLLM) Close() error                         { return nil }

type fakeMemoryStore struct {
	records   []*types.MemoryRecord
	appendErr error
}

func (f *fakeMemoryStore) AppendRecords(ctx context.Context, records []*types.MemoryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeMemoryStore) Records(ctx context.Context, userID, personaID string, minConfidence float64) ([]*types.MemoryRecord, error) {
	var out []*types.MemoryRecord
	for _, rec := range f.records {
		if rec.Confidence >= minConfidence {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeMessageStore struct {
	count    int
	recent   []*types.Message
	countErr error
}

func (f *fakeMessageStore) AppendMessage(ctx context.Context, msg *types.Message) error { return nil }

func (f *fakeMessageStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*types.Message, error) {
	return f.recent, nil
}

func (f *fakeMessageStore) MessageCount(ctx context.Context, conversationID string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeMessageStore) MessageByID(ctx context.Context, id string) (*types.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) MessagesAfter(ctx context.Context, conversationID string, offset, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) RecentConversations(ctx context.Context, userID, personaID, excludeID string, since time.Time, limit int) ([]*types.Conversation, error) {
	return nil, nil
}

func (f *fakeMessageStore) ConversationsSince(ctx context.Context, userID, personaID string, t time.Time) (int, error) {
	return 0, nil
}

func (f *fakeMessageStore) TouchConversation(ctx context.Context, conversationID, firstMessage string) error {
	return nil
}

func fourTurnWindow() []*types.Message {
	return []*types.Message{
		{Role: types.MessageRoleUser, Content: "저는 개발자로 일하고 있어요"},
		{Role: types.MessageRoleAssistant, Content: "개발 일은 어떠세요?"},
		{Role: types.MessageRoleUser, Content: "마감 전에는 늘 불안해요"},
		{Role: types.MessageRoleAssistant, Content: "마감 압박이 크시군요"},
	}
}

func TestShouldExtract(t *testing.T) {
	cfg := config.NewPipelineConfig()

	tests := []struct {
		name     string
		count    int
		expected bool
	}{
		{"empty conversation", 0, false},
		{"mid interval", 7, false},
		{"exact interval", 10, true},
		{"second interval", 20, true},
		{"just past interval", 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewExtractor(&stubLLM{}, &fakeMessageStore{count: tt.count}, &fakeMemoryStore{}, cfg, logger.NewTestLogger())
			got, err := extractor.ShouldExtract(context.Background(), "conv-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractFromWindow(t *testing.T) {
	cfg := config.NewPipelineConfig()

	t.Run("window below minimum is skipped", func(t *testing.T) {
		llm := &stubLLM{}
		extractor := NewExtractor(llm, &fakeMessageStore{}, &fakeMemoryStore{}, cfg, logger.NewTestLogger())

		records := extractor.ExtractFromWindow(context.Background(), fourTurnWindow()[:3], "u1", "p1", "c1")

		assert.Nil(t, records)
		assert.False(t, llm.called)
	})

	t.Run("parses all four categories", func(t *testing.T) {
		llm := &stubLLM{response: `{
			"facts": [{"fact": "소프트웨어 개발자로 일하고 있음", "confidence": 0.9}],
			"preferences": [{"preference": "아침 운동을 선호함", "confidence": 0.8}],
			"emotion_patterns": [{"pattern": "업무 마감 전에 불안감을 느낌", "confidence": 0.85}],
			"tone_preferences": {"formality": "친근함", "warmth": "높음", "response_length": "간결함", "style": "격려적", "confidence": 0.9}
		}`}
		store := &fakeMemoryStore{}
		extractor := NewExtractor(llm, &fakeMessageStore{}, store, cfg, logger.NewTestLogger())

		records := extractor.ExtractFromWindow(context.Background(), fourTurnWindow(), "u1", "p1", "c1")

		require.Len(t, records, 4)
		assert.Len(t, store.records, 4)

		kinds := map[types.MemoryKind]bool{}
		for _, rec := range records {
			kinds[rec.Kind] = true
			assert.Equal(t, "u1", rec.UserID)
			assert.Equal(t, "p1", rec.PersonaID)
			assert.Equal(t, "c1", rec.SourceConversationID)
			assert.NotEmpty(t, rec.ID)
		}
		assert.True(t, kinds[types.MemoryKindFact])
		assert.True(t, kinds[types.MemoryKindPreference])
		assert.True(t, kinds[types.MemoryKindEmotionPattern])
		assert.True(t, kinds[types.MemoryKindTonePreference])
	})

	t.Run("missing confidence gets the default", func(t *testing.T) {
		llm := &stubLLM{response: `{"facts": [{"fact": "대학생임"}]}`}
		extractor := NewExtractor(llm, &fakeMessageStore{}, &fakeMemoryStore{}, cfg, logger.NewTestLogger())

		records := extractor.ExtractFromWindow(context.Background(), fourTurnWindow(), "u1", "p1", "c1")

		require.Len(t, records, 1)
		assert.Equal(t, 0.7, records[0].Confidence)
	})

	t.Run("model failure yields no records", func(t *testing.T) {
		llm := &stubLLM{err: errors.New("api down")}
		extractor := NewExtractor(llm, &fakeMessageStore{}, &fakeMemoryStore{}, cfg, logger.NewTestLogger())

		assert.Nil(t, extractor.ExtractFromWindow(context.Background(), fourTurnWindow(), "u1", "p1", "c1"))
	})

	t.Run("malformed JSON yields no records", func(t *testing.T) {
		llm := &stubLLM{response: "정보가 없습니다"}
		extractor := NewExtractor(llm, &fakeMessageStore{}, &fakeMemoryStore{}, cfg, logger.NewTestLogger())

		assert.Nil(t, extractor.ExtractFromWindow(context.Background(), fourTurnWindow(), "u1", "p1", "c1"))
	})

	t.Run("store failure yields no records", func(t *testing.T) {
		llm := &stubLLM{response: `{"facts": [{"fact": "대학생임", "confidence": 0.9}]}`}
		store := &fakeMemoryStore{appendErr: errors.New("db down")}
		extractor := NewExtractor(llm, &fakeMessageStore{}, store, cfg, logger.NewTestLogger())

		assert.Nil(t, extractor.ExtractFromWindow(context.Background(), fourTurnWindow(), "u1", "p1", "c1"))
	})
}

func TestCategorizeFiltersByConfidence(t *testing.T) {
	store := &fakeMemoryStore{records: []*types.MemoryRecord{
		{Kind: types.MemoryKindFact, Content: map[string]string{"fact": "개발자"}, Confidence: 0.9},
		{Kind: types.MemoryKindFact, Content: map[string]string{"fact": "추측된 정보"}, Confidence: 0.5},
		{Kind: types.MemoryKindPreference, Content: map[string]string{"preference": "아침 운동"}, Confidence: 0.8},
	}}
	accessor := NewAccessor(store, config.NewPipelineConfig())

	categorized, err := accessor.Categorize(context.Background(), "u1", "p1")
	require.NoError(t, err)

	assert.Len(t, categorized.Facts, 1)
	assert.Len(t, categorized.Preferences, 1)
	assert.Empty(t, categorized.EmotionPatterns)
}

func TestFormatContext(t *testing.T) {
	t.Run("empty memories give empty context", func(t *testing.T) {
		assert.Empty(t, FormatContext(&Categorized{}))
		assert.Empty(t, FormatContext(nil))
	})

	t.Run("renders all sections", func(t *testing.T) {
		categorized := &Categorized{
			Facts: []*types.MemoryRecord{
				{Content: map[string]string{"fact": "소프트웨어 개발자로 일하고 있음"}},
			},
			Preferences: []*types.MemoryRecord{
				{Content: map[string]string{"preference": "아침 운동을 선호함"}},
			},
			EmotionPatterns: []*types.MemoryRecord{
				{Content: map[string]string{"pattern": "업무 마감 전에 불안감을 느낌"}},
			},
			TonePreferences: []*types.MemoryRecord{
				{Content: map[string]string{"formality": "친근함", "warmth": "높음"}},
			},
		}

		text := FormatContext(categorized)

		assert.Contains(t, text, "**알려진 사실**")
		assert.Contains(t, text, "소프트웨어 개발자로 일하고 있음")
		assert.Contains(t, text, "**선호도**")
		assert.Contains(t, text, "**감정 패턴**")
		assert.Contains(t, text, "**대화 스타일 선호**")
		assert.Contains(t, text, "격식: 친근함")
		// Missing tone fields fall back to defaults
		assert.Contains(t, text, "응답 길이: 중간")
	})

	t.Run("caps facts at five", func(t *testing.T) {
		var facts []*types.MemoryRecord
		for i := 0; i < 8; i++ {
			facts = append(facts, &types.MemoryRecord{Content: map[string]string{"fact": "사실"}})
		}
		text := FormatContext(&Categorized{Facts: facts})
		assert.Equal(t, 5, strings.Count(text, "- 사실"))
	})
}
