package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/logger"
	"github.com/maumtalk/counselgo/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.StoreConfig{
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}
	s, err := NewStore(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedConversation(t *testing.T, s *Store, userID, personaID string) *types.Conversation {
	t.Helper()

	conv := &types.Conversation{UserID: userID, PersonaID: personaID}
	require.NoError(t, s.CreateConversation(context.Background(), conv))
	require.NotEmpty(t, conv.ID)
	return conv
}

func TestMessageAppendAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	for i := 0; i < 5; i++ {
		role := types.MessageRoleUser
		if i%2 == 1 {
			role = types.MessageRoleAssistant
		}
		msg := &types.Message{
			ConversationID: conv.ID,
			Role:           role,
			Content:        fmt.Sprintf("메시지 %d", i+1),
		}
		require.NoError(t, s.AppendMessage(ctx, msg))
		assert.NotEmpty(t, msg.ID)
	}

	count, err := s.MessageCount(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	recent, err := s.RecentMessages(ctx, conv.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "메시지 3", recent[0].Content)
	assert.Equal(t, "메시지 5", recent[2].Content)

	after, err := s.MessagesAfter(ctx, conv.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "메시지 3", after[0].Content)
	assert.Equal(t, "메시지 4", after[1].Content)

	byID, err := s.MessageByID(ctx, recent[0].ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, recent[0].Content, byID.Content)

	missing, err := s.MessageByID(ctx, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTouchConversationDerivesTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	require.NoError(t, s.TouchConversation(ctx, conv.ID, "요즘 잠이 안 와서 너무 힘들어요"))

	loaded, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "요즘 잠이 안 와서 너무 힘들어요", loaded.Title)

	// An existing title is never overwritten
	require.NoError(t, s.TouchConversation(ctx, conv.ID, "다른 메시지"))
	loaded, err = s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "요즘 잠이 안 와서 너무 힘들어요", loaded.Title)
}

func TestTouchConversationTruncatesLongTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	long := ""
	for i := 0; i < 40; i++ {
		long += "가"
	}
	require.NoError(t, s.TouchConversation(ctx, conv.ID, long))

	loaded, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, []rune(loaded.Title), titleMaxRunes+3)
}

func TestRecentConversationsExcludesCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedConversation(t, s, "u1", "p1")
	second := seedConversation(t, s, "u1", "p1")
	seedConversation(t, s, "u1", "p2")
	seedConversation(t, s, "u2", "p1")

	since := time.Now().UTC().AddDate(0, 0, -7)
	convs, err := s.RecentConversations(ctx, "u1", "p1", second.ID, since, 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, first.ID, convs[0].ID)

	count, err := s.ConversationsSince(ctx, "u1", "p1", since)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryRecordsConfidenceFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*types.MemoryRecord{
		{UserID: "u1", PersonaID: "p1", Kind: types.MemoryKindFact, Confidence: 0.9,
			Content: map[string]string{"content": "간호사로 근무"}},
		{UserID: "u1", PersonaID: "p1", Kind: types.MemoryKindPreference, Confidence: 0.5,
			Content: map[string]string{"content": "짧은 응답 선호"}},
		{UserID: "u1", PersonaID: "p1", Kind: types.MemoryKindFact, Confidence: 0.7,
			Content: map[string]string{"content": "3교대 근무"}},
		{UserID: "u2", PersonaID: "p1", Kind: types.MemoryKindFact, Confidence: 0.9,
			Content: map[string]string{"content": "다른 사용자"}},
	}
	require.NoError(t, s.AppendRecords(ctx, records))

	got, err := s.Records(ctx, "u1", "p1", 0.7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, "간호사로 근무", got[0].Content["content"])
	assert.Equal(t, 0.7, got[1].Confidence)
}

func TestSummariesInCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	first := &types.ConversationSummary{
		ConversationID: conv.ID,
		Text:           "첫 블록 요약",
		MessageCount:   20,
		CreatedAt:      time.Now().UTC().Add(-time.Minute),
	}
	second := &types.ConversationSummary{
		ConversationID: conv.ID,
		Text:           "둘째 블록 요약",
		MessageCount:   20,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.AppendSummary(ctx, first))
	require.NoError(t, s.AppendSummary(ctx, second))

	got, err := s.Summaries(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "첫 블록 요약", got[0].Text)
	assert.Equal(t, "둘째 블록 요약", got[1].Text)
}

func TestPreferenceProfileUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing, err := s.Profile(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := types.DefaultPreferenceProfile("u1", "p1")
	profile.PreferredLength = types.ResponseLengthShort
	profile.Confidence = 0.6
	profile.LastUpdated = time.Now().UTC()
	require.NoError(t, s.UpsertProfile(ctx, profile))

	loaded, err := s.Profile(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, types.ResponseLengthShort, loaded.PreferredLength)

	profile.PreferredLength = types.ResponseLengthLong
	require.NoError(t, s.UpsertProfile(ctx, profile))

	loaded, err = s.Profile(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, types.ResponseLengthLong, loaded.PreferredLength)
}

func TestFeedbackWindowAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	msg := &types.Message{ConversationID: conv.ID, Role: types.MessageRoleAssistant, Content: "응답"}
	require.NoError(t, s.AppendMessage(ctx, msg))

	fb := &types.MessageFeedback{MessageID: msg.ID, UserID: "u1", Helpful: true}
	require.NoError(t, s.AddMessageFeedback(ctx, fb))

	old := &types.MessageFeedback{
		MessageID: msg.ID,
		UserID:    "u1",
		Helpful:   false,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -60),
	}
	require.NoError(t, s.AddMessageFeedback(ctx, old))

	since := time.Now().UTC().AddDate(0, 0, -30)
	window, err := s.MessageFeedback(ctx, "u1", since)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.True(t, window[0].Helpful)

	latest, err := s.FeedbackForMessage(ctx, msg.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Helpful)

	none, err := s.FeedbackForMessage(ctx, msg.ID, "u2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestConversationRatingValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s, "u1", "p1")

	err := s.AddConversationRating(ctx, &types.ConversationRating{
		ConversationID: conv.ID, UserID: "u1", Rating: 6,
	})
	assert.Error(t, err)

	require.NoError(t, s.AddConversationRating(ctx, &types.ConversationRating{
		ConversationID: conv.ID, UserID: "u1", Rating: 5,
	}))

	since := time.Now().UTC().AddDate(0, 0, -1)
	ratings, err := s.ConversationRatings(ctx, "u1", since)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Rating)
}

func TestPersonaRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	persona := &types.Persona{Name: "하늘이", Personality: "따뜻하고 차분한 상담사"}
	require.NoError(t, s.CreatePersona(ctx, persona))
	require.NotEmpty(t, persona.ID)

	loaded, err := s.Persona(ctx, persona.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "하늘이", loaded.Name)

	missing, err := s.Persona(ctx, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCrisisAuditRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Record(ctx, "u1", "c1", &types.CrisisAssessment{
		Level:      types.CrisisLevelHigh,
		Categories: []string{"suicide"},
		Keywords:   []string{"자살"},
		Confidence: 0.9,
		DetectedAt: time.Now().UTC(),
	})

	var count int64
	require.NoError(t, s.db.Model(&CrisisAuditModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
