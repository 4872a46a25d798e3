package summary

import (
	"context"
	"errors"
	"fmt"
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
}

func (s *stubLLM) Generate(ctx context.Context, messages types.MessageList) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error {
	return s.err
}

func (s *stubLLM) GetModelInfo() map[string]interface{} { return nil }
func (s *stubLLM) Close() error                         { return nil }

type fakeConversation struct {
	messages  []*types.Message
	summaries []*types.ConversationSummary
}

func (f *fakeConversation) AppendMessage(ctx context.Context, msg *types.Message) error { return nil }

func (f *fakeConversation) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (f *fakeConversation) MessageCount(ctx context.Context, conversationID string) (int, error) {
	return len(f.messages), nil
}

func (f *fakeConversation) MessageByID(ctx context.Context, id string) (*types.Message, error) {
	return nil, nil
}

func (f *fakeConversation) MessagesAfter(ctx context.Context, conversationID string, offset, limit int) ([]*types.Message, error) {
	if offset >= len(f.messages) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.messages) {
		end = len(f.messages)
	}
	return f.messages[offset:end], nil
}

func (f *fakeConversation) RecentConversations(ctx context.Context, userID, personaID, excludeID string, since time.Time, limit int) ([]*types.Conversation, error) {
	return nil, nil
}

func (f *fakeConversation) ConversationsSince(ctx context.Context, userID, personaID string, t time.Time) (int, error) {
	return 0, nil
}

func (f *fakeConversation) TouchConversation(ctx context.Context, conversationID, firstMessage string) error {
	return nil
}

func (f *fakeConversation) AppendSummary(ctx context.Context, summary *types.ConversationSummary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeConversation) Summaries(ctx context.Context, conversationID string) ([]*types.ConversationSummary, error) {
	return f.summaries, nil
}

func messagesN(n int) []*types.Message {
	out := make([]*types.Message, n)
	for i := 0; i < n; i++ {
		role := types.MessageRoleUser
		if i%2 == 1 {
			role = types.MessageRoleAssistant
		}
		out[i] = &types.Message{
			ID:      fmt.Sprintf("m%d", i+1),
			Role:    role,
			Content: fmt.Sprintf("메시지 %d", i+1),
		}
	}
	return out
}

func newTestSummarizer(llm *stubLLM, conv *fakeConversation) *Summarizer {
	return NewSummarizer(llm, conv, conv, config.NewPipelineConfig(), logger.NewTestLogger())
}

func TestShouldSummarize(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		covered   int
		expected  bool
	}{
		{"short conversation", 19, 0, false},
		{"exactly one block", 20, 0, true},
		{"block already covered", 25, 20, false},
		{"second block complete", 40, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConversation{messages: messagesN(tt.total)}
			if tt.covered > 0 {
				conv.summaries = []*types.ConversationSummary{{MessageCount: tt.covered}}
			}
			summarizer := newTestSummarizer(&stubLLM{response: "요약"}, conv)

			got, err := summarizer.ShouldSummarize(context.Background(), "c1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSummarizeCoversExactBlock(t *testing.T) {
	conv := &fakeConversation{messages: messagesN(25)}
	summarizer := newTestSummarizer(&stubLLM{response: "사용자가 업무 스트레스를 호소했고 휴식을 권했다."}, conv)

	summary, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 20, summary.MessageCount)
	assert.Equal(t, "m1", summary.FirstMessageID)
	assert.Equal(t, "m20", summary.LastMessageID)
	assert.Equal(t, "사용자가 업무 스트레스를 호소했고 휴식을 권했다.", summary.Text)
}

func TestSummarizeSecondBlockStartsAfterFirst(t *testing.T) {
	conv := &fakeConversation{messages: messagesN(45)}
	summarizer := newTestSummarizer(&stubLLM{response: "요약"}, conv)

	first, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, "m21", second.FirstMessageID)
	assert.Equal(t, "m40", second.LastMessageID)

	// Only 5 messages remain uncovered; a third call is a no-op
	third, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, third)
	assert.Len(t, conv.summaries, 2)
}

func TestSummarizeIncompleteBlockIsNoOp(t *testing.T) {
	conv := &fakeConversation{messages: messagesN(19)}
	summarizer := newTestSummarizer(&stubLLM{response: "요약"}, conv)

	summary, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Empty(t, conv.summaries)
}

func TestSummarizeFallsBackToPlaceholder(t *testing.T) {
	conv := &fakeConversation{messages: messagesN(20)}
	summarizer := newTestSummarizer(&stubLLM{err: errors.New("api down")}, conv)

	summary, err := summarizer.Summarize(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "20개의 메시지가 교환되었습니다.", summary.Text)
	assert.Equal(t, 20, summary.MessageCount)
}
