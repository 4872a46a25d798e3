// Package summary condenses finished blocks of conversation into stored
// summaries. Coverage is monotonic: blocks never overlap and the total
// summarized count of a conversation only grows.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

const summaryPromptTemplate = `다음 대화를 간결하게 요약해주세요.

주요 내용:
- 사용자의 감정 상태
- 논의된 주제
- AI가 제공한 조언
- 중요한 결정이나 인사이트

대화:
%s

요약 (3-5문장):`

// Summarizer creates block summaries for conversations
type Summarizer struct {
	llm       interfaces.LLM
	messages  interfaces.MessageStore
	summaries interfaces.SummaryStore
	cfg       *config.PipelineConfig
	logger    interfaces.Logger
}

// NewSummarizer creates a new summarizer
func NewSummarizer(llmClient interfaces.LLM, messages interfaces.MessageStore, summaries interfaces.SummaryStore, cfg *config.PipelineConfig, logger interfaces.Logger) *Summarizer {
	return &Summarizer{
		llm:       llmClient,
		messages:  messages,
		summaries: summaries,
		cfg:       cfg,
		logger:    logger,
	}
}

// summarizedCount returns how many messages existing summaries cover
func (s *Summarizer) summarizedCount(ctx context.Context, conversationID string) (int, error) {
	existing, err := s.summaries.Summaries(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, sum := range existing {
		total += sum.MessageCount
	}
	return total, nil
}

// ShouldSummarize reports whether a full unsummarized block has
// accumulated
func (s *Summarizer) ShouldSummarize(ctx context.Context, conversationID string) (bool, error) {
	total, err := s.messages.MessageCount(ctx, conversationID)
	if err != nil {
		return false, err
	}
	covered, err := s.summarizedCount(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return total-covered >= s.cfg.SummaryBlockSize, nil
}

// Summarize condenses the next unsummarized block, if one is complete.
// Returns nil without error when fewer than a full block is pending,
// which makes repeated calls after a no-op harmless.
func (s *Summarizer) Summarize(ctx context.Context, conversationID string) (*types.ConversationSummary, error) {
	covered, err := s.summarizedCount(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	block, err := s.messages.MessagesAfter(ctx, conversationID, covered, s.cfg.SummaryBlockSize)
	if err != nil {
		return nil, err
	}
	if len(block) < s.cfg.SummaryBlockSize {
		return nil, nil
	}

	summary := &types.ConversationSummary{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           s.generate(ctx, block),
		MessageCount:   len(block),
		FirstMessageID: block[0].ID,
		LastMessageID:  block[len(block)-1].ID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.summaries.AppendSummary(ctx, summary); err != nil {
		return nil, err
	}

	s.logger.Info("conversation block summarized", map[string]interface{}{
		"conversation_id": conversationID,
		"message_count":   summary.MessageCount,
	})
	return summary, nil
}

// generate asks the model for a prose summary, degrading to a count-based
// placeholder so the block is still marked covered
func (s *Summarizer) generate(ctx context.Context, block []*types.Message) string {
	var sb strings.Builder
	for _, msg := range block {
		role := "AI"
		if msg.Role == types.MessageRoleUser {
			role = "사용자"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}

	text, err := s.llm.Generate(ctx, types.MessageList{
		{Role: types.MessageRoleUser, Content: fmt.Sprintf(summaryPromptTemplate, sb.String())},
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			s.logger.Warn("summary generation failed, storing placeholder", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return fmt.Sprintf("%d개의 메시지가 교환되었습니다.", len(block))
	}
	return strings.TrimSpace(text)
}
