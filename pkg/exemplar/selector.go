package exemplar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// conversationScanLimit bounds how many messages of one past conversation
// the selector will walk
const conversationScanLimit = 200

// Selector blends dynamically mined exemplars with the curated library
type Selector struct {
	messages interfaces.MessageStore
	feedback interfaces.FeedbackStore
	cfg      *config.PipelineConfig
	logger   interfaces.Logger
}

// NewSelector creates a new exemplar selector
func NewSelector(messages interfaces.MessageStore, feedback interfaces.FeedbackStore, cfg *config.PipelineConfig, logger interfaces.Logger) *Selector {
	return &Selector{
		messages: messages,
		feedback: feedback,
		cfg:      cfg,
		logger:   logger,
	}
}

// SelectDynamic mines the user's recent conversations for (user message,
// assistant reply) pairs that were similar to the current situation and
// whose reply the user marked helpful. Returns up to count exemplars
// sorted by similarity, best first.
func (s *Selector) SelectDynamic(ctx context.Context, userID, personaID, currentEmotion, currentMessage string, count int) ([]types.Exemplar, error) {
	if count <= 0 {
		return nil, nil
	}

	conversations, err := s.messages.RecentConversations(ctx, userID, personaID, "", time.Time{}, s.cfg.ExemplarHistoryScan)
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, nil
	}

	var candidates []types.Exemplar

	for _, conv := range conversations {
		msgs, err := s.messages.MessagesAfter(ctx, conv.ID, 0, conversationScanLimit)
		if err != nil {
			return nil, err
		}

		for i := 0; i+1 < len(msgs); i++ {
			userMsg := msgs[i]
			reply := msgs[i+1]
			if userMsg.Role != types.MessageRoleUser || reply.Role != types.MessageRoleAssistant {
				continue
			}

			similarity := TextSimilarity(currentMessage, userMsg.Content)*s.cfg.ExemplarTextWeight +
				EmotionSimilarity(currentEmotion, userMsg.DetectedEmotion)*s.cfg.ExemplarEmotionWeight
			if similarity < s.cfg.ExemplarThreshold {
				continue
			}

			fb, err := s.feedback.FeedbackForMessage(ctx, reply.ID, userID)
			if err != nil {
				return nil, err
			}
			if fb == nil || !fb.Helpful {
				continue
			}

			emotion := userMsg.DetectedEmotion
			if emotion == "" {
				emotion = currentEmotion
			}
			if emotion == "" {
				emotion = "중립"
			}

			candidates = append(candidates, types.Exemplar{
				Emotion:           emotion,
				UserMessage:       userMsg.Content,
				AssistantResponse: reply.Content,
				Provenance:        types.ExemplarLearned,
				Similarity:        similarity,
				Notes:             fmt.Sprintf("사용자 히스토리 기반 성공 사례 (유사도: %.2f)", similarity),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// Select returns the hybrid exemplar set for one turn: dynamic_ratio of
// totalCount mined from history, the remainder curated. Shortfalls on the
// dynamic side are filled from the curated library, so totalCount is
// always met when the library has entries for the emotion.
func (s *Selector) Select(ctx context.Context, userID, personaID, currentEmotion, currentMessage string, totalCount int) []types.Exemplar {
	if totalCount <= 0 {
		return nil
	}

	dynamicCount := int(float64(totalCount) * s.cfg.ExemplarDynamicRatio)

	dynamic, err := s.SelectDynamic(ctx, userID, personaID, currentEmotion, currentMessage, dynamicCount)
	if err != nil {
		// Mining is an enhancement; selection proceeds on curated alone
		s.logger.Warn("dynamic exemplar selection failed, using curated only", map[string]interface{}{
			"error": err.Error(),
		})
		dynamic = nil
	}

	staticCount := totalCount - len(dynamic)
	curated := CuratedByEmotion(currentEmotion)
	if staticCount > len(curated) {
		staticCount = len(curated)
	}

	result := append(dynamic, curated[:staticCount]...)
	if len(result) > totalCount {
		result = result[:totalCount]
	}
	return result
}
