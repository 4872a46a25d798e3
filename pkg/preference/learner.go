// Package preference learns how a user likes to be answered from their
// feedback history and maintains the per-(user, persona) profile.
package preference

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// emojiProbe is the sample set used to decide whether a reply used emoji
const emojiProbe = "😊😢😡😍🎉💪👍👎🙏"

// Learner rebuilds preference profiles from the feedback window
type Learner struct {
	messages    interfaces.MessageStore
	feedback    interfaces.FeedbackStore
	preferences interfaces.PreferenceStore
	cfg         *config.PipelineConfig
	logger      interfaces.Logger
}

// NewLearner creates a new preference learner
func NewLearner(messages interfaces.MessageStore, feedback interfaces.FeedbackStore, preferences interfaces.PreferenceStore, cfg *config.PipelineConfig, logger interfaces.Logger) *Learner {
	return &Learner{
		messages:    messages,
		feedback:    feedback,
		preferences: preferences,
		cfg:         cfg,
		logger:      logger,
	}
}

// Profile returns the stored profile for a pair, or the default profile
// when none has been learned yet. The default is never persisted; it only
// shapes the current turn.
func (l *Learner) Profile(ctx context.Context, userID, personaID string) (*types.PreferenceProfile, error) {
	profile, err := l.preferences.Profile(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return types.DefaultPreferenceProfile(userID, personaID), nil
	}
	return profile, nil
}

// ShouldUpdate reports whether the profile is stale: never scored, older
// than the staleness window, or overtaken by enough new conversations.
func (l *Learner) ShouldUpdate(ctx context.Context, userID, personaID string) (bool, error) {
	profile, err := l.preferences.Profile(ctx, userID, personaID)
	if err != nil {
		return false, err
	}
	if profile == nil || profile.Confidence == 0.0 {
		return true, nil
	}
	if time.Since(profile.LastUpdated) > time.Duration(l.cfg.PreferenceStaleDays)*24*time.Hour {
		return true, nil
	}
	newConvs, err := l.messages.ConversationsSince(ctx, userID, personaID, profile.LastUpdated)
	if err != nil {
		return false, err
	}
	return newConvs >= l.cfg.PreferenceStaleConvs, nil
}

// Update relearns the profile from the recent feedback window and upserts
// it. Sparse signals fall back to the neutral defaults rather than
// extrapolating.
func (l *Learner) Update(ctx context.Context, userID, personaID string) (*types.PreferenceProfile, error) {
	since := time.Now().UTC().AddDate(0, 0, -l.cfg.PreferenceWindowDays)

	feedbacks, err := l.feedback.MessageFeedback(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	convCount, err := l.messages.ConversationsSince(ctx, userID, personaID, since)
	if err != nil {
		return nil, err
	}

	profile := types.DefaultPreferenceProfile(userID, personaID)
	profile.TotalFeedbacks = len(feedbacks)
	profile.TotalConversations = convCount

	if len(feedbacks) > 0 {
		positive := 0
		for _, fb := range feedbacks {
			if fb.Helpful {
				positive++
			}
		}
		profile.PositiveRatio = float64(positive) / float64(len(feedbacks))
	}

	ratedReplies := l.loadRatedReplies(ctx, feedbacks)
	profile.PreferredLength = l.learnLength(ratedReplies)
	profile.EmojiLevel = l.learnEmoji(ratedReplies)
	profile.Confidence = l.confidence(len(feedbacks), convCount)
	profile.LastUpdated = time.Now().UTC()

	if err := l.preferences.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	l.logger.Info("preference profile updated", map[string]interface{}{
		"user_id":    userID,
		"persona_id": personaID,
		"length":     profile.PreferredLength,
		"emoji":      profile.EmojiLevel,
		"confidence": profile.Confidence,
	})
	return profile, nil
}

// ratedReply joins one feedback signal with the assistant reply it rated
type ratedReply struct {
	content string
	score   float64
}

func (l *Learner) loadRatedReplies(ctx context.Context, feedbacks []*types.MessageFeedback) []ratedReply {
	var out []ratedReply
	for _, fb := range feedbacks {
		msg, err := l.messages.MessageByID(ctx, fb.MessageID)
		if err != nil {
			l.logger.Warn("failed to load rated message", map[string]interface{}{
				"message_id": fb.MessageID,
				"error":      err.Error(),
			})
			continue
		}
		if msg == nil || msg.Role != types.MessageRoleAssistant {
			continue
		}
		score := 1.0
		if !fb.Helpful {
			score = -1.0
		}
		out = append(out, ratedReply{content: msg.Content, score: score})
	}
	return out
}

func (l *Learner) learnLength(replies []ratedReply) types.ResponseLength {
	if len(replies) == 0 {
		return types.ResponseLengthMedium
	}

	scores := map[types.ResponseLength][]float64{}
	for _, r := range replies {
		var tier types.ResponseLength
		switch n := utf8.RuneCountInString(r.content); {
		case n < l.cfg.PreferenceShortMaxChars:
			tier = types.ResponseLengthShort
		case n < l.cfg.PreferenceMediumMaxChars:
			tier = types.ResponseLengthMedium
		default:
			tier = types.ResponseLengthLong
		}
		scores[tier] = append(scores[tier], r.score)
	}

	best := types.ResponseLengthMedium
	bestScore := 0.0
	// Fixed iteration order keeps ties deterministic, medium winning them
	for _, tier := range []types.ResponseLength{types.ResponseLengthMedium, types.ResponseLengthShort, types.ResponseLengthLong} {
		values := scores[tier]
		if len(values) == 0 {
			continue
		}
		avg := mean(values)
		if avg > bestScore {
			best = tier
			bestScore = avg
		}
	}
	if bestScore <= 0 {
		return types.ResponseLengthMedium
	}
	return best
}

func (l *Learner) learnEmoji(replies []ratedReply) types.EmojiLevel {
	if len(replies) == 0 {
		return types.EmojiLevelModerate
	}

	var withEmoji, withoutEmoji []float64
	for _, r := range replies {
		if strings.ContainsAny(r.content, emojiProbe) {
			withEmoji = append(withEmoji, r.score)
		} else {
			withoutEmoji = append(withoutEmoji, r.score)
		}
	}

	emojiAvg := mean(withEmoji)
	plainAvg := mean(withoutEmoji)
	delta := l.cfg.PreferenceEmojiDelta

	switch {
	case emojiAvg > plainAvg+delta:
		return types.EmojiLevelFrequent
	case emojiAvg > plainAvg:
		return types.EmojiLevelModerate
	case emojiAvg < plainAvg-delta:
		return types.EmojiLevelNone
	default:
		return types.EmojiLevelMinimal
	}
}

func (l *Learner) confidence(feedbackCount, convCount int) float64 {
	feedbackScore := float64(feedbackCount) / float64(l.cfg.PreferenceFeedbackDivisor)
	if feedbackScore > 1.0 {
		feedbackScore = 1.0
	}
	convScore := float64(convCount) / float64(l.cfg.PreferenceConvDivisor)
	if convScore > 1.0 {
		convScore = 1.0
	}
	return round2((feedbackScore + convScore) / 2)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
