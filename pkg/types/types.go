// Package types defines the core types shared across the counselgo pipeline
package types

import (
	"time"
)

// MessageRole represents the role of a message in a conversation
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// MessageDict represents a single message in a conversation
type MessageDict struct {
	Role    MessageRole `json:"role" validate:"required,oneof=user assistant system"`
	Content string      `json:"content" validate:"required"`
}

// MessageList represents a list of messages in a conversation
type MessageList []MessageDict

// Message is a persisted conversation message
type Message struct {
	ID              string      `json:"id"`
	ConversationID  string      `json:"conversation_id"`
	Role            MessageRole `json:"role"`
	Content         string      `json:"content"`
	DetectedEmotion string      `json:"detected_emotion,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Conversation is a persisted conversation header
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PersonaID string    `json:"persona_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Persona is the configured AI counselor identity a conversation belongs to
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Personality  string `json:"personality"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// CrisisLevel is a four-point ordinal risk classification
type CrisisLevel string

const (
	CrisisLevelNone     CrisisLevel = "none"
	CrisisLevelMedium   CrisisLevel = "medium"
	CrisisLevelHigh     CrisisLevel = "high"
	CrisisLevelCritical CrisisLevel = "critical"
)

// Rank returns the ordinal position of the level, none being lowest
func (l CrisisLevel) Rank() int {
	switch l {
	case CrisisLevelMedium:
		return 1
	case CrisisLevelHigh:
		return 2
	case CrisisLevelCritical:
		return 3
	default:
		return 0
	}
}

// CrisisAssessment is the per-message crisis detection result.
// It is ephemeral: produced fresh for each message and never persisted,
// though high/critical assessments are logged for audit.
type CrisisAssessment struct {
	Level                 CrisisLevel `json:"level"`
	Categories            []string    `json:"categories"`
	Keywords              []string    `json:"keywords"`
	Confidence            float64     `json:"confidence"`
	RequiresIntervention  bool        `json:"requires_intervention"`
	DetectedAt            time.Time   `json:"detected_at"`
}

// EmotionCategory groups emotions into broad valence buckets
type EmotionCategory string

const (
	EmotionCategoryPositive EmotionCategory = "positive"
	EmotionCategoryNegative EmotionCategory = "negative"
	EmotionCategoryNeutral  EmotionCategory = "neutral"
)

// ResponseStyle is the adaptive response style tag chosen by the classifier
type ResponseStyle string

const (
	ResponseStyleEmpathetic  ResponseStyle = "empathetic"
	ResponseStyleSupportive  ResponseStyle = "supportive"
	ResponseStyleCalming     ResponseStyle = "calming"
	ResponseStyleEncouraging ResponseStyle = "encouraging"
	ResponseStyleBalanced    ResponseStyle = "balanced"
)

// EmotionResult is the structured emotion classification of one message
type EmotionResult struct {
	PrimaryEmotion    string          `json:"primary_emotion"`
	Category          EmotionCategory `json:"emotion_category"`
	Intensity         float64         `json:"intensity"`
	SecondaryEmotions []string        `json:"secondary_emotions"`
	Keywords          []string        `json:"keywords"`
	ResponseStyle     ResponseStyle   `json:"response_style"`
}

// NeutralEmotion returns the zero-intensity fallback classification
func NeutralEmotion() EmotionResult {
	return EmotionResult{
		PrimaryEmotion:    "중립",
		Category:          EmotionCategoryNeutral,
		Intensity:         0.0,
		SecondaryEmotions: []string{},
		Keywords:          []string{},
		ResponseStyle:     ResponseStyleBalanced,
	}
}

// MemoryKind distinguishes the four categories of extracted knowledge
type MemoryKind string

const (
	MemoryKindFact           MemoryKind = "fact"
	MemoryKindPreference     MemoryKind = "preference"
	MemoryKindEmotionPattern MemoryKind = "emotion_pattern"
	MemoryKindTonePreference MemoryKind = "tone_preference"
)

// MemoryRecord is a confidence-scored piece of long-term knowledge about a
// user, keyed by (user, persona). Records are append-only: stale facts are
// superseded by newer higher-confidence records, never mutated in place.
type MemoryRecord struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"user_id"`
	PersonaID            string            `json:"persona_id"`
	Kind                 MemoryKind        `json:"kind"`
	Content              map[string]string `json:"content"`
	Confidence           float64           `json:"confidence"`
	SourceConversationID string            `json:"source_conversation_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ConversationSummary condenses a contiguous, non-overlapping block of prior
// messages in one conversation. Coverage is strictly monotonic: the total
// summarized message count of a conversation never decreases.
type ConversationSummary struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	MessageCount   int       `json:"message_count"`
	FirstMessageID string    `json:"first_message_id"`
	LastMessageID  string    `json:"last_message_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResponseLength is a learned response length tier
type ResponseLength string

const (
	ResponseLengthShort  ResponseLength = "short"
	ResponseLengthMedium ResponseLength = "medium"
	ResponseLengthLong   ResponseLength = "long"
)

// EmojiLevel is a learned emoji usage preference
type EmojiLevel string

const (
	EmojiLevelNone     EmojiLevel = "none"
	EmojiLevelMinimal  EmojiLevel = "minimal"
	EmojiLevelModerate EmojiLevel = "moderate"
	EmojiLevelFrequent EmojiLevel = "frequent"
)

// PreferenceProfile is the single learned profile per (user, persona).
// Unlike MemoryRecord it is upserted, not appended.
type PreferenceProfile struct {
	UserID             string         `json:"user_id"`
	PersonaID          string         `json:"persona_id"`
	PreferredLength    ResponseLength `json:"preferred_length"`
	PreferredTone      string         `json:"preferred_tone"`
	EmojiLevel         EmojiLevel     `json:"emoji_level"`
	ExemplarCount      int            `json:"exemplar_count"`
	Confidence         float64        `json:"confidence"`
	TotalFeedbacks     int            `json:"total_feedbacks"`
	TotalConversations int            `json:"total_conversations"`
	PositiveRatio      float64        `json:"positive_ratio"`
	LastUpdated        time.Time      `json:"last_updated"`
}

// DefaultPreferenceProfile returns the unscored profile for a new pair
func DefaultPreferenceProfile(userID, personaID string) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:          userID,
		PersonaID:       personaID,
		PreferredLength: ResponseLengthMedium,
		PreferredTone:   "mixed",
		EmojiLevel:      EmojiLevelModerate,
		ExemplarCount:   3,
		Confidence:      0.0,
	}
}

// ExemplarProvenance marks whether an exemplar is curated or learned
type ExemplarProvenance string

const (
	ExemplarCurated ExemplarProvenance = "curated"
	ExemplarLearned ExemplarProvenance = "learned"
)

// Exemplar is a worked (input, ideal-response) pair used to steer
// generation style via demonstration
type Exemplar struct {
	Emotion           string             `json:"emotion"`
	UserMessage       string             `json:"user_message"`
	AssistantResponse string             `json:"assistant_response"`
	Provenance        ExemplarProvenance `json:"provenance"`
	Similarity        float64            `json:"similarity,omitempty"`
	Notes             string             `json:"notes,omitempty"`
}

// MessageFeedback is a boolean helpful/unhelpful signal on one assistant message
type MessageFeedback struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Helpful   bool      `json:"helpful"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationRating is a 1-5 rating of a whole conversation
type ConversationRating struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Rating         int       `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidationResult scores a finished reply on five quality dimensions.
// Ephemeral: produced once per generated reply and never persisted.
type ValidationResult struct {
	Passed       bool               `json:"passed"`
	OverallScore float64            `json:"overall_score"`
	Scores       map[string]float64 `json:"scores"`
	Issues       []string           `json:"issues"`
	Warnings     []string           `json:"warnings"`
	Suggestions  []string           `json:"suggestions"`
}

// ErrorType categorizes pipeline errors for structured handling
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)
