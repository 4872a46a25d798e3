// Package interfaces defines the contracts between the counselgo pipeline
// and its external collaborators: stores, the generation service, logging
// and metrics. The pipeline only ever consumes these interfaces; concrete
// persistence lives in pkg/store and the LLM providers in pkg/llm.
package interfaces

import (
	"context"
	"time"

	"github.com/maumtalk/counselgo/pkg/types"
)

// LLM defines the interface to the external text-generation service
type LLM interface {
	// Generate generates a single completion for the ordered turns
	Generate(ctx context.Context, messages types.MessageList) (string, error)

	// GenerateStream generates a completion as an incremental stream of
	// text fragments written to the channel. The implementation closes
	// nothing; the caller owns the channel.
	GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error

	// GetModelInfo returns model information
	GetModelInfo() map[string]interface{}

	// Close closes the LLM connection
	Close() error
}

// MessageStore is the ordered append-only message sequence per conversation.
// The pipeline reads recent N and writes exactly one assistant record per turn.
type MessageStore interface {
	// AppendMessage appends one message to a conversation
	AppendMessage(ctx context.Context, msg *types.Message) error

	// RecentMessages returns up to limit messages of a conversation in
	// chronological order, most recent window
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*types.Message, error)

	// MessageCount returns the total number of messages in a conversation
	MessageCount(ctx context.Context, conversationID string) (int, error)

	// MessageByID returns one message, or nil when it does not exist
	MessageByID(ctx context.Context, id string) (*types.Message, error)

	// MessagesAfter returns messages of a conversation in chronological
	// order starting at the given offset
	MessagesAfter(ctx context.Context, conversationID string, offset, limit int) ([]*types.Message, error)

	// RecentConversations returns the most recently updated conversations
	// of a (user, persona) pair, excluding excludeID when non-empty
	RecentConversations(ctx context.Context, userID, personaID, excludeID string, since time.Time, limit int) ([]*types.Conversation, error)

	// ConversationsSince counts conversations of a pair created after t
	ConversationsSince(ctx context.Context, userID, personaID string, t time.Time) (int, error)

	// TouchConversation updates a conversation's updated_at and, when the
	// title is empty, derives one from the first user message
	TouchConversation(ctx context.Context, conversationID, firstMessage string) error
}

// MemoryStore is the append/filtered-read interface for MemoryRecord
type MemoryStore interface {
	// AppendRecords appends extracted records; records are never mutated
	AppendRecords(ctx context.Context, records []*types.MemoryRecord) error

	// Records returns records of a (user, persona) pair with confidence
	// at or above minConfidence, ordered by confidence descending
	Records(ctx context.Context, userID, personaID string, minConfidence float64) ([]*types.MemoryRecord, error)
}

// FeedbackStore yields feedback signals within a time window
type FeedbackStore interface {
	// MessageFeedback returns helpful/unhelpful signals by a user since t
	MessageFeedback(ctx context.Context, userID string, since time.Time) ([]*types.MessageFeedback, error)

	// FeedbackForMessage returns the feedback a user gave one message, or nil
	FeedbackForMessage(ctx context.Context, messageID, userID string) (*types.MessageFeedback, error)

	// ConversationRatings returns 1-5 ratings by a user since t
	ConversationRatings(ctx context.Context, userID string, since time.Time) ([]*types.ConversationRating, error)
}

// PreferenceStore holds one PreferenceProfile per (user, persona)
type PreferenceStore interface {
	// Profile returns the stored profile, or nil when none exists
	Profile(ctx context.Context, userID, personaID string) (*types.PreferenceProfile, error)

	// UpsertProfile creates or replaces the profile for its pair
	UpsertProfile(ctx context.Context, profile *types.PreferenceProfile) error
}

// SummaryStore persists conversation summaries
type SummaryStore interface {
	// AppendSummary appends a summary covering a new message block
	AppendSummary(ctx context.Context, summary *types.ConversationSummary) error

	// Summaries returns the summaries of a conversation in creation order
	Summaries(ctx context.Context, conversationID string) ([]*types.ConversationSummary, error)
}

// CrisisAuditor records high-risk assessments for later review
type CrisisAuditor interface {
	// Record logs one assessment; failures must not affect the turn
	Record(ctx context.Context, userID, conversationID string, assessment *types.CrisisAssessment)
}

// Logger defines the interface for logging implementations
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}

// Metrics defines the interface for metrics collection
type Metrics interface {
	// Counter increments a counter metric
	Counter(name string, value float64, labels map[string]string)

	// Gauge sets a gauge metric
	Gauge(name string, value float64, labels map[string]string)

	// Histogram records a histogram metric
	Histogram(name string, value float64, labels map[string]string)

	// Timer records timing metrics
	Timer(name string, duration float64, labels map[string]string)
}
