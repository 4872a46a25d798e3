// Package store provides the SQLite persistence layer behind the pipeline
// store interfaces, plus an optional Redis cache for preference profiles.
package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationModel is the conversation header row
type ConversationModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"index:idx_conversations_pair;not null;type:varchar(36)"`
	PersonaID string    `gorm:"index:idx_conversations_pair;not null;type:varchar(36)"`
	Title     string    `gorm:"type:varchar(200)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

func (ConversationModel) TableName() string { return "conversations" }

// BeforeCreate hook for ConversationModel
func (c *ConversationModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

// MessageModel is one conversation message. Seq is the rowid-backed
// primary key, giving a total order that is stable even when timestamps
// collide; the UUID in ID is what the rest of the system references.
type MessageModel struct {
	Seq             uint64    `gorm:"primaryKey;autoIncrement"`
	ID              string    `gorm:"uniqueIndex;not null;type:varchar(36)"`
	ConversationID  string    `gorm:"index;not null;type:varchar(36)"`
	Role            string    `gorm:"not null;type:varchar(16)"`
	Content         string    `gorm:"not null;type:text"`
	DetectedEmotion string    `gorm:"type:varchar(32)"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (MessageModel) TableName() string { return "messages" }

// BeforeCreate hook for MessageModel
func (m *MessageModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// MemoryRecordModel is one append-only memory record. Content is the
// JSON-encoded key-value payload.
type MemoryRecordModel struct {
	ID                   string    `gorm:"primaryKey;type:varchar(36)"`
	UserID               string    `gorm:"index:idx_memory_pair;not null;type:varchar(36)"`
	PersonaID            string    `gorm:"index:idx_memory_pair;not null;type:varchar(36)"`
	Kind                 string    `gorm:"not null;type:varchar(32)"`
	Content              string    `gorm:"not null;type:text"`
	Confidence           float64   `gorm:"not null"`
	SourceConversationID string    `gorm:"type:varchar(36)"`
	CreatedAt            time.Time `gorm:"not null"`
}

func (MemoryRecordModel) TableName() string { return "memory_records" }

// BeforeCreate hook for MemoryRecordModel
func (m *MemoryRecordModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SummaryModel is one conversation block summary
type SummaryModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string    `gorm:"index;not null;type:varchar(36)"`
	Text           string    `gorm:"not null;type:text"`
	MessageCount   int       `gorm:"not null"`
	FirstMessageID string    `gorm:"type:varchar(36)"`
	LastMessageID  string    `gorm:"type:varchar(36)"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (SummaryModel) TableName() string { return "conversation_summaries" }

// BeforeCreate hook for SummaryModel
func (s *SummaryModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// PreferenceProfileModel is the single learned profile per (user, persona)
type PreferenceProfileModel struct {
	UserID             string    `gorm:"primaryKey;type:varchar(36)"`
	PersonaID          string    `gorm:"primaryKey;type:varchar(36)"`
	PreferredLength    string    `gorm:"not null;type:varchar(16)"`
	PreferredTone      string    `gorm:"not null;type:varchar(32)"`
	EmojiLevel         string    `gorm:"not null;type:varchar(16)"`
	ExemplarCount      int       `gorm:"not null"`
	Confidence         float64   `gorm:"not null"`
	TotalFeedbacks     int       `gorm:"not null"`
	TotalConversations int       `gorm:"not null"`
	PositiveRatio      float64   `gorm:"not null"`
	LastUpdated        time.Time `gorm:"not null"`
}

func (PreferenceProfileModel) TableName() string { return "preference_profiles" }

// MessageFeedbackModel is one helpful/unhelpful signal
type MessageFeedbackModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	MessageID string    `gorm:"index;not null;type:varchar(36)"`
	UserID    string    `gorm:"index;not null;type:varchar(36)"`
	Helpful   bool      `gorm:"not null"`
	Text      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (MessageFeedbackModel) TableName() string { return "message_feedbacks" }

// BeforeCreate hook for MessageFeedbackModel
func (f *MessageFeedbackModel) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ConversationRatingModel is one 1-5 whole-conversation rating
type ConversationRatingModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string    `gorm:"index;not null;type:varchar(36)"`
	UserID         string    `gorm:"index;not null;type:varchar(36)"`
	Rating         int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (ConversationRatingModel) TableName() string { return "conversation_ratings" }

// BeforeCreate hook for ConversationRatingModel
func (r *ConversationRatingModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return nil
}

// PersonaModel is a configured counselor identity
type PersonaModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Name         string    `gorm:"not null;type:varchar(100)"`
	Personality  string    `gorm:"not null;type:text"`
	SystemPrompt string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (PersonaModel) TableName() string { return "personas" }

// BeforeCreate hook for PersonaModel
func (p *PersonaModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CrisisAuditModel is one audited high-risk assessment
type CrisisAuditModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"index;not null;type:varchar(36)"`
	ConversationID string    `gorm:"index;type:varchar(36)"`
	Level          string    `gorm:"not null;type:varchar(16)"`
	Categories     string    `gorm:"type:text"`
	Keywords       string    `gorm:"type:text"`
	Confidence     float64   `gorm:"not null"`
	DetectedAt     time.Time `gorm:"not null;index"`
}

func (CrisisAuditModel) TableName() string { return "crisis_audit_log" }

// BeforeCreate hook for CrisisAuditModel
func (c *CrisisAuditModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
