package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maumtalk/counselgo/pkg/config"
	counselerrors "github.com/maumtalk/counselgo/pkg/errors"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// titleMaxRunes bounds the auto-derived conversation title
const titleMaxRunes = 30

// Interface compliance
var (
	_ interfaces.MessageStore    = (*Store)(nil)
	_ interfaces.MemoryStore     = (*Store)(nil)
	_ interfaces.FeedbackStore   = (*Store)(nil)
	_ interfaces.PreferenceStore = (*Store)(nil)
	_ interfaces.SummaryStore    = (*Store)(nil)
	_ interfaces.CrisisAuditor   = (*Store)(nil)
)

// Store is the SQLite-backed implementation of the pipeline store
// interfaces. One Store is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	logger interfaces.Logger
}

// NewStore opens the database and migrates the schema
func NewStore(cfg *config.StoreConfig, logger interfaces.Logger) (*Store, error) {
	if cfg.SQLitePath != ":memory:" {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&ConversationModel{},
		&MessageModel{},
		&MemoryRecordModel{},
		&SummaryModel{},
		&PreferenceProfileModel{},
		&MessageFeedbackModel{},
		&ConversationRatingModel{},
		&PersonaModel{},
		&CrisisAuditModel{},
	)
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Conversation operations

// CreateConversation creates a conversation header
func (s *Store) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	model := &ConversationModel{
		ID:        conv.ID,
		UserID:    conv.UserID,
		PersonaID: conv.PersonaID,
		Title:     conv.Title,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("conversation", err)
	}
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// Conversation returns one conversation header, or nil when absent
func (s *Store) Conversation(ctx context.Context, id string) (*types.Conversation, error) {
	var model ConversationModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("conversation", err)
	}
	return conversationFromModel(&model), nil
}

// TouchConversation bumps updated_at and derives a title from the first
// user message when none is set
func (s *Store) TouchConversation(ctx context.Context, conversationID, firstMessage string) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}

	var model ConversationModel
	err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&model).Error
	if err != nil {
		return counselerrors.NewQueryFailedError("conversation", err)
	}
	if model.Title == "" && strings.TrimSpace(firstMessage) != "" {
		updates["title"] = deriveTitle(firstMessage)
	}

	if err := s.db.WithContext(ctx).Model(&ConversationModel{}).
		Where("id = ?", conversationID).Updates(updates).Error; err != nil {
		return counselerrors.NewWriteFailedError("conversation", err)
	}
	return nil
}

func deriveTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes]) + "..."
	}
	return title
}

// RecentConversations returns the most recently updated conversations of a
// pair, excluding excludeID when non-empty
func (s *Store) RecentConversations(ctx context.Context, userID, personaID, excludeID string, since time.Time, limit int) ([]*types.Conversation, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ? AND updated_at >= ?", userID, personaID, since)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var models []ConversationModel
	if err := query.Order("updated_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, counselerrors.NewQueryFailedError("conversations", err)
	}

	out := make([]*types.Conversation, len(models))
	for i := range models {
		out[i] = conversationFromModel(&models[i])
	}
	return out, nil
}

// ConversationsSince counts conversations of a pair created after t
func (s *Store) ConversationsSince(ctx context.Context, userID, personaID string, t time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ConversationModel{}).
		Where("user_id = ? AND persona_id = ? AND created_at > ?", userID, personaID, t).
		Count(&count).Error
	if err != nil {
		return 0, counselerrors.NewQueryFailedError("conversations", err)
	}
	return int(count), nil
}

// Message operations

// AppendMessage appends one message to a conversation
func (s *Store) AppendMessage(ctx context.Context, msg *types.Message) error {
	model := &MessageModel{
		ID:              msg.ID,
		ConversationID:  msg.ConversationID,
		Role:            string(msg.Role),
		Content:         msg.Content,
		DetectedEmotion: msg.DetectedEmotion,
		CreatedAt:       msg.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("message", err)
	}
	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

// RecentMessages returns the most recent window in chronological order
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*types.Message, error) {
	var models []MessageModel
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("messages", err)
	}

	out := make([]*types.Message, len(models))
	for i := range models {
		// Reverse back to chronological order
		out[len(models)-1-i] = messageFromModel(&models[i])
	}
	return out, nil
}

// MessageCount returns the total number of messages in a conversation
func (s *Store) MessageCount(ctx context.Context, conversationID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&MessageModel{}).
		Where("conversation_id = ?", conversationID).Count(&count).Error
	if err != nil {
		return 0, counselerrors.NewQueryFailedError("messages", err)
	}
	return int(count), nil
}

// MessageByID returns one message, or nil when it does not exist
func (s *Store) MessageByID(ctx context.Context, id string) (*types.Message, error) {
	var model MessageModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("message", err)
	}
	return messageFromModel(&model), nil
}

// MessagesAfter returns messages in chronological order from offset
func (s *Store) MessagesAfter(ctx context.Context, conversationID string, offset, limit int) ([]*types.Message, error) {
	var models []MessageModel
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").Offset(offset).Limit(limit).Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("messages", err)
	}

	out := make([]*types.Message, len(models))
	for i := range models {
		out[i] = messageFromModel(&models[i])
	}
	return out, nil
}

// Memory operations

// AppendRecords appends extracted memory records
func (s *Store) AppendRecords(ctx context.Context, records []*types.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]MemoryRecordModel, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec.Content)
		if err != nil {
			return counselerrors.NewStoreError("failed to encode memory content", err)
		}
		models = append(models, MemoryRecordModel{
			ID:                   rec.ID,
			UserID:               rec.UserID,
			PersonaID:            rec.PersonaID,
			Kind:                 string(rec.Kind),
			Content:              string(payload),
			Confidence:           rec.Confidence,
			SourceConversationID: rec.SourceConversationID,
			CreatedAt:            rec.CreatedAt,
		})
	}

	if err := s.db.WithContext(ctx).Create(&models).Error; err != nil {
		return counselerrors.NewWriteFailedError("memory records", err)
	}
	return nil
}

// Records returns records of a pair at or above minConfidence
func (s *Store) Records(ctx context.Context, userID, personaID string, minConfidence float64) ([]*types.MemoryRecord, error) {
	var models []MemoryRecordModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ? AND confidence >= ?", userID, personaID, minConfidence).
		Order("confidence DESC, created_at DESC").Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("memory records", err)
	}

	out := make([]*types.MemoryRecord, 0, len(models))
	for i := range models {
		rec, err := memoryRecordFromModel(&models[i])
		if err != nil {
			s.logger.Warn("skipping undecodable memory record", map[string]interface{}{
				"record_id": models[i].ID,
				"error":     err.Error(),
			})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Summary operations

// AppendSummary appends a block summary
func (s *Store) AppendSummary(ctx context.Context, summary *types.ConversationSummary) error {
	model := &SummaryModel{
		ID:             summary.ID,
		ConversationID: summary.ConversationID,
		Text:           summary.Text,
		MessageCount:   summary.MessageCount,
		FirstMessageID: summary.FirstMessageID,
		LastMessageID:  summary.LastMessageID,
		CreatedAt:      summary.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("summary", err)
	}
	summary.ID = model.ID
	return nil
}

// Summaries returns the summaries of a conversation in creation order
func (s *Store) Summaries(ctx context.Context, conversationID string) ([]*types.ConversationSummary, error) {
	var models []SummaryModel
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("summaries", err)
	}

	out := make([]*types.ConversationSummary, len(models))
	for i := range models {
		out[i] = summaryFromModel(&models[i])
	}
	return out, nil
}

// Preference operations

// Profile returns the stored profile, or nil when none exists
func (s *Store) Profile(ctx context.Context, userID, personaID string) (*types.PreferenceProfile, error) {
	var model PreferenceProfileModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("preference profile", err)
	}
	return profileFromModel(&model), nil
}

// UpsertProfile creates or replaces the profile for its pair
func (s *Store) UpsertProfile(ctx context.Context, profile *types.PreferenceProfile) error {
	model := &PreferenceProfileModel{
		UserID:             profile.UserID,
		PersonaID:          profile.PersonaID,
		PreferredLength:    string(profile.PreferredLength),
		PreferredTone:      profile.PreferredTone,
		EmojiLevel:         string(profile.EmojiLevel),
		ExemplarCount:      profile.ExemplarCount,
		Confidence:         profile.Confidence,
		TotalFeedbacks:     profile.TotalFeedbacks,
		TotalConversations: profile.TotalConversations,
		PositiveRatio:      profile.PositiveRatio,
		LastUpdated:        profile.LastUpdated,
	}
	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("preference profile", err)
	}
	return nil
}

// Feedback operations

// AddMessageFeedback records one helpful/unhelpful signal
func (s *Store) AddMessageFeedback(ctx context.Context, fb *types.MessageFeedback) error {
	model := &MessageFeedbackModel{
		ID:        fb.ID,
		MessageID: fb.MessageID,
		UserID:    fb.UserID,
		Helpful:   fb.Helpful,
		Text:      fb.Text,
		CreatedAt: fb.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("feedback", err)
	}
	fb.ID = model.ID
	fb.CreatedAt = model.CreatedAt
	return nil
}

// AddConversationRating records one 1-5 conversation rating
func (s *Store) AddConversationRating(ctx context.Context, rating *types.ConversationRating) error {
	if rating.Rating < 1 || rating.Rating > 5 {
		return counselerrors.NewValidationError("rating must be between 1 and 5")
	}
	model := &ConversationRatingModel{
		ID:             rating.ID,
		ConversationID: rating.ConversationID,
		UserID:         rating.UserID,
		Rating:         rating.Rating,
		CreatedAt:      rating.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("rating", err)
	}
	rating.ID = model.ID
	return nil
}

// MessageFeedback returns feedback signals by a user since t
func (s *Store) MessageFeedback(ctx context.Context, userID string, since time.Time) ([]*types.MessageFeedback, error) {
	var models []MessageFeedbackModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("feedback", err)
	}

	out := make([]*types.MessageFeedback, len(models))
	for i := range models {
		out[i] = feedbackFromModel(&models[i])
	}
	return out, nil
}

// FeedbackForMessage returns the feedback a user gave one message, or nil
func (s *Store) FeedbackForMessage(ctx context.Context, messageID, userID string) (*types.MessageFeedback, error) {
	var model MessageFeedbackModel
	err := s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Order("created_at DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("feedback", err)
	}
	return feedbackFromModel(&model), nil
}

// ConversationRatings returns 1-5 ratings by a user since t
func (s *Store) ConversationRatings(ctx context.Context, userID string, since time.Time) ([]*types.ConversationRating, error) {
	var models []ConversationRatingModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("ratings", err)
	}

	out := make([]*types.ConversationRating, len(models))
	for i := range models {
		out[i] = &types.ConversationRating{
			ID:             models[i].ID,
			ConversationID: models[i].ConversationID,
			UserID:         models[i].UserID,
			Rating:         models[i].Rating,
			CreatedAt:      models[i].CreatedAt,
		}
	}
	return out, nil
}

// Persona operations

// CreatePersona stores a counselor identity
func (s *Store) CreatePersona(ctx context.Context, persona *types.Persona) error {
	model := &PersonaModel{
		ID:           persona.ID,
		Name:         persona.Name,
		Personality:  persona.Personality,
		SystemPrompt: persona.SystemPrompt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return counselerrors.NewWriteFailedError("persona", err)
	}
	persona.ID = model.ID
	return nil
}

// Persona returns one persona, or nil when absent
func (s *Store) Persona(ctx context.Context, id string) (*types.Persona, error) {
	var model PersonaModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, counselerrors.NewQueryFailedError("persona", err)
	}
	return &types.Persona{
		ID:           model.ID,
		Name:         model.Name,
		Personality:  model.Personality,
		SystemPrompt: model.SystemPrompt,
	}, nil
}

// Crisis audit

// Record logs one assessment. Failures are logged and swallowed so the
// audit trail never affects a turn.
func (s *Store) Record(ctx context.Context, userID, conversationID string, assessment *types.CrisisAssessment) {
	model := &CrisisAuditModel{
		UserID:         userID,
		ConversationID: conversationID,
		Level:          string(assessment.Level),
		Categories:     strings.Join(assessment.Categories, ","),
		Keywords:       strings.Join(assessment.Keywords, ","),
		Confidence:     assessment.Confidence,
		DetectedAt:     assessment.DetectedAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		s.logger.Error("failed to record crisis audit entry", err, map[string]interface{}{
			"user_id": userID,
			"level":   assessment.Level,
		})
	}
}

// Model conversions

func conversationFromModel(m *ConversationModel) *types.Conversation {
	return &types.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		PersonaID: m.PersonaID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageFromModel(m *MessageModel) *types.Message {
	return &types.Message{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		Role:            types.MessageRole(m.Role),
		Content:         m.Content,
		DetectedEmotion: m.DetectedEmotion,
		CreatedAt:       m.CreatedAt,
	}
}

func memoryRecordFromModel(m *MemoryRecordModel) (*types.MemoryRecord, error) {
	content := map[string]string{}
	if err := json.Unmarshal([]byte(m.Content), &content); err != nil {
		return nil, err
	}
	return &types.MemoryRecord{
		ID:                   m.ID,
		UserID:               m.UserID,
		PersonaID:            m.PersonaID,
		Kind:                 types.MemoryKind(m.Kind),
		Content:              content,
		Confidence:           m.Confidence,
		SourceConversationID: m.SourceConversationID,
		CreatedAt:            m.CreatedAt,
	}, nil
}

func summaryFromModel(m *SummaryModel) *types.ConversationSummary {
	return &types.ConversationSummary{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Text:           m.Text,
		MessageCount:   m.MessageCount,
		FirstMessageID: m.FirstMessageID,
		LastMessageID:  m.LastMessageID,
		CreatedAt:      m.CreatedAt,
	}
}

func profileFromModel(m *PreferenceProfileModel) *types.PreferenceProfile {
	return &types.PreferenceProfile{
		UserID:             m.UserID,
		PersonaID:          m.PersonaID,
		PreferredLength:    types.ResponseLength(m.PreferredLength),
		PreferredTone:      m.PreferredTone,
		EmojiLevel:         types.EmojiLevel(m.EmojiLevel),
		ExemplarCount:      m.ExemplarCount,
		Confidence:         m.Confidence,
		TotalFeedbacks:     m.TotalFeedbacks,
		TotalConversations: m.TotalConversations,
		PositiveRatio:      m.PositiveRatio,
		LastUpdated:        m.LastUpdated,
	}
}

func feedbackFromModel(m *MessageFeedbackModel) *types.MessageFeedback {
	return &types.MessageFeedback{
		ID:        m.ID,
		MessageID: m.MessageID,
		UserID:    m.UserID,
		Helpful:   m.Helpful,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
