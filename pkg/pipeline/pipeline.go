// Package pipeline orchestrates one counseling turn: crisis detection,
// emotion classification, context gathering, prompt assembly, streamed
// generation with leakage filtering, validation, and persistence, followed
// by detached background learning work.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/crisis"
	"github.com/maumtalk/counselgo/pkg/emotion"
	counselerrors "github.com/maumtalk/counselgo/pkg/errors"
	"github.com/maumtalk/counselgo/pkg/exemplar"
	"github.com/maumtalk/counselgo/pkg/filter"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/memory"
	"github.com/maumtalk/counselgo/pkg/preference"
	"github.com/maumtalk/counselgo/pkg/prompt"
	"github.com/maumtalk/counselgo/pkg/summary"
	"github.com/maumtalk/counselgo/pkg/types"
	"github.com/maumtalk/counselgo/pkg/validator"
)

// fallbackReply is returned when generation fails or produces nothing.
// A counseling chat must never hard-fail mid-conversation.
const fallbackReply = "죄송해요, 지금은 답변을 만들기 어려워요. 잠시 후에 다시 이야기해 주시겠어요? 기다리고 있을게요."

// crossConvWindowDays bounds how far back other-conversation context reaches
const crossConvWindowDays = 30

// Deps carries everything a Pipeline needs
type Deps struct {
	Config    *config.PipelineConfig
	LLM       interfaces.LLM
	Messages  interfaces.MessageStore
	Memory    interfaces.MemoryStore
	Feedback  interfaces.FeedbackStore
	Prefs     interfaces.PreferenceStore
	Summaries interfaces.SummaryStore
	Auditor   interfaces.CrisisAuditor
	Detector  *crisis.Detector
	Logger    interfaces.Logger
	Metrics   interfaces.Metrics
}

// Pipeline processes counseling turns
type Pipeline struct {
	cfg        *config.PipelineConfig
	llm        interfaces.LLM
	messages   interfaces.MessageStore
	summaries  interfaces.SummaryStore
	auditor    interfaces.CrisisAuditor
	detector   *crisis.Detector
	classifier *emotion.Classifier
	accessor   *memory.Accessor
	extractor  *memory.Extractor
	learner    *preference.Learner
	selector   *exemplar.Selector
	summarizer *summary.Summarizer
	validator  *validator.Validator
	logger     interfaces.Logger
	metrics    interfaces.Metrics
	background *backgroundRunner
}

// NewPipeline wires the turn pipeline from its dependencies
func NewPipeline(deps *Deps) (*Pipeline, error) {
	if deps.Config == nil || deps.LLM == nil || deps.Messages == nil || deps.Detector == nil {
		return nil, counselerrors.NewInvalidInputError("pipeline requires config, llm, message store, and crisis detector")
	}

	return &Pipeline{
		cfg:        deps.Config,
		llm:        deps.LLM,
		messages:   deps.Messages,
		summaries:  deps.Summaries,
		auditor:    deps.Auditor,
		detector:   deps.Detector,
		classifier: emotion.NewClassifier(deps.LLM, deps.Config, deps.Logger),
		accessor:   memory.NewAccessor(deps.Memory, deps.Config),
		extractor:  memory.NewExtractor(deps.LLM, deps.Messages, deps.Memory, deps.Config, deps.Logger),
		learner:    preference.NewLearner(deps.Messages, deps.Feedback, deps.Prefs, deps.Config, deps.Logger),
		selector:   exemplar.NewSelector(deps.Messages, deps.Feedback, deps.Config, deps.Logger),
		summarizer: summary.NewSummarizer(deps.LLM, deps.Messages, deps.Summaries, deps.Config, deps.Logger),
		validator:  validator.NewValidator(deps.Config, deps.Logger),
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		background: newBackgroundRunner(),
	}, nil
}

// TurnRequest is one user message entering the pipeline
type TurnRequest struct {
	UserID         string
	UserName       string
	ConversationID string
	Persona        *types.Persona
	Message        string
	UseReasoning   bool
}

// TurnResult is what a completed turn produced
type TurnResult struct {
	MessageID    string
	Reply        string
	Crisis       *types.CrisisAssessment
	Emotion      types.EmotionResult
	Validation   *types.ValidationResult
	FallbackUsed bool
}

// ProcessTurn runs one full turn. When stream is non-nil, filtered reply
// fragments are sent to it as they arrive; the caller owns the channel
// and must keep receiving until ProcessTurn returns. The persisted reply
// always equals the concatenation of the streamed fragments.
func (p *Pipeline) ProcessTurn(ctx context.Context, req *TurnRequest, stream chan<- string) (*TurnResult, error) {
	started := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		return nil, counselerrors.NewInvalidInputError("message must not be empty")
	}
	if req.ConversationID == "" || req.UserID == "" {
		return nil, counselerrors.NewMissingFieldError("conversation_id and user_id")
	}

	assessment := p.detector.Detect(req.Message)
	emo := p.classifier.Classify(ctx, req.Message)

	userMsg := &types.Message{
		ConversationID:  req.ConversationID,
		Role:            types.MessageRoleUser,
		Content:         req.Message,
		DetectedEmotion: emo.PrimaryEmotion,
	}
	if err := p.messages.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	if err := p.messages.TouchConversation(ctx, req.ConversationID, req.Message); err != nil {
		p.logger.Warn("failed to touch conversation", map[string]interface{}{
			"conversation_id": req.ConversationID,
			"error":           err.Error(),
		})
	}

	personaID := ""
	if req.Persona != nil {
		personaID = req.Persona.ID
	}

	profile := p.loadProfile(ctx, req.UserID, personaID)
	input := p.buildInput(ctx, req, emo, profile, personaID)

	assembly := prompt.Optimize(prompt.NewAssembler().Assemble(input), p.cfg.TokenBudget)

	crisisMessage := ""
	if assessment.Level != types.CrisisLevelNone {
		crisisMessage = p.detector.ResponseTemplate(assessment.Level, req.UserName)
	}

	// High/critical turns lead with the hotline information; it must not
	// depend on the model producing anything
	if stream != nil && crisisMessage != "" && assessment.Level != types.CrisisLevelMedium {
		p.emit(ctx, stream, crisisMessage+"\n\n---\n\n")
	}

	reply, fallbackUsed := p.generateReply(ctx, assembly.Messages(), stream)

	validation := p.validator.Validate(reply, emo, assessment.Level)
	if !validation.Passed && stream == nil && !fallbackUsed {
		// In the non-streamed path a rejected reply can still be replaced
		// before anything reaches the user
		p.logger.Warn("replacing rejected reply with fallback", map[string]interface{}{
			"conversation_id": req.ConversationID,
			"issues":          validation.Issues,
		})
		reply = fallbackReply
		fallbackUsed = true
	}

	final := validator.Augment(reply, assessment.Level, crisisMessage)
	if stream != nil && crisisMessage != "" && assessment.Level == types.CrisisLevelMedium {
		p.emit(ctx, stream, "\n\n"+crisisMessage)
	}

	assistantMsg := &types.Message{
		ConversationID: req.ConversationID,
		Role:           types.MessageRoleAssistant,
		Content:        final,
	}
	if err := p.messages.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	// Audit is independent of validation outcome
	if p.auditor != nil && p.detector.ShouldAudit(assessment) {
		p.auditor.Record(ctx, req.UserID, req.ConversationID, assessment)
	}

	p.recordMetrics(assessment, validation, fallbackUsed, started)
	p.background.schedule(p, req.UserID, personaID, req.ConversationID)

	return &TurnResult{
		MessageID:    assistantMsg.ID,
		Reply:        final,
		Crisis:       assessment,
		Emotion:      emo,
		Validation:   validation,
		FallbackUsed: fallbackUsed,
	}, nil
}

// Wait blocks until all scheduled background work has finished
func (p *Pipeline) Wait() {
	p.background.wait()
}

func (p *Pipeline) loadProfile(ctx context.Context, userID, personaID string) *types.PreferenceProfile {
	profile, err := p.learner.Profile(ctx, userID, personaID)
	if err != nil {
		p.logger.Warn("failed to load preference profile", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return types.DefaultPreferenceProfile(userID, personaID)
	}
	return profile
}

// buildInput gathers every context source for the assembler. Each source
// degrades independently: a failed read logs a warning and contributes
// nothing rather than failing the turn.
func (p *Pipeline) buildInput(ctx context.Context, req *TurnRequest, emo types.EmotionResult, profile *types.PreferenceProfile, personaID string) *prompt.Input {
	input := &prompt.Input{
		Persona:         req.Persona,
		Emotion:         emo,
		EmotionGuidance: emotion.Guidance(emo, p.cfg),
		Preferences:     profile,
		UseReasoning:    req.UseReasoning,
	}

	if cats, err := p.accessor.Categorize(ctx, req.UserID, personaID); err != nil {
		p.logger.Warn("failed to load memory context", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
	} else {
		input.UserContext = memory.FormatContext(cats)
	}

	exemplarCount := profile.ExemplarCount
	if exemplarCount < 1 {
		exemplarCount = 3
	}
	input.Exemplars = p.selector.Select(ctx, req.UserID, personaID, emo.PrimaryEmotion, req.Message, exemplarCount)

	since := time.Now().UTC().AddDate(0, 0, -crossConvWindowDays)
	others, err := p.messages.RecentConversations(ctx, req.UserID, personaID, req.ConversationID, since, p.cfg.OtherConversations)
	if err != nil {
		p.logger.Warn("failed to load recent conversations", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		others = nil
	}
	input.CrossSummaries = p.crossSummaries(ctx, others)
	input.OtherExcerpts = p.otherExcerpts(ctx, others)
	input.CurrentSummary = p.currentSummary(ctx, req.ConversationID)

	history, err := p.messages.RecentMessages(ctx, req.ConversationID, p.cfg.RecentHistoryLimit)
	if err != nil {
		p.logger.Warn("failed to load recent history", map[string]interface{}{
			"conversation_id": req.ConversationID,
			"error":           err.Error(),
		})
		history = []*types.Message{{Role: types.MessageRoleUser, Content: req.Message}}
	}
	input.RecentHistory = history

	return input
}

func (p *Pipeline) crossSummaries(ctx context.Context, others []*types.Conversation) []*types.ConversationSummary {
	var out []*types.ConversationSummary
	for _, conv := range others {
		if len(out) >= p.cfg.CrossSummaryCount {
			break
		}
		sums, err := p.summaries.Summaries(ctx, conv.ID)
		if err != nil || len(sums) == 0 {
			continue
		}
		out = append(out, sums[len(sums)-1])
	}
	return out
}

func (p *Pipeline) otherExcerpts(ctx context.Context, others []*types.Conversation) []prompt.OtherConversation {
	var out []prompt.OtherConversation
	for _, conv := range others {
		msgs, err := p.messages.RecentMessages(ctx, conv.ID, p.cfg.OtherConvMessages)
		if err != nil || len(msgs) == 0 {
			continue
		}
		out = append(out, prompt.OtherConversation{
			Title:    conv.Title,
			Date:     conv.UpdatedAt,
			Messages: msgs,
		})
	}
	return out
}

func (p *Pipeline) currentSummary(ctx context.Context, conversationID string) string {
	sums, err := p.summaries.Summaries(ctx, conversationID)
	if err != nil || len(sums) == 0 {
		return ""
	}
	start := len(sums) - 3
	if start < 0 {
		start = 0
	}
	texts := make([]string, 0, 3)
	for _, s := range sums[start:] {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, "\n")
}

// generateReply streams the model output through the leakage filter.
// Generation failure or an empty result degrades to the fallback reply.
func (p *Pipeline) generateReply(ctx context.Context, messages types.MessageList, stream chan<- string) (string, bool) {
	ch := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.llm.GenerateStream(ctx, messages, ch)
		close(ch)
	}()

	cf := filter.NewChunkFilter()
	var raw strings.Builder
	for chunk := range ch {
		raw.WriteString(chunk)
		if out := cf.Write(chunk); out != "" {
			p.emit(ctx, stream, out)
		}
	}
	if out := cf.Flush(); out != "" {
		p.emit(ctx, stream, out)
	}

	if err := <-errCh; err != nil {
		p.logger.Error("generation failed, using fallback reply", err, nil)
		p.emit(ctx, stream, fallbackReply)
		return fallbackReply, true
	}

	final := filter.Clean(raw.String())
	if strings.TrimSpace(final) == "" {
		p.logger.Warn("generation produced no visible text, using fallback reply", nil)
		p.emit(ctx, stream, fallbackReply)
		return fallbackReply, true
	}
	return final, false
}

func (p *Pipeline) emit(ctx context.Context, stream chan<- string, text string) {
	if stream == nil {
		return
	}
	select {
	case stream <- text:
	case <-ctx.Done():
	}
}

func (p *Pipeline) recordMetrics(assessment *types.CrisisAssessment, validation *types.ValidationResult, fallbackUsed bool, started time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.Counter("pipeline_turns_total", 1, map[string]string{
		"crisis_level": string(assessment.Level),
	})
	if !validation.Passed {
		p.metrics.Counter("pipeline_validation_failures_total", 1, nil)
	}
	if fallbackUsed {
		p.metrics.Counter("pipeline_fallback_replies_total", 1, nil)
	}
	p.metrics.Timer("pipeline_turn_seconds", time.Since(started).Seconds(), nil)
}
