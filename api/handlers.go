package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maumtalk/counselgo/pkg/pipeline"
	"github.com/maumtalk/counselgo/pkg/types"
)

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) createConversation(c *gin.Context) {
	var req ConversationCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona, err := s.store.Persona(c.Request.Context(), req.PersonaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if persona == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persona not found"})
		return
	}

	conv := &types.Conversation{
		UserID:    userID(c),
		PersonaID: req.PersonaID,
		Title:     req.Title,
	}
	if err := s.store.CreateConversation(c.Request.Context(), conv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) listConversations(c *gin.Context) {
	personaID := c.Query("persona_id")
	if personaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "persona_id query parameter is required"})
		return
	}
	limit := intQuery(c, "limit", 20)
	sinceDays := intQuery(c, "since_days", 365)

	since := time.Now().UTC().AddDate(0, 0, -sinceDays)
	convs, err := s.store.RecentConversations(c.Request.Context(), userID(c), personaID, "", since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = []*types.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) getConversation(c *gin.Context) {
	conv := s.ownedConversation(c)
	if conv == nil {
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) getConversationMessages(c *gin.Context) {
	conv := s.ownedConversation(c)
	if conv == nil {
		return
	}

	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", 50)

	msgs, err := s.store.MessagesAfter(c.Request.Context(), conv.ID, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []*types.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// streamChatMessage runs one counseling turn, streaming the reply as SSE.
// Events carry a JSON payload with a type of chunk, done, or error; the
// done event names the persisted assistant message.
func (s *Server) streamChatMessage(c *gin.Context) {
	conv := s.ownedConversation(c)
	if conv == nil {
		return
	}

	var req MessageCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.gate != nil {
		if err := s.gate(c); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}

	persona, err := s.store.Persona(c.Request.Context(), conv.PersonaID)
	if err != nil {
		s.logger.Warn("failed to load persona for turn", map[string]interface{}{
			"persona_id": conv.PersonaID,
			"error":      err.Error(),
		})
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	stream := make(chan string, 32)
	type outcome struct {
		result *pipeline.TurnResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := s.pipeline.ProcessTurn(c.Request.Context(), &pipeline.TurnRequest{
			UserID:         userID(c),
			UserName:       userName(c),
			ConversationID: conv.ID,
			Persona:        persona,
			Message:        req.Content,
			UseReasoning:   req.UseReasoning,
		}, stream)
		close(stream)
		done <- outcome{result, err}
	}()

	for chunk := range stream {
		writeEvent(c.Writer, streamEvent{Type: "chunk", Content: chunk})
		c.Writer.Flush()
	}

	turn := <-done
	if turn.err != nil {
		writeEvent(c.Writer, streamEvent{Type: "error", Error: turn.err.Error()})
	} else {
		writeEvent(c.Writer, streamEvent{Type: "done", MessageID: turn.result.MessageID})
	}
	c.Writer.Flush()
}

func (s *Server) createMessageFeedback(c *gin.Context) {
	var req MessageFeedbackCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := s.store.MessageByID(c.Request.Context(), req.MessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	fb := &types.MessageFeedback{
		MessageID: req.MessageID,
		UserID:    userID(c),
		Helpful:   *req.Helpful,
		Text:      req.Text,
	}
	if err := s.store.AddMessageFeedback(c.Request.Context(), fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) getMessageFeedback(c *gin.Context) {
	fb, err := s.store.FeedbackForMessage(c.Request.Context(), c.Param("message_id"), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if fb == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (s *Server) createConversationRating(c *gin.Context) {
	var req ConversationRatingCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := s.store.Conversation(c.Request.Context(), req.ConversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conv == nil || conv.UserID != userID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	rating := &types.ConversationRating{
		ConversationID: req.ConversationID,
		UserID:         userID(c),
		Rating:         req.Rating,
	}
	if err := s.store.AddConversationRating(c.Request.Context(), rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (s *Server) createPersona(c *gin.Context) {
	var req PersonaCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona := &types.Persona{
		Name:         req.Name,
		Personality:  req.Personality,
		SystemPrompt: req.SystemPrompt,
	}
	if err := s.store.CreatePersona(c.Request.Context(), persona); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, persona)
}

func (s *Server) getPersona(c *gin.Context) {
	persona, err := s.store.Persona(c.Request.Context(), c.Param("persona_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if persona == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persona not found"})
		return
	}
	c.JSON(http.StatusOK, persona)
}

// ownedConversation loads the conversation in the path and checks it
// belongs to the caller. Writes the error response and returns nil when
// it does not.
func (s *Server) ownedConversation(c *gin.Context) *types.Conversation {
	conv, err := s.store.Conversation(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	if conv == nil || conv.UserID != userID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return nil
	}
	return conv
}

func writeEvent(w io.Writer, ev streamEvent) {
	payload, _ := json.Marshal(ev)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
