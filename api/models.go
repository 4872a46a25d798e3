package api

// ConversationCreate starts a new conversation with a persona
type ConversationCreate struct {
	PersonaID string `json:"persona_id" binding:"required"`
	Title     string `json:"title,omitempty"`
}

// MessageCreate is one user turn entering the streaming chat endpoint
type MessageCreate struct {
	Content      string `json:"content" binding:"required"`
	UseReasoning bool   `json:"use_reasoning,omitempty"`
}

// MessageFeedbackCreate marks one assistant message helpful or not
type MessageFeedbackCreate struct {
	MessageID string `json:"message_id" binding:"required"`
	Helpful   *bool  `json:"helpful" binding:"required"`
	Text      string `json:"text,omitempty"`
}

// ConversationRatingCreate rates a whole conversation 1-5
type ConversationRatingCreate struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Rating         int    `json:"rating" binding:"required,min=1,max=5"`
}

// PersonaCreate configures a counselor identity
type PersonaCreate struct {
	Name         string `json:"name" binding:"required"`
	Personality  string `json:"personality" binding:"required"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// streamEvent is one SSE payload of the chat stream. Exactly one of the
// optional fields is set, selected by Type (chunk, done, error).
type streamEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
