package dto

// SubmitChatRequest is the POST /v1/chat body. ID addresses the conversation
// and doubles as the create request for unknown ids.
type SubmitChatRequest struct {
	ID                     string     `json:"id" binding:"required"`
	Message                MessageDTO `json:"message" binding:"required"`
	SelectedChatModel      string     `json:"selected_chat_model"`
	SelectedVisibilityType string     `json:"selected_visibility_type"`
}

// MessageDTO carries the user's message.
type MessageDTO struct {
	ID          string          `json:"id"`
	Content     string          `json:"content" binding:"required"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

// AttachmentDTO references an uploaded file.
type AttachmentDTO struct {
	URL         string `json:"url" binding:"required"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}
