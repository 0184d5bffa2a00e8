package chat

import (
	"encoding/json"
	"time"
)

// Visibility controls who may read a conversation.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether the visibility is one of the known values.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// UserClass selects the quota ceiling applied to a user.
type UserClass string

const (
	ClassGuest   UserClass = "guest"
	ClassRegular UserClass = "regular"
)

// Conversation is a chat thread owned by a single user. The owner is
// immutable after creation.
type Conversation struct {
	ID         uint       `json:"-"`
	PublicID   string     `json:"id"`
	UserID     string     `json:"-"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Message is one entry in a conversation's append-only sequence, ordered by
// creation time.
type Message struct {
	ID             uint         `json:"-"`
	PublicID       string       `json:"id"`
	ConversationID uint         `json:"-"`
	Role           Role         `json:"role"`
	Parts          []Part       `json:"parts"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PartType discriminates message content parts.
type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeToolInvocation PartType = "tool-invocation"
	PartTypeToolResult     PartType = "tool-result"
)

// Part is one unit of message content. Exactly one of the payload fields is
// set depending on Type.
type Part struct {
	Type           PartType        `json:"type"`
	Text           string          `json:"text,omitempty"`
	ToolInvocation *ToolInvocation `json:"tool_invocation,omitempty"`
	ToolResult     *ToolResult     `json:"tool_result,omitempty"`
}

// ToolInvocation records a model-initiated tool call embedded in an
// assistant message.
type ToolInvocation struct {
	CallID    string          `json:"call_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult records the structured outcome of a tool invocation.
type ToolResult struct {
	CallID   string          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    *ToolResultError `json:"error,omitempty"`
}

// ToolResultError is the structured error payload of a failed invocation.
type ToolResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Attachment references an uploaded file included with a user message.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// StreamHandleState is the lifecycle state of a resumable stream handle.
type StreamHandleState string

const (
	StreamStateActive    StreamHandleState = "active"
	StreamStateCompleted StreamHandleState = "completed"
	StreamStateExpired   StreamHandleState = "expired"
)

// StreamHandle is the durable index entry pointing at one turn's resumable
// stream. Only the most recent handle per conversation is resumable.
type StreamHandle struct {
	ID             uint              `json:"-"`
	PublicID       string            `json:"id"`
	ConversationID uint              `json:"-"`
	State          StreamHandleState `json:"state"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Text concatenates the message's text parts.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}
