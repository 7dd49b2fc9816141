// ABOUTME: Store types and errors for ragchat persistence
// ABOUTME: Defines ChatState, stored conversations/messages and preference keys

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no usable data exists for a key. Corrupt
// persisted data is reported the same way: callers must treat both
// identically to a fresh install.
var ErrNotFound = errors.New("not found")

// Preference keys persisted independently of any conversation.
const (
	PrefSelectedAgent     = "selected_agent"
	PrefLanguage          = "language"
	PrefTheme             = "theme"
	PrefEndpointOverrides = "endpoint_overrides"
)

// Sender values for stored messages.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Feedback is a snapshot attached to at most one message. Resubmission
// overwrites the previous attachment.
type Feedback struct {
	Type        string    `json:"type"`
	Comment     string    `json:"comment,omitempty"`
	Content     string    `json:"message_content"`
	Images      []string  `json:"message_images,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Message is immutable once created except for the attached feedback.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Images    []string  `json:"images,omitempty"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id,omitempty"`
	Feedback  *Feedback `json:"feedback,omitempty"`
}

// DocumentRef is the per-conversation snapshot of an active document source.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size string `json:"size,omitempty"`
	Kind string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Conversation carries its embedded message log and active-source snapshot.
type Conversation struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	CreatedAt     time.Time     `json:"timestamp"`
	Messages      []Message     `json:"messages"`
	ActiveSources []DocumentRef `json:"active_data_sources,omitempty"`
}

// ChatState is the full persisted state for one user scope.
type ChatState struct {
	Conversations      []Conversation `json:"conversations"`
	ActiveConversation string         `json:"active_conversation,omitempty"`
	LastUpdated        time.Time      `json:"last_updated"`
}
