// ABOUTME: Read-side snapshot of controller state for the web layer
// ABOUTME: All accessors return copies so callers never alias internal state

package controller

import (
	"time"

	"github.com/nosta/ragchat/internal/agent"
	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/store"
)

// ConversationSummary is conversation metadata without the message log.
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"timestamp"`
	Messages  int    `json:"message_count"`
	Loading   bool   `json:"loading"`
}

// Snapshot is one consistent view of the controller for rendering.
type Snapshot struct {
	SessionID          string                `json:"session_id"`
	ActiveConversation string                `json:"active_conversation"`
	Conversations      []ConversationSummary `json:"conversations"`
	Messages           []store.Message       `json:"messages"`
	ActiveAgent        *agent.Agent          `json:"active_agent,omitempty"`
	PendingAgent       *agent.Agent          `json:"pending_agent,omitempty"`
	ActiveSources      []docs.Document       `json:"active_sources"`
	Loading            bool                  `json:"loading"`
}

// Snapshot captures the current state under one lock acquisition.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{
		SessionID:          c.sessions.SessionID(),
		ActiveConversation: c.activeID,
		Messages:           append([]store.Message(nil), c.buffer...),
		ActiveSources:      append([]docs.Document(nil), c.activeSources...),
	}
	if snap.Messages == nil {
		snap.Messages = []store.Message{}
	}
	if snap.ActiveSources == nil {
		snap.ActiveSources = []docs.Document{}
	}

	for _, conv := range c.conversations {
		count := len(c.logs[conv.ID])
		if conv.ID == c.activeID {
			count = len(c.buffer)
		}
		_, loading := c.inflight[conv.ID]
		snap.Conversations = append(snap.Conversations, ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt.Format(time.RFC3339),
			Messages:  count,
			Loading:   loading,
		})
	}
	if snap.Conversations == nil {
		snap.Conversations = []ConversationSummary{}
	}

	if c.activeAgent != "" {
		if a, err := c.registry.Get(c.activeAgent); err == nil {
			snap.ActiveAgent = a
		}
	}
	if c.pendingAgent != "" {
		if a, err := c.registry.Get(c.pendingAgent); err == nil {
			snap.PendingAgent = a
		}
	}
	_, snap.Loading = c.inflight[c.activeID]

	return snap
}

// Messages returns a copy of the named conversation's log.
func (c *Controller) Messages(conversationID string) ([]store.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.conversationExistsLocked(conversationID) {
		return nil, ErrConversationNotFound
	}
	if conversationID == c.activeID {
		return append([]store.Message(nil), c.buffer...), nil
	}
	return append([]store.Message(nil), c.logs[conversationID]...), nil
}

// ActiveConversationID returns the id of the active conversation.
func (c *Controller) ActiveConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}
