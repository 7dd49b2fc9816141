// ABOUTME: Conversation lifecycle operations: create, switch, rename, delete, append
// ABOUTME: Maintains ordering and isolation invariants across conversation switches

package controller

import (
	"errors"
	"time"

	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/store"
)

// ErrConversationNotFound is returned for operations naming an unknown
// conversation. State is left unchanged.
var ErrConversationNotFound = errors.New("conversation not found")

// NewConversationTitle is the placeholder title until the first user message
// sets a real one.
const NewConversationTitle = "New Conversation"

// maxTitleRunes bounds auto-set conversation titles.
const maxTitleRunes = 50

// StartNewChat flushes the active conversation's buffer, mints a new session
// id as the new conversation id, and makes the new conversation active with
// an empty active-source set.
func (c *Controller) StartNewChat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startNewChatLocked()
}

func (c *Controller) startNewChatLocked() string {
	c.flushLocked()

	id := c.sessions.NewSession()
	conv := store.Conversation{
		ID:        id,
		Title:     NewConversationTitle,
		CreatedAt: time.Now(),
	}
	c.conversations = append([]store.Conversation{conv}, c.conversations...)
	c.logs[id] = nil
	c.activeID = id
	c.buffer = nil
	c.activeSources = nil

	c.persistLocked()
	c.logger.Debug("new conversation started", "conversation_id", id)
	return id
}

// SelectConversation flushes the current buffer, switches to the named
// conversation, hydrates its log, and recomputes active document sources
// from its AI messages.
func (c *Controller) SelectConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.conversationExistsLocked(id) {
		return ErrConversationNotFound
	}

	c.flushLocked()
	c.activateLocked(id)
	c.persistLocked()
	return nil
}

// activateLocked switches the active conversation and rebuilds derived state.
func (c *Controller) activateLocked(id string) {
	c.activeID = id
	c.buffer = append([]store.Message(nil), c.logs[id]...)
	c.activeSources = c.matchSourcesLocked(c.buffer)
}

// matchSourcesLocked scans AI messages for catalog document names. The
// heuristic may over- and under-match; duplicates are suppressed by id.
func (c *Controller) matchSourcesLocked(messages []store.Message) []docs.Document {
	var sources []docs.Document
	seen := make(map[string]bool)
	for _, msg := range messages {
		if msg.Sender != store.SenderAI {
			continue
		}
		for _, doc := range docs.MatchByName(msg.Content, c.catalog) {
			if seen[doc.ID] {
				continue
			}
			sources = append(sources, doc)
			seen[doc.ID] = true
		}
	}
	return sources
}

// flushLocked copies the in-memory buffer into the per-conversation log so a
// switch can never lose unsaved messages.
func (c *Controller) flushLocked() {
	if c.activeID == "" {
		return
	}
	c.logs[c.activeID] = append([]store.Message(nil), c.buffer...)
}

// AddMessage appends a message to the active conversation. The in-memory
// buffer and the durable log both reflect the message before the call
// returns; ordering is strictly arrival order.
func (c *Controller) AddMessage(msg store.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(c.activeID, msg)
}

// appendLocked appends to the named conversation's log, and to the buffer
// when that conversation is active. Messages for conversations deleted while
// a send was in flight are dropped.
func (c *Controller) appendLocked(conversationID string, msg store.Message) {
	if !c.conversationExistsLocked(conversationID) {
		c.logger.Debug("dropping message for unknown conversation",
			"conversation_id", conversationID, "message_id", msg.ID)
		return
	}

	c.logs[conversationID] = append(c.logs[conversationID], msg)
	if conversationID == c.activeID {
		c.buffer = append(c.buffer, msg)
	}
	c.persistLocked()
}

// UpdateConversationTitle renames a conversation. Message logs are untouched.
func (c *Controller) UpdateConversationTitle(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.conversations {
		if c.conversations[i].ID == id {
			c.conversations[i].Title = title
			c.persistLocked()
			return nil
		}
	}
	return ErrConversationNotFound
}

// DeleteConversation removes the conversation and its log. Deleting the
// active conversation immediately starts a new chat: the system is never
// left without an active conversation.
func (c *Controller) DeleteConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.conversationExistsLocked(id) {
		return ErrConversationNotFound
	}

	if cancel, ok := c.inflight[id]; ok {
		cancel()
		delete(c.inflight, id)
	}

	for i := range c.conversations {
		if c.conversations[i].ID == id {
			c.conversations = append(c.conversations[:i], c.conversations[i+1:]...)
			break
		}
	}
	delete(c.logs, id)

	if c.activeID == id {
		c.activeID = ""
		c.buffer = nil
		c.activeSources = nil
		c.startNewChatLocked()
		return nil
	}

	c.persistLocked()
	return nil
}

// titleFromContent derives a bounded conversation title from the first user
// message.
func titleFromContent(content string) string {
	runes := []rune(content)
	if len(runes) <= maxTitleRunes {
		return content
	}
	return string(runes[:maxTitleRunes-3]) + "..."
}
