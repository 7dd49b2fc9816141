// ABOUTME: Send orchestration: user message append, webhook round-trip, reply append
// ABOUTME: Every send closes over the conversation id captured at call time

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nosta/ragchat/internal/store"
	"github.com/nosta/ragchat/internal/webhook"
)

// ErrSendInProgress is returned when a send is already outstanding for the
// conversation. Other conversations are unaffected.
var ErrSendInProgress = errors.New("a send is already in progress for this conversation")

// ErrAborted re-exports the webhook abort sentinel for callers that only
// import the controller.
var ErrAborted = webhook.ErrAborted

// emptyReplyFallback is appended when a webhook succeeds but normalization
// produced only whitespace.
const emptyReplyFallback = "No response content received"

// SendMessage appends the user's turn to the active conversation, performs
// the webhook round-trip, and appends the normalized reply — to the
// conversation that was active at send time, regardless of where the user
// has navigated meanwhile.
//
// Webhook failures come back as a synthetic AI message, not an error; only
// an abort (ErrAborted) or a concurrent-send conflict is returned to the
// caller, with nothing appended.
func (c *Controller) SendMessage(ctx context.Context, content string) (*store.Message, error) {
	c.mu.Lock()

	conversationID := c.activeID
	agentID := c.activeAgent

	if _, busy := c.inflight[conversationID]; busy {
		c.mu.Unlock()
		return nil, ErrSendInProgress
	}

	endpoint := c.resolveEndpointLocked(agentID)
	c.appendUserMessageLocked(conversationID, agentID, content)

	sendCtx, cancel := context.WithCancel(ctx)
	c.inflight[conversationID] = cancel
	c.mu.Unlock()

	result, err := c.webhooks.Send(sendCtx, content, endpoint)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, conversationID)

	return c.finishSendLocked(conversationID, agentID, result, err)
}

// SendFile is the multipart variant for file-bearing turns. The uploaded
// turn is recorded as a user message naming the file.
func (c *Controller) SendFile(ctx context.Context, filename string, file io.Reader, note string) (*store.Message, error) {
	c.mu.Lock()

	conversationID := c.activeID
	agentID := c.activeAgent

	if _, busy := c.inflight[conversationID]; busy {
		c.mu.Unlock()
		return nil, ErrSendInProgress
	}

	chatInput := note
	if chatInput == "" {
		chatInput = "Document upload"
	}

	endpoint := c.resolveEndpointLocked(agentID)
	c.appendUserMessageLocked(conversationID, agentID, fmt.Sprintf("File uploaded: %s", filename))

	sendCtx, cancel := context.WithCancel(ctx)
	c.inflight[conversationID] = cancel
	c.mu.Unlock()

	result, err := c.webhooks.SendFile(sendCtx, filename, file, chatInput, endpoint)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, conversationID)

	return c.finishSendLocked(conversationID, agentID, result, err)
}

// appendUserMessageLocked records the user turn and auto-titles the
// conversation from its first message.
func (c *Controller) appendUserMessageLocked(conversationID, agentID, content string) {
	firstMessage := len(c.logs[conversationID]) == 0

	c.appendLocked(conversationID, store.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Sender:    store.SenderUser,
		Timestamp: time.Now(),
		AgentID:   agentID,
	})

	if firstMessage {
		for i := range c.conversations {
			if c.conversations[i].ID == conversationID {
				c.conversations[i].Title = titleFromContent(content)
				c.persistLocked()
				break
			}
		}
	}
}

// finishSendLocked turns the webhook outcome into a conversation append. An
// abort appends nothing so a canceled send can never leave a duplicate or
// partial reply behind.
func (c *Controller) finishSendLocked(conversationID, agentID string, result *webhook.Result, err error) (*store.Message, error) {
	if errors.Is(err, webhook.ErrAborted) {
		c.logger.Debug("send aborted", "conversation_id", conversationID)
		return nil, ErrAborted
	}

	msg := store.Message{
		ID:        uuid.New().String(),
		Sender:    store.SenderAI,
		Timestamp: time.Now(),
		AgentID:   agentID,
	}

	if err != nil {
		c.logger.Warn("webhook send failed", "error", err, "conversation_id", conversationID)
		msg.Content = fmt.Sprintf("Error: %v. Please check your webhook configuration in Settings.", err)
		c.appendLocked(conversationID, msg)
		return &msg, nil
	}

	msg.Content = strings.TrimSpace(result.Response)
	if msg.Content == "" {
		msg.Content = emptyReplyFallback
	}
	msg.Images = result.Images
	c.appendLocked(conversationID, msg)

	// Fold newly referenced documents into the active sources when the reply
	// landed in the conversation the user is still looking at
	if conversationID == c.activeID {
		for _, doc := range c.matchSourcesLocked([]store.Message{msg}) {
			c.addSourceLocked(doc)
		}
	}

	return &msg, nil
}

// CancelSend aborts the in-flight send for a conversation, if any. The
// loading state clears deterministically and no reply is appended.
func (c *Controller) CancelSend(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancel, ok := c.inflight[conversationID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// IsLoading reports whether a send is outstanding for the conversation.
func (c *Controller) IsLoading(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[conversationID]
	return ok
}

// resolveEndpointLocked resolves the webhook target: per-agent override map
// first, then the agent's catalog endpoint, then the configured default.
func (c *Controller) resolveEndpointLocked(agentID string) string {
	if agentID != "" {
		if override, ok := c.overrides[agentID]; ok && override != "" {
			return override
		}
		if a, err := c.registry.Get(agentID); err == nil && a.Endpoint != "" {
			return a.Endpoint
		}
	}
	return c.defaultEndpoint
}
