// ABOUTME: Active document source management and feedback attachment
// ABOUTME: Sources are per-conversation derived state plus explicit user toggles

package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/feedback"
	"github.com/nosta/ragchat/internal/store"
)

// ErrDocumentNotFound is returned when a source operation names a document
// that is not in the catalog.
var ErrDocumentNotFound = errors.New("document not found in catalog")

// ErrMessageNotFound is returned when feedback targets an unknown message in
// the active conversation.
var ErrMessageNotFound = errors.New("message not found in active conversation")

// FeedbackSubmitter forwards user feedback to an external collector. A nil
// submitter disables forwarding; feedback is still recorded on the message.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, fb *feedback.Feedback) error
}

// AddDocumentToActiveSources pins a catalog document onto the active
// conversation's source list. Adding a document already present is a no-op.
func (c *Controller) AddDocumentToActiveSources(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.catalog {
		if doc.ID == id {
			c.addSourceLocked(doc)
			c.persistLocked()
			return nil
		}
	}
	return ErrDocumentNotFound
}

// addSourceLocked appends a document to the active sources unless already
// present.
func (c *Controller) addSourceLocked(doc docs.Document) {
	for _, existing := range c.activeSources {
		if existing.ID == doc.ID {
			return
		}
	}
	c.activeSources = append(c.activeSources, doc)
}

// RemoveDocumentFromActiveSources drops a document from the active source
// list. Removing an absent document is a no-op.
func (c *Controller) RemoveDocumentFromActiveSources(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.activeSources {
		if doc.ID == id {
			c.activeSources = append(c.activeSources[:i], c.activeSources[i+1:]...)
			c.persistLocked()
			return
		}
	}
}

// ClearDuplicateActiveSources collapses the active source list to one entry
// per document id, keeping first-seen order.
func (c *Controller) ClearDuplicateActiveSources() {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var deduped []docs.Document
	for _, doc := range c.activeSources {
		if seen[doc.ID] {
			continue
		}
		deduped = append(deduped, doc)
		seen[doc.ID] = true
	}
	if len(deduped) != len(c.activeSources) {
		c.activeSources = deduped
		c.persistLocked()
	}
}

// ActiveSources returns a copy of the active conversation's source list.
func (c *Controller) ActiveSources() []docs.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]docs.Document(nil), c.activeSources...)
}

// Catalog returns a copy of the last fetched document catalog.
func (c *Controller) Catalog() []docs.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]docs.Document(nil), c.catalog...)
}

// AttachFeedback records feedback on a message in the active conversation
// and forwards it to the submitter when one is configured. Re-submitting
// overwrites the previous feedback on the message.
func (c *Controller) AttachFeedback(ctx context.Context, messageID, feedbackType, comment string, submitter FeedbackSubmitter) error {
	c.mu.Lock()

	var target *store.Message
	for i := range c.buffer {
		if c.buffer[i].ID == messageID {
			target = &c.buffer[i]
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		return ErrMessageNotFound
	}

	if !feedback.ValidType(feedbackType) {
		c.mu.Unlock()
		return fmt.Errorf("unknown feedback type %q", feedbackType)
	}

	target.Feedback = &store.Feedback{
		Type:        feedbackType,
		Comment:     comment,
		Content:     target.Content,
		Images:      append([]string(nil), target.Images...),
		SubmittedAt: time.Now(),
	}
	// Keep the durable log in step with the buffer
	for i := range c.logs[c.activeID] {
		if c.logs[c.activeID][i].ID == messageID {
			c.logs[c.activeID][i].Feedback = target.Feedback
			break
		}
	}
	c.persistLocked()

	fb := &feedback.Feedback{
		MessageID: messageID,
		Type:      feedbackType,
		Comment:   comment,
		Content:   target.Content,
		Images:    append([]string(nil), target.Images...),
		AgentID:   target.AgentID,
		SessionID: c.sessions.SessionID(),
		UserID:    c.scopeKey,
	}
	c.mu.Unlock()

	if submitter == nil {
		return nil
	}
	return submitter.Submit(ctx, fb)
}
