// ABOUTME: Client for the external feedback store
// ABOUTME: Posts per-message feedback rows over the store's REST interface

package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Feedback types.
const (
	TypeImageBroken        = "image_broken"
	TypeInaccurateInfo     = "inaccurate_info"
	TypeIrrelevant         = "irrelevant"
	TypeDocumentLinkBroken = "document_link_broken"
	TypeOther              = "other"
)

// ValidType reports whether t is a known feedback type.
func ValidType(t string) bool {
	switch t {
	case TypeImageBroken, TypeInaccurateInfo, TypeIrrelevant, TypeDocumentLinkBroken, TypeOther:
		return true
	}
	return false
}

// Feedback is one submission. Once sent it is not retracted.
type Feedback struct {
	MessageID string         `json:"message_id"`
	Type      string         `json:"feedback_type"`
	Comment   string         `json:"comment,omitempty"`
	Content   string         `json:"message_content"`
	Images    []string       `json:"message_images"`
	AgentID   string         `json:"agent_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Metadata  map[string]any `json:"metadata"`
}

// Client submits feedback rows to the external store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feedback client for the given service.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "feedback"),
	}
}

// Submit sends one feedback row. Missing images and metadata are filled with
// empty values so the stored row shape stays uniform.
func (c *Client) Submit(ctx context.Context, fb *Feedback) error {
	if fb.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	if !ValidType(fb.Type) {
		return fmt.Errorf("unknown feedback type %q", fb.Type)
	}
	if fb.Images == nil {
		fb.Images = []string{}
	}
	if fb.Metadata == nil {
		fb.Metadata = map[string]any{}
	}
	fb.Metadata["timestamp"] = time.Now().Format(time.RFC3339)

	body, err := json.Marshal([]*Feedback{fb})
	if err != nil {
		return fmt.Errorf("marshaling feedback: %w", err)
	}

	endpoint := c.baseURL + "/rest/v1/feedback"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("feedback store returned status %d: %s", resp.StatusCode, string(raw))
	}

	c.logger.Debug("feedback submitted", "message_id", fb.MessageID, "type", fb.Type)
	return nil
}
