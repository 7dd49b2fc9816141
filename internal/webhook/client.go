// ABOUTME: HTTP client for sending chat turns to workflow-automation webhooks
// ABOUTME: Posts JSON or multipart bodies and normalizes the heterogeneous replies

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrAborted is returned when the caller cancels an in-flight send. It is
// distinguishable from transport errors so the controller can skip the
// synthetic error message.
var ErrAborted = errors.New("request aborted")

// Payload is the canonical JSON request body for a chat turn.
type Payload struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

// Result is a normalized successful webhook reply.
type Result struct {
	Response string
	Images   []string
}

// ActivityRecorder is notified after each successful round-trip.
type ActivityRecorder interface {
	SessionID() string
	UpdateActivity()
}

// Client sends chat turns to configured webhook endpoints.
type Client struct {
	httpClient *http.Client
	sessions   ActivityRecorder
	logger     *slog.Logger
}

// NewClient creates a webhook client. A zero timeout disables the
// client-side deadline; cancellation then relies on the caller's context.
func NewClient(sessions ActivityRecorder, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		sessions:   sessions,
		logger:     logger.With("component", "webhook"),
	}
}

// Send posts a single chat turn and normalizes the reply. A non-2xx status
// is always a failure carrying the status code. Context cancellation
// surfaces ErrAborted.
func (c *Client) Send(ctx context.Context, chatInput, endpoint string) (*Result, error) {
	payload := Payload{
		ChatInput: chatInput,
		SessionID: c.sessions.SessionID(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// SendFile posts a file-bearing turn as a multipart form with the same
// session fields as Send. The server-side contract accepts either shape.
func (c *Client) SendFile(ctx context.Context, filename string, file io.Reader, chatInput, endpoint string) (*Result, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copying file data: %w", err)
	}

	fields := map[string]string{
		"chatInput": chatInput,
		"sessionId": c.sessions.SessionID(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("writing form field %q: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	content, images := Normalize(body)
	c.sessions.UpdateActivity()

	c.logger.Debug("webhook reply normalized",
		"endpoint", req.URL.Redacted(),
		"status", resp.StatusCode,
		"images", len(images))

	return &Result{Response: content, Images: images}, nil
}
