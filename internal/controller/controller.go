// ABOUTME: Conversation/session controller - the state machine at the center of ragchat
// ABOUTME: Owns conversations, message logs, agent selection and active document sources

package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nosta/ragchat/internal/agent"
	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/store"
	"github.com/nosta/ragchat/internal/webhook"
)

// WebhookSender defines what the controller needs from the webhook layer.
type WebhookSender interface {
	Send(ctx context.Context, chatInput, endpoint string) (*webhook.Result, error)
	SendFile(ctx context.Context, filename string, file io.Reader, chatInput, endpoint string) (*webhook.Result, error)
}

// SessionProvider defines what the controller needs from the session layer.
// New conversations take a fresh session id as their conversation id.
type SessionProvider interface {
	SessionID() string
	NewSession() string
}

// ChatStore defines what the controller needs from storage.
type ChatStore interface {
	SaveChatState(ctx context.Context, scopeKey string, state *store.ChatState) error
	LoadChatState(ctx context.Context, scopeKey string) (*store.ChatState, error)
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Controller coordinates conversation lifecycle, message routing, agent
// selection and active document sources. All state transitions run to
// completion under one lock; webhook round-trips are the only suspension
// points and always close over the conversation id captured at send time.
type Controller struct {
	mu sync.Mutex

	logger    *slog.Logger
	sessions  SessionProvider
	store     ChatStore
	registry  *agent.Registry
	webhooks  WebhookSender
	directory docs.Directory
	creds     agent.CredentialChecker

	defaultEndpoint string
	scopeKey        string

	conversations []store.Conversation        // metadata, newest first
	logs          map[string][]store.Message  // conversationID -> full log
	buffer        []store.Message             // live view of the active log
	activeID      string

	activeAgent  string // id of the chosen agent, "" when none
	pendingAgent string // candidate held while the password gate is open

	catalog       []docs.Document
	activeSources []docs.Document

	overrides map[string]string // agentID -> endpoint, outlives conversations

	inflight map[string]context.CancelFunc // conversationID -> abort for the send

	bootstrapped bool
}

// New constructs a controller. Call Bootstrap before first use.
func New(sessions SessionProvider, chatStore ChatStore, registry *agent.Registry,
	webhooks WebhookSender, directory docs.Directory, defaultEndpoint string,
	logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:          logger.With("component", "controller"),
		sessions:        sessions,
		store:           chatStore,
		registry:        registry,
		webhooks:        webhooks,
		directory:       directory,
		creds:           agent.SecretChecker{},
		defaultEndpoint: defaultEndpoint,
		logs:            make(map[string][]store.Message),
		overrides:       make(map[string]string),
		inflight:        make(map[string]context.CancelFunc),
	}
}

// prefUserScope is the preference key holding the stable user scope id. The
// scope outlives sessions: session ids rotate on every new chat.
const prefUserScope = "user_scope"

// Bootstrap restores persisted state and guarantees an active conversation.
// It runs exactly once per process lifetime; later calls are no-ops.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bootstrapped {
		return nil
	}
	c.bootstrapped = true

	c.scopeKey = c.loadScopeKeyLocked(ctx)
	c.loadPreferencesLocked(ctx)
	c.refreshCatalogLocked(ctx)

	state, err := c.store.LoadChatState(ctx, c.scopeKey)
	if err != nil {
		// Missing and corrupt are the same thing: a fresh install
		c.logger.Info("no persisted conversations, starting fresh", "reason", err)
		c.startNewChatLocked()
		return nil
	}

	for _, conv := range state.Conversations {
		meta := conv
		meta.Messages = nil
		meta.ActiveSources = nil
		c.conversations = append(c.conversations, meta)
		c.logs[conv.ID] = conv.Messages
	}

	switch {
	case state.ActiveConversation != "" && c.conversationExistsLocked(state.ActiveConversation):
		c.activateLocked(state.ActiveConversation)
	case len(c.conversations) > 0:
		// Newest first, so index 0 is the most recent
		c.activateLocked(c.conversations[0].ID)
	default:
		c.startNewChatLocked()
	}

	c.logger.Info("bootstrap complete",
		"conversations", len(c.conversations),
		"active", c.activeID)
	return nil
}

// loadScopeKeyLocked returns the stable user scope id, minting one on first run.
func (c *Controller) loadScopeKeyLocked(ctx context.Context) string {
	key, err := c.store.GetPreference(ctx, prefUserScope)
	if err == nil && key != "" {
		return key
	}
	key = uuid.New().String()
	if err := c.store.SetPreference(ctx, prefUserScope, key); err != nil {
		c.logger.Error("failed to persist user scope", "error", err)
	}
	return key
}

// loadPreferencesLocked restores the chosen agent and endpoint overrides.
func (c *Controller) loadPreferencesLocked(ctx context.Context) {
	if id, err := c.store.GetPreference(ctx, store.PrefSelectedAgent); err == nil && id != "" {
		if _, err := c.registry.Get(id); err == nil {
			c.activeAgent = id
		} else {
			c.logger.Warn("persisted agent no longer in catalog", "agent_id", id)
		}
	}

	raw, err := c.store.GetPreference(ctx, store.PrefEndpointOverrides)
	if err != nil || raw == "" {
		return
	}
	var overrides map[string]string
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		c.logger.Warn("corrupt endpoint overrides, ignoring", "error", err)
		return
	}
	c.overrides = overrides
}

// refreshCatalogLocked pulls the document catalog from the directory.
// Failures leave the previous catalog in place.
func (c *Controller) refreshCatalogLocked(ctx context.Context) {
	catalog, err := c.directory.List(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch document catalog", "error", err)
		return
	}
	c.catalog = catalog
}

// RefreshDocuments re-fetches the document catalog.
func (c *Controller) RefreshDocuments(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCatalogLocked(ctx)
}

// persistLocked writes the full chat state through to storage. Failures are
// logged and swallowed: the in-memory model stays authoritative.
func (c *Controller) persistLocked() {
	state := &store.ChatState{
		ActiveConversation: c.activeID,
	}
	for _, meta := range c.conversations {
		conv := meta
		if meta.ID == c.activeID {
			conv.Messages = append([]store.Message(nil), c.buffer...)
			conv.ActiveSources = sourceRefs(c.activeSources)
		} else {
			conv.Messages = append([]store.Message(nil), c.logs[meta.ID]...)
		}
		state.Conversations = append(state.Conversations, conv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.SaveChatState(ctx, c.scopeKey, state); err != nil {
		c.logger.Error("failed to persist chat state", "error", err, "scope", c.scopeKey)
	}
}

func (c *Controller) conversationExistsLocked(id string) bool {
	for _, conv := range c.conversations {
		if conv.ID == id {
			return true
		}
	}
	return false
}

func sourceRefs(sources []docs.Document) []store.DocumentRef {
	var refs []store.DocumentRef
	for _, doc := range sources {
		refs = append(refs, store.DocumentRef{
			ID:   doc.ID,
			Name: doc.Name,
			Size: doc.Size,
			Kind: doc.Kind,
			URL:  doc.URL,
		})
	}
	return refs
}
