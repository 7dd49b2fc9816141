// ABOUTME: Tests for the conversation/session controller
// ABOUTME: Covers lifecycle invariants, send routing, agent gating and source management

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosta/ragchat/internal/agent"
	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/store"
	"github.com/nosta/ragchat/internal/webhook"
)

// fakeSessions mints deterministic session ids.
type fakeSessions struct {
	mu      sync.Mutex
	counter int
	current string
}

func (f *fakeSessions) SessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == "" {
		f.counter++
		f.current = fmt.Sprintf("session-%d", f.counter)
	}
	return f.current
}

func (f *fakeSessions) NewSession() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	f.current = fmt.Sprintf("session-%d", f.counter)
	return f.current
}

// fakeStore is an in-memory ChatStore recording every save.
type fakeStore struct {
	mu    sync.Mutex
	state map[string]*store.ChatState
	prefs map[string]string
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: make(map[string]*store.ChatState),
		prefs: make(map[string]string),
	}
}

func (f *fakeStore) SaveChatState(ctx context.Context, scopeKey string, state *store.ChatState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	copied := *state
	f.state[scopeKey] = &copied
	return nil
}

func (f *fakeStore) LoadChatState(ctx context.Context, scopeKey string) (*store.ChatState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.state[scopeKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return state, nil
}

func (f *fakeStore) GetPreference(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.prefs[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (f *fakeStore) SetPreference(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[key] = value
	return nil
}

func (f *fakeStore) savedState(t *testing.T) *store.ChatState {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.state, 1, "exactly one scope persisted")
	for _, state := range f.state {
		return state
	}
	return nil
}

// fakeWebhook answers sends from a function, optionally blocking until
// released so tests can cancel mid-flight.
type fakeWebhook struct {
	mu        sync.Mutex
	responses []*webhook.Result
	err       error
	endpoints []string
	blocking  chan struct{}
}

func (f *fakeWebhook) Send(ctx context.Context, chatInput, endpoint string) (*webhook.Result, error) {
	f.mu.Lock()
	f.endpoints = append(f.endpoints, endpoint)
	blocking := f.blocking
	f.mu.Unlock()

	if blocking != nil {
		select {
		case <-blocking:
		case <-ctx.Done():
			return nil, webhook.ErrAborted
		}
	}
	if ctx.Err() != nil {
		return nil, webhook.ErrAborted
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &webhook.Result{Response: "ok"}, nil
	}
	result := f.responses[0]
	f.responses = f.responses[1:]
	return result, nil
}

func (f *fakeWebhook) SendFile(ctx context.Context, filename string, file io.Reader, chatInput, endpoint string) (*webhook.Result, error) {
	return f.Send(ctx, chatInput, endpoint)
}

func testRegistry() *agent.Registry {
	return agent.NewRegistry([]agent.Agent{
		{ID: "open", Name: "Open Agent", Endpoint: "http://agents/open"},
		{ID: "gated", Name: "Gated Agent", Endpoint: "http://agents/gated", AccessSecret: "letmein"},
	})
}

type fixture struct {
	ctrl     *Controller
	store    *fakeStore
	webhooks *fakeWebhook
	sessions *fakeSessions
}

func newFixture(t *testing.T, catalog ...docs.Document) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		webhooks: &fakeWebhook{},
		sessions: &fakeSessions{},
	}
	f.ctrl = New(f.sessions, f.store, testRegistry(), f.webhooks,
		docs.NewStaticDirectory(catalog), "http://default/webhook", nil)
	require.NoError(t, f.ctrl.Bootstrap(context.Background()))
	return f
}

func TestBootstrapFreshInstall(t *testing.T) {
	f := newFixture(t)

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Conversations, 1, "fresh install starts one conversation")
	assert.Equal(t, snap.Conversations[0].ID, snap.ActiveConversation)
	assert.Equal(t, NewConversationTitle, snap.Conversations[0].Title)
	assert.Empty(t, snap.Messages)
}

func TestBootstrapMintsStableScopeKey(t *testing.T) {
	f := newFixture(t)

	scope, err := f.store.GetPreference(context.Background(), "user_scope")
	require.NoError(t, err)
	assert.NotEmpty(t, scope)

	// A second controller over the same store reuses the scope
	ctrl2 := New(&fakeSessions{}, f.store, testRegistry(), &fakeWebhook{},
		docs.NewStaticDirectory(nil), "http://default/webhook", nil)
	require.NoError(t, ctrl2.Bootstrap(context.Background()))
	assert.Equal(t, scope, ctrl2.scopeKey)
}

func TestSendMessageAppendsBothSides(t *testing.T) {
	f := newFixture(t)
	f.webhooks.responses = []*webhook.Result{{Response: "the answer", Images: []string{"a.png"}}}

	reply, err := f.ctrl.SendMessage(context.Background(), "the question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply.Content)
	assert.Equal(t, []string{"a.png"}, reply.Images)

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, store.SenderUser, snap.Messages[0].Sender)
	assert.Equal(t, "the question", snap.Messages[0].Content)
	assert.Equal(t, store.SenderAI, snap.Messages[1].Sender)

	// Persisted state mirrors the in-memory log
	saved := f.store.savedState(t)
	require.Len(t, saved.Conversations, 1)
	require.Len(t, saved.Conversations[0].Messages, 2)
	assert.Equal(t, "the answer", saved.Conversations[0].Messages[1].Content)
}

func TestSendMessageAutoTitles(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SendMessage(context.Background(), "Short question")
	require.NoError(t, err)
	assert.Equal(t, "Short question", f.ctrl.Snapshot().Conversations[0].Title)

	// Later messages never retitle
	_, err = f.ctrl.SendMessage(context.Background(), "Another message entirely")
	require.NoError(t, err)
	assert.Equal(t, "Short question", f.ctrl.Snapshot().Conversations[0].Title)
}

func TestSendMessageTitleTruncation(t *testing.T) {
	f := newFixture(t)

	long := "This opening message is deliberately much longer than the title limit allows"
	_, err := f.ctrl.SendMessage(context.Background(), long)
	require.NoError(t, err)

	title := f.ctrl.Snapshot().Conversations[0].Title
	runes := []rune(title)
	assert.Len(t, runes, maxTitleRunes)
	assert.Equal(t, "...", string(runes[len(runes)-3:]))
	assert.Equal(t, []rune(long)[:maxTitleRunes-3], runes[:len(runes)-3])
}

func TestSendMessageWebhookFailureBecomesMessage(t *testing.T) {
	f := newFixture(t)
	f.webhooks.err = errors.New("connection refused")

	reply, err := f.ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err, "transport failures are not surfaced as errors")
	assert.Equal(t, store.SenderAI, reply.Sender)
	assert.Contains(t, reply.Content, "connection refused")
	assert.Contains(t, reply.Content, "webhook configuration")
}

func TestSendMessageEmptyReplyFallback(t *testing.T) {
	f := newFixture(t)
	f.webhooks.responses = []*webhook.Result{{Response: "   "}}

	reply, err := f.ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, emptyReplyFallback, reply.Content)
}

func TestSendMessageConcurrentConflict(t *testing.T) {
	f := newFixture(t)
	f.webhooks.blocking = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.ctrl.SendMessage(context.Background(), "first")
	}()

	// Wait for the first send to be in flight
	require.Eventually(t, func() bool {
		return f.ctrl.IsLoading(f.ctrl.ActiveConversationID())
	}, time.Second, 5*time.Millisecond)

	_, err := f.ctrl.SendMessage(context.Background(), "second")
	assert.ErrorIs(t, err, ErrSendInProgress)

	close(f.webhooks.blocking)
	<-done
}

func TestCancelSendAppendsNothing(t *testing.T) {
	f := newFixture(t)
	f.webhooks.blocking = make(chan struct{})
	defer close(f.webhooks.blocking)

	convID := f.ctrl.ActiveConversationID()

	type result struct {
		msg *store.Message
		err error
	}
	results := make(chan result, 1)
	go func() {
		msg, err := f.ctrl.SendMessage(context.Background(), "doomed")
		results <- result{msg, err}
	}()

	require.Eventually(t, func() bool { return f.ctrl.IsLoading(convID) }, time.Second, 5*time.Millisecond)
	require.True(t, f.ctrl.CancelSend(convID))

	res := <-results
	assert.ErrorIs(t, res.err, ErrAborted)
	assert.Nil(t, res.msg)

	// The user message stays; no AI message was appended
	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, store.SenderUser, snap.Messages[0].Sender)
	assert.False(t, snap.Loading)
}

func TestCancelSendUnknownConversation(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.ctrl.CancelSend("nope"))
}

func TestInFlightReplyLandsInOriginConversation(t *testing.T) {
	f := newFixture(t)
	f.webhooks.blocking = make(chan struct{})

	first := f.ctrl.ActiveConversationID()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.ctrl.SendMessage(context.Background(), "slow question")
	}()
	require.Eventually(t, func() bool { return f.ctrl.IsLoading(first) }, time.Second, 5*time.Millisecond)

	// User walks away to a new chat while the reply is pending
	second := f.ctrl.StartNewChat()
	require.NotEqual(t, first, second)

	close(f.webhooks.blocking)
	<-done

	// The new chat is untouched
	snap := f.ctrl.Snapshot()
	assert.Equal(t, second, snap.ActiveConversation)
	assert.Empty(t, snap.Messages)

	// The origin conversation got both messages
	msgs, err := f.ctrl.Messages(first)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.SenderAI, msgs[1].Sender)
}

func TestReplyForDeletedConversationIsDropped(t *testing.T) {
	f := newFixture(t)
	f.webhooks.blocking = make(chan struct{})
	defer close(f.webhooks.blocking)

	first := f.ctrl.ActiveConversationID()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.ctrl.SendMessage(context.Background(), "orphaned")
	}()
	require.Eventually(t, func() bool { return f.ctrl.IsLoading(first) }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.ctrl.DeleteConversation(first))
	<-done

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.NotEqual(t, first, snap.ActiveConversation)
	assert.Empty(t, snap.Messages)
}

func TestSelectConversationRoundTrip(t *testing.T) {
	f := newFixture(t)

	first := f.ctrl.ActiveConversationID()
	_, err := f.ctrl.SendMessage(context.Background(), "in the first chat")
	require.NoError(t, err)

	second := f.ctrl.StartNewChat()
	_, err = f.ctrl.SendMessage(context.Background(), "in the second chat")
	require.NoError(t, err)

	require.NoError(t, f.ctrl.SelectConversation(first))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, first, snap.ActiveConversation)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "in the first chat", snap.Messages[0].Content)

	require.NoError(t, f.ctrl.SelectConversation(second))
	snap = f.ctrl.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "in the second chat", snap.Messages[0].Content)
}

func TestSelectConversationUnknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ctrl.SelectConversation("ghost"), ErrConversationNotFound)
}

func TestDeleteActiveStartsNewChat(t *testing.T) {
	f := newFixture(t)
	active := f.ctrl.ActiveConversationID()

	require.NoError(t, f.ctrl.DeleteConversation(active))

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.NotEqual(t, active, snap.ActiveConversation)
	assert.NotEmpty(t, snap.ActiveConversation, "never left without an active conversation")
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	f := newFixture(t)

	first := f.ctrl.ActiveConversationID()
	second := f.ctrl.StartNewChat()

	require.NoError(t, f.ctrl.DeleteConversation(first))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, second, snap.ActiveConversation)
	require.Len(t, snap.Conversations, 1)
}

func TestDeleteUnknownConversation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ctrl.DeleteConversation("ghost"), ErrConversationNotFound)
}

func TestUpdateConversationTitle(t *testing.T) {
	f := newFixture(t)
	id := f.ctrl.ActiveConversationID()

	require.NoError(t, f.ctrl.UpdateConversationTitle(id, "Renamed"))
	assert.Equal(t, "Renamed", f.ctrl.Snapshot().Conversations[0].Title)

	assert.ErrorIs(t, f.ctrl.UpdateConversationTitle("ghost", "x"), ErrConversationNotFound)
}

func TestBootstrapRestoresPersistedState(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SendMessage(context.Background(), "remember me")
	require.NoError(t, err)
	active := f.ctrl.ActiveConversationID()

	// A new controller over the same store sees the same world
	ctrl2 := New(&fakeSessions{}, f.store, testRegistry(), &fakeWebhook{},
		docs.NewStaticDirectory(nil), "http://default/webhook", nil)
	require.NoError(t, ctrl2.Bootstrap(context.Background()))

	snap := ctrl2.Snapshot()
	assert.Equal(t, active, snap.ActiveConversation)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "remember me", snap.Messages[0].Content)
}

func TestBootstrapFallsBackToNewestConversation(t *testing.T) {
	fs := newFakeStore()
	require.NoError(t, fs.SetPreference(context.Background(), "user_scope", "scope-1"))
	require.NoError(t, fs.SaveChatState(context.Background(), "scope-1", &store.ChatState{
		Conversations: []store.Conversation{
			{ID: "conv-new", Title: "Newest", Messages: []store.Message{
				{ID: "m1", Content: "latest question", Sender: store.SenderUser},
			}},
			{ID: "conv-old", Title: "Older"},
		},
		// No active conversation recorded
	}))

	ctrl := New(&fakeSessions{}, fs, testRegistry(), &fakeWebhook{},
		docs.NewStaticDirectory(nil), "http://default/webhook", nil)
	require.NoError(t, ctrl.Bootstrap(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, "conv-new", snap.ActiveConversation, "newest conversation becomes active")
	require.Len(t, snap.Conversations, 2)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "latest question", snap.Messages[0].Content)
}

func TestAgentSelectionDirect(t *testing.T) {
	f := newFixture(t)

	needsPassword, err := f.ctrl.SelectAgent(context.Background(), "open")
	require.NoError(t, err)
	assert.False(t, needsPassword)

	active := f.ctrl.ActiveAgent()
	require.NotNil(t, active)
	assert.Equal(t, "open", active.ID)

	// Choice persisted as a preference
	pref, err := f.store.GetPreference(context.Background(), store.PrefSelectedAgent)
	require.NoError(t, err)
	assert.Equal(t, "open", pref)
}

func TestAgentSelectionGated(t *testing.T) {
	f := newFixture(t)

	needsPassword, err := f.ctrl.SelectAgent(context.Background(), "gated")
	require.NoError(t, err)
	assert.True(t, needsPassword)
	assert.Nil(t, f.ctrl.ActiveAgent(), "no activation before the gate clears")
	require.NotNil(t, f.ctrl.PendingAgent())

	// Wrong password keeps the gate open
	err = f.ctrl.SubmitPassword(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	require.NotNil(t, f.ctrl.PendingAgent(), "retries stay available")

	// Right password activates
	require.NoError(t, f.ctrl.SubmitPassword(context.Background(), "letmein"))
	assert.Nil(t, f.ctrl.PendingAgent())
	require.NotNil(t, f.ctrl.ActiveAgent())
	assert.Equal(t, "gated", f.ctrl.ActiveAgent().ID)
}

func TestAgentReselectActiveBypassesGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SelectAgent(context.Background(), "gated")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.SubmitPassword(context.Background(), "letmein"))

	needsPassword, err := f.ctrl.SelectAgent(context.Background(), "gated")
	require.NoError(t, err)
	assert.False(t, needsPassword, "re-selecting the active agent never re-prompts")
}

func TestAgentSelectionCancel(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SelectAgent(context.Background(), "gated")
	require.NoError(t, err)
	f.ctrl.CancelAgentSelection()

	assert.Nil(t, f.ctrl.PendingAgent())
	assert.ErrorIs(t, f.ctrl.SubmitPassword(context.Background(), "letmein"), ErrNoPendingAgent)
}

func TestAgentSelectionUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.SelectAgent(context.Background(), "ghost")
	assert.ErrorIs(t, err, agent.ErrNotFound)
}

func TestEndpointResolution(t *testing.T) {
	f := newFixture(t)

	// No agent: default endpoint
	_, err := f.ctrl.SendMessage(context.Background(), "one")
	require.NoError(t, err)

	// Agent endpoint from the catalog
	_, err = f.ctrl.SelectAgent(context.Background(), "open")
	require.NoError(t, err)
	_, err = f.ctrl.SendMessage(context.Background(), "two")
	require.NoError(t, err)

	// Override beats the catalog endpoint
	require.NoError(t, f.ctrl.SetEndpointOverride(context.Background(), "open", "http://override/here"))
	_, err = f.ctrl.SendMessage(context.Background(), "three")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://default/webhook",
		"http://agents/open",
		"http://override/here",
	}, f.webhooks.endpoints)
}

func TestEndpointOverridePersists(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.SetEndpointOverride(context.Background(), "open", "http://pinned"))

	ctrl2 := New(&fakeSessions{}, f.store, testRegistry(), &fakeWebhook{},
		docs.NewStaticDirectory(nil), "http://default/webhook", nil)
	require.NoError(t, ctrl2.Bootstrap(context.Background()))

	endpoint, ok := ctrl2.EndpointOverride("open")
	require.True(t, ok)
	assert.Equal(t, "http://pinned", endpoint)
}

func TestClearEndpointOverride(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.SetEndpointOverride(context.Background(), "open", "http://pinned"))
	require.NoError(t, f.ctrl.SetEndpointOverride(context.Background(), "open", ""))

	_, ok := f.ctrl.EndpointOverride("open")
	assert.False(t, ok)
}

func TestActiveSourcesFollowReplies(t *testing.T) {
	catalog := []docs.Document{
		{ID: "d1", Name: "Handbook.pdf"},
		{ID: "d2", Name: "Policy.docx"},
	}
	f := newFixture(t, catalog...)
	f.webhooks.responses = []*webhook.Result{
		{Response: "See Handbook.pdf for details."},
	}

	_, err := f.ctrl.SendMessage(context.Background(), "where are the rules?")
	require.NoError(t, err)

	sources := f.ctrl.ActiveSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "d1", sources[0].ID)
}

func TestActiveSourcesRecomputedOnSwitch(t *testing.T) {
	catalog := []docs.Document{{ID: "d1", Name: "Handbook.pdf"}}
	f := newFixture(t, catalog...)
	f.webhooks.responses = []*webhook.Result{
		{Response: "Handbook.pdf says so."},
	}

	first := f.ctrl.ActiveConversationID()
	_, err := f.ctrl.SendMessage(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, f.ctrl.ActiveSources(), 1)

	// New chat starts with no sources
	f.ctrl.StartNewChat()
	assert.Empty(t, f.ctrl.ActiveSources())

	// Switching back re-derives them from the log
	require.NoError(t, f.ctrl.SelectConversation(first))
	sources := f.ctrl.ActiveSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "d1", sources[0].ID)
}

func TestAddRemoveSources(t *testing.T) {
	catalog := []docs.Document{
		{ID: "d1", Name: "Handbook.pdf"},
		{ID: "d2", Name: "Policy.docx"},
	}
	f := newFixture(t, catalog...)

	require.NoError(t, f.ctrl.AddDocumentToActiveSources("d1"))
	require.NoError(t, f.ctrl.AddDocumentToActiveSources("d1"), "re-adding is a no-op")
	require.Len(t, f.ctrl.ActiveSources(), 1)

	assert.ErrorIs(t, f.ctrl.AddDocumentToActiveSources("ghost"), ErrDocumentNotFound)

	f.ctrl.RemoveDocumentFromActiveSources("d1")
	assert.Empty(t, f.ctrl.ActiveSources())

	// Removing an absent document is a no-op
	f.ctrl.RemoveDocumentFromActiveSources("d1")
}

func TestClearDuplicateActiveSources(t *testing.T) {
	f := newFixture(t)
	f.ctrl.mu.Lock()
	f.ctrl.activeSources = []docs.Document{
		{ID: "a", Name: "First"},
		{ID: "b", Name: "Second"},
		{ID: "a", Name: "First again"},
	}
	f.ctrl.mu.Unlock()

	f.ctrl.ClearDuplicateActiveSources()

	sources := f.ctrl.ActiveSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "a", sources[0].ID)
	assert.Equal(t, "First", sources[0].Name, "first occurrence wins")
	assert.Equal(t, "b", sources[1].ID)
}

func TestAttachFeedback(t *testing.T) {
	f := newFixture(t)
	f.webhooks.responses = []*webhook.Result{{Response: "suspect claim"}}

	reply, err := f.ctrl.SendMessage(context.Background(), "q")
	require.NoError(t, err)

	err = f.ctrl.AttachFeedback(context.Background(), reply.ID, "inaccurate_info", "wrong year", nil)
	require.NoError(t, err)

	snap := f.ctrl.Snapshot()
	attached := snap.Messages[1].Feedback
	require.NotNil(t, attached)
	assert.Equal(t, "inaccurate_info", attached.Type)
	assert.Equal(t, "wrong year", attached.Comment)
	assert.Equal(t, "suspect claim", attached.Content)

	// Overwrite replaces the previous attachment
	require.NoError(t, f.ctrl.AttachFeedback(context.Background(), reply.ID, "other", "changed my mind", nil))
	snap = f.ctrl.Snapshot()
	assert.Equal(t, "other", snap.Messages[1].Feedback.Type)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, Settings{}, f.ctrl.Settings(ctx))

	require.NoError(t, f.ctrl.UpdateSettings(ctx, Settings{Language: "de", Theme: "dark"}))
	assert.Equal(t, Settings{Language: "de", Theme: "dark"}, f.ctrl.Settings(ctx))

	// Empty fields leave the stored value untouched
	require.NoError(t, f.ctrl.UpdateSettings(ctx, Settings{Theme: "light"}))
	assert.Equal(t, Settings{Language: "de", Theme: "light"}, f.ctrl.Settings(ctx))
}

func TestAttachFeedbackUnknownMessage(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.AttachFeedback(context.Background(), "ghost", "other", "", nil)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
