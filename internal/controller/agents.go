// ABOUTME: Agent selection state machine with password gating
// ABOUTME: Secret-bearing agents hold in a pending state until the gate clears

package controller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nosta/ragchat/internal/agent"
	"github.com/nosta/ragchat/internal/store"
)

// ErrInvalidPassword is returned when the submitted secret does not match.
// The pending agent stays pending; retries are unlimited.
var ErrInvalidPassword = errors.New("invalid access password")

// ErrNoPendingAgent is returned when a password is submitted with no
// selection awaiting one.
var ErrNoPendingAgent = errors.New("no agent selection is awaiting a password")

// SelectAgent begins switching to the named agent. Agents without a secret
// activate immediately, as does re-selecting the already active agent. A
// secret-bearing agent moves to pending until SubmitPassword clears it.
//
// The returned bool reports whether a password is now required.
func (c *Controller) SelectAgent(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, err := c.registry.Get(id)
	if err != nil {
		return false, err
	}

	// Re-selecting the active agent never re-prompts
	if id == c.activeAgent {
		c.pendingAgent = ""
		return false, nil
	}

	if a.AccessSecret == "" {
		c.activateAgentLocked(ctx, id)
		return false, nil
	}

	c.pendingAgent = id
	c.logger.Debug("agent selection pending password", "agent_id", id)
	return true, nil
}

// SubmitPassword checks the secret for the pending agent. A match activates
// the agent and clears the gate; a mismatch returns ErrInvalidPassword and
// leaves the selection pending.
func (c *Controller) SubmitPassword(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingAgent == "" {
		return ErrNoPendingAgent
	}

	a, err := c.registry.Get(c.pendingAgent)
	if err != nil {
		c.pendingAgent = ""
		return err
	}

	if !c.creds.Check(a, password) {
		c.logger.Debug("agent password rejected", "agent_id", a.ID)
		return ErrInvalidPassword
	}

	id := c.pendingAgent
	c.pendingAgent = ""
	c.activateAgentLocked(ctx, id)
	return nil
}

// CancelAgentSelection abandons a pending selection. The previously active
// agent, if any, remains active.
func (c *Controller) CancelAgentSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingAgent = ""
}

// activateAgentLocked makes the agent active and persists the choice so it
// survives restarts.
func (c *Controller) activateAgentLocked(ctx context.Context, id string) {
	c.activeAgent = id
	if err := c.store.SetPreference(ctx, store.PrefSelectedAgent, id); err != nil {
		c.logger.Error("failed to persist selected agent", "error", err)
	}
	c.logger.Info("agent selected", "agent_id", id)
}

// ActiveAgent returns the active agent, or nil when none is selected.
func (c *Controller) ActiveAgent() *agent.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeAgent == "" {
		return nil
	}
	a, err := c.registry.Get(c.activeAgent)
	if err != nil {
		return nil
	}
	return a
}

// PendingAgent returns the agent awaiting a password, or nil.
func (c *Controller) PendingAgent() *agent.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingAgent == "" {
		return nil
	}
	a, err := c.registry.Get(c.pendingAgent)
	if err != nil {
		return nil
	}
	return a
}

// Agents lists the full catalog.
func (c *Controller) Agents() []agent.Agent {
	return c.registry.List()
}

// SetEndpointOverride pins a per-agent webhook endpoint. An empty endpoint
// clears the override. Overrides persist across conversations and restarts.
func (c *Controller) SetEndpointOverride(ctx context.Context, agentID, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.Get(agentID); err != nil {
		return err
	}

	if endpoint == "" {
		delete(c.overrides, agentID)
	} else {
		c.overrides[agentID] = endpoint
	}

	raw, err := json.Marshal(c.overrides)
	if err != nil {
		return err
	}
	if err := c.store.SetPreference(ctx, store.PrefEndpointOverrides, string(raw)); err != nil {
		c.logger.Error("failed to persist endpoint overrides", "error", err)
	}
	return nil
}

// EndpointOverride returns the pinned endpoint for an agent, if any.
func (c *Controller) EndpointOverride(agentID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	endpoint, ok := c.overrides[agentID]
	return endpoint, ok
}
