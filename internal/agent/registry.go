// ABOUTME: Static catalog of selectable agents and their webhook endpoints
// ABOUTME: Agents with an access secret require a password gate before selection

package agent

import "errors"

// ErrNotFound is returned when no agent with the requested id exists.
var ErrNotFound = errors.New("agent not found")

// Agent is an immutable catalog entry. An empty AccessSecret means
// unrestricted selection.
type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Icon     string `json:"icon,omitempty"`
	// Never serialized: the gate is checked server-side only
	AccessSecret string `json:"-"`
}

// Gated reports whether selecting the agent requires a password.
func (a *Agent) Gated() bool {
	return a.AccessSecret != ""
}

// Registry is a static, lookup-only catalog of agents.
type Registry struct {
	agents []Agent
	byID   map[string]*Agent
}

// NewRegistry builds a registry from catalog entries. Later duplicates of an
// id are ignored.
func NewRegistry(agents []Agent) *Registry {
	r := &Registry{byID: make(map[string]*Agent, len(agents))}
	for _, a := range agents {
		if _, exists := r.byID[a.ID]; exists {
			continue
		}
		r.agents = append(r.agents, a)
		r.byID[a.ID] = &r.agents[len(r.agents)-1]
	}
	return r
}

// Get looks up an agent by id.
func (r *Registry) Get(id string) (*Agent, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns the catalog in declaration order.
func (r *Registry) List() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// DefaultCatalog returns the built-in agent set used when the config file
// declares none. Endpoints are placeholders meant to be overridden.
func DefaultCatalog() []Agent {
	return []Agent{
		{ID: "alt", Name: "Alt Agent", Icon: "🔄", Endpoint: "http://localhost:5678/webhook/alt"},
		{ID: "sap", Name: "SAP Agent", Icon: "🔷", Endpoint: "http://localhost:5678/webhook/sap"},
		{ID: "legal", Name: "Legal", Icon: "⚖️", Endpoint: "http://localhost:5678/webhook/legal"},
		{ID: "website", Name: "Website", Icon: "🌐", Endpoint: "http://localhost:5678/webhook/website"},
		{ID: "cost", Name: "Cost Cal", Icon: "💰", Endpoint: "http://localhost:5678/webhook/cost"},
	}
}
