// Package agent defines the fixed worker roster for the swarm.
package agent

import (
	"fmt"
	"sync"
)

// Status represents the current state of an agent.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// Agent is a named worker descriptor. Specialty is a cosmetic routing
// hint; assignment is round-robin regardless of it.
type Agent struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Specialty string `json:"specialty,omitempty" yaml:"specialty"`
	Status    Status `json:"status" yaml:"-"`
}

// Pool is the fixed agent roster. It is built once at startup and never
// grows. The scheduler is the only writer of agent status; in-flight
// counts keep an agent working until its last task finishes, since one
// agent may own several concurrent workers.
type Pool struct {
	mu       sync.RWMutex
	order    []string
	agents   map[string]*Agent
	inflight map[string]int
	next     int
}

// NewPool builds a pool from the configured roster.
func NewPool(roster []Agent) (*Pool, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("agent roster is empty")
	}
	p := &Pool{
		agents:   make(map[string]*Agent, len(roster)),
		inflight: make(map[string]int, len(roster)),
	}
	for i := range roster {
		a := roster[i]
		if a.ID == "" {
			return nil, fmt.Errorf("agent %d has no ID", i)
		}
		if _, dup := p.agents[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent ID %q", a.ID)
		}
		a.Status = StatusIdle
		p.agents[a.ID] = &a
		p.order = append(p.order, a.ID)
	}
	return p, nil
}

// Next returns the next agent in the rotation, wrapping around. Load is
// not considered: an agent already working can receive another task.
func (p *Pool) Next() Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.order[p.next%len(p.order)]
	p.next++
	return *p.agents[id]
}

// Get returns a copy of the agent with the given ID.
func (p *Pool) Get(id string) (Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// List returns copies of all agents in roster order.
func (p *Pool) List() []Agent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Agent, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.agents[id])
	}
	return out
}

// Acquire marks the agent as working for one task.
func (p *Pool) Acquire(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[id]
	if !ok {
		return fmt.Errorf("unknown agent %q", id)
	}
	p.inflight[id]++
	a.Status = StatusWorking
	return nil
}

// Release marks one task finished for the agent; the agent goes idle
// when its last in-flight task completes.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[id]
	if !ok {
		return
	}
	if p.inflight[id] > 0 {
		p.inflight[id]--
	}
	if p.inflight[id] == 0 {
		a.Status = StatusIdle
	}
}
