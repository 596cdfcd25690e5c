package orchestrator

import (
	"fmt"
	"sync"

	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/internal/runner"
	"github.com/ShayCichocki/flotilla/internal/state"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// Pool manages one orchestrator per team over a shared store, engine,
// and executor. Teams are isolated: each gets its own queue, budget,
// graph, and escalations.
type Pool struct {
	store state.Store
	eng   engine.Engine
	exec  runner.Executor
	opts  []Option

	mu    sync.Mutex
	teams map[string]*Orchestrator
}

// NewPool creates an empty pool. opts are applied to every
// orchestrator the pool creates.
func NewPool(store state.Store, eng engine.Engine, exec runner.Executor, opts ...Option) *Pool {
	return &Pool{
		store: store,
		eng:   eng,
		exec:  exec,
		opts:  opts,
		teams: make(map[string]*Orchestrator),
	}
}

// CreateTeam persists a new team and returns its orchestrator.
func (p *Pool) CreateTeam(goal string, budgetLimit float64) (*models.Team, *Orchestrator, error) {
	team, err := CreateTeam(p.store, goal, budgetLimit)
	if err != nil {
		return nil, nil, err
	}

	opts := p.opts
	if budgetLimit > 0 {
		opts = append(append([]Option{}, p.opts...), WithBudget(budgetLimit))
	}
	orch := New(team.ID, p.store, p.eng, p.exec, opts...)

	p.mu.Lock()
	p.teams[team.ID] = orch
	p.mu.Unlock()

	return team, orch, nil
}

// Attach returns the orchestrator for an existing team, creating one
// if this pool has not seen the team yet.
func (p *Pool) Attach(teamID string) (*Orchestrator, error) {
	p.mu.Lock()
	if orch, ok := p.teams[teamID]; ok {
		p.mu.Unlock()
		return orch, nil
	}
	p.mu.Unlock()

	team, err := p.store.GetTeam(teamID)
	if err != nil {
		return nil, fmt.Errorf("load team %s: %w", teamID, err)
	}

	opts := p.opts
	if team.BudgetLimit > 0 {
		opts = append(append([]Option{}, p.opts...), WithBudget(team.BudgetLimit))
	}
	orch := New(team.ID, p.store, p.eng, p.exec, opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.teams[teamID]; ok {
		return existing, nil
	}
	p.teams[teamID] = orch
	return orch, nil
}

// Get returns the orchestrator for a team, if the pool holds one.
func (p *Pool) Get(teamID string) (*Orchestrator, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	orch, ok := p.teams[teamID]
	return orch, ok
}

// Remove drops a team's orchestrator from the pool, e.g. after
// archiving.
func (p *Pool) Remove(teamID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.teams, teamID)
}

// TeamIDs returns the IDs of teams with live orchestrators.
func (p *Pool) TeamIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.teams))
	for id := range p.teams {
		ids = append(ids, id)
	}
	return ids
}
