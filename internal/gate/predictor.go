package gate

import (
	"sync"
	"time"

	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/player"
)

// Predictor runs commands locally for one player without a lock or store,
// so a client can show the outcome before the server confirms it. It never
// holds the server secret; server-only commands are refused and the client
// reconciles with the server's state instead.
type Predictor struct {
	mu       sync.Mutex
	state    player.State
	config   config.Provider
	registry Registry
	now      func() time.Time
}

func NewPredictor(initial player.State, cfg config.Provider) *Predictor {
	return &Predictor{
		state:    initial.Clone(),
		config:   cfg,
		registry: DefaultRegistry(),
		now:      time.Now,
	}
}

// Predict applies cmd to the local state. On error the state is unchanged.
func (p *Predictor) Predict(cmd Command) (any, error) {
	if ServerOnly(cmd.Type) {
		return nil, errs.E(errs.KindUnknownCommand, "gate.Predict", "command %q runs only on the server", cmd.Type)
	}
	h, err := p.registry.Lookup(cmd.Type)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	next := p.state.Clone()
	out, err := h(Env{Config: p.config, Now: now}, &next, cmd.Payload)
	if err != nil {
		return nil, err
	}
	next.Version++
	next.UpdatedAt = now
	p.state = next
	return out, nil
}

// Reconcile replaces the predicted state with the server's.
func (p *Predictor) Reconcile(server player.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = server.Clone()
}

// State returns a copy of the current predicted state.
func (p *Predictor) State() player.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}
