// Package engine runs one replica of the trading simulation: the round
// scheduler, strategy invocation and settlement.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"ekon-lab/internal/agent"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/observability"
	"ekon-lab/internal/settlement"
	"ekon-lab/internal/strategy"
	"ekon-lab/internal/world"
)

// Engine errors
var (
	ErrInvalidOptions = errors.New("invalid simulation options")
	ErrAlreadyRun     = errors.New("simulation already run")
	ErrEngineFault    = errors.New("engine fault")
)

// State is the scheduler state.
type State int32

// State constants.
const (
	StateInit State = iota
	StateRunning
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StopReason explains why a run ended before its last round.
type StopReason string

// StopReason constants.
const (
	StopNone      StopReason = ""
	StopObserver  StopReason = "observer"
	StopCancelled StopReason = "cancelled"
)

// Options configures a simulation.
type Options struct {
	World        *world.World
	Strategies   []strategy.Strategy // one agent per strategy; names must be unique
	StartingCoin int64
	Rounds       int
	Rand         *rand.Rand // start positions, turn order and per-agent sources

	// Positions optionally fixes each agent's start node, indexed like Strategies.
	Positions []int

	Observer Observer     // optional
	Clock    agent.Clock  // defaults to agent.SystemClock
	Logger   *slog.Logger // defaults to a discard logger
	Metrics  *observability.Metrics
}

// Result is the outcome of a run.
type Result struct {
	Rounds       int // rounds played
	TotalRounds  int
	StartingCoin int64
	StopReason   StopReason
	Agents       []domain.AgentSnapshot // in strategy order
	Markets      map[int]map[string]domain.Listing
}

// Simulation is one replica. It is not safe for concurrent use except for State.
type Simulation struct {
	world    *world.World
	agents   []*agent.Agent
	rounds   int
	coin     int64
	rng      *rand.Rand
	observer Observer
	clock    agent.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	state atomic.Int32
}

// New validates opts and places the agents.
func New(opts Options) (*Simulation, error) {
	if opts.World == nil {
		return nil, fmt.Errorf("%w: world is required", ErrInvalidOptions)
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidOptions)
	}
	if len(opts.Strategies) == 0 {
		return nil, fmt.Errorf("%w: at least one strategy is required", ErrInvalidOptions)
	}
	if opts.Rounds < 1 {
		return nil, fmt.Errorf("%w: rounds %d < 1", ErrInvalidOptions, opts.Rounds)
	}
	if opts.StartingCoin < 0 {
		return nil, fmt.Errorf("%w: negative starting coin %d", ErrInvalidOptions, opts.StartingCoin)
	}
	if opts.Positions != nil && len(opts.Positions) != len(opts.Strategies) {
		return nil, fmt.Errorf("%w: %d positions for %d strategies", ErrInvalidOptions, len(opts.Positions), len(opts.Strategies))
	}

	s := &Simulation{
		world:    opts.World,
		rounds:   opts.Rounds,
		coin:     opts.StartingCoin,
		rng:      opts.Rand,
		observer: opts.Observer,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.clock == nil {
		s.clock = agent.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	seen := make(map[string]struct{}, len(opts.Strategies))
	for i, strat := range opts.Strategies {
		if strat == nil {
			return nil, fmt.Errorf("%w: strategy %d is nil", ErrInvalidOptions, i)
		}
		name := strat.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: strategy %d has no name", ErrInvalidOptions, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate strategy name %q", ErrInvalidOptions, name)
		}
		seen[name] = struct{}{}

		pos := s.rng.IntN(s.world.NodeCount())
		if opts.Positions != nil {
			pos = opts.Positions[i]
			if !s.world.Graph.Has(pos) {
				return nil, fmt.Errorf("%w: start node %d for %s is not in the world", ErrInvalidOptions, pos, name)
			}
		}
		agentRand := rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
		s.agents = append(s.agents, agent.New(strat, s.coin, pos, agentRand))
	}

	return s, nil
}

// State returns the current scheduler state. Safe for concurrent use.
func (s *Simulation) State() State {
	return State(s.state.Load())
}

// Run plays rounds until the last one, an observer stop or ctx cancellation.
// ctx is checked only between rounds. Run may be called once.
func (s *Simulation) Run(ctx context.Context) (res *Result, err error) {
	if !s.state.CompareAndSwap(int32(StateInit), int32(StateRunning)) {
		return nil, ErrAlreadyRun
	}
	defer s.state.Store(int32(StateTerminal))
	defer s.metrics.SimulationStarted()()
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrEngineFault, r)
		}
	}()

	res = &Result{TotalRounds: s.rounds, StartingCoin: s.coin}
	for round := 0; round < s.rounds; round++ {
		if ctx.Err() != nil {
			res.StopReason = StopCancelled
			break
		}

		s.playRound(ctx, round)
		res.Rounds++
		s.metrics.RecordRound()

		if s.observer != nil && !s.observer.OnRoundEnd(ctx, s.snapshot(round)) {
			res.StopReason = StopObserver
			break
		}
	}

	res.Agents = s.agentSnapshots()
	res.Markets = s.world.Markets.Snapshot()
	s.logger.Debug("simulation finished",
		"rounds", res.Rounds,
		"total_rounds", res.TotalRounds,
		"stop_reason", string(res.StopReason),
	)
	return res, nil
}

func (s *Simulation) playRound(ctx context.Context, round int) {
	if rs, ok := s.observer.(RoundStarter); ok {
		rs.OnRoundStart(round, s.rounds)
	}

	meta := domain.Meta{CurrentRound: round, TotalRounds: s.rounds}
	for _, i := range s.rng.Perm(len(s.agents)) {
		a := s.agents[i]

		spent := a.DecisionTime
		bundle, terr := a.Invoke(ctx, meta, s.world, s.clock)
		s.metrics.RecordTurn(a.Name, a.DecisionTime-spent)

		if terr != nil {
			s.logger.Warn("strategy failed",
				"agent", a.Name,
				"round", round,
				"kind", string(terr.Kind),
				"error", terr.Err,
			)
			s.metrics.RecordStrategyFailure(a.Name, string(terr.Kind))
			s.notify(domain.ActionEvent{
				Round:  round,
				Agent:  a.Name,
				Type:   domain.ActionError,
				From:   a.Position,
				To:     a.Position,
				Reason: fmt.Sprintf("%s: %v", terr.Kind, terr.Err),
			})
			continue
		}

		for _, e := range settlement.Settle(round, s.world.Graph, s.world.Markets.At(a.Position), a, bundle) {
			s.metrics.RecordSubAction(string(e.Type), e.Accepted)
			s.notify(e)
		}
	}
}

func (s *Simulation) notify(e domain.ActionEvent) {
	if s.observer != nil {
		s.observer.OnAgentAction(e)
	}
}

func (s *Simulation) snapshot(round int) *domain.RoundSnapshot {
	return &domain.RoundSnapshot{
		Round:       round,
		TotalRounds: s.rounds,
		Agents:      s.agentSnapshots(),
		Markets:     s.world.Markets.Snapshot(),
	}
}

func (s *Simulation) agentSnapshots() []domain.AgentSnapshot {
	out := make([]domain.AgentSnapshot, len(s.agents))
	for i, a := range s.agents {
		out[i] = a.Snapshot()
	}
	return out
}
