package client

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/fhe"
)

// Step is a state of the aggregation protocol.
type Step int

const (
	StepIdle Step = iota
	StepRefreshing
	StepGrantingPermission
	StepFetching
	StepDecrypting
	StepDone
	StepFailed
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepRefreshing:
		return "refreshing"
	case StepGrantingPermission:
		return "granting-permission"
	case StepFetching:
		return "fetching"
	case StepDecrypting:
		return "decrypting"
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Averages are the decrypted global averages.
type Averages struct {
	Score uint64 `json:"avg_score"`
	Moves uint64 `json:"avg_moves"`
}

// ErrAggregationState is returned when Run or Resume is called in a state
// that does not allow it.
var ErrAggregationState = errors.New("aggregation not in a runnable state")

// Aggregation computes the global averages with four ledger steps run
// strictly in order: refresh, grant, fetch, decrypt. A failed run can be
// resumed from the step that failed.
type Aggregation struct {
	c *GameClient

	mu       sync.Mutex
	step     Step
	failedAt Step
	err      error
	avgScore fhe.Handle
	avgMoves fhe.Handle
	result   Averages
	onStep   []func(Step)
}

// NewAggregation returns an idle aggregation run.
func (c *GameClient) NewAggregation() *Aggregation {
	return &Aggregation{c: c}
}

// GlobalAverages runs a fresh aggregation to completion.
func (c *GameClient) GlobalAverages(ctx context.Context) (Averages, error) {
	return c.NewAggregation().Run(ctx)
}

// OnStep registers f to be called on every state transition.
func (a *Aggregation) OnStep(f func(Step)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStep = append(a.onStep, f)
}

// Step returns the current state.
func (a *Aggregation) Step() Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// FailedAt returns the step that failed, or StepIdle.
func (a *Aggregation) FailedAt() Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failedAt
}

// Err returns the failure of the last run.
func (a *Aggregation) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Run executes all steps from Refreshing. It is valid only once, from Idle.
func (a *Aggregation) Run(ctx context.Context) (Averages, error) {
	if s := a.Step(); s != StepIdle {
		return Averages{}, errors.Wrapf(ErrAggregationState, "run from %s", s)
	}
	return a.run(ctx, StepRefreshing)
}

// Resume re-executes a failed run from the step that failed. A finished
// run returns its result.
func (a *Aggregation) Resume(ctx context.Context) (Averages, error) {
	a.mu.Lock()
	step, from, res := a.step, a.failedAt, a.result
	a.mu.Unlock()
	switch step {
	case StepDone:
		return res, nil
	case StepFailed:
		return a.run(ctx, from)
	default:
		return Averages{}, errors.Wrapf(ErrAggregationState, "resume from %s", step)
	}
}

func (a *Aggregation) run(ctx context.Context, from Step) (res Averages, err error) {
	l, end, err := a.c.begin(actAggregate)
	defer end(&err)
	if err != nil {
		a.fail(from, err)
		return Averages{}, err
	}

	for step := from; step < StepDone; step++ {
		a.transition(step)
		a.c.log.Info("aggregation step", "step", step.String())
		switch step {
		case StepRefreshing:
			_, err = l.RefreshGlobalAverages(ctx)
		case StepGrantingPermission:
			_, err = l.AllowGlobalAveragesDecryption(ctx)
		case StepFetching:
			var s, m fhe.Handle
			if s, m, err = l.GetGlobalAverages(ctx); err == nil {
				a.mu.Lock()
				a.avgScore, a.avgMoves = s, m
				a.mu.Unlock()
			}
		case StepDecrypting:
			a.mu.Lock()
			s, m := a.avgScore, a.avgMoves
			a.mu.Unlock()
			var vals map[fhe.Handle]uint64
			if vals, err = a.c.decrypt(ctx, l.ContractAddress(), s, m); err == nil {
				res = Averages{Score: vals[s], Moves: vals[m]}
			}
		}
		if err != nil {
			err = classify(errors.Wrapf(err, "aggregation %s", step))
			a.fail(step, err)
			a.c.log.Error("aggregation failed", "step", step.String(), "error", err)
			return Averages{}, err
		}
	}

	a.mu.Lock()
	a.result, a.err, a.failedAt = res, nil, StepIdle
	a.mu.Unlock()
	a.transition(StepDone)
	return res, nil
}

func (a *Aggregation) fail(step Step, err error) {
	a.mu.Lock()
	a.failedAt, a.err = step, err
	a.mu.Unlock()
	a.transition(StepFailed)
}

func (a *Aggregation) transition(s Step) {
	a.mu.Lock()
	a.step = s
	hooks := append([]func(Step){}, a.onStep...)
	a.mu.Unlock()
	for _, f := range hooks {
		f(s)
	}
}
