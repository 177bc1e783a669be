package cartpole

import (
	"math"

	env "github.com/samuelfneumann/goac/environment"
	ts "github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	// FailAngle is the pole angle, in radians, past which the episode
	// ends
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// PositionBounds is the cart position, in either direction, past
	// which the episode ends
	PositionBounds float64 = 2.4

	// EpisodeCutoff is the default step limit, as in CartPole-v1
	EpisodeCutoff int = 500

	// StartBound bounds (+/-) each start state feature
	StartBound float64 = 0.05
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The reward is +1 for every timestep, including the one on which the
// episode ends.
//
// Episodes end in a terminal state when the pole angle leaves
// (-failAngle, failAngle) or the cart leaves (-2.4, 2.4), and are
// truncated after a step limit.
type Balance struct {
	env.Starter
	stepLimiter  *env.StepLimit
	stateLimiter *env.IntervalLimit
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int,
	failAngle float64) (*Balance, error) {
	legal := []r1.Interval{
		{Min: -PositionBounds, Max: PositionBounds},
		{Min: -failAngle, Max: failAngle},
	}
	stateLimiter, err := env.NewIntervalLimit(legal, []int{0, 2},
		ts.TerminalStateReached)
	if err != nil {
		return nil, err
	}

	return &Balance{s, env.NewStepLimit(episodeSteps), stateLimiter}, nil
}

// NewDefaultBalance returns the Balance task of CartPole-v1: start
// states uniform in (-0.05, 0.05) and a 500 step limit.
func NewDefaultBalance(seed uint64) (*Balance, error) {
	bound := r1.Interval{Min: -StartBound, Max: StartBound}
	starter := env.NewUniformStarter([]r1.Interval{bound, bound, bound,
		bound}, seed)

	return NewBalance(starter, EpisodeCutoff, FailAngle)
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true. Otherwise,
// the function does not adjust the TimeStep and returns false.
//
// Reaching a terminal state takes precedence over a step limit.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.stateLimiter.End(t); end {
		return true
	}
	return b.stepLimiter.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_, _, _ mat.Vector) float64 {
	return 1.0
}
