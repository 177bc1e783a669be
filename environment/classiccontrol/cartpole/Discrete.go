package cartpole

import (
	"fmt"

	env "github.com/samuelfneumann/goac/environment"
	ts "github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 1
)

// Discrete implements the classic control environment Cartpole with
// discrete actions. In this environment, a pole is attached to a cart,
// which can move horizontally. Gravity pulls the pole downwards so
// that balancing it in an upright position is very difficult.
//
// Actions are discrete, consisting of the direction to apply
// horizontal force to the cart. Legal actions are in {0, 1}:
//
//	Action		Meaning
//	  0			Push cart left
//	  1			Push cart right
//
// Illegal actions cause Step() to return an environment error.
type Discrete struct {
	*base
}

// NewDiscrete constructs a new Cartpole environment with discrete
// actions
func NewDiscrete(t env.Task, discount float64) (*Discrete, ts.TimeStep) {
	base, firstStep := newBase(t, discount)
	return &Discrete{base}, firstStep
}

// ActionSpec returns the action specification of the environment
func (c *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one environmental step given action a and returns the next
// timestep as a timestep.TimeStep and a bool indicating whether or not
// the episode has ended.
func (c *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		err := fmt.Errorf("actions should be %v-dimensional", ActionDims)
		return ts.TimeStep{}, true, env.NewError("step", err)
	}
	if c.lastStep.Last() {
		err := fmt.Errorf("cannot step after the episode has ended")
		return ts.TimeStep{}, true, env.NewError("step", err)
	}

	action := int(a.AtVec(0))
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		err := fmt.Errorf("illegal action %v ∉ (0, 1)", action)
		return ts.TimeStep{}, true, env.NewError("step", err)
	}

	// Convert action (0, 1) to a direction (-1, 1)
	direction := 2*float64(action) - 1

	nextStep, done := c.update(a, c.nextState(direction))
	return nextStep, done, nil
}
