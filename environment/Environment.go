// Package environment outlines the interfaces and sturcts needed to implement
// concrete environments
package environment

import (
	"github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should end. If End() returns true, it
// must also have marked the TimeStep as the last one in the episode
// through TimeStep.SetEnd().
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, along with the start state distribution and the episode
// ending conditions.
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
}

// Environment implements a simualted environment.
//
// Reset() starts a new episode and returns its first TimeStep. Step()
// takes an action, given as a vector, and returns the next TimeStep
// along with whether or not the episode has ended. For environments
// with discrete actions, the action vector is 1-dimensional and holds
// the action index.
//
// Errors returned from Reset() and Step() should satisfy
// IsEnvironmentError(); they are fatal, since a broken simulator
// cannot be trained against.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)
	CurrentTimeStep() timestep.TimeStep
	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}

// Closer is an Environment which holds resources that must be released
// once the environment is no longer needed.
type Closer interface {
	Environment
	Close() error
}
