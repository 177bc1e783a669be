//go:build gym
// +build gym

package gym

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/goac/environment"
	ts "github.com/samuelfneumann/goac/timestep"
)

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment
	name string

	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite. Only environments whose observations
// are Box spaces and whose actions are Box or Discrete spaces are
// supported.
func New(name string, discount float64, seed uint64) (*GymEnv,
	ts.TimeStep, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, ts.TimeStep{}, env.NewError("new",
			errors.Wrapf(err, "could not create environment %v", name))
	}

	if _, ok := goGymEnv.ObservationSpace().(*gogym.BoxSpace); !ok {
		goGymEnv.Close()
		return nil, ts.TimeStep{}, env.NewError("new", fmt.Errorf(
			"environment %v does not have a box observation space", name))
	}
	switch goGymEnv.ActionSpace().(type) {
	case *gogym.BoxSpace, *gogym.DiscreteSpace:
	default:
		goGymEnv.Close()
		return nil, ts.TimeStep{}, env.NewError("new", fmt.Errorf(
			"environment %v has an unsupported action space", name))
	}

	goGymEnv.Seed(int(seed))
	gymEnv := &GymEnv{
		Environment: goGymEnv,
		name:        name,
		discount:    discount,
	}

	t, err := gymEnv.Reset()
	if err != nil {
		goGymEnv.Close()
		return nil, ts.TimeStep{}, err
	}
	return gymEnv, t, nil
}

// Name returns the Gym ID of the environment
func (g *GymEnv) Name() string {
	return g.name
}

// Step takes a single environmental step. Gym does not report whether
// an episode was cut off by its own time limit, so every episode that
// Gym reports as done ends with ts.TerminalStateReached.
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if g.currentStep.Last() {
		return ts.TimeStep{}, true, env.NewError("step",
			errors.New("cannot step a finished episode, reset first"))
	}

	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, env.NewError("step",
			errors.Wrap(err, "could not step GoGym environment"))
	}

	t := ts.New(ts.Mid, reward, g.discount, obs, g.currentStep.Number+1)
	if done {
		t.SetEnd(ts.TerminalStateReached)
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, env.NewError("reset",
			errors.Wrap(err, "could not reset GoGym environment"))
	}

	t := ts.New(ts.First, 0, g.discount, obs, 0)
	g.currentStep = t

	return t, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.ObservationSpace()
	low, high := space.Low()[0], space.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, env.Observation, low, high, env.Continuous)
}

// ActionSpec returns the action specification of the environment.
// Discrete actions are described by a single dimension enumerating the
// actions from 0.
func (g *GymEnv) ActionSpec() env.Spec {
	space := g.ActionSpace()
	low, high := space.Low()[0], space.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	cardinality := env.Continuous
	if _, ok := space.(*gogym.DiscreteSpace); ok {
		cardinality = env.Discrete
	}

	return env.NewSpec(shape, env.Action, low, high, cardinality)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, low, low, env.Continuous)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// Shutdown finalizes the Python interpreter used by all Gym
// environments. No GymEnv may be used afterwards.
func Shutdown() {
	gogym.Close()
}
