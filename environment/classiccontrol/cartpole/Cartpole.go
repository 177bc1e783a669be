// Package cartpole implements the Cartpole classic control environment
// with the dynamics and episode limits of Gym's CartPole-v1.
package cartpole

import (
	"fmt"
	"math"

	env "github.com/samuelfneumann/goac/environment"
	ts "github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Number of state features: position, speed, angle, angular velocity
	ObservationDims int = 4
	ActionDims      int = 1
)

// base implements the physics shared by Cartpole environments. The
// state features are continuous and consist of the cart's x position
// and speed, as well as the pole's angle from the positive y-axis and
// the pole's angular velocity.
//
// State updates use Euler kinematic integration.
type base struct {
	env.Task
	lastStep ts.TimeStep
	discount float64
}

// newBase constructs a new base Cartpole environment
func newBase(t env.Task, discount float64) (*base, ts.TimeStep) {
	state := t.Start()
	if state.Len() != ObservationDims {
		panic(fmt.Sprintf("newBase: invalid number of start state "+
			"features \n\twant(%v) \n\thave(%v)", ObservationDims,
			state.Len()))
	}

	firstStep := ts.New(ts.First, 0.0, discount, state, 0)
	return &base{Task: t, lastStep: firstStep, discount: discount}, firstStep
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *base) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if state.Len() != ObservationDims {
		err := fmt.Errorf("invalid number of start state features "+
			"\n\twant(%v) \n\thave(%v)", ObservationDims, state.Len())
		return ts.TimeStep{}, env.NewError("reset", err)
	}

	startStep := ts.New(ts.First, 0, c.discount, state, 0)
	c.lastStep = startStep

	return startStep, nil
}

// CurrentTimeStep returns the last TimeStep the environment produced
func (c *base) CurrentTimeStep() ts.TimeStep {
	return c.lastStep
}

// ObservationSpec returns the observation specification of the
// environment
func (c *base) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lower := []float64{-PositionBounds * 2, -math.MaxFloat64,
		-FailAngle * 2, -math.MaxFloat64}
	lowerBound := mat.NewVecDense(ObservationDims, lower)

	upper := []float64{PositionBounds * 2, math.MaxFloat64,
		FailAngle * 2, math.MaxFloat64}
	upperBound := mat.NewVecDense(ObservationDims, upper)

	return env.NewSpec(shape, env.Observation, lowerBound,
		upperBound, env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (c *base) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{c.discount})
	upperBound := mat.NewVecDense(1, []float64{c.discount})

	return env.NewSpec(shape, env.Discount, lowerBound,
		upperBound, env.Continuous)
}

// nextState computes the next state of the environment when force is
// applied to the cart in direction, which is -1 (left) or +1 (right).
func (c *base) nextState(direction float64) *mat.VecDense {
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := direction * ForceMag

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / TotalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/TotalMass

	x += Dt * xDot
	xDot += Dt * xAcc
	th += Dt * thDot
	thDot += Dt * thAcc

	return mat.NewVecDense(ObservationDims, []float64{x, xDot, th, thDot})
}

// update moves the environment to nextState after action a was taken,
// returning the next TimeStep and whether the episode has ended.
func (c *base) update(a *mat.VecDense, nextState *mat.VecDense) (ts.TimeStep,
	bool) {
	reward := c.GetReward(c.lastStep.Observation, a, nextState)
	nextStep := ts.New(ts.Mid, reward, c.discount, nextState,
		c.lastStep.Number+1)

	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last()
}

func (c *base) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}
