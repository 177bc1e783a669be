package actorcritic

import (
	"fmt"

	"github.com/samuelfneumann/goac/agent"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/initwfn"
	"github.com/samuelfneumann/goac/network"
	"github.com/samuelfneumann/goac/solver"
)

// Config implements a configuration for a categorical policy
// actor-critic agent. The categorical distribution is parameterized by
// a neural network with N outputs, one for each action in the
// environment. The network outputs the logit of each action, and
// action probabilities are computed through the softmax function. A
// second network estimates the state value.
type Config struct {
	// Policy neural net
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value function neural net
	ValueFnLayers      []int
	ValueFnBiases      []bool
	ValueFnActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	// Solver takes one step over the weights of both networks per
	// update. Gradient clipping is configured on the solver.
	Solver *solver.Solver

	// ValueCoefficient scales the value loss in the total loss
	ValueCoefficient float64

	// NormalizeAdvantages standardizes the advantages of a trajectory
	// before computing the policy loss
	NormalizeAdvantages bool

	// MaxSteps is the longest trajectory the agent can learn from
	MaxSteps int

	Device agent.Device
}

// DefaultConfig returns the configuration of a 128-unit ReLU network
// for each of the policy and value function, trained with Adam at a
// learning rate of 1e-3 on trajectories of up to 500 steps.
func DefaultConfig() Config {
	weights, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	adam, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		PolicyLayers:      []int{128},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.ReLU()},

		ValueFnLayers:      []int{128},
		ValueFnBiases:      []bool{true},
		ValueFnActivations: []*network.Activation{network.ReLU()},

		InitWFn: weights,
		Solver:  adam,

		ValueCoefficient:    1.0,
		NormalizeAdvantages: false,
		MaxSteps:            500,
		Device:              agent.CPU,
	}
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.PolicyBiases) ||
		len(c.PolicyLayers) != len(c.PolicyActivations) {
		return fmt.Errorf("validate: policy needs one bias and activation " +
			"per layer")
	}
	if len(c.ValueFnLayers) != len(c.ValueFnBiases) ||
		len(c.ValueFnLayers) != len(c.ValueFnActivations) {
		return fmt.Errorf("validate: value function needs one bias and " +
			"activation per layer")
	}
	for _, act := range append(append([]*network.Activation{},
		c.PolicyActivations...), c.ValueFnActivations...) {
		if act == nil {
			return fmt.Errorf("validate: nil activation")
		}
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if c.Solver == nil || c.Solver.Config == nil {
		return fmt.Errorf("validate: no solver")
	}
	if err := c.Solver.Config.Validate(); err != nil {
		return fmt.Errorf("validate: solver: %v", err)
	}
	if c.ValueCoefficient < 0 {
		return fmt.Errorf("validate: value coefficient must be "+
			"non-negative, have(%v)", c.ValueCoefficient)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("validate: max steps must be positive, have(%v)",
			c.MaxSteps)
	}
	if c.Device != agent.CPU && c.Device != agent.CUDA {
		return fmt.Errorf("validate: unknown device %q", c.Device)
	}
	return nil
}

// CreateAgent creates and returns the agent determined by the
// configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	a, err := New(e, c, seed)
	if err != nil {
		return nil, err
	}
	return a, nil
}
