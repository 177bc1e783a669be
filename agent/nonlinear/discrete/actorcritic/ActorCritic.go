// Package actorcritic implements an episodic actor-critic agent with a
// categorical policy for discrete actions.
//
// The agent keeps two copies of its networks. The behaviour networks
// have a batch size of 1 and are used to select actions. The training
// networks have a batch size equal to the maximum episode length and
// share a graph with the loss and its gradients. Short episodes are
// padded, and padded rows are masked out of the loss. After each update
// the training weights are copied into the behaviour networks, so both
// copies always compute identical log-likelihoods and values.
package actorcritic

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goac/agent"
	"github.com/samuelfneumann/goac/agent/nonlinear/discrete/policy"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/network"
	"github.com/samuelfneumann/goac/utils/floatutils"
)

// ActorCritic implements the episodic one-step-per-episode actor-critic
// algorithm: after each episode a single gradient step is taken on
//
//	L = -Σ log π(A_t|S_t) (G_t - v(S_t)) + c Σ (G_t - v(S_t))²
//
// where G_t is the discounted return and the advantage G_t - v(S_t) is
// treated as a constant in the policy term.
//
// ActorCritic is not safe for concurrent use.
type ActorCritic struct {
	features   int
	numActions int
	maxSteps   int

	valueCoefficient    float64
	normalizeAdvantages bool

	// Action selection
	behaviourInput   *G.Node
	behaviourPolicy  *policy.CategoricalMLP
	behaviourValueFn network.NeuralNet
	behaviourVM      G.VM

	// Training
	trainInput   *G.Node
	trainPolicy  agent.LogProber
	trainValueFn network.NeuralNet
	advantages   *G.Node
	returns      *G.Node
	mask         *G.Node

	lossNode      *G.Node
	lossVal       G.Value
	policyLossVal G.Value
	valueLossVal  G.Value

	learnables G.Nodes
	model      []G.ValueGrad
	solver     G.Solver
	trainVM    G.VM

	lossID  uint64
	pending bool
}

// New creates a new ActorCritic agent for an environment with a
// discrete, 1-dimensional action space
func New(e env.Environment, c Config, seed uint64) (*ActorCritic, error) {
	features := e.ObservationSpec().Shape.Len()
	numActions, err := env.NumActions(e.ActionSpec())
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}

	return NewWithDims(features, numActions, c, seed)
}

// NewWithDims creates a new ActorCritic agent for observations with the
// given number of features and the given number of actions
func NewWithDims(features, numActions int, c Config,
	seed uint64) (*ActorCritic, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	if features < 1 {
		return nil, fmt.Errorf("new: observations must have at least one "+
			"feature, have(%d)", features)
	}

	a := &ActorCritic{
		features:            features,
		numActions:          numActions,
		maxSteps:            c.MaxSteps,
		valueCoefficient:    c.ValueCoefficient,
		normalizeAdvantages: c.NormalizeAdvantages,
		solver:              c.Solver.Solver,
	}

	if err := a.buildBehaviour(c, seed); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	if err := a.buildTrain(c, seed); err != nil {
		a.behaviourVM.Close()
		return nil, errors.Wrap(err, "new")
	}

	// Both copies start from the same weights
	if err := a.syncBehaviour(); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "new")
	}

	return a, nil
}

// buildBehaviour creates the batch-1 networks used to select actions
func (a *ActorCritic) buildBehaviour(c Config, seed uint64) error {
	g := G.NewGraph()
	a.behaviourInput = network.NewInput(g, 1, a.features, "input")

	var err error
	a.behaviourPolicy, err = policy.NewCategoricalMLP(a.behaviourInput,
		a.numActions, c.PolicyLayers, c.PolicyBiases, c.PolicyActivations,
		c.InitWFn.InitWFn(), "policy", seed)
	if err != nil {
		return errors.Wrap(err, "buildBehaviour: could not create policy")
	}

	a.behaviourValueFn, err = network.NewSingleHeadMLPFromInput(
		a.behaviourInput, c.ValueFnLayers, c.ValueFnBiases,
		c.InitWFn.InitWFn(), c.ValueFnActivations, "value")
	if err != nil {
		return errors.Wrap(err, "buildBehaviour: could not create value "+
			"function")
	}

	a.behaviourVM = G.NewTapeMachine(g, c.Device.VMOpts()...)
	return nil
}

// buildTrain creates the batch-maxSteps networks, the loss and the
// gradients of the loss with respect to the weights of both networks
func (a *ActorCritic) buildTrain(c Config, seed uint64) error {
	g := G.NewGraph()
	a.trainInput = network.NewInput(g, a.maxSteps, a.features, "input")

	trainPolicy, err := policy.NewCategoricalMLP(a.trainInput, a.numActions,
		c.PolicyLayers, c.PolicyBiases, c.PolicyActivations,
		c.InitWFn.InitWFn(), "policy", seed)
	if err != nil {
		return errors.Wrap(err, "buildTrain: could not create policy")
	}
	a.trainPolicy = trainPolicy

	a.trainValueFn, err = network.NewSingleHeadMLPFromInput(a.trainInput,
		c.ValueFnLayers, c.ValueFnBiases, c.InitWFn.InitWFn(),
		c.ValueFnActivations, "value")
	if err != nil {
		return errors.Wrap(err, "buildTrain: could not create value "+
			"function")
	}

	a.advantages = newVector(g, a.maxSteps, "advantages")
	a.returns = newVector(g, a.maxSteps, "returns")
	a.mask = newVector(g, a.maxSteps, "mask")

	values, err := G.Reshape(a.trainValueFn.Prediction(),
		tensor.Shape{a.maxSteps})
	if err != nil {
		return errors.Wrap(err, "buildTrain: could not reshape values")
	}

	policyLoss, err := policyLossNode(a.trainPolicy.LogProbNode(),
		a.advantages)
	if err != nil {
		return errors.Wrap(err, "buildTrain")
	}
	valueLoss, err := valueLossNode(values, a.returns, a.mask,
		a.valueCoefficient)
	if err != nil {
		return errors.Wrap(err, "buildTrain")
	}
	a.lossNode, err = G.Add(policyLoss, valueLoss)
	if err != nil {
		return errors.Wrap(err, "buildTrain: could not add losses")
	}

	G.Read(a.lossNode, &a.lossVal)
	G.Read(policyLoss, &a.policyLossVal)
	G.Read(valueLoss, &a.valueLossVal)

	a.learnables = append(append(G.Nodes{},
		a.trainPolicy.Network().Learnables()...),
		a.trainValueFn.Learnables()...)
	a.model = append(append([]G.ValueGrad{},
		a.trainPolicy.Network().Model()...),
		a.trainValueFn.Model()...)

	if _, err := G.Grad(a.lossNode, a.learnables...); err != nil {
		return errors.Wrap(err, "buildTrain: could not compute gradient")
	}

	opts := append([]G.VMOpt{G.BindDualValues(a.learnables...)},
		c.Device.VMOpts()...)
	a.trainVM = G.NewTapeMachine(g, opts...)
	return nil
}

// newVector adds a zero-initialized input vector to g
func newVector(g *G.ExprGraph, size int, name string) *G.Node {
	return G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(size),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
}

// let binds data with the given shape to an input node
func let(n *G.Node, data []float64, shape ...int) error {
	return G.Let(n, tensor.New(tensor.WithShape(shape...),
		tensor.WithBacking(data)))
}

// forward runs the behaviour networks on a single observation
func (a *ActorCritic) forward(obs []float64) error {
	if len(obs) != a.features {
		return fmt.Errorf("forward: invalid observation length\n\twant(%d)"+
			"\n\thave(%d)", a.features, len(obs))
	}

	input := make([]float64, len(obs))
	copy(input, obs)
	if err := let(a.behaviourInput, input, 1, a.features); err != nil {
		return errors.Wrap(err, "forward: could not set input")
	}

	if err := a.behaviourVM.RunAll(); err != nil {
		a.behaviourVM.Reset()
		return errors.Wrap(err, "forward: could not run behaviour networks")
	}
	a.behaviourVM.Reset()
	return nil
}

// SelectAction samples an action from the policy in the state
// described by obs. The returned Decision holds the sampled action, its
// log-likelihood and the value estimate of obs.
func (a *ActorCritic) SelectAction(obs []float64) (agent.Decision, error) {
	if err := a.forward(obs); err != nil {
		return agent.Decision{}, errors.Wrap(err, "selectAction")
	}

	action, logProb, err := a.behaviourPolicy.Sample()
	if err != nil {
		return agent.Decision{}, errors.Wrap(err, "selectAction")
	}

	value := a.behaviourValueFn.Output().Data().([]float64)[0]

	return agent.Decision{
		Action:        action,
		LogLikelihood: logProb,
		Value:         value,
	}, nil
}

// Probabilities returns the probability of each action in the state
// described by obs
func (a *ActorCritic) Probabilities(obs []float64) ([]float64, error) {
	if err := a.forward(obs); err != nil {
		return nil, errors.Wrap(err, "probabilities")
	}
	return a.behaviourPolicy.Probabilities()
}

// Loss computes the loss of a trajectory and its gradient with respect
// to the weights of both networks. The weights are not changed; the
// returned Loss must be passed to Update to take a gradient step.
func (a *ActorCritic) Loss(t agent.Trajectory, discount float64) (agent.Loss,
	error) {
	if err := t.Validate(); err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}
	if t.Len() > a.maxSteps {
		return agent.Loss{}, errors.Wrapf(agent.ErrInvalidTrajectory,
			"loss: trajectory of length %d exceeds the maximum of %d",
			t.Len(), a.maxSteps)
	}
	if discount <= 0 || discount >= 1 {
		return agent.Loss{}, fmt.Errorf("loss: discount must be in (0, 1), "+
			"have(%v)", discount)
	}

	returns := DiscountedReturns(t.Rewards, discount)
	advantages, err := Advantages(returns, t.Values)
	if err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}
	if a.normalizeAdvantages {
		advantages = Standardize(advantages)
	}

	if err := a.bindTrajectory(t, returns, advantages); err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}

	if a.pending {
		a.trainVM.Reset()
	}
	if err := a.clearGradients(); err != nil {
		a.pending = false
		return agent.Loss{}, errors.Wrap(err, "loss")
	}
	if err := a.trainVM.RunAll(); err != nil {
		a.trainVM.Reset()
		a.pending = false
		return agent.Loss{}, errors.Wrap(err, "loss: could not run "+
			"training graph")
	}
	a.pending = true
	a.lossID++

	total, err := scalar(a.lossVal)
	if err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}
	policyLoss, err := scalar(a.policyLossVal)
	if err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}
	valueLoss, err := scalar(a.valueLossVal)
	if err != nil {
		return agent.Loss{}, errors.Wrap(err, "loss")
	}

	return agent.Loss{
		Total:             total,
		Policy:            policyLoss,
		Value:             valueLoss,
		MeanLogLikelihood: stat.Mean(t.LogLikelihoods, nil),
		ID:                a.lossID,
	}, nil
}

// bindTrajectory sets the inputs of the training graph, padding each
// to the maximum trajectory length
func (a *ActorCritic) bindTrajectory(t agent.Trajectory, returns,
	advantages []float64) error {
	obs := make([]float64, a.maxSteps*a.features)
	for i, o := range t.Observations {
		if len(o) != a.features {
			return errors.Wrapf(agent.ErrInvalidTrajectory, "bindTrajectory: "+
				"observation %d has %d features, want %d", i, len(o),
				a.features)
		}
		copy(obs[i*a.features:], o)
	}

	mask := make([]float64, a.maxSteps)
	for i := 0; i < t.Len(); i++ {
		mask[i] = 1.0
	}

	pad := func(x []float64) []float64 {
		padded := make([]float64, a.maxSteps)
		copy(padded, x)
		return padded
	}

	if err := let(a.trainInput, obs, a.maxSteps, a.features); err != nil {
		return errors.Wrap(err, "bindTrajectory: observations")
	}
	if err := a.trainPolicy.SetActions(t.Actions); err != nil {
		return errors.Wrap(err, "bindTrajectory: actions")
	}
	if err := let(a.advantages, pad(advantages), a.maxSteps); err != nil {
		return errors.Wrap(err, "bindTrajectory: advantages")
	}
	if err := let(a.returns, pad(returns), a.maxSteps); err != nil {
		return errors.Wrap(err, "bindTrajectory: returns")
	}
	if err := let(a.mask, mask, a.maxSteps); err != nil {
		return errors.Wrap(err, "bindTrajectory: mask")
	}
	return nil
}

// Update takes one solver step over the weights of both networks using
// the gradients computed by the most recent call to Loss. If the loss
// or any gradient is not finite, ErrNumericInstability is returned and
// the weights are left unchanged.
func (a *ActorCritic) Update(l agent.Loss) (err error) {
	if !a.pending || l.ID != a.lossID {
		return errors.Wrap(ErrStaleLoss, "update")
	}
	defer func() {
		a.trainVM.Reset()
		a.pending = false
		if clearErr := a.clearGradients(); clearErr != nil && err == nil {
			err = errors.Wrap(clearErr, "update")
		}
	}()

	if !floatutils.AllFinite(l.Total) {
		return errors.Wrapf(ErrNumericInstability, "update: loss is %v",
			l.Total)
	}
	for _, n := range a.learnables {
		grad, err := n.Grad()
		if err != nil {
			return errors.Wrapf(err, "update: could not get gradient of %v",
				n.Name())
		}
		if !floatutils.AllFinite(grad.Data().([]float64)...) {
			return errors.Wrapf(ErrNumericInstability, "update: gradient "+
				"of %v is not finite", n.Name())
		}
	}

	if err := a.solver.Step(a.model); err != nil {
		return errors.Wrap(err, "update: could not step solver")
	}

	if err := a.syncBehaviour(); err != nil {
		return errors.Wrap(err, "update")
	}
	return nil
}

// syncBehaviour copies the training weights into the behaviour networks
func (a *ActorCritic) syncBehaviour() error {
	if err := a.behaviourPolicy.Network().Set(
		a.trainPolicy.Network()); err != nil {
		return errors.Wrap(err, "syncBehaviour: could not set policy")
	}
	if err := a.behaviourValueFn.Set(a.trainValueFn); err != nil {
		return errors.Wrap(err, "syncBehaviour: could not set value "+
			"function")
	}
	return nil
}

// clearGradients zeroes the gradients of the training networks. Until
// the training graph first runs there are no gradients to clear. After
// that, the training VM keeps a gradient bound to every learnable, so
// failing to get one means the training graph is broken.
func (a *ActorCritic) clearGradients() error {
	computed := a.lossID > 0
	for _, n := range a.learnables {
		grad, err := n.Grad()
		if !computed && (err != nil || grad == nil) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "clearGradients: could not get "+
				"gradient of %v", n.Name())
		}
		if grad == nil {
			return fmt.Errorf("clearGradients: no gradient bound to %v",
				n.Name())
		}
		t, ok := grad.(*tensor.Dense)
		if !ok {
			return fmt.Errorf("clearGradients: gradient of %v is a %T, "+
				"not a *tensor.Dense", n.Name(), grad)
		}
		t.Zero()
	}
	return nil
}

// Close closes the agent's VMs
func (a *ActorCritic) Close() error {
	behaviourErr := a.behaviourVM.Close()
	trainErr := a.trainVM.Close()

	if behaviourErr != nil {
		return errors.Wrap(behaviourErr, "close: behaviour VM")
	}
	if trainErr != nil {
		return errors.Wrap(trainErr, "close: training VM")
	}
	return nil
}

// scalar returns the float64 held by a scalar Value
func scalar(v G.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("scalar: no value")
	}

	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, fmt.Errorf("scalar: value %v is not a float64 scalar", v)
}
