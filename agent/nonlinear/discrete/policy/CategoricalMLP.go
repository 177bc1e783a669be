// Package policy implements discrete-action policies using nonlinear
// function approximation with Gorgonia.
package policy

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goac/network"
)

// CategoricalMLP implements a softmax policy over a discrete set of
// actions using a feedforward neural network. Given N actions, the
// network produces N logits for each observation in its input batch.
//
// CategoricalMLP populates the graph of its input node with the
// network, the log-softmax of its logits and the log probability of a
// batch of externally given actions. The struct does not have a VM of
// its own. An external VM should be used to run the computational
// graph, and it should always be run before Sample or Probabilities
// are called:
//
//	vm := G.NewTapeMachine(g)           // set up a VM with the policy's graph
//	G.Let(input, obs)                   // bind the observation
//	vm.RunAll()                         // compute the log probabilities
//	action, logProb, err := p.Sample()  // sample an action
type CategoricalMLP struct {
	net        network.NeuralNet
	numActions int
	batch      int

	logProbs    *G.Node
	logProbsVal G.Value

	actionIndices       *G.Node
	logProbInputActions *G.Node

	source rand.Source
}

// NewCategoricalMLP adds a CategoricalMLP to the graph of input, which
// must be a (batch, features) matrix. Learnable nodes are named with
// the given prefix. The seed seeds action sampling.
func NewCategoricalMLP(input *G.Node, numActions int, hiddenSizes []int,
	biases []bool, activations []*network.Activation, init G.InitWFn,
	prefix string, seed uint64) (*CategoricalMLP, error) {
	if numActions < 2 {
		return nil, fmt.Errorf("newCategoricalMLP: need at least 2 actions, "+
			"have(%d)", numActions)
	}

	net, err := network.NewMultiHeadMLPFromInput(input, numActions,
		hiddenSizes, biases, init, activations, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLP: could not create "+
			"policy network")
	}
	g := input.Graph()
	batch := net.BatchSize()

	logProbs, err := logSoftmax(net.Prediction())
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLP")
	}

	// One-hot encoding of the actions whose log probabilities are
	// computed, one row per input. Rows of zeros yield a log
	// probability of 0.
	actionIndices := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, numActions),
		G.WithName(prefix+"ActionIndices"),
		G.WithInit(G.Zeroes()),
	)
	selected, err := G.HadamardProd(actionIndices, logProbs)
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLP: could not select "+
			"log probabilities")
	}
	logProbInputActions, err := G.Sum(selected, 1)
	if err != nil {
		return nil, errors.Wrap(err, "newCategoricalMLP: could not reduce "+
			"log probabilities")
	}

	p := &CategoricalMLP{
		net:                 net,
		numActions:          numActions,
		batch:               batch,
		logProbs:            logProbs,
		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,
		source:              rand.NewSource(seed),
	}
	G.Read(p.logProbs, &p.logProbsVal)

	return p, nil
}

// logSoftmax returns the numerically stable log-softmax of a
// (batch, actions) matrix of logits along the action dimension
func logSoftmax(logits *G.Node) (*G.Node, error) {
	max, err := G.Max(logits, 1)
	if err != nil {
		return nil, errors.Wrap(err, "logSoftmax: max")
	}
	shifted, err := G.BroadcastSub(logits, max, nil, []byte{1})
	if err != nil {
		return nil, errors.Wrap(err, "logSoftmax: shift")
	}

	exp, err := G.Exp(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "logSoftmax: exp")
	}
	sum, err := G.Sum(exp, 1)
	if err != nil {
		return nil, errors.Wrap(err, "logSoftmax: sum")
	}
	logSumExp, err := G.Log(sum)
	if err != nil {
		return nil, errors.Wrap(err, "logSoftmax: log")
	}

	return G.BroadcastSub(shifted, logSumExp, nil, []byte{1})
}

// Network returns the network of the policy, which predicts logits
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.net
}

// NumActions returns the number of actions the policy chooses between
func (c *CategoricalMLP) NumActions() int {
	return c.numActions
}

// LogProbNode returns the node that calculates the log probability of
// the actions bound with SetActions, one for each input row
func (c *CategoricalMLP) LogProbNode() *G.Node {
	return c.logProbInputActions
}

// SetActions binds the actions whose log probabilities are computed by
// LogProbNode. If fewer actions than the batch size are given, the
// remaining rows are padding and have a log probability of 0.
func (c *CategoricalMLP) SetActions(actions []int) error {
	if len(actions) > c.batch {
		return fmt.Errorf("setActions: too many actions for batch size"+
			"\n\twant(<= %d)\n\thave(%d)", c.batch, len(actions))
	}

	oneHot := make([]float64, c.batch*c.numActions)
	for i, a := range actions {
		if a < 0 || a >= c.numActions {
			return fmt.Errorf("setActions: illegal action %d at index %d",
				a, i)
		}
		oneHot[i*c.numActions+a] = 1.0
	}

	indices := tensor.New(
		tensor.WithShape(c.batch, c.numActions),
		tensor.WithBacking(oneHot),
	)
	return G.Let(c.actionIndices, indices)
}

// LogProbabilities returns the log probabilities of each action for the
// input row i as computed by the last run of the graph
func (c *CategoricalMLP) LogProbabilities(i int) ([]float64, error) {
	if c.logProbsVal == nil {
		return nil, errors.New("logProbabilities: graph has not been run")
	}
	if i < 0 || i >= c.batch {
		return nil, fmt.Errorf("logProbabilities: row %d out of range", i)
	}

	data := c.logProbsVal.Data().([]float64)
	row := make([]float64, c.numActions)
	copy(row, data[i*c.numActions:(i+1)*c.numActions])
	return row, nil
}

// Probabilities returns the action probabilities for the first input
// row as computed by the last run of the graph
func (c *CategoricalMLP) Probabilities() ([]float64, error) {
	probs, err := c.LogProbabilities(0)
	if err != nil {
		return nil, err
	}
	for i := range probs {
		probs[i] = math.Exp(probs[i])
	}
	return probs, nil
}

// Sample samples an action from the policy's distribution over the
// first input row as computed by the last run of the graph. The action
// and its log probability are returned.
func (c *CategoricalMLP) Sample() (int, float64, error) {
	logProbs, err := c.LogProbabilities(0)
	if err != nil {
		return 0, 0, errors.Wrap(err, "sample")
	}

	probs := make([]float64, len(logProbs))
	for i := range logProbs {
		probs[i] = math.Exp(logProbs[i])
	}

	action := int(distuv.NewCategorical(probs, c.source).Rand())
	return action, logProbs[action], nil
}
