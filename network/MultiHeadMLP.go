package network

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	ownsInput  bool
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP, which
// reads its input from a new (batch, features) input node.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added such that given any
// input, the output will be outputs. For index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the hidden
// layer will contain a bias unit; and activations[i] is the activation
// function for hidden layer i. The parameter init determines the
// weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	input := NewInput(g, batch, features, "input")

	net, err := NewMultiHeadMLPFromInput(input, outputs, hiddenSizes, biases,
		init, activations, "")
	if err != nil {
		return nil, err
	}
	net.(*multiHeadMLP).ownsInput = true
	return net, nil
}

// NewMultiHeadMLPFromInput returns a new multi-head MLP whose forward
// pass is computed on an existing (batch, features) input node. This
// allows multiple networks to share an input in the same graph. All
// learnable nodes are named with the given prefix.
//
// The returned network does not own its input node: callers bind
// input values themselves using G.Let.
func NewMultiHeadMLPFromInput(input *G.Node, outputs int, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation,
	prefix string) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMultiHeadMLPFromInput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newMultiHeadMLPFromInput: invalid number of biases" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if !input.IsMatrix() {
		return nil, errors.New("newMultiHeadMLPFromInput: input must be " +
			"a matrix")
	}
	if outputs < 1 {
		return nil, fmt.Errorf("newMultiHeadMLPFromInput: outputs must be "+
			"positive, have(%d)", outputs)
	}

	batch := input.Shape()[0]
	features := input.Shape()[1]

	// Final linear output layer
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	hasBias := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	net := &multiHeadMLP{
		g:          input.Graph(),
		layers:     addFCLayers(input.Graph(), sizes, hasBias, acts, init, features, prefix),
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}

	if _, err := net.fwd(input); err != nil {
		return nil, errors.Wrap(err, "newMultiHeadMLPFromInput: could "+
			"not compute forward pass")
	}
	return net, nil
}

// NewInput adds a zero-initialized (batch, features) input node to g
func NewInput(g *G.ExprGraph, batch, features int, name string) *G.Node {
	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
}

// Graph returns the computational graph of the multiHeadMLP.
func (m *multiHeadMLP) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the batch size of inputs to the network
func (m *multiHeadMLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input vector
func (m *multiHeadMLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs from the network
func (m *multiHeadMLP) Outputs() int {
	return m.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (m *multiHeadMLP) SetInput(input []float64) error {
	if !m.ownsInput {
		return errors.New("setInput: network does not own its input node")
	}
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another NeuralNet with the same architecture. Weights are
// copied, so the two networks do not share memory.
func (m *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: invalid number of learnables\n\twant(%d)"+
			"\n\thave(%d)", len(nodes), len(sourceNodes))
	}

	for i, dest := range nodes {
		if !dest.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: shape mismatch at learnable %v: "+
				"want(%v) have(%v)", dest.Name(), dest.Shape(),
				sourceNodes[i].Shape())
		}

		weights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v has no dense value",
				sourceNodes[i].Name())
		}
		if err := G.Let(dest, weights.Clone().(*tensor.Dense)); err != nil {
			return errors.Wrapf(err, "set: could not set %v", dest.Name())
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (m *multiHeadMLP) Learnables() G.Nodes {
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.weights)
			if l.bias != nil {
				learnables = append(learnables, l.bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *multiHeadMLP) Model() []G.ValueGrad {
	if m.model == nil {
		model := make([]G.ValueGrad, 0, len(m.Learnables()))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (m *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	if features := input.Shape()[1]; features != m.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", m.numInputs, features)
	}

	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, errors.Wrapf(err, "fwd: could not compute forward "+
				"pass of layer %v", i)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP. The output is only
// valid after a VM has run the graph.
func (m *multiHeadMLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the multiHeadMLP
func (m *multiHeadMLP) Prediction() *G.Node {
	return m.prediction
}
