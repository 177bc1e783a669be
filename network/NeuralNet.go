// Package network implements feed forward neural networks built on
// Gorgonia computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass has been added to
// a computational graph. The graph is run by a VM owned by the caller,
// after which Output holds the network's predictions.
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	Outputs() int

	// SetInput binds the flattened, row-major input batch. It fails
	// with an error if the network does not own its input node.
	SetInput([]float64) error

	// Set copies the weights of another NeuralNet of identical
	// architecture into this one.
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
