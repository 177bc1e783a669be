// Package agent defines the interfaces of episodic, neural network
// based agents and the data they exchange with an experiment.
package agent

import (
	"github.com/samuelfneumann/goac/network"
	G "gorgonia.org/gorgonia"
)

// Agent is composed of a Policy, which selects actions, and a Learner,
// which uses whole episodes generated by the Policy to update the
// weights shared by both.
type Agent interface {
	Policy
	Learner
	Persister
	Close() error
}

// Policy selects actions in each state.
type Policy interface {
	// SelectAction samples an action for the given observation and
	// reports the quantities recorded alongside it in a Trajectory.
	SelectAction(obs []float64) (Decision, error)
}

// Learner learns from complete trajectories. Loss computes the loss
// and gradients of a trajectory without touching the weights; Update
// takes a single optimization step using the most recent Loss.
type Learner interface {
	Loss(t Trajectory, discount float64) (Loss, error)
	Update(Loss) error
}

// Persister saves and restores an agent's weights.
type Persister interface {
	// Save writes the agent's weights to a checkpoint file in dir and
	// returns the path of the file
	Save(dir, envName string, episode int, reward float64) (string, error)

	// Load restores weights previously written by Save
	Load(filename string) error
}

// LogProber is a policy implemented by a neural network that can
// compute the log probability of externally given actions in the states
// fed to its network. Because the actions are inputs, gradients are not
// computed through the action selection process.
type LogProber interface {
	Network() network.NeuralNet

	// SetActions binds the actions whose log probabilities should be
	// computed, one per row of the network's input batch.
	SetActions(actions []int) error

	// LogProbNode returns the node that calculates the log probability
	// of the bound actions
	LogProbNode() *G.Node
}
