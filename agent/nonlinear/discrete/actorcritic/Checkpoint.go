package actorcritic

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// namedTensor is the serialized form of a single learnable node
type namedTensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// checkpoint is the serialized form of an ActorCritic's weights
type checkpoint struct {
	Policy  []namedTensor
	ValueFn []namedTensor
}

// CheckpointFilename returns the name of the checkpoint file for the
// given environment, episode and accumulated reward, for example
// LunarLander-v2_ep200_r150.bin.
func CheckpointFilename(envName string, episode int, reward float64) string {
	name := strings.ReplaceAll(envName, string(os.PathSeparator), "_")
	return fmt.Sprintf("%s_ep%d_r%s.bin", name, episode,
		strconv.FormatFloat(reward, 'f', -1, 64))
}

// Save writes the weights of both networks to a new checkpoint file in
// dir and returns the path of the file
func (a *ActorCritic) Save(dir, envName string, episode int,
	reward float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "save: could not create checkpoint "+
			"directory")
	}
	path := filepath.Join(dir, CheckpointFilename(envName, episode, reward))

	c := checkpoint{
		Policy:  serialize(a.trainPolicy.Network().Learnables()),
		ValueFn: serialize(a.trainValueFn.Learnables()),
	}

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "save: could not create checkpoint file")
	}
	if err := gob.NewEncoder(file).Encode(c); err != nil {
		file.Close()
		return "", errors.Wrap(err, "save: could not encode checkpoint")
	}
	if err := file.Close(); err != nil {
		return "", errors.Wrap(err, "save: could not close checkpoint file")
	}

	return path, nil
}

// Load restores the weights of both networks from a checkpoint written
// by Save. The weights are only changed if the whole checkpoint fits
// the agent's architecture.
func (a *ActorCritic) Load(filename string) error {
	file, err := os.Open(filename)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrCheckpointNotFound, "load: %v", filename)
	} else if err != nil {
		return errors.Wrap(err, "load: could not open checkpoint")
	}
	defer file.Close()

	var c checkpoint
	if err := gob.NewDecoder(file).Decode(&c); err != nil {
		return errors.Wrapf(ErrCheckpointCorrupt, "load: %v: %v", filename,
			err)
	}

	policyWeights, err := deserialize(a.trainPolicy.Network().Learnables(),
		c.Policy)
	if err != nil {
		return errors.Wrap(err, "load: policy")
	}
	valueWeights, err := deserialize(a.trainValueFn.Learnables(), c.ValueFn)
	if err != nil {
		return errors.Wrap(err, "load: value function")
	}

	if a.pending {
		a.trainVM.Reset()
		a.pending = false
		if err := a.clearGradients(); err != nil {
			return errors.Wrap(err, "load")
		}
	}

	nodes := append(append(G.Nodes{}, a.trainPolicy.Network().Learnables()...),
		a.trainValueFn.Learnables()...)
	weights := append(policyWeights, valueWeights...)
	for i := range nodes {
		if err := G.Let(nodes[i], weights[i]); err != nil {
			return errors.Wrapf(err, "load: could not set %v", nodes[i].Name())
		}
	}

	return errors.Wrap(a.syncBehaviour(), "load")
}

// serialize copies the values of learnable nodes
func serialize(nodes G.Nodes) []namedTensor {
	out := make([]namedTensor, len(nodes))
	for i, n := range nodes {
		data := n.Value().Data().([]float64)
		out[i] = namedTensor{
			Name:  n.Name(),
			Shape: append([]int(nil), n.Shape()...),
			Data:  append([]float64(nil), data...),
		}
	}
	return out
}

// deserialize checks that the stored tensors fit the given nodes and
// returns them as dense tensors in the order of the nodes
func deserialize(nodes G.Nodes, stored []namedTensor) ([]*tensor.Dense,
	error) {
	if len(nodes) != len(stored) {
		return nil, errors.Wrapf(ErrShapeMismatch, "have %d tensors, want %d",
			len(stored), len(nodes))
	}

	out := make([]*tensor.Dense, len(nodes))
	for i, n := range nodes {
		s := stored[i]
		if !n.Shape().Eq(tensor.Shape(s.Shape)) {
			return nil, errors.Wrapf(ErrShapeMismatch, "%v: have shape %v, "+
				"want %v", n.Name(), s.Shape, n.Shape())
		}
		if len(s.Data) != n.Shape().TotalSize() {
			return nil, errors.Wrapf(ErrCheckpointCorrupt, "%v: have %d "+
				"values for shape %v", n.Name(), len(s.Data), n.Shape())
		}

		out[i] = tensor.New(
			tensor.WithShape(s.Shape...),
			tensor.WithBacking(append([]float64(nil), s.Data...)),
		)
	}
	return out, nil
}
