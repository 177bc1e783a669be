package actorcritic

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goac/agent"
	"github.com/samuelfneumann/goac/network"
	"github.com/samuelfneumann/goac/solver"
)

const (
	testFeatures = 4
	testActions  = 2
	testMaxSteps = 10
)

func testConfig(t *testing.T, hidden int) Config {
	t.Helper()

	c := DefaultConfig()
	c.PolicyLayers = []int{hidden}
	c.ValueFnLayers = []int{hidden}
	c.PolicyActivations = []*network.Activation{network.TanH()}
	c.ValueFnActivations = []*network.Activation{network.TanH()}
	c.MaxSteps = testMaxSteps

	s, err := solver.NewVanilla(1e-2, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.Solver = s
	return c
}

func newTestAgent(t *testing.T, seed uint64) *ActorCritic {
	t.Helper()

	a, err := NewWithDims(testFeatures, testActions, testConfig(t, 16), seed)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// rollout builds a trajectory by selecting actions in the given
// observations
func rollout(t *testing.T, a *ActorCritic, obs [][]float64,
	rewards []float64) agent.Trajectory {
	t.Helper()

	var traj agent.Trajectory
	for i, o := range obs {
		d, err := a.SelectAction(o)
		if err != nil {
			t.Fatal(err)
		}
		traj.Append(o, d, rewards[i])
	}
	return traj
}

func testObservations(n int) [][]float64 {
	obs := make([][]float64, n)
	for i := range obs {
		x := float64(i) / float64(n)
		obs[i] = []float64{x, -x, 0.5 * x, 1 - x}
	}
	return obs
}

func probabilities(t *testing.T, a *ActorCritic, obs []float64) []float64 {
	t.Helper()

	probs, err := a.Probabilities(obs)
	if err != nil {
		t.Fatal(err)
	}
	return probs
}

func TestSelectAction(t *testing.T) {
	a := newTestAgent(t, 1)
	obs := []float64{0.1, 0.2, 0.3, 0.4}

	d, err := a.SelectAction(obs)
	if err != nil {
		t.Fatal(err)
	}
	if d.Action < 0 || d.Action >= testActions {
		t.Errorf("illegal action %d", d.Action)
	}

	probs := probabilities(t, a, obs)
	if want := math.Log(probs[d.Action]); math.Abs(want-d.LogLikelihood) >
		1e-9 {
		t.Errorf("log-likelihood: want(%v) have(%v)", want, d.LogLikelihood)
	}

	if _, err := a.SelectAction([]float64{1, 2}); err == nil {
		t.Error("expected error for an observation of the wrong length")
	}
}

func TestSelectActionReproducible(t *testing.T) {
	obs := testObservations(testMaxSteps)

	actions := func() []int {
		a := newTestAgent(t, 11)
		forceOutputLayer(t, a, nil)

		out := make([]int, 0, 5*len(obs))
		for i := 0; i < 5; i++ {
			for _, o := range obs {
				d, err := a.SelectAction(o)
				if err != nil {
					t.Fatal(err)
				}
				out = append(out, d.Action)
			}
		}
		return out
	}

	first, second := actions(), actions()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("actions differ at %d under the same seed", i)
		}
	}
}

// forceOutputLayer sets the output layer of the behaviour policy to
// zero weights and the given bias, or a zero bias if bias is nil
func forceOutputLayer(t *testing.T, a *ActorCritic, bias []float64) {
	t.Helper()

	if bias == nil {
		bias = make([]float64, testActions)
	}

	learnables := a.behaviourPolicy.Network().Learnables()
	w := learnables[len(learnables)-2]
	b := learnables[len(learnables)-1]

	zeros := tensor.New(tensor.WithShape(w.Shape()...),
		tensor.WithBacking(make([]float64, w.Shape().TotalSize())))
	if err := G.Let(w, zeros); err != nil {
		t.Fatal(err)
	}
	if err := G.Let(b, tensor.New(tensor.WithShape(b.Shape()...),
		tensor.WithBacking(bias))); err != nil {
		t.Fatal(err)
	}
}

func TestSelectActionOneHot(t *testing.T) {
	for k := 0; k < testActions; k++ {
		a := newTestAgent(t, 3)

		bias := make([]float64, testActions)
		bias[k] = 50
		forceOutputLayer(t, a, bias)

		for i, o := range testObservations(200) {
			d, err := a.SelectAction(o)
			if err != nil {
				t.Fatal(err)
			}
			if d.Action != k {
				t.Fatalf("step %d: want action %d have %d", i, k, d.Action)
			}
		}
	}
}

func TestLossMatchesRecordedQuantities(t *testing.T) {
	a := newTestAgent(t, 5)
	obs := testObservations(7)
	rewards := []float64{1, -2, 0.5, 3, 0, -1, 2}
	traj := rollout(t, a, obs, rewards)

	discount := 0.9
	l, err := a.Loss(traj, discount)
	if err != nil {
		t.Fatal(err)
	}

	returns := DiscountedReturns(rewards, discount)
	advantages, _ := Advantages(returns, traj.Values)
	wantPolicy, _ := PolicyLoss(traj.LogLikelihoods, advantages)
	wantValue, _ := ValueLoss(returns, traj.Values, 1.0)

	if math.Abs(l.Policy-wantPolicy) > 1e-8 {
		t.Errorf("policy loss: want(%v) have(%v)", wantPolicy, l.Policy)
	}
	if math.Abs(l.Value-wantValue) > 1e-8 {
		t.Errorf("value loss: want(%v) have(%v)", wantValue, l.Value)
	}
	if math.Abs(l.Total-(wantPolicy+wantValue)) > 1e-8 {
		t.Errorf("total loss: want(%v) have(%v)", wantPolicy+wantValue,
			l.Total)
	}

	wantMean := floats.Sum(traj.LogLikelihoods) / float64(traj.Len())
	if math.Abs(l.MeanLogLikelihood-wantMean) > 1e-12 {
		t.Errorf("mean log-likelihood: want(%v) have(%v)", wantMean,
			l.MeanLogLikelihood)
	}

	if err := a.Update(l); err != nil {
		t.Fatalf("could not update: %v", err)
	}
}

func TestLossSingleStep(t *testing.T) {
	a := newTestAgent(t, 2)
	traj := rollout(t, a, testObservations(1), []float64{-4})

	l, err := a.Loss(traj, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	adv := -4 - traj.Values[0]
	wantPolicy := -traj.LogLikelihoods[0] * adv
	wantValue := adv * adv
	if math.Abs(l.Total-(wantPolicy+wantValue)) > 1e-8 {
		t.Errorf("want(%v) have(%v)", wantPolicy+wantValue, l.Total)
	}
}

func TestValueLossZeroWithExactValues(t *testing.T) {
	a := newTestAgent(t, 4)
	obs := testObservations(3)
	traj := rollout(t, a, obs, []float64{0, 0, 0})

	// Choose rewards so that the returns equal the value estimates
	discount := 0.5
	v := traj.Values
	traj.Rewards = []float64{v[0] - discount*v[1], v[1] - discount*v[2], v[2]}

	l, err := a.Loss(traj, discount)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(l.Value) > 1e-12 {
		t.Errorf("value loss: want(0) have(%v)", l.Value)
	}
	if math.Abs(l.Policy) > 1e-9 {
		t.Errorf("policy loss with zero advantages: want(0) have(%v)",
			l.Policy)
	}
}

func TestUpdateFollowsAdvantage(t *testing.T) {
	obs := []float64{0.3, -0.2, 0.1, 0.7}

	for _, reward := range []float64{25, -25} {
		a := newTestAgent(t, 9)
		traj := rollout(t, a, [][]float64{obs}, []float64{reward})
		action := traj.Actions[0]
		before := probabilities(t, a, obs)[action]

		l, err := a.Loss(traj, 0.99)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Update(l); err != nil {
			t.Fatal(err)
		}
		after := probabilities(t, a, obs)[action]

		if reward > 0 && after <= before {
			t.Errorf("positive advantage: probability of action did not "+
				"increase: before(%v) after(%v)", before, after)
		}
		if reward < 0 && after >= before {
			t.Errorf("negative advantage: probability of action did not "+
				"decrease: before(%v) after(%v)", before, after)
		}
	}
}

func TestUpdateNumericInstability(t *testing.T) {
	a := newTestAgent(t, 6)
	obs := testObservations(3)
	before := probabilities(t, a, obs[0])

	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		traj := rollout(t, a, obs, []float64{1, bad, 1})
		l, err := a.Loss(traj, 0.9)
		if err != nil {
			t.Fatal(err)
		}

		err = a.Update(l)
		if !errors.Is(err, ErrNumericInstability) {
			t.Fatalf("reward %v: want ErrNumericInstability have %v", bad,
				err)
		}

		after := probabilities(t, a, obs[0])
		if !floats.Equal(before, after) {
			t.Errorf("reward %v: weights changed: before(%v) after(%v)", bad,
				before, after)
		}
	}

	// The agent can still learn from a well-behaved trajectory
	traj := rollout(t, a, obs, []float64{1, 1, 1})
	l, err := a.Loss(traj, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Update(l); err != nil {
		t.Errorf("update after instability: %v", err)
	}
}

func TestUpdateStaleLoss(t *testing.T) {
	a := newTestAgent(t, 7)
	obs := testObservations(2)

	first, err := a.Loss(rollout(t, a, obs, []float64{1, 2}), 0.9)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Loss(rollout(t, a, obs, []float64{0, 1}), 0.9)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Update(first); !errors.Is(err, ErrStaleLoss) {
		t.Errorf("want ErrStaleLoss have %v", err)
	}
	if err := a.Update(second); err != nil {
		t.Errorf("could not update with latest loss: %v", err)
	}
	if err := a.Update(second); !errors.Is(err, ErrStaleLoss) {
		t.Errorf("second update with the same loss: want ErrStaleLoss "+
			"have %v", err)
	}
}

func TestLossInvalidTrajectory(t *testing.T) {
	a := newTestAgent(t, 8)
	valid := rollout(t, a, testObservations(3), []float64{1, 1, 1})

	long := rollout(t, a, testObservations(testMaxSteps+1),
		make([]float64, testMaxSteps+1))

	misaligned := valid
	misaligned.Values = valid.Values[:2]

	badObs := rollout(t, a, testObservations(2), []float64{1, 1})
	badObs.Observations[1] = []float64{1, 2, 3}

	tests := []struct {
		name string
		traj agent.Trajectory
	}{
		{"Empty", agent.Trajectory{}},
		{"TooLong", long},
		{"Misaligned", misaligned},
		{"ObservationLength", badObs},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := a.Loss(test.traj, 0.9)
			if !errors.Is(err, agent.ErrInvalidTrajectory) {
				t.Errorf("want ErrInvalidTrajectory have %v", err)
			}
		})
	}

	for _, discount := range []float64{0, 1, 1.5, -0.1} {
		if _, err := a.Loss(valid, discount); err == nil {
			t.Errorf("expected error for discount %v", discount)
		}
	}
}

func TestLossFullLengthTrajectory(t *testing.T) {
	a := newTestAgent(t, 10)
	traj := rollout(t, a, testObservations(testMaxSteps),
		make([]float64, testMaxSteps))

	l, err := a.Loss(traj, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Update(l); err != nil {
		t.Fatal(err)
	}
}

func TestCheckpointFilename(t *testing.T) {
	tests := []struct {
		env     string
		episode int
		reward  float64
		want    string
	}{
		{"LunarLander-v2", 200, 150, "LunarLander-v2_ep200_r150.bin"},
		{"CartPole-v1", 100, 101.5, "CartPole-v1_ep100_r101.5.bin"},
		{"CartPole-v1", 0, -3.25, "CartPole-v1_ep0_r-3.25.bin"},
	}

	for _, test := range tests {
		if have := CheckpointFilename(test.env, test.episode,
			test.reward); have != test.want {
			t.Errorf("want(%v) have(%v)", test.want, have)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	obs := testObservations(5)

	trained := newTestAgent(t, 12)
	for i := 0; i < 3; i++ {
		traj := rollout(t, trained, obs, []float64{1, 0, 2, -1, 1})
		l, err := trained.Loss(traj, 0.99)
		if err != nil {
			t.Fatal(err)
		}
		if err := trained.Update(l); err != nil {
			t.Fatal(err)
		}
	}

	path, err := trained.Save(dir, "LunarLander-v2", 200, 150)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "LunarLander-v2_ep200_r150.bin"); path !=
		want {
		t.Errorf("path: want(%v) have(%v)", want, path)
	}

	fresh := newTestAgent(t, 13)
	if err := fresh.Load(path); err != nil {
		t.Fatalf("could not load checkpoint: %v", err)
	}

	for _, o := range obs {
		want := probabilities(t, trained, o)
		have := probabilities(t, fresh, o)
		if !floats.EqualApprox(want, have, 1e-12) {
			t.Errorf("probabilities: want(%v) have(%v)", want, have)
		}

		dWant, _ := trained.SelectAction(o)
		dHave, _ := fresh.SelectAction(o)
		if math.Abs(dWant.Value-dHave.Value) > 1e-12 {
			t.Errorf("value: want(%v) have(%v)", dWant.Value, dHave.Value)
		}
	}

	// Loaded weights are also used for learning
	traj := rollout(t, fresh, obs, []float64{1, 0, 2, -1, 1})
	wantLoss, err := trained.Loss(traj, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	haveLoss, err := fresh.Loss(traj, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(wantLoss.Total-haveLoss.Total) > 1e-9 {
		t.Errorf("loss after load: want(%v) have(%v)", wantLoss.Total,
			haveLoss.Total)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	source := newTestAgent(t, 14)
	path, err := source.Save(dir, "CartPole-v1", 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	corrupt := filepath.Join(dir, "corrupt.bin")
	if err := os.WriteFile(corrupt, []byte("not a checkpoint"),
		0o644); err != nil {
		t.Fatal(err)
	}

	wider, err := NewWithDims(testFeatures, testActions, testConfig(t, 32), 1)
	if err != nil {
		t.Fatal(err)
	}
	defer wider.Close()

	tests := []struct {
		name   string
		agent  *ActorCritic
		file   string
		target error
	}{
		{"NotFound", newTestAgent(t, 15), filepath.Join(dir, "missing.bin"),
			ErrCheckpointNotFound},
		{"Corrupt", newTestAgent(t, 16), corrupt, ErrCheckpointCorrupt},
		{"ShapeMismatch", wider, path, ErrShapeMismatch},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			before := probabilities(t, test.agent, testObservations(1)[0])

			err := test.agent.Load(test.file)
			if !errors.Is(err, test.target) {
				t.Fatalf("want %v have %v", test.target, err)
			}

			after := probabilities(t, test.agent, testObservations(1)[0])
			if !floats.Equal(before, after) {
				t.Error("weights changed by a failed load")
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"PolicyBiases", func(c *Config) { c.PolicyBiases = nil }},
		{"ValueActivations", func(c *Config) {
			c.ValueFnActivations = append(c.ValueFnActivations,
				network.ReLU())
		}},
		{"NoSolver", func(c *Config) { c.Solver = nil }},
		{"EmptySolver", func(c *Config) { c.Solver = &solver.Solver{} }},
		{"ZeroEpsilon", func(c *Config) {
			c.Solver = &solver.Solver{
				Type:   solver.Adam,
				Config: solver.AdamConfig{StepSize: 1e-3, Beta1: 0.9, Batch: 1},
			}
		}},
		{"NoInit", func(c *Config) { c.InitWFn = nil }},
		{"MaxSteps", func(c *Config) { c.MaxSteps = 0 }},
		{"ValueCoefficient", func(c *Config) { c.ValueCoefficient = -1 }},
		{"Device", func(c *Config) { c.Device = "tpu" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// gradients returns the gradient of each node
func gradients(t *testing.T, nodes G.Nodes) [][]float64 {
	t.Helper()

	out := make([][]float64, len(nodes))
	for i, n := range nodes {
		grad, err := n.Grad()
		if err != nil {
			t.Fatalf("could not get gradient of %v: %v", n.Name(), err)
		}
		out[i] = append([]float64(nil), grad.Data().([]float64)...)
	}
	return out
}

// weights returns a copy of the value of each node
func weights(nodes G.Nodes) [][]float64 {
	out := make([][]float64, len(nodes))
	for i, n := range nodes {
		out[i] = append([]float64(nil), n.Value().Data().([]float64)...)
	}
	return out
}

func norm(x [][]float64) float64 {
	var sum float64
	for _, row := range x {
		sum += floats.Dot(row, row)
	}
	return math.Sqrt(sum)
}

func TestPolicyLossDetachedFromValueFn(t *testing.T) {
	c := testConfig(t, 16)
	c.ValueCoefficient = 0
	a, err := NewWithDims(testFeatures, testActions, c, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	traj := rollout(t, a, testObservations(5), []float64{1, -2, 3, 0.5, 4})
	valueWeights := weights(a.trainValueFn.Learnables())

	l, err := a.Loss(traj, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	// With no value term, only the policy term reaches the gradients.
	// The advantages are inputs to the graph, so none of it may reach
	// the value function.
	if n := norm(gradients(t, a.trainValueFn.Learnables())); n != 0 {
		t.Errorf("value function gradient norm: want(0) have(%v)", n)
	}
	if n := norm(gradients(t, a.trainPolicy.Network().Learnables())); n == 0 {
		t.Error("policy gradient is zero")
	}

	if err := a.Update(l); err != nil {
		t.Fatal(err)
	}
	after := weights(a.trainValueFn.Learnables())
	for i := range valueWeights {
		if !floats.Equal(valueWeights[i], after[i]) {
			t.Errorf("value function weights %d changed by the policy loss",
				i)
		}
	}
	after = weights(a.behaviourValueFn.Learnables())
	for i := range valueWeights {
		if !floats.Equal(valueWeights[i], after[i]) {
			t.Errorf("behaviour value function weights %d changed", i)
		}
	}
}

func TestUpdateClearsGradients(t *testing.T) {
	a := newTestAgent(t, 12)
	traj := rollout(t, a, testObservations(4), []float64{1, 0, 2, -1})

	l, err := a.Loss(traj, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if norm(gradients(t, a.learnables)) == 0 {
		t.Fatal("loss computed no gradient")
	}

	if err := a.Update(l); err != nil {
		t.Fatal(err)
	}
	if n := norm(gradients(t, a.learnables)); n != 0 {
		t.Errorf("gradient norm after update: want(0) have(%v)", n)
	}
	if err := a.clearGradients(); err != nil {
		t.Errorf("clearing gradients: %v", err)
	}
}
