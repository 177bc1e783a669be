package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/goac/agent"
	"github.com/samuelfneumann/goac/agent/nonlinear/discrete/actorcritic"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/environment/envconfig"
	"github.com/samuelfneumann/goac/experiment/checkpointer"
	"github.com/samuelfneumann/goac/experiment/tracker"
	"github.com/samuelfneumann/goac/network"
	ts "github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
)

// constant always selects the same action
type constant struct {
	action int
	calls  int
}

func (c *constant) SelectAction(obs []float64) (agent.Decision, error) {
	c.calls++
	return agent.Decision{Action: c.action, LogLikelihood: -0.7,
		Value: 1}, nil
}

// broken is an environment whose Step always fails
type broken struct {
	env.Environment
}

func (b broken) Step(*mat.VecDense) (ts.TimeStep, bool, error) {
	return ts.TimeStep{}, true, env.NewError("step", errors.New("crashed"))
}

func newCartPole(t *testing.T) env.Environment {
	t.Helper()
	e, err := envconfig.Make(envconfig.CartPole, 0.99, 3)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCollectEpisodeStepCap(t *testing.T) {
	p := &constant{action: 0}
	traj, end, err := CollectEpisode(newCartPole(t), p, 1)
	if err != nil {
		t.Fatal(err)
	}

	if end != ts.Timeout {
		t.Errorf("end: want(Timeout) have(%v)", end)
	}
	if traj.Len() != 1 || p.calls != 1 {
		t.Errorf("length: want(1) have(%d) after %d actions", traj.Len(),
			p.calls)
	}
	if err := traj.Validate(); err != nil {
		t.Error(err)
	}
}

func TestCollectEpisodeTermination(t *testing.T) {
	traj, end, err := CollectEpisode(newCartPole(t), &constant{action: 1},
		500)
	if err != nil {
		t.Fatal(err)
	}

	if end != ts.TerminalStateReached {
		t.Errorf("end: want(TerminalStateReached) have(%v)", end)
	}
	if traj.Len() >= 500 {
		t.Errorf("pushing right should fail before the cap, lasted %d "+
			"steps", traj.Len())
	}
	if traj.Return() != float64(traj.Len()) {
		t.Errorf("return: want(%v) have(%v)", traj.Len(), traj.Return())
	}
	if err := traj.Validate(); err != nil {
		t.Error(err)
	}
}

func TestCollectEpisodeErrors(t *testing.T) {
	e := broken{newCartPole(t)}
	if _, _, err := CollectEpisode(e, &constant{}, 10); !env.
		IsEnvironmentError(err) {
		t.Errorf("want environment error have %v", err)
	}

	if _, _, err := CollectEpisode(newCartPole(t), &constant{}, 0); err ==
		nil {
		t.Error("expected error for non-positive step cap")
	}
}

func testAgentConfig() actorcritic.Config {
	c := actorcritic.DefaultConfig()
	c.PolicyLayers = []int{8}
	c.ValueFnLayers = []int{8}
	c.PolicyActivations = []*network.Activation{network.TanH()}
	c.ValueFnActivations = []*network.Activation{network.TanH()}
	c.MaxSteps = 20
	return c
}

func TestEpisodicRun(t *testing.T) {
	dir := t.TempDir()
	e := newCartPole(t)
	a, err := testAgentConfig().CreateAgent(e, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	returns := tracker.NewReturn(filepath.Join(dir, "returns.bin"))
	atEpisodeOne := checkpointer.PredicateFunc(func(episode int, _ float64) bool {
		return episode == 1
	})
	check := checkpointer.New(atEpisodeOne, a, dir, envconfig.CartPole)

	exp := NewEpisodic(e, a, 0.99, 20, returns, check)
	result, err := exp.RunEpisode()
	if err != nil {
		t.Fatal(err)
	}
	if result.Record.Episode != 0 || result.Checkpoint != "" {
		t.Errorf("first episode: have %+v", result)
	}
	if result.Record.Length > 20 || result.Record.Length < 1 {
		t.Errorf("length %d outside (0, 20]", result.Record.Length)
	}
	if result.Record.Loss != result.Loss.Total {
		t.Errorf("tracked loss %v differs from loss %v", result.Record.Loss,
			result.Loss.Total)
	}

	if err := exp.Run(2); err != nil {
		t.Fatal(err)
	}
	if exp.Episode() != 3 {
		t.Errorf("episodes: want(3) have(%d)", exp.Episode())
	}

	data, err := tracker.LoadData(filepath.Join(dir, "returns.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 {
		t.Errorf("tracked returns: want(3) have(%d)", len(data))
	}

	saved, err := filepath.Glob(filepath.Join(dir, envconfig.CartPole+
		"_ep1_*.bin"))
	if err != nil || len(saved) != 1 {
		t.Fatalf("checkpoint of episode 1: have %v, %v", saved, err)
	}
	if _, err := os.Stat(saved[0]); err != nil {
		t.Error(err)
	}
	if err := a.Load(saved[0]); err != nil {
		t.Errorf("could not load checkpoint: %v", err)
	}
}

func TestConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}

	p := c.Predicate()
	if !p.ShouldSave(200, 150) || p.ShouldSave(199, 150) ||
		p.ShouldSave(200, 50) {
		t.Error("default predicate does not save every 100 episodes " +
			"above a reward of 100")
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"Gamma", func(c *Config) { c.Gamma = 1 }},
		{"MaxSteps", func(c *Config) { c.MaxSteps = 0 }},
		{"LongerThanAgent", func(c *Config) { c.MaxSteps = c.Agent.MaxSteps + 1 }},
		{"EnvName", func(c *Config) { c.EnvName = "" }},
		{"Agent", func(c *Config) { c.Agent.Solver = nil }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected invalid config")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{
		"EnvName": "CartPole-v1",
		"Episodes": 10,
		"Gamma": 0.9,
		"Seed": 42,
		"Agent": {"Device": "cpu", "ValueCoefficient": 0.5}
	}`)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Episodes != 10 || c.Gamma != 0.9 || c.Seed != 42 {
		t.Errorf("loaded config: have %+v", c)
	}
	if c.Agent.ValueCoefficient != 0.5 || c.MaxSteps != 500 {
		t.Errorf("defaults not kept: have %+v", c)
	}

	if err := os.WriteFile(filename, []byte(`{"Gamma": 2}`), 0o644); err !=
		nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(filename); err == nil {
		t.Error("expected error for invalid gamma")
	}
}
