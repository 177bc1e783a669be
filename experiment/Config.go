package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/goac/agent/nonlinear/discrete/actorcritic"
	"github.com/samuelfneumann/goac/environment/envconfig"
	"github.com/samuelfneumann/goac/experiment/checkpointer"
)

// Config represents a configuration of an episodic experiment
type Config struct {
	EnvName  string
	Episodes int
	Gamma    float64

	// MaxSteps caps the length of each episode. It must not exceed the
	// longest trajectory the agent can learn from.
	MaxSteps int
	Seed     uint64

	// SaveDir is the directory checkpoints are saved to
	SaveDir             string
	CheckpointEvery     int
	CheckpointMinReward float64

	Agent actorcritic.Config
}

// DefaultConfig returns the default experiment: 30000 episodes of
// CartPole-v1 with a discount of 0.99 and episodes of up to 500 steps,
// checkpointing every 100 episodes with a reward above 100.
func DefaultConfig() Config {
	threshold := checkpointer.DefaultPeriodicThreshold()
	agentConfig := actorcritic.DefaultConfig()

	return Config{
		EnvName:             envconfig.CartPole,
		Episodes:            30000,
		Gamma:               0.99,
		MaxSteps:            agentConfig.MaxSteps,
		Seed:                0,
		SaveDir:             "checkpoints",
		CheckpointEvery:     threshold.Every,
		CheckpointMinReward: threshold.MinReward,
		Agent:               agentConfig,
	}
}

// LoadConfig reads a JSON Config from filename. Fields missing from
// the file keep their values from DefaultConfig().
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "loadConfig: could not read "+
			"config")
	}

	c := DefaultConfig()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "loadConfig: could not decode %v",
			filename)
	}
	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "loadConfig")
	}
	return c, nil
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.EnvName == "" {
		return fmt.Errorf("validate: no environment name")
	}
	if c.Episodes < 0 {
		return fmt.Errorf("validate: episodes must be non-negative, "+
			"have(%v)", c.Episodes)
	}
	if c.Gamma <= 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: gamma must be in (0, 1), have(%v)",
			c.Gamma)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("validate: max steps must be positive, have(%v)",
			c.MaxSteps)
	}
	if c.MaxSteps > c.Agent.MaxSteps {
		return fmt.Errorf("validate: episodes of %v steps are longer than "+
			"the agent can learn from (%v)", c.MaxSteps, c.Agent.MaxSteps)
	}
	if c.CheckpointEvery < 1 {
		return fmt.Errorf("validate: checkpoint period must be positive, "+
			"have(%v)", c.CheckpointEvery)
	}
	return errors.Wrap(c.Agent.Validate(), "validate: agent")
}

// Predicate returns the checkpoint predicate described by the Config
func (c Config) Predicate() checkpointer.Predicate {
	return checkpointer.PeriodicThreshold{
		Every:     c.CheckpointEvery,
		MinReward: c.CheckpointMinReward,
	}
}
