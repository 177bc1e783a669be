package experiment

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/goac/agent"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/experiment/checkpointer"
	"github.com/samuelfneumann/goac/experiment/tracker"
	ts "github.com/samuelfneumann/goac/timestep"
	"gonum.org/v1/gonum/mat"
)

// CollectEpisode runs a single episode of Policy p in Environment e and
// returns the trajectory generated along with the reason the episode
// ended. Episodes which do not end within maxSteps steps are cut off
// and reported as a Timeout.
//
// Errors of the environment are returned unchanged so that they can be
// checked with environment.IsEnvironmentError().
func CollectEpisode(e env.Environment, p agent.Policy,
	maxSteps int) (agent.Trajectory, ts.EndType, error) {
	var traj agent.Trajectory
	if maxSteps < 1 {
		return traj, ts.Unended, fmt.Errorf("collectEpisode: max steps "+
			"must be positive, have(%v)", maxSteps)
	}

	step, err := e.Reset()
	if err != nil {
		return traj, ts.Unended, err
	}

	action := mat.NewVecDense(1, nil)
	for {
		obs := mat.Col(nil, 0, step.Observation)
		decision, err := p.SelectAction(obs)
		if err != nil {
			return traj, ts.Unended, errors.Wrapf(err, "collectEpisode: "+
				"could not select action at step %d", traj.Len())
		}

		action.SetVec(0, float64(decision.Action))
		next, done, err := e.Step(action)
		if err != nil {
			return traj, ts.Unended, err
		}
		traj.Append(obs, decision, next.Reward)

		if done {
			return traj, next.EndType(), nil
		}
		if traj.Len() >= maxSteps {
			return traj, ts.Timeout, nil
		}
		step = next
	}
}

// Episodic is an Experiment that trains an agent online, taking a
// single update at the end of each episode
type Episodic struct {
	env.Environment
	agent.Agent

	discount float64
	maxSteps int
	episode  int

	tracker      tracker.Tracker
	checkpointer *checkpointer.Checkpointer
}

// NewEpisodic creates and returns a new episodic experiment on a given
// environment with a given agent. Each episode is cut off after
// maxSteps steps, and its trajectory is discounted by discount. If t
// is nil, no data is tracked, and if c is nil, no checkpoints are
// saved.
func NewEpisodic(e env.Environment, a agent.Agent, discount float64,
	maxSteps int, t tracker.Tracker,
	c *checkpointer.Checkpointer) *Episodic {
	if t == nil {
		t = tracker.Nop{}
	}
	return &Episodic{
		Environment:  e,
		Agent:        a,
		discount:     discount,
		maxSteps:     maxSteps,
		tracker:      t,
		checkpointer: c,
	}
}

// Episode returns the number of episodes run so far
func (o *Episodic) Episode() int {
	return o.episode
}

// RunEpisode runs a single episode, updates the agent from the
// episode's trajectory, tracks the outcome and saves a checkpoint if
// needed
func (o *Episodic) RunEpisode() (Result, error) {
	traj, end, err := CollectEpisode(o.Environment, o.Agent, o.maxSteps)
	if err != nil {
		return Result{}, errors.Wrapf(err, "runEpisode: episode %d",
			o.episode)
	}

	loss, err := o.Agent.Loss(traj, o.discount)
	if err != nil {
		return Result{}, errors.Wrapf(err, "runEpisode: episode %d",
			o.episode)
	}
	if err := o.Agent.Update(loss); err != nil {
		return Result{}, errors.Wrapf(err, "runEpisode: episode %d",
			o.episode)
	}

	record := tracker.Record{
		Episode:           o.episode,
		AccumulatedReward: traj.Return(),
		Loss:              loss.Total,
		MeanLogLikelihood: loss.MeanLogLikelihood,
		Length:            traj.Len(),
	}
	o.tracker.Track(record)

	result := Result{Record: record, Loss: loss, End: end}
	if o.checkpointer != nil {
		result.Checkpoint, err = o.checkpointer.Checkpoint(o.episode,
			record.AccumulatedReward)
		if err != nil {
			return result, errors.Wrap(err, "runEpisode")
		}
	}

	o.episode++
	return result, nil
}

// Run runs the given number of episodes and then saves all tracked
// data
func (o *Episodic) Run(episodes int) error {
	for i := 0; i < episodes; i++ {
		if _, err := o.RunEpisode(); err != nil {
			return errors.Wrap(err, "run")
		}
	}
	return errors.Wrap(o.tracker.Save(), "run")
}
