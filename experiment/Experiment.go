// Package experiment implements functionality for running an episodic
// training experiment
package experiment

import (
	"github.com/samuelfneumann/goac/agent"
	"github.com/samuelfneumann/goac/experiment/tracker"
	ts "github.com/samuelfneumann/goac/timestep"
)

// Experiment outlines structs that can run experiments. RunEpisode()
// runs a single episode, learns from it and reports its outcome. Run()
// runs a number of episodes and then saves all tracked data to disk.
//
// Experiments send the Record of each episode to a tracker.Tracker,
// which determines which data is cached and saved, and offer the agent
// to a checkpointer.Checkpointer at the end of each episode.
type Experiment interface {
	Run(episodes int) error
	RunEpisode() (Result, error)
}

// Result is the outcome of a single training episode
type Result struct {
	Record tracker.Record
	Loss   agent.Loss

	// End is the reason the episode ended
	End ts.EndType

	// Checkpoint is the path of the checkpoint saved at the end of the
	// episode, or empty if none was saved
	Checkpoint string
}
