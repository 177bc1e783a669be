// Package checkpointer decides when an agent's weights should be saved
// during an experiment and saves them
package checkpointer

import (
	"github.com/pkg/errors"
)

// Saver is an object whose state can be saved to a checkpoint file
type Saver interface {
	// Save writes a checkpoint into dir and returns its path
	Save(dir, envName string, episode int, reward float64) (string, error)
}

// Predicate decides whether a checkpoint should be saved at the end
// of an episode
type Predicate interface {
	ShouldSave(episode int, reward float64) bool
}

// PredicateFunc adapts an ordinary function to a Predicate
type PredicateFunc func(episode int, reward float64) bool

// ShouldSave calls f(episode, reward)
func (f PredicateFunc) ShouldSave(episode int, reward float64) bool {
	return f(episode, reward)
}

// Never is a Predicate that never saves
var Never Predicate = PredicateFunc(func(int, float64) bool { return false })

// Checkpointer saves a Saver to a directory whenever its Predicate
// holds at the end of an episode
type Checkpointer struct {
	predicate Predicate
	object    Saver
	dir       string
	envName   string
}

// New returns a Checkpointer that saves object into dir, naming files
// after envName
func New(p Predicate, object Saver, dir, envName string) *Checkpointer {
	return &Checkpointer{
		predicate: p,
		object:    object,
		dir:       dir,
		envName:   envName,
	}
}

// Checkpoint saves the tracked object if the Predicate holds for the
// episode. It returns the path of the saved file, or an empty string if
// nothing was saved.
func (c *Checkpointer) Checkpoint(episode int, reward float64) (string,
	error) {
	if !c.predicate.ShouldSave(episode, reward) {
		return "", nil
	}

	path, err := c.object.Save(c.dir, c.envName, episode, reward)
	if err != nil {
		return "", errors.Wrapf(err, "checkpoint: could not save episode %d",
			episode)
	}
	return path, nil
}
