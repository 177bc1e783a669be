package tracker

import (
	"github.com/aunum/log"
)

// Logger is a Tracker that logs each Record as it is tracked. It keeps
// no data, so saving is a no-op.
type Logger struct {
	every int
}

// NewLogger returns a Logger that logs every n-th episode. Values of n
// below 1 log every episode.
func NewLogger(n int) *Logger {
	if n < 1 {
		n = 1
	}
	return &Logger{every: n}
}

// Track logs r if its episode is a multiple of the logging interval
func (l *Logger) Track(r Record) {
	if r.Episode%l.every != 0 {
		return
	}
	log.Infof("episode: %d accumulated_reward: %.3f loss: %.5f "+
		"log_likelihood: %.5f length: %d", r.Episode, r.AccumulatedReward,
		r.Loss, r.MeanLogLikelihood, r.Length)
}

// Save implements the Tracker interface
func (l *Logger) Save() error {
	return nil
}
