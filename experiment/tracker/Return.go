package tracker

// Return tracks and saves the accumulated reward of each episode in an
// experiment. The returns are saved as a gob-encoded []float64, which
// can be read with LoadData.
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker that saves its
// data at filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track caches the accumulated reward of the episode
func (r *Return) Track(rec Record) {
	r.episodeReturns = append(r.episodeReturns, rec.AccumulatedReward)
}

// Returns returns the episodic returns tracked so far
func (r *Return) Returns() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
