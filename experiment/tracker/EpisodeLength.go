package tracker

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment as a gob-encoded []int.
type EpisodeLength struct {
	episodeLengths []int
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track caches the length of the episode
func (e *EpisodeLength) Track(r Record) {
	e.episodeLengths = append(e.episodeLengths, r.Length)
}

// Save saves the data tracked by the EpisodeLength Tracker to disk.
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
