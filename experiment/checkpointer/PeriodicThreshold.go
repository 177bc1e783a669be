package checkpointer

// PeriodicThreshold saves every Every episodes, provided the
// accumulated reward of the episode exceeds MinReward
type PeriodicThreshold struct {
	Every     int
	MinReward float64
}

// DefaultPeriodicThreshold saves every 100 episodes whose accumulated
// reward exceeds 100
func DefaultPeriodicThreshold() PeriodicThreshold {
	return PeriodicThreshold{Every: 100, MinReward: 100}
}

// ShouldSave implements the Predicate interface
func (p PeriodicThreshold) ShouldSave(episode int, reward float64) bool {
	if p.Every <= 0 {
		return false
	}
	return episode%p.Every == 0 && reward > p.MinReward
}
