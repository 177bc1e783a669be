package agent

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidTrajectory is returned when a Trajectory's slices are not
// index aligned or the Trajectory is empty
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// Decision is the output of a Policy for a single observation: the
// sampled action together with its log-likelihood under the policy and
// the value estimate of the observation.
type Decision struct {
	Action        int
	LogLikelihood float64
	Value         float64
}

// Trajectory holds one episode of experience. All slices are index
// aligned: Rewards[t] is the reward received after taking Actions[t]
// in Observations[t].
type Trajectory struct {
	Observations   [][]float64
	Actions        []int
	Rewards        []float64
	LogLikelihoods []float64
	Values         []float64
}

// Append records one step of experience
func (t *Trajectory) Append(obs []float64, d Decision, reward float64) {
	t.Observations = append(t.Observations, obs)
	t.Actions = append(t.Actions, d.Action)
	t.Rewards = append(t.Rewards, reward)
	t.LogLikelihoods = append(t.LogLikelihoods, d.LogLikelihood)
	t.Values = append(t.Values, d.Value)
}

// Len returns the number of steps in the Trajectory
func (t Trajectory) Len() int {
	return len(t.Rewards)
}

// Validate returns an error wrapping ErrInvalidTrajectory if the
// Trajectory is empty or its slices differ in length
func (t Trajectory) Validate() error {
	n := len(t.Rewards)
	if n == 0 {
		return errors.Wrap(ErrInvalidTrajectory, "validate: empty")
	}

	lengths := map[string]int{
		"observations":    len(t.Observations),
		"actions":         len(t.Actions),
		"log-likelihoods": len(t.LogLikelihoods),
		"values":          len(t.Values),
	}
	for name, l := range lengths {
		if l != n {
			return errors.Wrap(ErrInvalidTrajectory, fmt.Sprintf(
				"validate: have %d %s but %d rewards", l, name, n))
		}
	}
	return nil
}

// Return returns the undiscounted sum of rewards in the Trajectory
func (t Trajectory) Return() float64 {
	var sum float64
	for _, r := range t.Rewards {
		sum += r
	}
	return sum
}

// Loss is the scalar loss of a Trajectory, split into its terms. The ID
// identifies the Learner's Loss call that produced it.
type Loss struct {
	Total  float64
	Policy float64
	Value  float64

	// MeanLogLikelihood is the mean log-likelihood of the actions taken
	// in the trajectory
	MeanLogLikelihood float64

	ID uint64
}

// String implements the fmt.Stringer interface
func (l Loss) String() string {
	return fmt.Sprintf("{Total: %v Policy: %v Value: %v}", l.Total, l.Policy,
		l.Value)
}
