package actorcritic

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
)

// DiscountedReturns returns the discounted return from each step of an
// episode of rewards, computed as a backward cumulative sum:
//
//	G[T-1] = r[T-1]
//	G[t]   = r[t] + discount * G[t+1]
func DiscountedReturns(rewards []float64, discount float64) []float64 {
	returns := make([]float64, len(rewards))

	var next float64
	for t := len(rewards) - 1; t >= 0; t-- {
		next = rewards[t] + discount*next
		returns[t] = next
	}
	return returns
}

// Advantages returns the advantage returns[t] - values[t] of each step.
// The advantages are plain values so that no gradient flows through
// them into the value function.
func Advantages(returns, values []float64) ([]float64, error) {
	if len(returns) != len(values) {
		return nil, fmt.Errorf("advantages: have %d returns but %d values",
			len(returns), len(values))
	}

	advantages := make([]float64, len(returns))
	for t := range returns {
		advantages[t] = returns[t] - values[t]
	}
	return advantages, nil
}

// Standardize returns x shifted and scaled to have zero mean and unit
// standard deviation. Inputs with fewer than two elements or zero
// variance are only centred.
func Standardize(x []float64) []float64 {
	mean, std := stat.MeanStdDev(x, nil)

	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] - mean
		if len(x) > 1 && std > 0 {
			out[i] /= std
		}
	}
	return out
}

// PolicyLoss returns -Σ logProbs[t] * advantages[t]
func PolicyLoss(logProbs, advantages []float64) (float64, error) {
	if len(logProbs) != len(advantages) {
		return 0, fmt.Errorf("policyLoss: have %d log probabilities but %d "+
			"advantages", len(logProbs), len(advantages))
	}

	var loss float64
	for t := range logProbs {
		loss -= logProbs[t] * advantages[t]
	}
	return loss, nil
}

// ValueLoss returns coefficient * Σ (returns[t] - values[t])²
func ValueLoss(returns, values []float64, coefficient float64) (float64,
	error) {
	if len(returns) != len(values) {
		return 0, fmt.Errorf("valueLoss: have %d returns but %d values",
			len(returns), len(values))
	}

	var loss float64
	for t := range returns {
		diff := returns[t] - values[t]
		loss += diff * diff
	}
	return coefficient * loss, nil
}

// policyLossNode adds the policy loss -Σ logProbs ⊙ advantages to the
// graph. The advantages node must be an input node so that it is
// treated as a constant when differentiating.
func policyLossNode(logProbs, advantages *G.Node) (*G.Node, error) {
	weighted, err := G.HadamardProd(logProbs, advantages)
	if err != nil {
		return nil, errors.Wrap(err, "policyLossNode")
	}
	sum, err := G.Sum(weighted)
	if err != nil {
		return nil, errors.Wrap(err, "policyLossNode")
	}
	return G.Neg(sum)
}

// valueLossNode adds the value loss coefficient * Σ (mask ⊙ (returns -
// values))² to the graph. The mask removes the padding rows of a batch.
func valueLossNode(values, returns, mask *G.Node,
	coefficient float64) (*G.Node, error) {
	diff, err := G.Sub(returns, values)
	if err != nil {
		return nil, errors.Wrap(err, "valueLossNode")
	}
	diff, err = G.HadamardProd(diff, mask)
	if err != nil {
		return nil, errors.Wrap(err, "valueLossNode")
	}
	squared, err := G.Square(diff)
	if err != nil {
		return nil, errors.Wrap(err, "valueLossNode")
	}
	sum, err := G.Sum(squared)
	if err != nil {
		return nil, errors.Wrap(err, "valueLossNode")
	}

	if coefficient == 1.0 {
		return sum, nil
	}
	return G.Mul(sum, G.NewConstant(coefficient))
}
