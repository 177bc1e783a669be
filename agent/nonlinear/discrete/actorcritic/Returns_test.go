package actorcritic

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestDiscountedReturns(t *testing.T) {
	tests := []struct {
		name     string
		rewards  []float64
		discount float64
		want     []float64
	}{
		{"Constant", []float64{1, 1, 1}, 0.5, []float64{1.75, 1.5, 1.0}},
		{"SingleStep", []float64{3.5}, 0.99, []float64{3.5}},
		{"Negative", []float64{-1, 0, 2}, 0.5, []float64{-0.5, 1, 2}},
		{"Empty", []float64{}, 0.9, []float64{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have := DiscountedReturns(test.rewards, test.discount)
			if !floats.EqualApprox(test.want, have, 1e-12) {
				t.Errorf("want(%v) have(%v)", test.want, have)
			}
		})
	}
}

func TestAdvantages(t *testing.T) {
	have, err := Advantages([]float64{1.75, 1.5, 1.0}, []float64{1, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.75, -0.5, 1.0}
	if !floats.EqualApprox(want, have, 1e-12) {
		t.Errorf("want(%v) have(%v)", want, have)
	}

	if _, err := Advantages([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected error for misaligned inputs")
	}
}

func TestStandardize(t *testing.T) {
	have := Standardize([]float64{1, 2, 3})
	if mean := floats.Sum(have) / 3; math.Abs(mean) > 1e-12 {
		t.Errorf("mean: want(0) have(%v)", mean)
	}
	if !floats.EqualApprox([]float64{-1, 0, 1}, have, 1e-12) {
		t.Errorf("want([-1 0 1]) have(%v)", have)
	}

	// A single advantage cannot be scaled, only centred
	if have := Standardize([]float64{4}); have[0] != 0 {
		t.Errorf("single value: want(0) have(%v)", have[0])
	}
}

func TestPolicyLoss(t *testing.T) {
	loss, err := PolicyLoss([]float64{-0.5, -1.0}, []float64{2.0, -1.0})
	if err != nil {
		t.Fatal(err)
	}
	if want := 1.0 - 1.0; math.Abs(loss-want) > 1e-12 {
		t.Errorf("want(%v) have(%v)", want, loss)
	}

	// With a positive advantage, a more likely action has a lower loss,
	// so minimizing the loss increases the action's log-likelihood. A
	// negative advantage reverses this.
	for _, adv := range []float64{1.5, -1.5} {
		low, _ := PolicyLoss([]float64{-2.0}, []float64{adv})
		high, _ := PolicyLoss([]float64{-0.1}, []float64{adv})
		if adv > 0 && high >= low {
			t.Errorf("advantage %v: loss did not decrease with "+
				"log-likelihood", adv)
		}
		if adv < 0 && high <= low {
			t.Errorf("advantage %v: loss did not increase with "+
				"log-likelihood", adv)
		}
	}

	if _, err := PolicyLoss([]float64{1}, nil); err == nil {
		t.Error("expected error for misaligned inputs")
	}
}

func TestValueLoss(t *testing.T) {
	returns := []float64{1.75, 1.5, 1.0}

	loss, err := ValueLoss(returns, returns, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if loss != 0 {
		t.Errorf("value loss with exact values: want(0) have(%v)", loss)
	}

	loss, err = ValueLoss(returns, []float64{1.75, 0.5, 3.0}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if want := 0.5 * (1.0 + 4.0); math.Abs(loss-want) > 1e-12 {
		t.Errorf("want(%v) have(%v)", want, loss)
	}
}
