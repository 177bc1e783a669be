package floatutils

import (
	"math"
	"testing"
)

func TestAllFinite(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   bool
	}{
		{"Empty", nil, true},
		{"Finite", []float64{0, -1.5, math.MaxFloat64}, true},
		{"NaN", []float64{1, math.NaN()}, false},
		{"PosInf", []float64{math.Inf(1)}, false},
		{"NegInf", []float64{2, math.Inf(-1), 3}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if have := AllFinite(test.values...); have != test.want {
				t.Errorf("want(%v) have(%v)", test.want, have)
			}
		})
	}
}
