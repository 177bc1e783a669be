package agent

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
)

func TestTrajectoryValidate(t *testing.T) {
	var valid Trajectory
	valid.Append([]float64{0, 1}, Decision{1, -0.5, 2.0}, 1.0)
	valid.Append([]float64{1, 1}, Decision{0, -0.1, 1.5}, -1.0)

	if err := valid.Validate(); err != nil {
		t.Errorf("valid trajectory: %v", err)
	}
	if valid.Len() != 2 {
		t.Errorf("length: want(2) have(%d)", valid.Len())
	}
	if valid.Return() != 0 {
		t.Errorf("return: want(0) have(%v)", valid.Return())
	}

	tests := []struct {
		name   string
		modify func(*Trajectory)
	}{
		{"Empty", func(tr *Trajectory) { *tr = Trajectory{} }},
		{"Observations", func(tr *Trajectory) {
			tr.Observations = tr.Observations[:1]
		}},
		{"Actions", func(tr *Trajectory) { tr.Actions = append(tr.Actions, 1) }},
		{"LogLikelihoods", func(tr *Trajectory) { tr.LogLikelihoods = nil }},
		{"Values", func(tr *Trajectory) { tr.Values = tr.Values[1:] }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := Trajectory{
				Observations:   append([][]float64{}, valid.Observations...),
				Actions:        append([]int{}, valid.Actions...),
				Rewards:        append([]float64{}, valid.Rewards...),
				LogLikelihoods: append([]float64{}, valid.LogLikelihoods...),
				Values:         append([]float64{}, valid.Values...),
			}
			test.modify(&tr)

			if err := tr.Validate(); !errors.Is(err, ErrInvalidTrajectory) {
				t.Errorf("want ErrInvalidTrajectory have %v", err)
			}
		})
	}
}

func TestResolveDevice(t *testing.T) {
	if d := ResolveDevice(false); d != CPU {
		t.Errorf("want(cpu) have(%v)", d)
	}

	want := CPU
	if CUDAAvailable() {
		want = CUDA
	}
	if d := ResolveDevice(true); d != want {
		t.Errorf("want(%v) have(%v)", want, d)
	}

	if opts := CPU.VMOpts(); len(opts) != 0 {
		t.Errorf("cpu should need no VM options, have %d", len(opts))
	}
}

func TestDeviceJSON(t *testing.T) {
	var d Device
	if err := json.Unmarshal([]byte(`"cuda"`), &d); err != nil || d != CUDA {
		t.Errorf("want(cuda) have(%v, %v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"tpu"`), &d); err == nil {
		t.Error("expected error for unknown device")
	}
}
