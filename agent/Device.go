package agent

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Device is the compute device that an agent's graphs are run on
type Device string

const (
	CPU  Device = "cpu"
	CUDA Device = "cuda"
)

// ResolveDevice returns CUDA if it is requested and the binary was
// built with CUDA support (the cuda build tag), and CPU otherwise.
func ResolveDevice(wantCUDA bool) Device {
	if wantCUDA && cudaAvailable {
		return CUDA
	}
	return CPU
}

// CUDAAvailable returns whether the binary was built with CUDA support
func CUDAAvailable() bool {
	return cudaAvailable
}

// VMOpts returns the options needed to run a tape machine on the
// Device
func (d Device) VMOpts() []G.VMOpt {
	if d == CUDA {
		return []G.VMOpt{G.UseCudaFor()}
	}
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Device) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	switch Device(name) {
	case CPU, "":
		*d = CPU
	case CUDA:
		*d = CUDA
	default:
		return fmt.Errorf("unmarshalJSON: unknown device %q", name)
	}
	return nil
}
