//go:build !cuda
// +build !cuda

package agent

const cudaAvailable = false
