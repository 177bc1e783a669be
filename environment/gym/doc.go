// Package gym provides access to OpenAI Gym environments, such as
// LunarLander-v2, through the GoGym bindings found at
// https://github.com/samuelfneumann/GoGym.
//
// GoGym embeds a Python interpreter using cgo, so the environments are
// only compiled when building with the gym build tag:
//
//	go build -tags gym
package gym
