//go:build gym
// +build gym

package main

import (
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/environment/envconfig"
	"github.com/samuelfneumann/goac/environment/gym"
)

// LunarLander is the name of Gym's discrete action lunar lander
const LunarLander string = "LunarLander-v2"

func init() {
	envconfig.Register(LunarLander, gymFactory(LunarLander))
	defaultEnv = LunarLander
	cleanup = append(cleanup, gym.Shutdown)
}

// gymFactory returns an envconfig.Factory for the Gym environment name
func gymFactory(name string) envconfig.Factory {
	return func(discount float64, seed uint64) (env.Environment, error) {
		e, _, err := gym.New(name, discount, seed)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}
