// Package envconfig maps environment names to constructors so that
// experiments can be configured with the name of an environment only.
package envconfig

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/environment/classiccontrol/cartpole"
)

// CartPole is the name of the discrete action Cartpole environment with
// the dynamics and episode limits of CartPole-v1
const CartPole string = "CartPole-v1"

// ErrUnknownEnvironment is returned when constructing an environment
// which has not been registered
var ErrUnknownEnvironment = errors.New("unknown environment")

// Factory constructs an environment with a given discount factor and
// seed
type Factory func(discount float64, seed uint64) (env.Environment, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{
		CartPole: newCartPole,
	}
)

// Register registers the Factory f under name, replacing any Factory
// already registered under that name
func Register(name string, f Factory) {
	if f == nil {
		panic("register: nil factory for " + name)
	}
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Make constructs the environment registered under name
func Make(name string, discount float64, seed uint64) (env.Environment,
	error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEnvironment, "make: %q", name)
	}

	e, err := f(discount, seed)
	if err != nil {
		return nil, errors.Wrapf(err, "make: %v", name)
	}
	return e, nil
}

// Names returns the sorted names of all registered environments
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newCartPole(discount float64, seed uint64) (env.Environment, error) {
	task, err := cartpole.NewDefaultBalance(seed)
	if err != nil {
		return nil, err
	}
	e, _ := cartpole.NewDiscrete(task, discount)
	return e, nil
}
