package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory errors
var (
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrDuplicateStrategy = errors.New("strategy already registered")
)

// Factory builds a fresh strategy instance. Each replica gets its own instances.
type Factory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		IdleName:            func() Strategy { return Idle{} },
		RandomWalkName:      func() Strategy { return &RandomWalk{} },
		GreedyNeighbourName: func() Strategy { return &GreedyNeighbour{} },
	}
)

// Register adds a named factory.
func Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("register strategy %q: name and factory are required", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStrategy, name)
	}
	registry[name] = f
	return nil
}

// FromName returns the factory registered under name.
func FromName(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return f, nil
}

// FromNames resolves several names, failing on the first unknown one.
func FromNames(names []string) ([]Factory, error) {
	out := make([]Factory, 0, len(names))
	for _, n := range names {
		f, err := FromName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Names returns the registered names in ascending order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
