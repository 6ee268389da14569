package xdm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrKindDisabled is returned when a payload kind has no registered strategy.
var ErrKindDisabled = errors.New("payload kind disabled")

// Kind tags which XDM entity shape a payload is built for.
type Kind string

const (
	// KindProfile produces B2B person profile updates.
	KindProfile Kind = "profile"
	// KindExperienceEvent produces milestone experience events. Not registered
	// by default.
	KindExperienceEvent Kind = "experience_event"
)

// Strategy is everything needed to build one kind of entity.
type Strategy struct {
	Mapping  Mapping
	Defaults []Default
}

// Registry maps payload kinds to their build strategy.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Kind]Strategy
}

// NewRegistry returns a registry with the profile strategy registered.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[Kind]Strategy)}
	r.Register(KindProfile, Strategy{Mapping: ProfileMapping, Defaults: ProfileDefaults})
	return r
}

// Register adds or replaces the strategy for kind.
func (r *Registry) Register(kind Kind, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[kind] = s
}

// Lookup returns the strategy for kind or ErrKindDisabled.
func (r *Registry) Lookup(kind Kind) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[kind]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %s", ErrKindDisabled, kind)
	}
	return s, nil
}
