// Package flags holds the behaviour switches read from the `flags` config
// section. A Registry is fixed once built.
package flags

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/tokenwatt/internal/log"
)

const (
	// FlagFlushOnSwitch flushes an open episode when the active document
	// changes, instead of abandoning it.
	FlagFlushOnSwitch = "flush-on-switch"

	// FlagFlushOnExit flushes an open episode when the tracker shuts down,
	// instead of abandoning it.
	FlagFlushOnExit = "flush-on-exit"
)

// Defaults maps every flag tokenwatt reads to its default value.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagFlushOnSwitch: false,
		FlagFlushOnExit:   false,
	}
}

// Registry answers flag lookups. A nil Registry reports every flag off.
type Registry struct {
	flags map[string]bool
}

// New builds a Registry from configured values layered over Defaults.
func New(configured map[string]bool) *Registry {
	flags := Defaults()
	for name, on := range configured {
		flags[strings.ToLower(name)] = on
	}
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "Feature flags", "flags", r.All())
	return r
}

// Enabled reports whether name is on. Unknown names are off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of every flag value.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	return maps.Clone(r.flags)
}

// Validate rejects flag names tokenwatt does not read, so a typo in the
// config does not silently keep the default behaviour.
func Validate(configured map[string]bool) error {
	known := Defaults()
	var unknown []string
	for name := range configured {
		if _, ok := known[strings.ToLower(name)]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unknown flags %s (known: %s)",
		strings.Join(unknown, ", "), strings.Join(slices.Sorted(maps.Keys(known)), ", "))
}
