package state

import (
	"fmt"
	"math"
)

const (
	ResourceFunds     = "funds"
	ResourceHealth    = "health"
	ResourceMaxHealth = "maxHealth"
	ResourceSanity    = "sanity"
	ResourceMaxSanity = "maxSanity"
)

// Resources are the player's counters. Every mutation clamps at zero;
// there is no upper bound, not even the max fields.
type Resources struct {
	Funds     int `json:"funds"`
	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Sanity    int `json:"sanity"`
	MaxSanity int `json:"maxSanity"`
}

func (r *Resources) field(name string) *int {
	switch name {
	case ResourceFunds:
		return &r.Funds
	case ResourceHealth:
		return &r.Health
	case ResourceMaxHealth, "max_health":
		return &r.MaxHealth
	case ResourceSanity:
		return &r.Sanity
	case ResourceMaxSanity, "max_sanity":
		return &r.MaxSanity
	}
	return nil
}

// Get returns the named resource, or 0 if the name is unknown.
func (r Resources) Get(name string) int {
	if p := r.field(name); p != nil {
		return *p
	}
	return 0
}

// Modify adds delta to the named resource, clamping the result at 0.
func (r *Resources) Modify(name string, delta int) (int, error) {
	p := r.field(name)
	if p == nil {
		return 0, fmt.Errorf("unknown resource %q", name)
	}
	*p = max(0, addSaturating(*p, delta))
	return *p, nil
}

// addSaturating adds without wrapping past the int range.
func addSaturating(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}
