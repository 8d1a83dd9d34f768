package state

import "fmt"

// Aspect names, in their fixed declaration order. Order matters: the
// dominant aspect tie-break keeps the earliest name.
const (
	AspectLantern = "lantern"
	AspectForge   = "forge"
	AspectEdge    = "edge"
	AspectWinter  = "winter"
	AspectHeart   = "heart"
	AspectGrail   = "grail"
	AspectMoth    = "moth"
	AspectKnock   = "knock"

	// AspectNeutral is the sentinel used when no aspect is above zero.
	AspectNeutral = "neutral"
)

// AspectNames lists the eight aspects in declaration order.
var AspectNames = []string{
	AspectLantern, AspectForge, AspectEdge, AspectWinter,
	AspectHeart, AspectGrail, AspectMoth, AspectKnock,
}

// IsAspect reports whether name is one of the eight aspects.
func IsAspect(name string) bool {
	for _, a := range AspectNames {
		if a == name {
			return true
		}
	}
	return false
}

// Aspects holds the eight signed aspect counters. They are never clamped.
type Aspects struct {
	Lantern int `json:"lantern"`
	Forge   int `json:"forge"`
	Edge    int `json:"edge"`
	Winter  int `json:"winter"`
	Heart   int `json:"heart"`
	Grail   int `json:"grail"`
	Moth    int `json:"moth"`
	Knock   int `json:"knock"`
}

func (a *Aspects) field(name string) *int {
	switch name {
	case AspectLantern:
		return &a.Lantern
	case AspectForge:
		return &a.Forge
	case AspectEdge:
		return &a.Edge
	case AspectWinter:
		return &a.Winter
	case AspectHeart:
		return &a.Heart
	case AspectGrail:
		return &a.Grail
	case AspectMoth:
		return &a.Moth
	case AspectKnock:
		return &a.Knock
	}
	return nil
}

// Get returns the value of the named aspect, or 0 for an unknown name.
func (a Aspects) Get(name string) int {
	if p := a.field(name); p != nil {
		return *p
	}
	return 0
}

// Add adjusts the named aspect by delta and returns the new value.
func (a *Aspects) Add(name string, delta int) (int, error) {
	p := a.field(name)
	if p == nil {
		return 0, fmt.Errorf("unknown aspect %q", name)
	}
	*p = addSaturating(*p, delta)
	return *p, nil
}

// Values returns the counters in declaration order.
func (a Aspects) Values() []int {
	out := make([]int, len(AspectNames))
	for i, name := range AspectNames {
		out[i] = a.Get(name)
	}
	return out
}
