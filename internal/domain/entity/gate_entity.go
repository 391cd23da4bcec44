package entity

import (
	"errors"
	"strings"
	"time"
)

// GateKind distinguishes the two required-membership collections.
type GateKind string

const (
	GateChannel GateKind = "channel"
	GateGroup   GateKind = "group"
)

// GateSetID is the fixed key of the persisted gate aggregate.
const GateSetID = "force_sub_data"

var ErrUnknownGateKind = errors.New("unknown gate kind")

// ParseGateKind accepts "channel" or "group" (case-insensitive).
func ParseGateKind(s string) (GateKind, error) {
	switch GateKind(strings.ToLower(strings.TrimSpace(s))) {
	case GateChannel:
		return GateChannel, nil
	case GateGroup:
		return GateGroup, nil
	}
	return "", ErrUnknownGateKind
}

// GateRequirement is a single chat a user must belong to.
type GateRequirement struct {
	Kind   GateKind
	Target string
}

// GateSet is the global, insertion-ordered list of required chats.
// Targets are unique within a kind.
type GateSet struct {
	Channels  []string
	Groups    []string
	UpdatedAt time.Time
}

// Empty reports whether no requirement is configured.
func (g GateSet) Empty() bool {
	return len(g.Channels) == 0 && len(g.Groups) == 0
}

// Clone returns a deep copy so callers can read it without holding locks.
func (g GateSet) Clone() GateSet {
	out := GateSet{UpdatedAt: g.UpdatedAt}
	out.Channels = append([]string(nil), g.Channels...)
	out.Groups = append([]string(nil), g.Groups...)
	return out
}

// List returns the collection for kind.
func (g GateSet) List(kind GateKind) []string {
	if kind == GateGroup {
		return g.Groups
	}
	return g.Channels
}

// With returns a copy with list replaced for kind.
func (g GateSet) With(kind GateKind, list []string) GateSet {
	out := g.Clone()
	if kind == GateGroup {
		out.Groups = list
	} else {
		out.Channels = list
	}
	return out
}

// Requirements flattens the set, channels first.
func (g GateSet) Requirements() []GateRequirement {
	out := make([]GateRequirement, 0, len(g.Channels)+len(g.Groups))
	for _, c := range g.Channels {
		out = append(out, GateRequirement{Kind: GateChannel, Target: c})
	}
	for _, gr := range g.Groups {
		out = append(out, GateRequirement{Kind: GateGroup, Target: gr})
	}
	return out
}

// NormalizeTarget strips whitespace and a leading '@' from a chat handle.
func NormalizeTarget(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
