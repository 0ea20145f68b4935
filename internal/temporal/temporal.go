// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package temporal decides whether a qualified statement holds at a given
// time, based on its start time (P580) and end time (P582) qualifiers.
//
// Each bound evaluates to a three-valued State. Unknown means the bound is
// absent or unreadable; callers choose the default. IsActive treats a
// statement as active unless a bound proves otherwise.
package temporal

import (
	"time"

	"github.com/pdiddy/wikiplace/pkg/types"
)

// State is the three-valued outcome of evaluating one temporal bound.
type State int

const (
	Unknown State = iota
	Active
	Inactive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Known reports whether the bound was present and readable.
func (s State) Known() bool {
	return s != Unknown
}

// Combine merges two bounds: Inactive dominates, then Active, then Unknown.
func (s State) Combine(other State) State {
	switch {
	case s == Inactive || other == Inactive:
		return Inactive
	case s == Active || other == Active:
		return Active
	default:
		return Unknown
	}
}

// StartState evaluates the start time qualifier: Active if it is at or
// before now, Inactive if after.
func StartState(q types.Qualifiers, now time.Time) State {
	t, ok := qualifierTime(q, types.PropStartTime)
	if !ok {
		return Unknown
	}
	if t.After(now) {
		return Inactive
	}
	return Active
}

// EndState evaluates the end time qualifier: Active if it is at or after
// now, Inactive if before.
func EndState(q types.Qualifiers, now time.Time) State {
	t, ok := qualifierTime(q, types.PropEndTime)
	if !ok {
		return Unknown
	}
	if t.Before(now) {
		return Inactive
	}
	return Active
}

// IsActive reports whether a statement with these qualifiers holds at now.
// It is false only when a start or end bound is explicitly Inactive.
func IsActive(q types.Qualifiers, now time.Time) bool {
	return StartState(q, now).Combine(EndState(q, now)) != Inactive
}

// qualifierTime reads the first snak of a time qualifier. Anything but a
// parseable concrete value reports false.
func qualifierTime(q types.Qualifiers, prop string) (time.Time, bool) {
	snak, ok := q.First(prop)
	if !ok || !snak.IsValue() {
		return time.Time{}, false
	}
	tv, ok := snak.Time()
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseTime(tv.Time, tv.Timezone)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
