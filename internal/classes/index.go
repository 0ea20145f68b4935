// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classes builds the class index used to classify entities and
// tests entity membership in its class sets.
//
// The index is populated once per run, from the SPARQL query service or a
// cached copy, and is read-only afterwards. Workers share it without
// locking.
package classes

import "sort"

// Set is a set of class ids.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Index holds the named class sets.
type Index struct {
	TerritorialEntities  Set
	HumanSettlements     Set
	Excluded             Set
	ExcludedSettlements  Set
	SecondLevelAdminDivs Set
	Languages            Set
}

// NamedSet pairs a set with its config name.
type NamedSet struct {
	Name string
	Set  Set
}

// Sets returns the sets in a stable order, for reporting.
func (idx *Index) Sets() []NamedSet {
	return []NamedSet{
		{"territorial_entities", idx.TerritorialEntities},
		{"human_settlements", idx.HumanSettlements},
		{"excluded", idx.Excluded},
		{"excluded_settlements", idx.ExcludedSettlements},
		{"second_level_admin_divs", idx.SecondLevelAdminDivs},
		{"languages", idx.Languages},
	}
}

// set returns the set stored under name.
func (idx *Index) set(name string) *Set {
	switch name {
	case "territorial_entities":
		return &idx.TerritorialEntities
	case "human_settlements":
		return &idx.HumanSettlements
	case "excluded":
		return &idx.Excluded
	case "excluded_settlements":
		return &idx.ExcludedSettlements
	case "second_level_admin_divs":
		return &idx.SecondLevelAdminDivs
	case "languages":
		return &idx.Languages
	}
	return nil
}
