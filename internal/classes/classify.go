package classes

import (
	"strings"
	"time"

	"github.com/pdiddy/wikiplace/internal/temporal"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// Category is a bit set of the classes an entity belongs to. Classes are
// not mutually exclusive.
type Category uint8

const (
	TerritorialEntity Category = 1 << iota
	HumanSettlement
	Excluded
	ExcludedSettlement
	SecondLevelAdminDiv
	Language
)

var categoryNames = []struct {
	c    Category
	name string
}{
	{TerritorialEntity, "territorial_entity"},
	{HumanSettlement, "human_settlement"},
	{Excluded, "excluded"},
	{ExcludedSettlement, "excluded_settlement"},
	{SecondLevelAdminDiv, "second_level_admin_div"},
	{Language, "language"},
}

// Has reports whether every bit of other is set.
func (c Category) Has(other Category) bool {
	return c&other == other
}

// String lists the set categories joined by "|", or "none".
func (c Category) String() string {
	var parts []string
	for _, cn := range categoryNames {
		if c.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// IsTerritorialEntity reports whether the territorial entity handler applies.
func (c Category) IsTerritorialEntity() bool {
	return c.Has(TerritorialEntity) && !c.Has(Excluded)
}

// IsHumanSettlement reports whether the human settlement handler applies.
func (c Category) IsHumanSettlement() bool {
	return c.Has(HumanSettlement) && !c.Has(Excluded) && !c.Has(ExcludedSettlement)
}

// IsLanguage reports whether the language handler applies. Exclusion does
// not gate languages.
func (c Category) IsLanguage() bool {
	return c.Has(Language)
}

// IsSubclassOf reports whether some "instance of" statement of e names a
// class in set, holds at now, and carries no "replaced by" qualifier. The
// first such statement decides.
func IsSubclassOf(e *types.Entity, set Set, now time.Time) bool {
	for _, st := range e.Claims[types.PropInstanceOf] {
		id, ok := st.MainSnak.EntityID()
		if !ok || !set.Contains(id) {
			continue
		}
		if !temporal.IsActive(st.Qualifiers, now) {
			continue
		}
		if st.Qualifiers.Has(types.PropReplacedBy) {
			continue
		}
		return true
	}
	return false
}

// Classify computes every category of e against idx.
func Classify(e *types.Entity, idx *Index, now time.Time) Category {
	var c Category
	for _, check := range []struct {
		cat Category
		set Set
	}{
		{TerritorialEntity, idx.TerritorialEntities},
		{HumanSettlement, idx.HumanSettlements},
		{Excluded, idx.Excluded},
		{ExcludedSettlement, idx.ExcludedSettlements},
		{SecondLevelAdminDiv, idx.SecondLevelAdminDivs},
		{Language, idx.Languages},
	} {
		if IsSubclassOf(e, check.set, now) {
			c |= check.cat
		}
	}
	return c
}
