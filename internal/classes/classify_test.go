package classes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	tu "github.com/pdiddy/wikiplace/internal/testutil"
	"github.com/pdiddy/wikiplace/pkg/types"
)

var now = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func testIndex() *Index {
	return &Index{
		TerritorialEntities:  NewSet("Q56061", "Q10864048"),
		HumanSettlements:     NewSet("Q486972", "Q515"),
		Excluded:             NewSet("Q15893266"),
		ExcludedSettlements:  NewSet("Q74047"),
		SecondLevelAdminDivs: NewSet("Q13220204"),
		Languages:            NewSet("Q34770", "Q1288568"),
	}
}

func TestIsSubclassOf(t *testing.T) {
	cities := NewSet("Q515")
	tests := []struct {
		name   string
		entity *tu.EntityBuilder
		want   bool
	}{
		{"no instance of", tu.NewEntity("Q1"), false},
		{"member", tu.NewEntity("Q1").InstanceOf("Q515"), true},
		{"non-member", tu.NewEntity("Q1").InstanceOf("Q5"), false},
		{"member after non-member", tu.NewEntity("Q1").InstanceOf("Q5", "Q515"), true},
		{
			"ended membership",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.Item("Q515").End("+1990-00-00T00:00:00Z")),
			false,
		},
		{
			"future membership",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.Item("Q515").Start("+2090-00-00T00:00:00Z")),
			false,
		},
		{
			"current membership",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.Item("Q515").Start("+1990-00-00T00:00:00Z")),
			true,
		},
		{
			"replaced membership",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.Item("Q515").Q(types.PropReplacedBy, tu.ItemSnak("Q2"))),
			false,
		},
		{
			"replaced by unknown value still disqualifies",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.Item("Q515").Q(types.PropReplacedBy, tu.SomeValueSnak())),
			false,
		},
		{
			"replaced first, valid second",
			tu.NewEntity("Q1").Claim(types.PropInstanceOf,
				tu.Item("Q515").Q(types.PropReplacedBy, tu.ItemSnak("Q2")),
				tu.Item("Q515"),
			),
			true,
		},
		{"no value snak", tu.NewEntity("Q1").Claim(types.PropInstanceOf, tu.NoValue()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubclassOf(tt.entity.Entity(t), cities, now))
		})
	}
}

func TestClassify(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name      string
		entity    *tu.EntityBuilder
		want      Category
		te, hs, l bool
	}{
		{"nothing", tu.NewEntity("Q1").InstanceOf("Q5"), 0, false, false, false},
		{"city", tu.NewEntity("Q1").InstanceOf("Q515"), HumanSettlement, false, true, false},
		{
			"city and territorial entity",
			tu.NewEntity("Q1").InstanceOf("Q515", "Q56061"),
			HumanSettlement | TerritorialEntity, true, true, false,
		},
		{
			"excluded territorial entity",
			tu.NewEntity("Q1").InstanceOf("Q56061", "Q15893266"),
			TerritorialEntity | Excluded, false, false, false,
		},
		{
			"ghost town",
			tu.NewEntity("Q1").InstanceOf("Q486972", "Q74047"),
			HumanSettlement | ExcludedSettlement, false, false, false,
		},
		{
			"ghost town that is also a territorial entity",
			tu.NewEntity("Q1").InstanceOf("Q486972", "Q74047", "Q56061"),
			HumanSettlement | ExcludedSettlement | TerritorialEntity, true, false, false,
		},
		{
			"second-level division",
			tu.NewEntity("Q1").InstanceOf("Q56061", "Q13220204"),
			TerritorialEntity | SecondLevelAdminDiv, true, false, false,
		},
		{
			"excluded language is still a language",
			tu.NewEntity("Q1").InstanceOf("Q34770", "Q15893266"),
			Language | Excluded, false, false, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.entity.Entity(t), idx, now)
			assert.Equal(t, tt.want, c, "got %s", c)
			assert.Equal(t, tt.te, c.IsTerritorialEntity())
			assert.Equal(t, tt.hs, c.IsHumanSettlement())
			assert.Equal(t, tt.l, c.IsLanguage())
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "none", Category(0).String())
	assert.Equal(t, "territorial_entity|language", (TerritorialEntity | Language).String())
}
