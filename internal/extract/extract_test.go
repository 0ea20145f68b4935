package extract

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wikiplace/internal/classes"
	tu "github.com/pdiddy/wikiplace/internal/testutil"
	"github.com/pdiddy/wikiplace/pkg/types"
)

var now = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

const (
	past   = "+1990-00-00T00:00:00Z"
	future = "+2090-00-00T00:00:00Z"
)

func testExtractor() *Extractor {
	return New(&classes.Index{
		TerritorialEntities:  classes.NewSet("Q56061"),
		HumanSettlements:     classes.NewSet("Q486972", "Q515"),
		Excluded:             classes.NewSet("Q15893266"),
		ExcludedSettlements:  classes.NewSet("Q74047"),
		SecondLevelAdminDivs: classes.NewSet("Q13220204"),
		Languages:            classes.NewSet("Q34770"),
	}, nil)
}

func ptr[T any](v T) *T { return &v }

func extract(t *testing.T, b *tu.EntityBuilder) []types.Fact {
	t.Helper()
	facts, err := testExtractor().Extract(b.Line(), now)
	require.NoError(t, err)
	return facts
}

func TestExtractLineFraming(t *testing.T) {
	x := testExtractor()
	for _, line := range []string{"", "[", "]", "\n"} {
		facts, err := x.Extract([]byte(line), now)
		assert.NoError(t, err, "line %q", line)
		assert.Empty(t, facts, "line %q", line)
	}

	_, err := x.Extract([]byte(`{"id":"Q1",`), now)
	assert.ErrorContains(t, err, "decoding entity")

	_, err = x.Extract([]byte(`{"labels":[],"claims":[]},`), now)
	assert.ErrorIs(t, err, ErrMissingID)

	facts, err := x.Extract(tu.NewEntity("Q1").JSON(), now)
	require.NoError(t, err)
	assert.Empty(t, facts, "line without trailing comma parses")
}

func TestSettlementEndToEnd(t *testing.T) {
	b := tu.NewEntity("Q64").
		Label("en", "Berlin").
		Label("de", "Berlin").
		InstanceOf("Q515").
		Claim(types.PropLocatedIn, tu.Item("Q183")).
		Claim(types.PropCountry,
			tu.Item("Q183").Start("+1990-10-03T00:00:00Z"),
			tu.Item("Q27306").End("+1990-10-03T00:00:00Z"),
			tu.Item("Q7318"),
		).
		Claim(types.PropPopulation,
			tu.Quantity("+3,400,000", "1").At("+2000-00-00T00:00:00Z"),
			tu.Quantity("+3,600,000", "1").At("+2020-00-00T00:00:00Z"),
			tu.Quantity("+1,900,000", "1").At("+2022-00-00T00:00:00Z").
				Q(types.PropFemalePopulation, tu.ItemSnak("Q6581072")),
		).
		Claim(types.PropCoordinates, tu.Coord(52.52, 13.405)).
		Claim(types.PropNativeLabel, tu.Text("de", "Berlin"), tu.Item("Q1"), tu.Text("nds", "Berlin")).
		Claim(types.PropOfficialName, tu.Text("de", "Land Berlin"))

	want := []types.Fact{
		types.TerritorialEntityParent{ID: "Q64", ParentID: "Q183"},
		types.CityCountry{ID: "Q64", CountryID: "Q183", Priority: 0},
		types.CityCountry{ID: "Q64", CountryID: "Q7318", Priority: 1002},
		types.City{ID: "Q64", Population: ptr(uint64(3600000)), Lat: ptr(52.52), Lon: ptr(13.405)},
		types.ObjectLabel{ID: "Q64", Lang: "de", Label: "Berlin"},
		types.ObjectLabel{ID: "Q64", Lang: "en", Label: "Berlin"},
		types.ObjectLabel{ID: "Q64", Lang: "de", Label: "Berlin", NativeOrder: ptr(0)},
		types.ObjectLabel{ID: "Q64", Lang: "nds", Label: "Berlin", NativeOrder: ptr(1)},
	}
	assert.Equal(t, want, extract(t, b))
}

func TestSettlementWithoutCountry(t *testing.T) {
	b := tu.NewEntity("Q1").
		Label("en", "Nowhere").
		InstanceOf("Q515").
		Claim(types.PropLocatedIn, tu.Item("Q2")).
		Claim(types.PropPopulation, tu.Quantity("+10", "1").At(past))

	assert.Equal(t, []types.Fact{types.MissingCountryProperty{ID: "Q1"}}, extract(t, b))
}

func TestSettlementCityAlwaysEmitted(t *testing.T) {
	b := tu.NewEntity("Q1").
		InstanceOf("Q515").
		Claim(types.PropCountry).
		Claim(types.PropCoordinates, tu.SomeValue(), tu.Coord(1, 2))

	assert.Equal(t, []types.Fact{types.City{ID: "Q1"}}, extract(t, b),
		"coordinates only come from the first statement")
}

func TestCityCountryFuturePeriodSkipped(t *testing.T) {
	b := tu.NewEntity("Q1").
		InstanceOf("Q515").
		Claim(types.PropCountry,
			tu.Item("Q2").Start(future),
			tu.Item("Q3").Start(past).End(future),
			tu.NoValue(),
		)

	facts := extract(t, b)
	assert.Equal(t, []types.Fact{
		types.CityCountry{ID: "Q1", CountryID: "Q3", Priority: 1},
		types.City{ID: "Q1"},
	}, facts)
}

func TestPopulationSelection(t *testing.T) {
	tests := []struct {
		name  string
		stmts []*tu.Stmt
		want  *uint64
	}{
		{
			"latest wins",
			[]*tu.Stmt{
				tu.Quantity("200", "1").At("+2010-00-00T00:00:00Z"),
				tu.Quantity("100", "1").At("+2000-00-00T00:00:00Z"),
			},
			ptr(uint64(200)),
		},
		{
			"tie favours later statement",
			[]*tu.Stmt{
				tu.Quantity("100", "1").At("+2010-00-00T00:00:00Z"),
				tu.Quantity("150", "1").At("+2010-00-00T00:00:00Z"),
			},
			ptr(uint64(150)),
		},
		{
			"undated statements never win",
			[]*tu.Stmt{
				tu.Quantity("100", "1").At("+2000-00-00T00:00:00Z"),
				tu.Quantity("999", "1"),
			},
			ptr(uint64(100)),
		},
		{
			"partial figures never win",
			[]*tu.Stmt{
				tu.Quantity("100", "1").At("+2000-00-00T00:00:00Z"),
				tu.Quantity("40", "1").At("+2010-00-00T00:00:00Z").Q(types.PropAppliesToPart, tu.ItemSnak("Q2")),
				tu.Quantity("50", "1").At("+2010-00-00T00:00:00Z").Q(types.PropMalePopulation, tu.ItemSnak("Q2")),
			},
			ptr(uint64(100)),
		},
		{
			"other units are discarded",
			[]*tu.Stmt{
				tu.Quantity("100", "1").At("+2000-00-00T00:00:00Z"),
				tu.Quantity("5", "http://www.wikidata.org/entity/Q11573").At("+2010-00-00T00:00:00Z"),
			},
			ptr(uint64(100)),
		},
		{
			"unparseable amounts are discarded",
			[]*tu.Stmt{
				tu.Quantity("100", "1").At("+2000-00-00T00:00:00Z"),
				tu.Quantity("12.5", "1").At("+2010-00-00T00:00:00Z"),
			},
			ptr(uint64(100)),
		},
		{
			"unknown point in time",
			[]*tu.Stmt{tu.Quantity("100", "1").Q(types.PropPointInTime, tu.SomeValueSnak())},
			nil,
		},
		{"none", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tu.NewEntity("Q1").InstanceOf("Q515").Claim(types.PropCountry, tu.Item("Q2"))
			if len(tt.stmts) > 0 {
				b.Claim(types.PropPopulation, tt.stmts...)
			}
			facts := extract(t, b)
			require.Len(t, facts, 2)
			city, ok := facts[1].(types.City)
			require.True(t, ok)
			assert.Equal(t, tt.want, city.Population)
		})
	}
}

func TestNativeLabelFallback(t *testing.T) {
	t.Run("official names when native label absent", func(t *testing.T) {
		b := tu.NewEntity("Q1").
			InstanceOf("Q515").
			Claim(types.PropCountry, tu.Item("Q2")).
			Claim(types.PropOfficialName,
				tu.Text("fr", "Ancienne").End(past),
				tu.Text("fr", "Nouvelle"),
			)
		facts := extract(t, b)
		assert.Equal(t, types.ObjectLabel{ID: "Q1", Lang: "fr", Label: "Nouvelle", NativeOrder: ptr(0)}, facts[len(facts)-1])
	})

	t.Run("empty native label suppresses official names", func(t *testing.T) {
		b := tu.NewEntity("Q1").
			InstanceOf("Q515").
			Claim(types.PropCountry, tu.Item("Q2")).
			Claim(types.PropNativeLabel).
			Claim(types.PropOfficialName, tu.Text("fr", "Nouvelle"))
		for _, f := range extract(t, b) {
			assert.NotEqual(t, types.KindObjectLabel, f.Kind())
		}
	})

	t.Run("native labels ignore qualifiers", func(t *testing.T) {
		b := tu.NewEntity("Q1").
			InstanceOf("Q515").
			Claim(types.PropCountry, tu.Item("Q2")).
			Claim(types.PropNativeLabel, tu.Text("fr", "Ancienne").End(past))
		facts := extract(t, b)
		assert.Equal(t, types.ObjectLabel{ID: "Q1", Lang: "fr", Label: "Ancienne", NativeOrder: ptr(0)}, facts[len(facts)-1])
	})
}

func TestTerritorialEntity(t *testing.T) {
	b := tu.NewEntity("Q64").
		Label("en", "Berlin").
		InstanceOf("Q56061", "Q13220204").
		Claim(types.PropISO31662, tu.String("DE-BE"), tu.String("DE-XX")).
		Claim(types.PropLocatedIn, tu.Item("Q183"), tu.Item("Q2").End(past)).
		Claim(types.PropLanguageUsed, tu.Item("Q188"), tu.SomeValue(), tu.Item("Q9")).
		Claim(types.PropOfficialName, tu.Text("de", "Land Berlin"))

	want := []types.Fact{
		types.TerritorialEntity{ID: "Q64", IsSecondLevel: true, ISO: ptr("DE-BE")},
		types.TerritorialEntityParent{ID: "Q64", ParentID: "Q183"},
		types.ObjectLanguage{ID: "Q64", LangID: "Q188", Index: 0},
		types.ObjectLanguage{ID: "Q64", LangID: "Q9", Index: 1},
		types.ObjectLabel{ID: "Q64", Lang: "en", Label: "Berlin"},
	}
	assert.Equal(t, want, extract(t, b))
}

func TestTerritorialEntityLanguageSource(t *testing.T) {
	b := tu.NewEntity("Q1").
		InstanceOf("Q56061").
		Claim(types.PropISO31662, tu.String("XX-YY")).
		Claim(types.PropOfficialLanguage).
		Claim(types.PropLanguageUsed, tu.Item("Q188"))

	assert.Equal(t, []types.Fact{
		types.TerritorialEntity{ID: "Q1"},
	}, extract(t, b), "an empty official language list still shadows languages used")
}

func TestLabelsUseLabelLanguage(t *testing.T) {
	b := tu.NewEntity("Q1").
		InstanceOf("Q56061").
		Label("en", "One").
		RawLabel("de-formal", map[string]string{"language": "de", "value": "Eins"}).
		RawLabel("fr", map[string]string{"value": "Un"}).
		RawLabel("it", map[string]string{"language": "it"}).
		RawLabel("nl", "een")

	assert.Equal(t, []types.Fact{
		types.TerritorialEntity{ID: "Q1"},
		types.ObjectLabel{ID: "Q1", Lang: "de", Label: "Eins"},
		types.ObjectLabel{ID: "Q1", Lang: "en", Label: "One"},
		types.ObjectLabel{ID: "Q1", Lang: "fr", Label: "Un"},
	}, extract(t, b), "malformed entries are skipped")
}

func TestExcludedTerritorialEntity(t *testing.T) {
	b := tu.NewEntity("Q1").Label("en", "x").InstanceOf("Q56061", "Q15893266")
	assert.Empty(t, extract(t, b))
}

func TestSettlementAndTerritorialEntity(t *testing.T) {
	b := tu.NewEntity("Q1").
		InstanceOf("Q515", "Q56061").
		Claim(types.PropCountry, tu.Item("Q2"))

	assert.Equal(t, []types.Fact{
		types.TerritorialEntity{ID: "Q1"},
		types.CityCountry{ID: "Q1", CountryID: "Q2", Priority: 1000},
		types.City{ID: "Q1"},
	}, extract(t, b))
}

func TestLanguage(t *testing.T) {
	b := tu.NewEntity("Q188").
		Label("en", "German").
		InstanceOf("Q34770").
		Claim(types.PropWikimediaLangCode, tu.String("de"), tu.String("gsw"))

	assert.Equal(t, []types.Fact{types.Language{ID: "Q188", WikimediaCode: "de"}}, extract(t, b))
}

func TestCountryCode(t *testing.T) {
	b := tu.NewEntity("Q183").
		Claim(types.PropISO31661, tu.String("DD").End(past), tu.String("DE"), tu.String("XX")).
		Claim(types.PropOfficialLanguage, tu.Item("Q188"), tu.Item("Q9").End(past), tu.Item("Q150"))

	assert.Equal(t, []types.Fact{
		types.Country{ID: "Q183", ISO: "de"},
		types.ObjectLanguage{ID: "Q183", LangID: "Q188", Index: 0},
		types.ObjectLanguage{ID: "Q183", LangID: "Q150", Index: 1},
	}, extract(t, b))
}

func TestCountryCodeNotAString(t *testing.T) {
	b := tu.NewEntity("Q1").
		Claim(types.PropISO31661, tu.Item("Q2"), tu.String("DE")).
		Claim(types.PropOfficialLanguage, tu.Item("Q188"))

	assert.Equal(t, []types.Fact{
		types.ObjectLanguage{ID: "Q1", LangID: "Q188", Index: 0},
	}, extract(t, b), "only the first active code statement is considered")
}

func TestOfficialLanguagesNeedCountryCode(t *testing.T) {
	b := tu.NewEntity("Q1").Claim(types.PropOfficialLanguage, tu.Item("Q188"))
	assert.Empty(t, extract(t, b))
}

func TestExclusion(t *testing.T) {
	city := func() *tu.EntityBuilder {
		return tu.NewEntity("Q1").InstanceOf("Q515").Claim(types.PropCountry, tu.Item("Q2"))
	}
	tests := []struct {
		name     string
		entity   *tu.EntityBuilder
		excluded bool
	}{
		{"plain", city(), false},
		{"dissolved", city().Claim(types.PropDissolved, tu.SomeValue()), true},
		{"replaced", city().Claim(types.PropReplacedBy, tu.Item("Q3")), true},
		{
			"partly replaced",
			city().Claim(types.PropReplacedBy, tu.Item("Q3").Q(types.PropAppliesToPart, tu.ItemSnak("Q4"))),
			false,
		},
		{
			"partly and fully replaced",
			city().Claim(types.PropReplacedBy,
				tu.Item("Q3").Q(types.PropAppliesToPart, tu.ItemSnak("Q4")),
				tu.Item("Q5"),
			),
			true,
		},
		{"empty replaced by", city().Claim(types.PropReplacedBy), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := extract(t, tt.entity)
			if tt.excluded {
				assert.Empty(t, facts)
			} else {
				assert.NotEmpty(t, facts)
			}
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	b := tu.NewEntity("Q1").
		Label("fr", "Un").Label("en", "One").Label("de", "Eins").Label("it", "Uno").
		InstanceOf("Q515", "Q56061").
		Claim(types.PropCountry, tu.Item("Q2"), tu.Item("Q3").Start(past))

	first := extract(t, b)
	for range 20 {
		assert.Equal(t, first, extract(t, b))
	}
}

func TestParseQuantity(t *testing.T) {
	accept := map[string]uint64{
		"1,234":      1234,
		"+56":        56,
		" 12 ":       12,
		"+3,600,000": 3600000,
		"0":          0,
		"1\u00a0234": 1234,
		"3\u2009600": 3600,
	}
	for in, want := range accept {
		got, ok := ParseQuantity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"12.5", "-3", "abc", "", "+", "1e3", "99999999999999999999"} {
		_, ok := ParseQuantity(in)
		assert.False(t, ok, in)
	}
}

func TestParseQuantityFitsInt64(t *testing.T) {
	n, ok := ParseQuantity("+9,223,372,036,854,775,807")
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxInt64), n)

	_, ok = ParseQuantity("9223372036854775808")
	assert.False(t, ok, "one past the largest storable population")
}

func TestSummarize(t *testing.T) {
	s := summarize([]types.Fact{
		types.City{ID: "Q1"},
		types.ObjectLabel{ID: "Q1"},
		types.ObjectLabel{ID: "Q1"},
	})
	assert.Equal(t, "object_label=2 city=1", s)
}
