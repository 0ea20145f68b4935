package extract

import (
	"sort"

	"github.com/pdiddy/wikiplace/internal/temporal"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// place emits the administrative parents of the entity.
func (r *run) place() {
	for _, st := range r.entity.Claims[types.PropLocatedIn] {
		if !temporal.IsActive(st.Qualifiers, r.now) {
			continue
		}
		parent, ok := st.MainSnak.EntityID()
		if !ok {
			r.trace.skip(types.PropLocatedIn, "no parent id")
			continue
		}
		r.emit(types.TerritorialEntityParent{ID: r.id(), ParentID: parent})
	}
}

func (r *run) territorialEntity(secondLevel bool) {
	te := types.TerritorialEntity{ID: r.id(), IsSecondLevel: secondLevel}
	if secondLevel {
		if sts := r.entity.Claims[types.PropISO31662]; len(sts) > 0 {
			if iso, ok := sts[0].MainSnak.StringValue(); ok {
				te.ISO = &iso
			}
		}
	}
	r.emit(te)

	r.place()

	// Official languages win; languages used are only a fallback.
	prop := types.PropOfficialLanguage
	if !r.entity.Claims.Has(prop) {
		prop = types.PropLanguageUsed
	}
	index := 0
	for _, st := range r.entity.Claims[prop] {
		if !st.MainSnak.IsValue() || !temporal.IsActive(st.Qualifiers, r.now) {
			continue
		}
		langID, ok := st.MainSnak.EntityID()
		if !ok {
			continue
		}
		r.emit(types.ObjectLanguage{ID: r.id(), LangID: langID, Index: index})
		index++
	}

	r.labels()
}

func (r *run) humanSettlement() {
	if !r.entity.Claims.Has(types.PropCountry) {
		r.emit(types.MissingCountryProperty{ID: r.id()})
		return
	}

	r.place()
	r.cityCountries()

	city := types.City{ID: r.id()}
	city.Population = r.population()
	if sts := r.entity.Claims[types.PropCoordinates]; len(sts) > 0 && sts[0].MainSnak.IsValue() {
		if lat, lon, ok := sts[0].MainSnak.Coordinate(); ok {
			city.Lat, city.Lon = &lat, &lon
		}
	}
	r.emit(city)

	r.labels()
	r.nativeLabels()
}

// cityCountries emits one assignment per country statement that is not
// known to be inactive.
func (r *run) cityCountries() {
	for i, st := range r.entity.Claims[types.PropCountry] {
		start := temporal.StartState(st.Qualifiers, r.now)
		end := temporal.EndState(st.Qualifiers, r.now)
		if start == temporal.Inactive || end == temporal.Inactive {
			r.trace.skip(types.PropCountry, "country assignment not current")
			continue
		}
		country, ok := st.MainSnak.EntityID()
		if !ok {
			r.trace.skip(types.PropCountry, "no country id")
			continue
		}
		priority := i
		if !st.Qualifiers.Has(types.PropStartTime) {
			priority += types.UndatedPriorityOffset
		}
		r.emit(types.CityCountry{ID: r.id(), CountryID: country, Priority: priority})
	}
}

func (r *run) language() {
	sts := r.entity.Claims[types.PropWikimediaLangCode]
	if len(sts) == 0 {
		return
	}
	code, ok := sts[0].MainSnak.StringValue()
	if !ok {
		r.trace.skip(types.PropWikimediaLangCode, "code is not a string")
		return
	}
	r.emit(types.Language{ID: r.id(), WikimediaCode: code})
}

// labels emits the display labels ordered by key. The label's own
// language wins over its key.
func (r *run) labels() {
	keys := make([]string, 0, len(r.entity.Labels))
	for key := range r.entity.Labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		l := r.entity.Labels[key]
		lang := l.Language
		if lang == "" {
			lang = key
		}
		r.emit(types.ObjectLabel{ID: r.id(), Lang: lang, Label: l.Value})
	}
}

// nativeLabels emits native names. A native label property, even an
// empty one, is used exclusively and unfiltered; otherwise the currently
// active official names are used.
func (r *run) nativeLabels() {
	prop, filter := types.PropNativeLabel, false
	if !r.entity.Claims.Has(prop) {
		prop, filter = types.PropOfficialName, true
	}
	order := 0
	for _, st := range r.entity.Claims[prop] {
		if filter && !temporal.IsActive(st.Qualifiers, r.now) {
			continue
		}
		lang, text, ok := st.MainSnak.MonolingualText()
		if !ok {
			r.trace.skip(prop, "not a monolingual text")
			continue
		}
		n := order
		r.emit(types.ObjectLabel{ID: r.id(), Lang: lang, Label: text, NativeOrder: &n})
		order++
	}
}
