// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FactKind names one of the fact variants emitted by extraction.
type FactKind string

const (
	KindCountry                 FactKind = "country"
	KindTerritorialEntity       FactKind = "territorial_entity"
	KindTerritorialEntityParent FactKind = "territorial_entity_parent"
	KindObjectLanguage          FactKind = "object_language"
	KindObjectLabel             FactKind = "object_label"
	KindLanguage                FactKind = "language"
	KindMissingCountryProperty  FactKind = "missing_country_property"
	KindCityCountry             FactKind = "city_country"
	KindCity                    FactKind = "city"
)

// AllKinds lists every fact variant in a stable order.
var AllKinds = []FactKind{
	KindCountry,
	KindTerritorialEntity,
	KindTerritorialEntityParent,
	KindObjectLanguage,
	KindObjectLabel,
	KindLanguage,
	KindMissingCountryProperty,
	KindCityCountry,
	KindCity,
}

// Fact is one immutable unit of extracted output. Persistence treats each
// variant as an upsert keyed by EntityID, plus a secondary key for the
// per-language and per-parent variants.
type Fact interface {
	Kind() FactKind
	EntityID() string
}

// Country assigns an ISO 3166-1 alpha-2 code (lowercase) to an entity.
type Country struct {
	ID  string `json:"id" yaml:"id"`
	ISO string `json:"iso" yaml:"iso"`
}

// TerritorialEntity marks an administrative territorial entity. ISO holds
// the ISO 3166-2 code and is only set for second-level divisions.
type TerritorialEntity struct {
	ID            string  `json:"id" yaml:"id"`
	IsSecondLevel bool    `json:"is_second_level" yaml:"is_second_level"`
	ISO           *string `json:"iso,omitempty" yaml:"iso,omitempty"`
}

// TerritorialEntityParent links a place to the entity it is located in.
type TerritorialEntityParent struct {
	ID       string `json:"id" yaml:"id"`
	ParentID string `json:"parent_id" yaml:"parent_id"`
}

// ObjectLanguage records a language of an entity; Index orders the
// languages as they appear on the entity.
type ObjectLanguage struct {
	ID     string `json:"id" yaml:"id"`
	LangID string `json:"lang_id" yaml:"lang_id"`
	Index  int    `json:"index" yaml:"index"`
}

// ObjectLabel is a label of an entity. NativeOrder is set for native
// names and orders them; plain display labels leave it nil.
type ObjectLabel struct {
	ID          string `json:"id" yaml:"id"`
	Lang        string `json:"lang" yaml:"lang"`
	Label       string `json:"label" yaml:"label"`
	NativeOrder *int   `json:"native_order,omitempty" yaml:"native_order,omitempty"`
}

// Language maps a language entity to its Wikimedia language code.
type Language struct {
	ID            string `json:"id" yaml:"id"`
	WikimediaCode string `json:"wikimedia_code" yaml:"wikimedia_code"`
}

// MissingCountryProperty flags a settlement that has no country statement.
type MissingCountryProperty struct {
	ID string `json:"id" yaml:"id"`
}

// CityCountry assigns a country to a settlement. Lower priority values
// are preferred: dated assignments use their statement position, undated
// ones are offset by UndatedPriorityOffset.
type CityCountry struct {
	ID        string `json:"id" yaml:"id"`
	CountryID string `json:"country_id" yaml:"country_id"`
	Priority  int    `json:"priority" yaml:"priority"`
}

// UndatedPriorityOffset is added to the priority of country statements
// that carry no start time.
const UndatedPriorityOffset = 1000

// City holds the attributes of a human settlement.
type City struct {
	ID         string   `json:"id" yaml:"id"`
	Population *uint64  `json:"population,omitempty" yaml:"population,omitempty"`
	Lat        *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
}

func (f Country) Kind() FactKind                 { return KindCountry }
func (f TerritorialEntity) Kind() FactKind       { return KindTerritorialEntity }
func (f TerritorialEntityParent) Kind() FactKind { return KindTerritorialEntityParent }
func (f ObjectLanguage) Kind() FactKind          { return KindObjectLanguage }
func (f ObjectLabel) Kind() FactKind             { return KindObjectLabel }
func (f Language) Kind() FactKind                { return KindLanguage }
func (f MissingCountryProperty) Kind() FactKind  { return KindMissingCountryProperty }
func (f CityCountry) Kind() FactKind             { return KindCityCountry }
func (f City) Kind() FactKind                    { return KindCity }

func (f Country) EntityID() string                 { return f.ID }
func (f TerritorialEntity) EntityID() string       { return f.ID }
func (f TerritorialEntityParent) EntityID() string { return f.ID }
func (f ObjectLanguage) EntityID() string          { return f.ID }
func (f ObjectLabel) EntityID() string             { return f.ID }
func (f Language) EntityID() string                { return f.ID }
func (f MissingCountryProperty) EntityID() string  { return f.ID }
func (f CityCountry) EntityID() string             { return f.ID }
func (f City) EntityID() string                    { return f.ID }
