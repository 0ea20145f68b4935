// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the entity document model, the facts extracted
// from it, and the configuration shared by the wikiplace stages.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Property identifiers consulted during extraction.
const (
	PropInstanceOf        = "P31"
	PropCountry           = "P17"
	PropLocatedIn         = "P131"
	PropISO31661          = "P297"
	PropISO31662          = "P300"
	PropOfficialLanguage  = "P37"
	PropLanguageUsed      = "P2936"
	PropNativeLabel       = "P1705"
	PropOfficialName      = "P1448"
	PropPopulation        = "P1082"
	PropPointInTime       = "P585"
	PropCoordinates       = "P625"
	PropStartTime         = "P580"
	PropEndTime           = "P582"
	PropReplacedBy        = "P1366"
	PropDissolved         = "P576"
	PropAppliesToPart     = "P518"
	PropFemalePopulation  = "P1539"
	PropMalePopulation    = "P1540"
	PropWikimediaLangCode = "P424"
)

// Snak types.
const (
	SnakValue     = "value"
	SnakNoValue   = "novalue"
	SnakSomeValue = "somevalue"
)

// DimensionlessUnit is the quantity unit Wikidata uses for plain counts.
const DimensionlessUnit = "1"

// Entity is one knowledge-base item parsed from a dump line.
type Entity struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Labels Labels `json:"labels"`
	Claims Claims `json:"claims"`
}

// Label is a display label in one language.
type Label struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Labels maps a language code to its label.
type Labels map[string]Label

// UnmarshalJSON accepts the empty array the dump uses for empty maps.
// Entries that are not label objects with a string value are dropped.
func (l *Labels) UnmarshalJSON(data []byte) error {
	if isEmptyArray(data) {
		*l = Labels{}
		return nil
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m := make(Labels, len(raw))
	for key, entry := range raw {
		var v struct {
			Language string  `json:"language"`
			Value    *string `json:"value"`
		}
		if err := json.Unmarshal(entry, &v); err != nil || v.Value == nil {
			continue
		}
		m[key] = Label{Language: v.Language, Value: *v.Value}
	}
	*l = m
	return nil
}

// Claims maps a property id to its statements in dump order. A property
// present with no statements is kept as an empty, non-nil slice.
type Claims map[string][]Statement

// UnmarshalJSON accepts the empty array the dump uses for empty maps.
func (c *Claims) UnmarshalJSON(data []byte) error {
	if isEmptyArray(data) {
		*c = Claims{}
		return nil
	}
	m := map[string][]Statement{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	*c = m
	return nil
}

// Has reports whether the property key exists, even with no statements.
func (c Claims) Has(prop string) bool {
	_, ok := c[prop]
	return ok
}

// Statement is one property value plus its qualifiers.
type Statement struct {
	MainSnak   Snak       `json:"mainsnak"`
	Qualifiers Qualifiers `json:"qualifiers,omitempty"`
	Rank       string     `json:"rank,omitempty"`
}

// Qualifiers maps a qualifier property id to its snaks.
type Qualifiers map[string][]Snak

// UnmarshalJSON accepts the empty array the dump uses for empty maps.
func (q *Qualifiers) UnmarshalJSON(data []byte) error {
	if isEmptyArray(data) {
		*q = Qualifiers{}
		return nil
	}
	m := map[string][]Snak{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*q = m
	return nil
}

// First returns the first snak of the qualifier, if any.
func (q Qualifiers) First(prop string) (Snak, bool) {
	snaks := q[prop]
	if len(snaks) == 0 {
		return Snak{}, false
	}
	return snaks[0], true
}

// Has reports whether the qualifier carries at least one snak.
func (q Qualifiers) Has(prop string) bool {
	return len(q[prop]) > 0
}

// Snak is the value payload of a statement or qualifier.
type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property,omitempty"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

// DataValue holds a typed value whose payload is decoded on access.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// IsValue reports whether the snak carries a concrete value.
func (s Snak) IsValue() bool {
	return s.SnakType == SnakValue && s.DataValue != nil
}

// EntityID returns the referenced entity id of a wikibase-entityid value.
func (s Snak) EntityID() (string, bool) {
	var v struct {
		ID string `json:"id"`
	}
	if !s.decode(&v) || v.ID == "" {
		return "", false
	}
	return v.ID, true
}

// StringValue returns a plain string value.
func (s Snak) StringValue() (string, bool) {
	var v string
	if !s.decode(&v) {
		return "", false
	}
	return v, true
}

// TimeValue is the payload of a time value.
type TimeValue struct {
	Time      string `json:"time"`
	Timezone  int    `json:"timezone"`
	Precision int    `json:"precision"`
	Calendar  string `json:"calendarmodel"`
}

// Time returns the time payload.
func (s Snak) Time() (TimeValue, bool) {
	var v struct {
		Time      *string `json:"time"`
		Timezone  *int    `json:"timezone"`
		Precision int     `json:"precision"`
		Calendar  string  `json:"calendarmodel"`
	}
	if !s.decode(&v) || v.Time == nil || v.Timezone == nil {
		return TimeValue{}, false
	}
	return TimeValue{Time: *v.Time, Timezone: *v.Timezone, Precision: v.Precision, Calendar: v.Calendar}, true
}

// QuantityValue is the payload of a quantity value.
type QuantityValue struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Quantity returns the quantity payload. Both amount and unit must be strings.
func (s Snak) Quantity() (QuantityValue, bool) {
	var v struct {
		Amount *string `json:"amount"`
		Unit   *string `json:"unit"`
	}
	if !s.decode(&v) || v.Amount == nil || v.Unit == nil {
		return QuantityValue{}, false
	}
	return QuantityValue{Amount: *v.Amount, Unit: *v.Unit}, true
}

// Coordinate returns latitude and longitude of a globe-coordinate value.
func (s Snak) Coordinate() (lat, lon float64, ok bool) {
	var v struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if !s.decode(&v) || v.Latitude == nil || v.Longitude == nil {
		return 0, 0, false
	}
	return *v.Latitude, *v.Longitude, true
}

// MonolingualText returns the language and text of a monolingualtext value.
func (s Snak) MonolingualText() (lang, text string, ok bool) {
	var v struct {
		Language *string `json:"language"`
		Text     *string `json:"text"`
	}
	if !s.decode(&v) || v.Language == nil || v.Text == nil {
		return "", "", false
	}
	return *v.Language, *v.Text, true
}

func (s Snak) decode(v any) bool {
	if s.DataValue == nil || len(s.DataValue.Value) == 0 {
		return false
	}
	return json.Unmarshal(s.DataValue.Value, v) == nil
}

// ParseEntity decodes one dump record.
func ParseEntity(data []byte) (*Entity, error) {
	var e Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding entity: %w", err)
	}
	if e.Claims == nil {
		e.Claims = Claims{}
	}
	if e.Labels == nil {
		e.Labels = Labels{}
	}
	return &e, nil
}

func isEmptyArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '[' {
		return false
	}
	return len(bytes.TrimSpace(trimmed[1:len(trimmed)-1])) == 0
}
