// Package testutil builds Wikidata dump records for tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/pdiddy/wikiplace/pkg/types"
)

// Snak is a JSON snak object.
type Snak map[string]any

// Stmt builds one statement.
type Stmt struct {
	mainsnak   Snak
	qualifiers map[string][]Snak
}

// EntityBuilder builds one entity record.
type EntityBuilder struct {
	id     string
	labels map[string]any
	claims map[string][]*Stmt
}

// NewEntity starts an entity with the given id.
func NewEntity(id string) *EntityBuilder {
	return &EntityBuilder{id: id, labels: map[string]any{}, claims: map[string][]*Stmt{}}
}

// Label adds a display label.
func (b *EntityBuilder) Label(lang, value string) *EntityBuilder {
	b.labels[lang] = map[string]string{"language": lang, "value": value}
	return b
}

// RawLabel stores v verbatim under key, for malformed or unusual labels.
func (b *EntityBuilder) RawLabel(key string, v any) *EntityBuilder {
	b.labels[key] = v
	return b
}

// Claim appends statements to a property.
func (b *EntityBuilder) Claim(prop string, stmts ...*Stmt) *EntityBuilder {
	if _, ok := b.claims[prop]; !ok {
		b.claims[prop] = []*Stmt{}
	}
	for _, s := range stmts {
		s.mainsnak["property"] = prop
		b.claims[prop] = append(b.claims[prop], s)
	}
	return b
}

// InstanceOf appends "instance of" statements for the given classes.
func (b *EntityBuilder) InstanceOf(classes ...string) *EntityBuilder {
	for _, c := range classes {
		b.Claim(types.PropInstanceOf, Item(c))
	}
	return b
}

// JSON renders the entity the way the dump does, with empty maps as [].
func (b *EntityBuilder) JSON() []byte {
	doc := map[string]any{"id": b.id, "type": "item"}
	if len(b.labels) == 0 {
		doc["labels"] = []any{}
	} else {
		doc["labels"] = b.labels
	}
	if len(b.claims) == 0 {
		doc["claims"] = []any{}
	} else {
		claims := map[string]any{}
		for prop, stmts := range b.claims {
			list := make([]any, 0, len(stmts))
			for _, s := range stmts {
				list = append(list, s.render())
			}
			claims[prop] = list
		}
		doc["claims"] = claims
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// Line renders the entity as a comma-terminated dump line.
func (b *EntityBuilder) Line() []byte {
	return append(b.JSON(), ',')
}

// Entity parses the rendered record.
func (b *EntityBuilder) Entity(t testing.TB) *types.Entity {
	t.Helper()
	e, err := types.ParseEntity(b.JSON())
	if err != nil {
		t.Fatalf("parsing built entity: %v", err)
	}
	return e
}

func (s *Stmt) render() map[string]any {
	out := map[string]any{"mainsnak": s.mainsnak, "type": "statement", "rank": "normal"}
	if len(s.qualifiers) > 0 {
		out["qualifiers"] = s.qualifiers
	}
	return out
}

// Q adds a qualifier snak.
func (s *Stmt) Q(prop string, snak Snak) *Stmt {
	if s.qualifiers == nil {
		s.qualifiers = map[string][]Snak{}
	}
	snak["property"] = prop
	s.qualifiers[prop] = append(s.qualifiers[prop], snak)
	return s
}

// Start adds a start time qualifier.
func (s *Stmt) Start(t string) *Stmt { return s.Q(types.PropStartTime, TimeSnak(t)) }

// End adds an end time qualifier.
func (s *Stmt) End(t string) *Stmt { return s.Q(types.PropEndTime, TimeSnak(t)) }

// At adds a point in time qualifier.
func (s *Stmt) At(t string) *Stmt { return s.Q(types.PropPointInTime, TimeSnak(t)) }

func stmt(datatype string, value any) *Stmt {
	return &Stmt{mainsnak: Snak{
		"snaktype":  types.SnakValue,
		"datavalue": map[string]any{"type": datatype, "value": value},
	}}
}

// Item is a statement referencing another entity.
func Item(id string) *Stmt {
	return stmt("wikibase-entityid", ItemValue(id))
}

// String is a statement with a plain string value.
func String(v string) *Stmt { return stmt("string", v) }

// Quantity is a statement with a quantity value.
func Quantity(amount, unit string) *Stmt {
	return stmt("quantity", map[string]any{"amount": amount, "unit": unit})
}

// Coord is a statement with a globe coordinate.
func Coord(lat, lon float64) *Stmt {
	return stmt("globecoordinate", map[string]any{
		"latitude": lat, "longitude": lon, "precision": 0.0001,
		"globe": "http://www.wikidata.org/entity/Q2",
	})
}

// Text is a statement with a monolingual text value.
func Text(lang, text string) *Stmt {
	return stmt("monolingualtext", map[string]any{"language": lang, "text": text})
}

// NoValue is a statement whose snak is "no value".
func NoValue() *Stmt { return &Stmt{mainsnak: Snak{"snaktype": types.SnakNoValue}} }

// SomeValue is a statement whose snak is "unknown value".
func SomeValue() *Stmt { return &Stmt{mainsnak: Snak{"snaktype": types.SnakSomeValue}} }

// ItemValue is the payload of an entity reference.
func ItemValue(id string) map[string]any {
	return map[string]any{"entity-type": "item", "id": id}
}

// TimeSnak is a qualifier snak carrying a time.
func TimeSnak(t string) Snak {
	return Snak{
		"snaktype": types.SnakValue,
		"datavalue": map[string]any{"type": "time", "value": map[string]any{
			"time": t, "timezone": 0, "before": 0, "after": 0, "precision": 11,
			"calendarmodel": "http://www.wikidata.org/entity/Q1985727",
		}},
	}
}

// ItemSnak is a qualifier snak referencing an entity.
func ItemSnak(id string) Snak {
	return Snak{
		"snaktype":  types.SnakValue,
		"datavalue": map[string]any{"type": "wikibase-entityid", "value": ItemValue(id)},
	}
}

// SomeValueSnak is a qualifier snak with an unknown value.
func SomeValueSnak() Snak { return Snak{"snaktype": types.SnakSomeValue} }
