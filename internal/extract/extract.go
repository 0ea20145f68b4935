// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns one dump line into the ordered facts it yields.
//
// Extraction is a pure function of the line, the class index and the
// evaluation time: the same inputs always produce the same facts in the
// same order. Problems with individual statements are traced and skipped;
// only an unparseable line is reported as an error.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/wikiplace/internal/classes"
	"github.com/pdiddy/wikiplace/internal/temporal"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// ErrMissingID is returned for records without an id.
var ErrMissingID = errors.New("record has no id")

// Extractor runs classification and extraction against a fixed class index.
// It is safe for concurrent use.
type Extractor struct {
	classes *classes.Index
	logger  *slog.Logger
}

// New returns an Extractor. Per-record diagnostics go to logger at debug
// level; a nil logger discards them.
func New(idx *classes.Index, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{classes: idx, logger: logger}
}

// Extract parses one dump line and returns its facts. Blank lines and the
// array boundary lines yield nothing.
func (x *Extractor) Extract(line []byte, now time.Time) ([]types.Fact, error) {
	if len(line) <= 1 {
		return nil, nil
	}
	line = bytes.TrimSuffix(line, []byte(","))

	e, err := types.ParseEntity(line)
	if err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, ErrMissingID
	}
	return x.ExtractEntity(e, now), nil
}

// ExtractEntity runs exclusion, the country code step, classification and
// the applicable handlers on a parsed entity.
func (x *Extractor) ExtractEntity(e *types.Entity, now time.Time) []types.Fact {
	r := &run{entity: e, now: now, trace: newTrace(x.logger, e.ID)}

	if reason := exclusion(e); reason != "" {
		r.trace.skip("entity", reason)
		return nil
	}

	r.countryCode()

	cat := classes.Classify(e, x.classes, now)
	r.trace.classified(cat)

	if cat.IsTerritorialEntity() {
		r.territorialEntity(cat.Has(classes.SecondLevelAdminDiv))
	}
	if cat.IsHumanSettlement() {
		r.humanSettlement()
	}
	if cat.IsLanguage() {
		r.language()
	}
	r.trace.done(r.facts)
	return r.facts
}

// exclusion returns why an entity is dropped entirely, or "" to keep it.
// Dissolved entities are dropped, as are entities replaced outright; a
// replacement qualified with "applies to part" only replaces a part.
func exclusion(e *types.Entity) string {
	if len(e.Claims[types.PropDissolved]) > 0 {
		return "has dissolved date"
	}
	for _, st := range e.Claims[types.PropReplacedBy] {
		if !st.Qualifiers.Has(types.PropAppliesToPart) {
			return "replaced by another entity"
		}
	}
	return ""
}

// run accumulates the facts of one entity.
type run struct {
	entity *types.Entity
	now    time.Time
	trace  trace
	facts  []types.Fact
}

func (r *run) emit(f types.Fact) {
	r.facts = append(r.facts, f)
}

func (r *run) id() string { return r.entity.ID }

// countryCode emits the ISO 3166-1 code and official languages of
// entities carrying an ISO 3166-1 code, whatever their classes.
func (r *run) countryCode() {
	codes, ok := r.entity.Claims[types.PropISO31661]
	if !ok {
		return
	}

	for _, st := range codes {
		if !temporal.IsActive(st.Qualifiers, r.now) {
			continue
		}
		if iso, ok := st.MainSnak.StringValue(); ok {
			r.emit(types.Country{ID: r.id(), ISO: strings.ToLower(iso)})
		} else {
			r.trace.skip(types.PropISO31661, "code is not a string")
		}
		break
	}

	index := 0
	for _, st := range r.entity.Claims[types.PropOfficialLanguage] {
		if !temporal.IsActive(st.Qualifiers, r.now) {
			continue
		}
		langID, ok := st.MainSnak.EntityID()
		if !ok {
			continue
		}
		r.emit(types.ObjectLanguage{ID: r.id(), LangID: langID, Index: index})
		index++
	}
}

// summarize counts facts per kind for tracing.
func summarize(facts []types.Fact) string {
	counts := map[types.FactKind]int{}
	for _, f := range facts {
		counts[f.Kind()]++
	}
	var parts []string
	for _, k := range types.AllKinds {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return strings.Join(parts, " ")
}
