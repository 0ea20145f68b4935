package extract

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/wikiplace/internal/temporal"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// population selects the most recent dimensionless population figure.
// Statements for a part of the population (a district, women, men) have
// no usable time and never win. Ties go to the later statement.
func (r *run) population() *uint64 {
	var (
		best     *uint64
		bestTime time.Time
		found    bool
	)
	for _, st := range r.entity.Claims[types.PropPopulation] {
		at, ok := pointInTime(st.Qualifiers)
		if !ok {
			continue
		}
		if found && at.Before(bestTime) {
			continue
		}
		q, ok := st.MainSnak.Quantity()
		if !ok {
			r.trace.skip(types.PropPopulation, "not a quantity")
			continue
		}
		if q.Unit != types.DimensionlessUnit {
			r.trace.skip(types.PropPopulation, "unit is not dimensionless")
			continue
		}
		n, ok := ParseQuantity(q.Amount)
		if !ok {
			r.trace.skip(types.PropPopulation, "unparseable amount "+q.Amount)
			continue
		}
		best, bestTime, found = &n, at, true
	}
	return best
}

// pointInTime returns the time a population figure refers to.
func pointInTime(q types.Qualifiers) (time.Time, bool) {
	for _, part := range []string{types.PropAppliesToPart, types.PropFemalePopulation, types.PropMalePopulation} {
		if q.Has(part) {
			return time.Time{}, false
		}
	}
	snak, ok := q.First(types.PropPointInTime)
	if !ok || !snak.IsValue() {
		return time.Time{}, false
	}
	tv, ok := snak.Time()
	if !ok {
		return time.Time{}, false
	}
	t, err := temporal.ParseTime(tv.Time, tv.Timezone)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseQuantity parses a quantity amount as an unsigned integer. Thousands
// separators, Unicode whitespace and a plus sign are ignored; fractions,
// negative amounts and amounts beyond math.MaxInt64 are rejected.
func ParseQuantity(s string) (uint64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '+' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil || n > math.MaxInt64 {
		return 0, false
	}
	return n, true
}
