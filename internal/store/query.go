// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Tables lists the fact tables in the order Stats reports them.
var Tables = []string{
	"countries",
	"territorial_entities",
	"territorial_entity_parents",
	"object_languages",
	"object_labels",
	"languages",
	"missing_country",
	"city_countries",
	"cities",
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table" yaml:"table"`
	Rows  int64  `json:"rows" yaml:"rows"`
}

// Stats counts the rows of every fact table.
func (s *Store) Stats(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// NearbyCity is a stored city with its distance from a query point.
type NearbyCity struct {
	ID         string  `json:"id" yaml:"id"`
	Label      string  `json:"label,omitempty" yaml:"label,omitempty"`
	CountryID  string  `json:"country_id,omitempty" yaml:"country_id,omitempty"`
	Population *uint64 `json:"population,omitempty" yaml:"population,omitempty"`
	Lat        float64 `json:"lat" yaml:"lat"`
	Lon        float64 `json:"lon" yaml:"lon"`
	DistanceKm float64 `json:"distance_km" yaml:"distance_km"`
}

const earthRadiusKm = 6371.0088

// Near returns up to limit cities in the cell of the query point and its
// neighbours, closest first. Ties go to the larger population.
func (s *Store) Near(ctx context.Context, lat, lon float64, limit int, lang string) ([]NearbyCity, error) {
	query := s2.LatLngFromDegrees(lat, lon)
	if !query.IsValid() {
		return nil, fmt.Errorf("invalid coordinates %g,%g", lat, lon)
	}
	if limit <= 0 {
		limit = 10
	}

	cells := neighbourhood(cellOf(query))
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
	args := []any{lang}
	for _, c := range cells {
		args = append(args, int64(c))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.population, c.lat, c.lon,
			(SELECT label FROM object_labels l WHERE l.id = c.id AND l.lang = ? AND l.plain = 1 ORDER BY l.label LIMIT 1),
			(SELECT country_id FROM city_countries cc WHERE cc.id = c.id ORDER BY cc.priority LIMIT 1)
		 FROM cities c
		 WHERE c.s2_cell IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cities: %w", err)
	}
	defer rows.Close()

	var found []NearbyCity
	for rows.Next() {
		var (
			c       NearbyCity
			pop     sql.NullInt64
			label   sql.NullString
			country sql.NullString
		)
		if err := rows.Scan(&c.ID, &pop, &c.Lat, &c.Lon, &label, &country); err != nil {
			return nil, fmt.Errorf("scanning city: %w", err)
		}
		if pop.Valid {
			p := uint64(pop.Int64)
			c.Population = &p
		}
		c.Label, c.CountryID = label.String, country.String
		c.DistanceKm = angleKm(query.Distance(s2.LatLngFromDegrees(c.Lat, c.Lon)))
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].DistanceKm != found[j].DistanceKm {
			return found[i].DistanceKm < found[j].DistanceKm
		}
		pi, pj := population(found[i]), population(found[j])
		if pi != pj {
			return pi > pj
		}
		return found[i].ID < found[j].ID
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func population(c NearbyCity) uint64 {
	if c.Population == nil {
		return 0
	}
	return *c.Population
}

func angleKm(a s1.Angle) float64 {
	return math.Round(a.Radians()*earthRadiusKm*1000) / 1000
}

// neighbourhood returns a cell with its edge and corner neighbours.
func neighbourhood(cell s2.CellID) []s2.CellID {
	seen := map[s2.CellID]bool{cell: true}
	cells := []s2.CellID{cell}
	for _, edge := range cell.EdgeNeighbors() {
		if !seen[edge] {
			seen[edge] = true
			cells = append(cells, edge)
		}
		for _, corner := range edge.EdgeNeighbors() {
			if !seen[corner] {
				seen[corner] = true
				cells = append(cells, corner)
			}
		}
	}
	return cells
}

// Place is everything stored about one entity.
type Place struct {
	ID            string            `json:"id" yaml:"id"`
	ISO           string            `json:"iso,omitempty" yaml:"iso,omitempty"`
	Subdivision   string            `json:"subdivision_iso,omitempty" yaml:"subdivision_iso,omitempty"`
	Parents       []string          `json:"parents,omitempty" yaml:"parents,omitempty"`
	Countries     []string          `json:"countries,omitempty" yaml:"countries,omitempty"`
	Languages     []string          `json:"languages,omitempty" yaml:"languages,omitempty"`
	Population    *uint64           `json:"population,omitempty" yaml:"population,omitempty"`
	Lat           *float64          `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon           *float64          `json:"lon,omitempty" yaml:"lon,omitempty"`
	Labels        map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	NativeLabels  []string          `json:"native_labels,omitempty" yaml:"native_labels,omitempty"`
	WikimediaCode string            `json:"wikimedia_code,omitempty" yaml:"wikimedia_code,omitempty"`
}

// Place collects the stored facts of one entity. It reports false when
// nothing is stored for id.
func (s *Store) Place(ctx context.Context, id string) (*Place, bool, error) {
	p := &Place{ID: id}
	found := false

	scalar := func(query string, dest ...any) error {
		err := s.db.QueryRowContext(ctx, query, id).Scan(dest...)
		if err == sql.ErrNoRows {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	}
	list := func(query string) ([]string, error) {
		rows, err := s.db.QueryContext(ctx, query, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []string
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if len(out) > 0 {
			found = true
		}
		return out, rows.Err()
	}

	var (
		sub      sql.NullString
		pop      sql.NullInt64
		lat, lon sql.NullFloat64
		err      error
	)
	if err = scalar(`SELECT iso FROM countries WHERE id = ?`, &p.ISO); err != nil {
		return nil, false, fmt.Errorf("reading country: %w", err)
	}
	if err = scalar(`SELECT iso FROM territorial_entities WHERE id = ?`, &sub); err != nil {
		return nil, false, fmt.Errorf("reading territorial entity: %w", err)
	}
	if err = scalar(`SELECT population, lat, lon FROM cities WHERE id = ?`, &pop, &lat, &lon); err != nil {
		return nil, false, fmt.Errorf("reading city: %w", err)
	}
	if err = scalar(`SELECT wikimedia_code FROM languages WHERE id = ?`, &p.WikimediaCode); err != nil {
		return nil, false, fmt.Errorf("reading language: %w", err)
	}
	if p.Parents, err = list(`SELECT parent_id FROM territorial_entity_parents WHERE id = ? ORDER BY parent_id`); err != nil {
		return nil, false, fmt.Errorf("reading parents: %w", err)
	}
	if p.Countries, err = list(`SELECT country_id FROM city_countries WHERE id = ? ORDER BY priority, country_id`); err != nil {
		return nil, false, fmt.Errorf("reading countries: %w", err)
	}
	if p.Languages, err = list(`SELECT lang_id FROM object_languages WHERE id = ? ORDER BY idx, lang_id`); err != nil {
		return nil, false, fmt.Errorf("reading languages: %w", err)
	}
	if p.NativeLabels, err = list(`SELECT label FROM object_labels WHERE id = ? AND native_order IS NOT NULL ORDER BY native_order, label`); err != nil {
		return nil, false, fmt.Errorf("reading native labels: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT lang, label FROM object_labels WHERE id = ? AND plain = 1 ORDER BY lang, label`, id)
	if err != nil {
		return nil, false, fmt.Errorf("reading labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang, label string
		if err := rows.Scan(&lang, &label); err != nil {
			return nil, false, fmt.Errorf("scanning label: %w", err)
		}
		if p.Labels == nil {
			p.Labels = map[string]string{}
		}
		if _, ok := p.Labels[lang]; !ok {
			p.Labels[lang] = label
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	p.Subdivision = sub.String
	if pop.Valid {
		n := uint64(pop.Int64)
		p.Population = &n
	}
	if lat.Valid && lon.Valid {
		p.Lat, p.Lon = &lat.Float64, &lon.Float64
	}
	return p, found, nil
}
