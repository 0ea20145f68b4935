package classes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/wikiplace/internal/httputil"
	"github.com/pdiddy/wikiplace/pkg/types"
)

const entityPrefix = "http://www.wikidata.org/entity/"

// sparqlResponse mirrors the SPARQL 1.1 JSON results format.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// subclassQuery selects every transitive subclass of the roots, roots included.
func subclassQuery(roots []string) string {
	values := make([]string, len(roots))
	for i, r := range roots {
		values[i] = "wd:" + r
	}
	return fmt.Sprintf(
		"SELECT DISTINCT ?class WHERE { VALUES ?root { %s } ?class wdt:P279* ?root . }",
		strings.Join(values, " "),
	)
}

// Fetch builds the index by querying the SPARQL endpoint once per set.
// Any failed query fails the whole fetch.
func Fetch(ctx context.Context, client *http.Client, cfg types.ClassesConfig, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	roots := rootsByName(cfg.Roots)
	idx := &Index{}
	for _, ns := range idx.Sets() {
		set, err := fetchSet(ctx, client, cfg, roots[ns.Name])
		if err != nil {
			return nil, fmt.Errorf("fetching %s classes: %w", ns.Name, err)
		}
		*idx.set(ns.Name) = set
		logger.Info("fetched class set", "set", ns.Name, "roots", roots[ns.Name], "classes", len(set))
	}
	return idx, nil
}

func fetchSet(ctx context.Context, client *http.Client, cfg types.ClassesConfig, roots []string) (Set, error) {
	if len(roots) == 0 {
		return Set{}, nil
	}

	q := url.Values{}
	q.Set("query", subclassQuery(roots))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("SPARQL request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SPARQL endpoint returned HTTP %d", resp.StatusCode)
	}

	var sr sparqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SPARQL response: %w", err)
	}

	set := make(Set, len(sr.Results.Bindings))
	for _, b := range sr.Results.Bindings {
		v, ok := b["class"]
		if !ok || v.Type != "uri" || !strings.HasPrefix(v.Value, entityPrefix) {
			continue
		}
		set[strings.TrimPrefix(v.Value, entityPrefix)] = struct{}{}
	}
	// The roots belong to their own set even if the endpoint omits them.
	for _, r := range roots {
		set[r] = struct{}{}
	}
	return set, nil
}

func rootsByName(r types.ClassRoots) map[string][]string {
	return map[string][]string{
		"territorial_entities":    r.TerritorialEntities,
		"human_settlements":       r.HumanSettlements,
		"excluded":                r.Excluded,
		"excluded_settlements":    r.ExcludedSettlements,
		"second_level_admin_divs": r.SecondLevelAdminDivs,
		"languages":               r.Languages,
	}
}
