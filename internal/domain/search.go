package domain

import (
	"strings"
	"unicode"
)

const (
	// MinSearchTermLength is the shortest term worth querying the indices for.
	MinSearchTermLength = 2

	// MaxSearchLimit caps the number of results a single search may return.
	MaxSearchLimit = 20
)

// searchCollector gathers hits from successive index queries in arrival
// order. It drops IDs it has already seen and stops accepting once limit
// results are collected.
type searchCollector struct {
	limit   int
	seen    map[string]struct{}
	results []SearchResult
}

func newSearchCollector(limit int) *searchCollector {
	if limit < 0 {
		limit = 0
	}
	return &searchCollector{
		limit:   limit,
		seen:    make(map[string]struct{}, limit),
		results: make([]SearchResult, 0, limit),
	}
}

func (c *searchCollector) push(posts []Post) {
	for _, p := range posts {
		if c.full() {
			return
		}
		if _, ok := c.seen[p.ID]; ok {
			continue
		}
		c.seen[p.ID] = struct{}{}
		c.results = append(c.results, SearchResult{
			ID:    p.ID,
			Title: p.Title,
			Body:  p.Body,
		})
	}
}

func (c *searchCollector) full() bool {
	return len(c.results) >= c.limit
}

// MergeSearchResults combines the hits of several index queries into one
// list of at most limit unique posts. Earlier batches take priority, so
// title matches must be passed before body matches.
func MergeSearchResults(limit int, batches ...[]Post) []SearchResult {
	c := newSearchCollector(limit)
	for _, batch := range batches {
		if c.full() {
			break
		}
		c.push(batch)
	}
	return c.results
}

// normalizeSearch trims the term and clamps the limit. ok is false when the
// query should not reach the repository at all.
func normalizeSearch(term string, limit int) (string, int, bool) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchTermLength || limit <= 0 {
		return term, 0, false
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return term, limit, true
}

// SearchTokens splits a search term into lower-cased words made of letters
// and digits. Repositories build their index queries from these tokens so
// user input never reaches a query parser verbatim.
func SearchTokens(term string) []string {
	fields := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
