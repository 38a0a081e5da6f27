package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posts(ids ...string) []Post {
	out := make([]Post, len(ids))
	for i, id := range ids {
		out[i] = Post{ID: id, Title: "title " + id, Body: "body " + id}
	}
	return out
}

func resultIDs(results []SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestMergeSearchResults(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		title []Post
		body  []Post
		want  []string
	}{
		{
			name:  "title matches come first",
			limit: 5,
			title: posts("t1", "t2"),
			body:  posts("b1", "b2"),
			want:  []string{"t1", "t2", "b1", "b2"},
		},
		{
			name:  "post matching both indices appears once",
			limit: 5,
			title: posts("p1", "p2"),
			body:  posts("p2", "p3", "p1"),
			want:  []string{"p1", "p2", "p3"},
		},
		{
			name:  "stops at limit within title matches",
			limit: 2,
			title: posts("t1", "t2", "t3"),
			body:  posts("b1"),
			want:  []string{"t1", "t2"},
		},
		{
			name:  "stops at limit within body matches",
			limit: 3,
			title: posts("t1"),
			body:  posts("b1", "b2", "b3"),
			want:  []string{"t1", "b1", "b2"},
		},
		{
			name:  "duplicates do not count towards limit",
			limit: 3,
			title: posts("a", "b"),
			body:  posts("a", "b", "c", "d"),
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "zero limit",
			limit: 0,
			title: posts("a"),
			want:  []string{},
		},
		{
			name:  "negative limit",
			limit: -1,
			title: posts("a"),
			want:  []string{},
		},
		{
			name:  "no matches",
			limit: 5,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeSearchResults(tt.limit, tt.title, tt.body)
			assert.Equal(t, tt.want, resultIDs(got))
		})
	}
}

func TestMergeSearchResults_Properties(t *testing.T) {
	// Exhaustively overlap a title and body result set at several limits.
	all := posts("a", "b", "c", "d", "e", "f")
	for limit := 1; limit <= 8; limit++ {
		for split := 0; split <= len(all); split++ {
			title := all[:split]
			body := append(append([]Post{}, all[split/2:]...), all[:split]...)

			t.Run(fmt.Sprintf("limit=%d/split=%d", limit, split), func(t *testing.T) {
				got := MergeSearchResults(limit, title, body)

				assert.LessOrEqual(t, len(got), limit)

				seen := make(map[string]bool)
				for _, r := range got {
					assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
					seen[r.ID] = true
				}

				// Every title match that fits must precede body-only matches.
				titleCount := min(len(title), limit)
				for i := 0; i < titleCount; i++ {
					assert.Equal(t, title[i].ID, got[i].ID)
				}
			})
		}
	}
}

func TestSearchPosts_Properties(t *testing.T) {
	all := posts("a", "b", "c", "d", "e", "f")
	for limit := 1; limit <= 8; limit++ {
		for split := 0; split <= len(all); split++ {
			title := all[:split]
			body := append(append([]Post{}, all[split/2:]...), all[:split]...)

			t.Run(fmt.Sprintf("limit=%d/split=%d", limit, split), func(t *testing.T) {
				f := newServiceFixture(t)
				f.store.titleHits = title
				f.store.bodyHits = body

				got, err := f.blog.SearchPosts(context.Background(), "term", limit)
				require.NoError(t, err)

				assert.LessOrEqual(t, len(got), limit)
				assert.Equal(t, resultIDs(MergeSearchResults(limit, title, body)), resultIDs(got))

				seen := make(map[string]bool)
				for _, r := range got {
					assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
					seen[r.ID] = true
				}

				titleCount := min(len(title), limit)
				for i := 0; i < titleCount; i++ {
					assert.Equal(t, title[i].ID, got[i].ID)
				}
				if titleCount == limit {
					assert.Zero(t, f.store.bodyCalls)
				} else {
					assert.Equal(t, 1, f.store.bodyCalls)
				}
			})
		}
	}
}

func TestNormalizeSearch(t *testing.T) {
	term, limit, ok := normalizeSearch("  go  ", 5)
	assert.True(t, ok)
	assert.Equal(t, "go", term)
	assert.Equal(t, 5, limit)

	_, _, ok = normalizeSearch(" g ", 5)
	assert.False(t, ok, "single character term")

	_, _, ok = normalizeSearch("golang", 0)
	assert.False(t, ok, "zero limit")

	_, limit, ok = normalizeSearch("golang", 500)
	assert.True(t, ok)
	assert.Equal(t, MaxSearchLimit, limit)

	_, _, ok = normalizeSearch("日本", 3)
	assert.True(t, ok, "length counts runes")
}

func TestSearchPosts_SkipsBodyIndexWhenTitlesFillLimit(t *testing.T) {
	f := newServiceFixture(t)
	f.store.titleHits = posts("t1", "t2", "t3")
	f.store.bodyHits = posts("b1")

	results, err := f.blog.SearchPosts(context.Background(), "term", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t2", "t3"}, resultIDs(results))
	assert.Equal(t, 1, f.store.titleCalls)
	assert.Equal(t, 0, f.store.bodyCalls)
}

func TestSearchPosts_FallsBackToBodyIndex(t *testing.T) {
	f := newServiceFixture(t)
	f.store.titleHits = posts("p1")
	f.store.bodyHits = posts("p1", "p2")

	results, err := f.blog.SearchPosts(context.Background(), "term", 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, resultIDs(results))
	assert.Equal(t, 1, f.store.bodyCalls)
}

func TestSearchPosts_ShortTermDoesNotQuery(t *testing.T) {
	f := newServiceFixture(t)
	f.store.titleHits = posts("p1")

	results, err := f.blog.SearchPosts(context.Background(), "p", 5)
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Equal(t, 0, f.store.titleCalls)
}

func TestSearchTokens(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{term: "Hello World", want: []string{"hello", "world"}},
		{term: `  "go"* OR -rust  `, want: []string{"go", "or", "rust"}},
		{term: "café-2024", want: []string{"café", "2024"}},
		{term: "--", want: nil},
		{term: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchTokens(tt.term))
		})
	}
}
