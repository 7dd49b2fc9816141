// ABOUTME: In-memory Directory implementation seeded from configuration
// ABOUTME: Serves catalogs for offline use and tests with the same query semantics as REST

package docs

import (
	"context"
	"sort"
	"strings"
)

// StaticDirectory serves a fixed catalog with the same query semantics as
// the REST implementation.
type StaticDirectory struct {
	documents []Document
}

// NewStaticDirectory creates a directory over a fixed catalog.
func NewStaticDirectory(documents []Document) *StaticDirectory {
	return &StaticDirectory{documents: documents}
}

// List returns the catalog ordered by last-modified descending. Documents
// without a last-modified date sort last, keeping declaration order.
func (d *StaticDirectory) List(ctx context.Context) ([]Document, error) {
	out := make([]Document, len(d.documents))
	copy(out, d.documents)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastModified, out[j].LastModified
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

// SearchByContent matches any token of length > 2 against title, content
// and summary.
func (d *StaticDirectory) SearchByContent(ctx context.Context, text string) ([]Document, error) {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) > 2 {
			tokens = append(tokens, word)
		}
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	all, _ := d.List(ctx)
	var matched []Document
	for _, doc := range all {
		haystack := strings.ToLower(doc.Name + " " + doc.Content + " " + doc.Summary)
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				matched = append(matched, doc)
				break
			}
		}
	}
	return matched, nil
}

// SearchByExactTitle prefers literal title substring matches, falling back
// to SearchByContent.
func (d *StaticDirectory) SearchByExactTitle(ctx context.Context, text string) ([]Document, error) {
	needle := strings.ToLower(text)
	all, _ := d.List(ctx)

	var exact []Document
	for _, doc := range all {
		if strings.Contains(strings.ToLower(doc.Name), needle) {
			exact = append(exact, doc)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return d.SearchByContent(ctx, text)
}
