// ABOUTME: Name-matching heuristic linking AI reply text to catalog documents
// ABOUTME: Isolated here so it can be swapped for exact-id linking without touching the controller

package docs

import "strings"

// MatchByName returns the documents whose names occur as case-insensitive
// substrings of text, deduplicated by id in first-seen order.
//
// This is a best-effort heuristic, not an exact match. It over-matches when
// a short document name happens to appear inside unrelated prose, and
// under-matches when the reply paraphrases or abbreviates the name. Callers
// must treat the result as a suggestion set.
func MatchByName(text string, catalog []Document) []Document {
	lower := strings.ToLower(text)

	var matched []Document
	seen := make(map[string]bool)
	for _, doc := range catalog {
		if doc.Name == "" || seen[doc.ID] {
			continue
		}
		if strings.Contains(lower, strings.ToLower(doc.Name)) {
			matched = append(matched, doc)
			seen[doc.ID] = true
		}
	}
	return matched
}
