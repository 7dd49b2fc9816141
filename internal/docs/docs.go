// ABOUTME: Document types and the Directory query interface
// ABOUTME: The document catalog lives in an external metadata store; this is its boundary

package docs

import (
	"context"
	"time"
)

// Document kinds.
const (
	KindPDF = "pdf"
	KindDoc = "doc"
	KindTxt = "txt"
)

// Document is a catalog entry owned by the external metadata store.
type Document struct {
	ID           string     `json:"id"`
	Name         string     `json:"title"`
	Size         string     `json:"size,omitempty"`
	Kind         string     `json:"type,omitempty"`
	Content      string     `json:"content,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	URL          string     `json:"url,omitempty"`
	SourceURL    string     `json:"source_url,omitempty"`
	LastModified *time.Time `json:"last_modified_date,omitempty"`
}

// Directory is the query contract against the document metadata store.
type Directory interface {
	// List returns all documents ordered by last-modified descending.
	List(ctx context.Context) ([]Document, error)

	// SearchByContent matches any token of length > 2 against title,
	// content and summary.
	SearchByContent(ctx context.Context, text string) ([]Document, error)

	// SearchByExactTitle prefers literal title substring matches, falling
	// back to SearchByContent when none exist.
	SearchByExactTitle(ctx context.Context, text string) ([]Document, error)
}
