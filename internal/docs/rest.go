// ABOUTME: REST-backed Directory implementation for a PostgREST-style metadata service
// ABOUTME: Builds filter expressions mirroring the hosted document table's query dialect

package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTDirectory queries a hosted document table over its REST interface.
type RESTDirectory struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRESTDirectory creates a directory client for the given service.
func NewRESTDirectory(baseURL, apiKey, table string, logger *slog.Logger) *RESTDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTDirectory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "docs"),
	}
}

// List returns all documents ordered by last-modified descending.
func (d *RESTDirectory) List(ctx context.Context) ([]Document, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "last_modified_date.desc")
	return d.get(ctx, query)
}

// SearchByContent matches any token of length > 2 against title, content and
// summary. Short tokens are dropped; no tokens means no results.
func (d *RESTDirectory) SearchByContent(ctx context.Context, text string) ([]Document, error) {
	var conditions []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) <= 2 {
			continue
		}
		conditions = append(conditions,
			fmt.Sprintf("title.ilike.*%s*", word),
			fmt.Sprintf("content.ilike.*%s*", word),
			fmt.Sprintf("summary.ilike.*%s*", word))
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "*")
	query.Set("or", "("+strings.Join(conditions, ",")+")")
	query.Set("order", "last_modified_date.desc")
	return d.get(ctx, query)
}

// SearchByExactTitle prefers literal title substring matches and falls back
// to SearchByContent when none exist.
func (d *RESTDirectory) SearchByExactTitle(ctx context.Context, text string) ([]Document, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("title", fmt.Sprintf("ilike.*%s*", text))
	query.Set("order", "last_modified_date.desc")

	exact, err := d.get(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return d.SearchByContent(ctx, text)
}

func (d *RESTDirectory) get(ctx context.Context, query url.Values) ([]Document, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", d.baseURL, d.table, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", d.apiKey)
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("document service returned status %d: %s", resp.StatusCode, string(body))
	}

	var documents []Document
	if err := json.NewDecoder(resp.Body).Decode(&documents); err != nil {
		return nil, fmt.Errorf("parsing document list: %w", err)
	}

	d.logger.Debug("documents fetched", "count", len(documents))
	return documents, nil
}
