package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/brandon/postbymail/internal/content"
)

// SearchArticlesTool searches published articles
type SearchArticlesTool struct {
	store ArticleStore
}

// NewSearchArticlesTool creates a new search articles tool
func NewSearchArticlesTool(store ArticleStore) *SearchArticlesTool {
	return &SearchArticlesTool{store: store}
}

// Name returns the tool name
func (t *SearchArticlesTool) Name() string {
	return "search_articles"
}

// Description returns the tool description
func (t *SearchArticlesTool) Description() string {
	return "Full-text search over published articles (title, summary, body) with an optional category filter"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SearchArticlesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Words or phrase to match",
			},
			"category_id": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Only articles in this category",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Result limit (default: 100, max: 1000)",
				"minimum":     1,
				"maximum":     1000,
			},
		},
	}
}

// Execute executes the tool
func (t *SearchArticlesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	opts := content.SearchOptions{}

	if query, ok := params["query"].(string); ok {
		opts.Query = query
	}
	if catID, ok := intParam(params, "category_id"); ok {
		opts.CatID = &catID
	}
	if limit, ok := intParam(params, "limit"); ok {
		opts.Limit = limit
	}

	results, err := t.store.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}

	articles := make([]map[string]interface{}, len(results))
	for i, a := range results {
		articles[i] = map[string]interface{}{
			"id":      a.ID,
			"title":   a.Title,
			"alias":   a.Alias,
			"catid":   a.CatID,
			"created": a.Created.Format(time.RFC3339),
			"snippet": a.Snippet,
		}
	}

	return map[string]interface{}{
		"count":    len(articles),
		"articles": articles,
	}, nil
}
