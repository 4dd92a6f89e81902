package tools

import (
	"context"
	"fmt"
	"time"
)

// GetArticleTool retrieves one article
type GetArticleTool struct {
	store ArticleStore
}

// NewGetArticleTool creates a new get article tool
func NewGetArticleTool(store ArticleStore) *GetArticleTool {
	return &GetArticleTool{store: store}
}

// Name returns the tool name
func (t *GetArticleTool) Name() string {
	return "get_article"
}

// Description returns the tool description
func (t *GetArticleTool) Description() string {
	return "Get a published article by ID, including its summary and body markup"
}

// InputSchema returns the JSON schema for tool inputs
func (t *GetArticleTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "integer",
				"description": "Article ID",
			},
		},
		"required": []string{"id"},
	}
}

// Execute executes the tool
func (t *GetArticleTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, ok := intParam(params, "id")
	if !ok {
		return nil, fmt.Errorf("id is required")
	}

	article, err := t.store.GetArticle(ctx, int64(id))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":         article.ID,
		"title":      article.Title,
		"alias":      article.Alias,
		"catid":      article.CatID,
		"created_by": article.CreatedBy,
		"created":    article.Created.Format(time.RFC3339),
		"introtext":  article.IntroText,
		"fulltext":   article.FullText,
		"images":     article.Images,
	}, nil
}
