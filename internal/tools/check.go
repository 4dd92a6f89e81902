package tools

import (
	"context"
	"fmt"
)

// CheckOrphansTool lists articles missing derived rows
type CheckOrphansTool struct {
	store ArticleStore
}

// NewCheckOrphansTool creates a new orphan check tool
func NewCheckOrphansTool(store ArticleStore) *CheckOrphansTool {
	return &CheckOrphansTool{store: store}
}

// Name returns the tool name
func (t *CheckOrphansTool) Name() string {
	return "check_orphans"
}

// Description returns the tool description
func (t *CheckOrphansTool) Description() string {
	return "List articles that lack their UCM content, UCM base or workflow association rows"
}

// InputSchema returns the JSON schema for tool inputs
func (t *CheckOrphansTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *CheckOrphansTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	orphans, err := t.store.Orphans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check orphans: %w", err)
	}

	return map[string]interface{}{
		"count":   len(orphans),
		"orphans": orphans,
	}, nil
}
