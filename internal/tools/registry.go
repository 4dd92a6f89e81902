package tools

import (
	"context"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/brandon/postbymail/internal/content"
	"github.com/brandon/postbymail/pkg/types"
)

// ArticleStore is the read side of the content store
type ArticleStore interface {
	Search(ctx context.Context, opts content.SearchOptions) ([]types.ArticleSummary, error)
	GetArticle(ctx context.Context, id int64) (*types.Article, error)
	Orphans(ctx context.Context) ([]types.Orphan, error)
}

// Registry manages MCP tools
type Registry struct {
	logger *logrus.Logger
	store  ArticleStore
	tools  map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(store ArticleStore, logger *logrus.Logger) *Registry {
	reg := &Registry{
		logger: logger,
		store:  store,
		tools:  make(map[string]Tool),
	}

	reg.registerTools()
	return reg
}

// registerTools registers all available tools
func (r *Registry) registerTools() {
	toolList := []Tool{
		NewSearchArticlesTool(r.store),
		NewGetArticleTool(r.store),
		NewCheckOrphansTool(r.store),
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// GetToolDefinitions returns tool definitions for MCP, sorted by name
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	definitions := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}

// intParam reads a numeric argument sent as a JSON number or string
func intParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
