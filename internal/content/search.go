package content

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/brandon/postbymail/pkg/types"
)

// SearchOptions contains search parameters
type SearchOptions struct {
	Query string
	CatID *int
	Limit int
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Search performs a full-text search over published articles
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]types.ArticleSummary, error) {
	var conditions []string
	var args []interface{}

	if query := strings.TrimSpace(opts.Query); query != "" {
		conditions = append(conditions, "c.id IN (SELECT rowid FROM content_fts WHERE content_fts MATCH ?)")
		args = append(args, ftsPhrase(query))
	}

	if opts.CatID != nil {
		conditions = append(conditions, "c.catid = ?")
		args = append(args, *opts.CatID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Set default limit
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.title, c.alias, c.catid, c.created, c.introtext
		FROM content c
		%s
		ORDER BY c.created DESC, c.id DESC
		LIMIT ?
	`, whereClause)

	args = append(args, limit)

	rows, err := s.database.DB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	var results []types.ArticleSummary
	for rows.Next() {
		var summary types.ArticleSummary
		var created, introText string

		if err := rows.Scan(
			&summary.ID,
			&summary.Title,
			&summary.Alias,
			&summary.CatID,
			&created,
			&introText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		summary.Created = parseTime(created)
		summary.Snippet = snippet(introText)

		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return results, nil
}

// ftsPhrase quotes a user query as a single FTS5 phrase
func ftsPhrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

const snippetLength = 200

// snippet strips markup from the summary and truncates it
func snippet(markup string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(markup, " "))
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > snippetLength {
		text = string(runes[:snippetLength]) + "..."
	}
	return text
}
