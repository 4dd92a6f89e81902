package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/brandon/postbymail/pkg/types"
)

// TimeLayout is the layout used for all timestamp columns
const TimeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a requested article does not exist
var ErrNotFound = errors.New("article not found")

const (
	defaultLanguageID = 1
	defaultStageID    = 1
)

// Store provides methods for storing and retrieving articles
type Store struct {
	database *Database
	logger   *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(database *Database, logger *logrus.Logger) *Store {
	return &Store{
		database: database,
		logger:   logger,
	}
}

// TitleExists reports whether an article with exactly this title exists
func (s *Store) TitleExists(ctx context.Context, title string) (bool, error) {
	var id int64
	err := s.database.DB().GetContext(ctx, &id, "SELECT id FROM content WHERE title = ? LIMIT 1", title)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up title: %w", err)
	}
	return true, nil
}

// Publish stores the article together with its derived rows in a single
// transaction and returns the generated article ID
func (s *Store) Publish(ctx context.Context, article *types.Article) (int64, error) {
	tx, err := s.database.DB().BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	created := formatTime(article.Created)
	publishUp := formatTime(article.PublishUp)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO content (title, alias, introtext, fulltext, catid, created, created_by, publish_up, state, language, access, images, urls, attribs, metakey, metadesc, metadata, version, featured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		article.Title,
		article.Alias,
		article.IntroText,
		article.FullText,
		article.CatID,
		created,
		article.CreatedBy,
		publishUp,
		article.State,
		article.Language,
		article.Access,
		article.Images,
		article.URLs,
		article.Attribs,
		article.MetaKey,
		article.MetaDesc,
		article.Metadata,
		article.Version,
		article.Featured,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get article ID: %w", err)
	}

	typeID, err := contentTypeID(ctx, tx, ArticleTypeAlias)
	if err != nil {
		return 0, err
	}

	if err := deleteDerivedRows(ctx, tx, id); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ucm_content (core_content_item_id, core_title, core_alias, core_body, core_state, core_checked_out_time, core_access, core_params, core_metadata, core_created_time, core_created_user_id, core_modified_time, core_modified_user_id, core_publish_up, core_publish_down, core_images, core_urls, core_language, core_featured, core_type_alias, core_type_id, core_hits, core_version, core_ordering, core_metakey, core_metadesc, core_catid)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, 0, ?, NULL, ?, ?, ?, ?, ?, ?, 0, 1, 0, ?, ?, ?)
	`,
		id,
		article.Title,
		article.Alias,
		article.IntroText+article.FullText,
		article.State,
		article.Access,
		article.Attribs,
		article.Metadata,
		created,
		article.CreatedBy,
		created,
		publishUp,
		article.Images,
		article.URLs,
		article.Language,
		article.Featured,
		ArticleTypeAlias,
		typeID,
		article.MetaKey,
		article.MetaDesc,
		article.CatID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ucm content: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO ucm_base (ucm_item_id, ucm_type_id, ucm_language_id) VALUES (?, ?, ?)",
		id, typeID, defaultLanguageID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ucm base: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO workflow_associations (item_id, stage_id, extension) VALUES (?, ?, ?)",
		id, defaultStageID, ArticleTypeAlias,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert workflow association: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit article: %w", err)
	}

	article.ID = id
	s.logger.WithFields(logrus.Fields{
		"id":      id,
		"title":   article.Title,
		"type_id": typeID,
	}).Debug("Stored article")

	return id, nil
}

// contentTypeID resolves a content type alias to its ID
func contentTypeID(ctx context.Context, q sqlx.QueryerContext, alias string) (int, error) {
	var typeID int
	err := sqlx.GetContext(ctx, q, &typeID, "SELECT type_id FROM content_types WHERE type_alias = ?", alias)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve content type %s: %w", alias, err)
	}
	return typeID, nil
}

// deleteDerivedRows removes stale derived rows left behind for an article ID
func deleteDerivedRows(ctx context.Context, tx *sqlx.Tx, id int64) error {
	statements := []struct {
		query string
		args  []interface{}
	}{
		{"DELETE FROM ucm_content WHERE core_content_item_id = ? AND core_type_alias = ?", []interface{}{id, ArticleTypeAlias}},
		{"DELETE FROM ucm_base WHERE ucm_item_id = ?", []interface{}{id}},
		{"DELETE FROM workflow_associations WHERE item_id = ? AND extension = ?", []interface{}{id, ArticleTypeAlias}},
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("failed to clear derived rows: %w", err)
		}
	}
	return nil
}

// articleRow mirrors the content table for scanning
type articleRow struct {
	types.Article
	CreatedRaw   string         `db:"created"`
	PublishUpRaw sql.NullString `db:"publish_up"`
}

// GetArticle retrieves an article by ID
func (s *Store) GetArticle(ctx context.Context, id int64) (*types.Article, error) {
	var row articleRow
	err := s.database.DB().GetContext(ctx, &row, `
		SELECT id, title, alias, introtext, fulltext, catid, created, created_by, publish_up, state, language, access, images, urls, attribs, metakey, metadesc, metadata, version, featured
		FROM content
		WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	article := row.Article
	article.Created = parseTime(row.CreatedRaw)
	if row.PublishUpRaw.Valid {
		article.PublishUp = parseTime(row.PublishUpRaw.String)
	}
	return &article, nil
}

// Orphans lists articles that are missing one or more derived rows
func (s *Store) Orphans(ctx context.Context) ([]types.Orphan, error) {
	var orphans []types.Orphan
	err := s.database.DB().SelectContext(ctx, &orphans, `
		SELECT id, title, missing_ucm_content, missing_ucm_base, missing_workflow_link
		FROM (
			SELECT c.id, c.title,
				NOT EXISTS (SELECT 1 FROM ucm_content u WHERE u.core_content_item_id = c.id AND u.core_type_alias = ?) AS missing_ucm_content,
				NOT EXISTS (SELECT 1 FROM ucm_base b WHERE b.ucm_item_id = c.id) AS missing_ucm_base,
				NOT EXISTS (SELECT 1 FROM workflow_associations w WHERE w.item_id = c.id AND w.extension = ?) AS missing_workflow_link
			FROM content c
		)
		WHERE missing_ucm_content OR missing_ucm_base OR missing_workflow_link
		ORDER BY id
	`, ArticleTypeAlias, ArticleTypeAlias)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphans: %w", err)
	}
	return orphans, nil
}

// CountArticles returns the number of stored articles
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := s.database.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM content"); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
