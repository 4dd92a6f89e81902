package content

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/brandon/postbymail/pkg/types"
)

// newTestStore creates an in-memory store that is closed when the test completes.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	database, err := NewDatabase(MemoryPath, logger)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}

	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	return NewStore(database, logger)
}

func testArticle(title string) *types.Article {
	now := time.Date(2025, 6, 27, 10, 30, 0, 0, time.UTC)
	return &types.Article{
		Title:     title,
		Alias:     "test-blog-1",
		IntroText: "<p>Para one.</p>\n",
		FullText:  "<p>Para two.</p>\n",
		CatID:     14,
		CreatedBy: 42,
		Created:   now,
		PublishUp: now,
		State:     1,
		Language:  "*",
		Access:    1,
		Images:    "{}",
		URLs:      "{}",
		Attribs:   "{}",
		Metadata:  "{}",
		Version:   1,
	}
}

func TestPublishWritesArticleAndDerivedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Publish(ctx, testArticle("Test Blog 1"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("Publish() id = %d, want positive", id)
	}

	got, err := s.GetArticle(ctx, id)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if got.Title != "Test Blog 1" {
		t.Errorf("Title: got %q, want %q", got.Title, "Test Blog 1")
	}
	if got.IntroText != "<p>Para one.</p>\n" {
		t.Errorf("IntroText: got %q", got.IntroText)
	}
	if got.CatID != 14 || got.CreatedBy != 42 {
		t.Errorf("CatID/CreatedBy: got %d/%d, want 14/42", got.CatID, got.CreatedBy)
	}
	if want := "2025-06-27 10:30:00"; got.Created.Format(TimeLayout) != want {
		t.Errorf("Created: got %q, want %q", got.Created.Format(TimeLayout), want)
	}

	db := s.database.DB()

	var body string
	if err := db.Get(&body, "SELECT core_body FROM ucm_content WHERE core_content_item_id = ?", id); err != nil {
		t.Fatalf("reading ucm_content: %v", err)
	}
	if body != "<p>Para one.</p>\n<p>Para two.</p>\n" {
		t.Errorf("core_body: got %q", body)
	}

	var baseCount, workflowCount int
	if err := db.Get(&baseCount, "SELECT COUNT(*) FROM ucm_base WHERE ucm_item_id = ?", id); err != nil {
		t.Fatalf("reading ucm_base: %v", err)
	}
	if err := db.Get(&workflowCount, "SELECT COUNT(*) FROM workflow_associations WHERE item_id = ? AND extension = ?", id, ArticleTypeAlias); err != nil {
		t.Fatalf("reading workflow_associations: %v", err)
	}
	if baseCount != 1 || workflowCount != 1 {
		t.Errorf("derived rows: got ucm_base=%d workflow=%d, want 1/1", baseCount, workflowCount)
	}

	orphans, err := s.Orphans(ctx)
	if err != nil {
		t.Fatalf("Orphans() error = %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("Orphans(): got %d, want 0", len(orphans))
	}
}

func TestTitleExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	exists, err := s.TitleExists(ctx, "Test Blog 1")
	if err != nil {
		t.Fatalf("TitleExists() error = %v", err)
	}
	if exists {
		t.Fatal("TitleExists() on empty store = true, want false")
	}

	if _, err := s.Publish(ctx, testArticle("Test Blog 1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	tests := []struct {
		title string
		want  bool
	}{
		{"Test Blog 1", true},
		{"test blog 1", false},
		{"Test Blog 1 ", false},
		{"Test Blog", false},
	}

	for _, tt := range tests {
		got, err := s.TitleExists(ctx, tt.title)
		if err != nil {
			t.Fatalf("TitleExists(%q) error = %v", tt.title, err)
		}
		if got != tt.want {
			t.Errorf("TitleExists(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetArticle(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetArticle() error = %v, want ErrNotFound", err)
	}
}

func TestOrphansReportsMissingDerivedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Publish(ctx, testArticle("Complete"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Simulate a writer that crashed between the primary row and its derived rows.
	if _, err := s.database.DB().Exec(
		"INSERT INTO content (title, alias, catid, created, created_by) VALUES (?, ?, ?, ?, ?)",
		"Partial", "partial", 14, "2025-06-27 10:30:00", 42,
	); err != nil {
		t.Fatalf("inserting partial article: %v", err)
	}
	if _, err := s.database.DB().Exec("DELETE FROM ucm_base WHERE ucm_item_id = ?", id); err != nil {
		t.Fatalf("deleting ucm_base row: %v", err)
	}

	orphans, err := s.Orphans(ctx)
	if err != nil {
		t.Fatalf("Orphans() error = %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("Orphans(): got %d, want 2", len(orphans))
	}

	if orphans[0].Title != "Complete" || !orphans[0].MissingUCMBase || orphans[0].MissingUCMContent || orphans[0].MissingWorkflowLink {
		t.Errorf("orphan[0]: got %+v", orphans[0])
	}
	if orphans[1].Title != "Partial" || !orphans[1].MissingUCMContent || !orphans[1].MissingUCMBase || !orphans[1].MissingWorkflowLink {
		t.Errorf("orphan[1]: got %+v", orphans[1])
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := testArticle("Harbour walk")
	first.IntroText = "<p>Boats &amp; gulls along the quay.</p>\n"
	second := testArticle("Market day")
	second.IntroText = "<p>Cheese and bread.</p>\n"
	second.CatID = 7

	for _, a := range []*types.Article{first, second} {
		if _, err := s.Publish(ctx, a); err != nil {
			t.Fatalf("Publish(%q) error = %v", a.Title, err)
		}
	}

	results, err := s.Search(ctx, SearchOptions{Query: "gulls"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Title != "Harbour walk" {
		t.Fatalf("Search(gulls): got %+v", results)
	}
	if results[0].Snippet != "Boats & gulls along the quay." {
		t.Errorf("Snippet: got %q", results[0].Snippet)
	}

	cat := 7
	results, err = s.Search(ctx, SearchOptions{CatID: &cat})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Title != "Market day" {
		t.Errorf("Search(catid=7): got %+v", results)
	}

	count, err := s.CountArticles(ctx)
	if err != nil {
		t.Fatalf("CountArticles() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountArticles(): got %d, want 2", count)
	}
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	markup := "<p>" + strings.Repeat("é", 250) + "</p>"

	got := snippet(markup)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet() returned invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 200) + "..."; got != want {
		t.Errorf("snippet() length: got %d runes, want 203", utf8.RuneCountInString(got))
	}

	if got := snippet("<p>Fish &amp; chips</p>"); got != "Fish & chips" {
		t.Errorf("snippet() = %q, want %q", got, "Fish & chips")
	}
}
