package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/postbymail/internal/content"
	"github.com/brandon/postbymail/internal/tools"
	"github.com/brandon/postbymail/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	database, err := content.NewDatabase(content.MemoryPath, logger)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := content.NewStore(database, logger)
	now := time.Date(2025, 6, 27, 10, 30, 0, 0, time.UTC)
	_, err = store.Publish(context.Background(), &types.Article{
		Title:     "Harbour walk",
		Alias:     "harbour-walk",
		IntroText: "<p>Boats and gulls.</p>",
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
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	return NewServer(tools.NewRegistry(store, logger), "test", logger)
}

func runRequests(t *testing.T, s *Server, requests ...string) []map[string]interface{} {
	t.Helper()

	var out bytes.Buffer
	if err := s.Run(context.Background(), strings.NewReader(strings.Join(requests, "\n")), &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var responses []map[string]interface{}
	decoder := json.NewDecoder(&out)
	for decoder.More() {
		var resp map[string]interface{}
		if err := decoder.Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServerInitializeAndList(t *testing.T) {
	s := newTestServer(t)

	responses := runRequests(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("responses: got %d, want 2", len(responses))
	}

	info := responses[0]["result"].(map[string]interface{})["serverInfo"].(map[string]interface{})
	if info["name"] != "postbymail" || info["version"] != "test" {
		t.Errorf("serverInfo: got %v", info)
	}

	list := responses[1]["result"].(map[string]interface{})["tools"].([]interface{})
	var names []string
	for _, tool := range list {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	if got := strings.Join(names, ","); got != "check_orphans,get_article,search_articles" {
		t.Errorf("tools: got %q", got)
	}
}

func TestServerToolCalls(t *testing.T) {
	s := newTestServer(t)

	responses := runRequests(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_articles","arguments":{"query":"gulls"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_article","arguments":{"id":999}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"send_email","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
	)
	if len(responses) != 4 {
		t.Fatalf("responses: got %d, want 4", len(responses))
	}

	contentList := responses[0]["result"].(map[string]interface{})["content"].([]interface{})
	text := contentList[0].(map[string]interface{})["text"].(string)
	if !strings.Contains(text, `"title":"Harbour walk"`) || !strings.Contains(text, `"count":1`) {
		t.Errorf("search result: got %s", text)
	}

	wantCodes := []float64{-32603, -32601, -32601}
	for i, want := range wantCodes {
		rpcErr, ok := responses[i+1]["error"].(map[string]interface{})
		if !ok {
			t.Fatalf("response %d: expected error, got %v", i+2, responses[i+1])
		}
		if rpcErr["code"] != want {
			t.Errorf("response %d code: got %v, want %v", i+2, rpcErr["code"], want)
		}
	}
}
