package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/nnotes/internal/models"
	"github.com/starford/nnotes/internal/notestore"
	"github.com/starford/nnotes/internal/noteservice"
	"github.com/starford/nnotes/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.FailingProvider) {
	t.Helper()
	_, fs := testutil.TestDataDir(t)
	blobs := testutil.NewFailingProvider(fs, "index/")
	idx := testutil.TestIndex(t, blobs)
	svc := noteservice.NewService(notestore.New(blobs, notestore.DefaultKey), idx,
		noteservice.WithLogger(testutil.Logger()))
	return New(svc, "test"), blobs
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "rebuild_index":
		result, err = srv.rebuildIndex(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createdID(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	text := resultText(r)
	id, ok := strings.CutPrefix(text, "created: ")
	if r.IsError || !ok {
		t.Fatalf("create result = %q", text)
	}
	return id
}

func TestCreateListSearchDelete(t *testing.T) {
	srv, _ := testServer(t)

	id := createdID(t, callTool(t, srv, "create_note", map[string]interface{}{
		"title":   "Groceries",
		"content": "buy milk and eggs",
	}))

	var notes []models.Note
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_notes", nil))), &notes); err != nil {
		t.Fatalf("list_notes: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != id || notes[0].Title != "Groceries" {
		t.Errorf("notes = %+v", notes)
	}

	var hits []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	}
	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "milk"})
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("search_notes: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != id || hits[0].Score <= 0 {
		t.Errorf("hits = %+v", hits)
	}

	r = callTool(t, srv, "delete_note", map[string]interface{}{"id": id})
	if r.IsError || resultText(r) != "deleted: "+id {
		t.Errorf("delete result = %q", resultText(r))
	}
	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "milk"})
	if resultText(r) != "[]" {
		t.Errorf("search after delete = %q", resultText(r))
	}
}

func TestDeleteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "delete_note", map[string]interface{}{"id": "nope"})
	if !r.IsError || resultText(r) != "not found: nope" {
		t.Errorf("result = %q (error=%v)", resultText(r), r.IsError)
	}
}

func TestCreateRequiresArguments(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "only"})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestPartialFailureThenRebuild(t *testing.T) {
	srv, blobs := testServer(t)

	blobs.Fail(true)
	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "t", "content": "orphaned"})
	blobs.Fail(false)
	if !r.IsError || !strings.Contains(resultText(r), "rebuild_index") {
		t.Fatalf("create result = %q", resultText(r))
	}

	r = callTool(t, srv, "rebuild_index", nil)
	if resultText(r) != "indexed 1 notes" {
		t.Errorf("rebuild result = %q", resultText(r))
	}
	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "orphaned"})
	if resultText(r) == "[]" {
		t.Error("note not searchable after rebuild")
	}
}

func TestQuerySyntaxResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readQuerySyntax(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != querySyntaxURI || !strings.Contains(tc.Text, "title:milk") {
		t.Errorf("resource = %+v", contents[0])
	}
}
