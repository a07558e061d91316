package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

type runner struct {
	cfg *Config
}

func newRunner(t *testing.T, backend string) *runner {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Data.Path = t.TempDir()
	cfg.Index.Backend = backend
	cfg.App.LogLevel = 12 // above error: silent
	return &runner{cfg: cfg}
}

func (r *runner) run(t *testing.T, req Request) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := Run(context.Background(), req, WithConfig(r.cfg), WithOutput(&stdout, &stderr)); err != nil {
		t.Fatalf("Run(%+v): %v", req, err)
	}
	return stdout.String(), stderr.String()
}

var savedRe = regexp.MustCompile(`Note saved successfully! \(id: ([0-9a-f-]{36})\)`)

func (r *runner) create(t *testing.T, title, content string) string {
	t.Helper()
	out, errOut := r.run(t, Request{Mode: ModeCreate, Title: title, Content: content})
	m := savedRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("create output = %q (stderr %q)", out, errOut)
	}
	return m[1]
}

func TestRun_Lifecycle(t *testing.T) {
	for _, backend := range []string{BackendInverted, BackendSQLite, BackendBleve} {
		t.Run(backend, func(t *testing.T) {
			r := newRunner(t, backend)

			out, _ := r.run(t, Request{Mode: ModeList})
			if out != "No notes found\n" {
				t.Errorf("empty list = %q", out)
			}

			id := r.create(t, "Groceries", "buy milk and eggs")

			out, _ = r.run(t, Request{Mode: ModeList})
			want := "Note Id: " + id + "\nTitle: Groceries\nContent: buy milk and eggs\n-----------------------\n"
			if out != want {
				t.Errorf("list = %q, want %q", out, want)
			}

			out, _ = r.run(t, Request{Mode: ModeSearch, Query: "milk"})
			if !strings.Contains(out, "Note Id: "+id) || !strings.Contains(out, "Score: ") {
				t.Errorf("search = %q", out)
			}

			out, _ = r.run(t, Request{Mode: ModeSearch, Query: "nonexistent-term"})
			if out != "No notes found\n" {
				t.Errorf("no-match search = %q", out)
			}

			out, _ = r.run(t, Request{Mode: ModeDelete, ID: id})
			if out != "Note "+id+" deleted successfully!\n" {
				t.Errorf("delete = %q", out)
			}

			out, _ = r.run(t, Request{Mode: ModeDelete, ID: id})
			if out != "Note "+id+" not found\n" {
				t.Errorf("second delete = %q", out)
			}

			out, _ = r.run(t, Request{Mode: ModeSearch, Query: "milk"})
			if out != "No notes found\n" {
				t.Errorf("search after delete = %q", out)
			}
		})
	}
}

func TestRun_ListDoesNotOpenIndex(t *testing.T) {
	r := newRunner(t, BackendInverted)
	r.run(t, Request{Mode: ModeList})
	if _, err := os.Stat(filepath.Join(r.cfg.Data.Path, "index")); !os.IsNotExist(err) {
		t.Errorf("index dir created by list: %v", err)
	}
}

func TestRun_RebuildRecoversCorruptIndex(t *testing.T) {
	r := newRunner(t, BackendInverted)
	id := r.create(t, "Recover", "phoenix")

	postings := filepath.Join(r.cfg.Data.Path, "index", "postings.dat")
	if err := os.WriteFile(postings, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut := r.run(t, Request{Mode: ModeSearch, Query: "phoenix"})
	if out != "" || !strings.Contains(errOut, "Error: index: open:") || !strings.Contains(errOut, "--rebuild") {
		t.Errorf("search on corrupt index: stdout %q stderr %q", out, errOut)
	}

	out, _ = r.run(t, Request{Mode: ModeRebuild})
	if out != "Index rebuilt: 1 notes\n" {
		t.Errorf("rebuild = %q", out)
	}
	out, _ = r.run(t, Request{Mode: ModeSearch, Query: "phoenix"})
	if !strings.Contains(out, id) {
		t.Errorf("search after rebuild = %q", out)
	}
}

func TestRun_SyncAndReindex(t *testing.T) {
	r := newRunner(t, BackendSQLite)
	id := r.create(t, "Synced", "harmony")

	out, _ := r.run(t, Request{Mode: ModeSync})
	if out != "Index synced: 0 added, 0 removed, 0 updated\n" {
		t.Errorf("sync = %q", out)
	}
	out, _ = r.run(t, Request{Mode: ModeReindex, ID: id})
	if out != "Note "+id+" reindexed\n" {
		t.Errorf("reindex = %q", out)
	}
	out, _ = r.run(t, Request{Mode: ModeReindex, ID: "missing"})
	if out != "Note missing not found\n" {
		t.Errorf("reindex missing = %q", out)
	}
}

func TestRun_UsagePrinted(t *testing.T) {
	r := newRunner(t, BackendInverted)
	out, _ := r.run(t, Request{})
	if !strings.HasPrefix(out, "Invalid number of arguments\nUsage:") {
		t.Errorf("usage = %q", out)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background(), Request{Mode: ModeList}); err == nil {
		t.Fatal("Run without config should fail")
	}
}
