package internal

import (
	"errors"
	"fmt"
)

// Mode is the repository operation a single invocation performs.
type Mode string

const (
	ModeCreate  Mode = "create"
	ModeList    Mode = "list"
	ModeSearch  Mode = "search"
	ModeDelete  Mode = "delete"
	ModeRebuild Mode = "rebuild"
	ModeSync    Mode = "sync"
	ModeReindex Mode = "reindex"
	ModeWatch   Mode = "watch"
	ModeMCP     Mode = "mcp"
)

// ErrUsage reports an argument combination that maps to no operation.
var ErrUsage = errors.New("invalid number of arguments")

// Flags are the mode-selecting command line flags.
type Flags struct {
	List    bool
	Delete  string
	Rebuild bool
	Sync    bool
	Reindex string
	Watch   bool
	MCP     bool
}

// Request is one parsed invocation.
type Request struct {
	Mode    Mode
	Title   string
	Content string
	Query   string
	ID      string
}

// NeedsIndex reports whether the mode reads or writes the search index.
func (r Request) NeedsIndex() bool {
	return r.Mode != ModeList
}

// ParseRequest maps flags and positional args to a Request. At most one
// mode flag may be set, and mode flags take no positional arguments.
// Without a flag, one argument is a search and two are a new note.
func ParseRequest(f Flags, args []string) (Request, error) {
	var picked []Request
	if f.List {
		picked = append(picked, Request{Mode: ModeList})
	}
	if f.Delete != "" {
		picked = append(picked, Request{Mode: ModeDelete, ID: f.Delete})
	}
	if f.Rebuild {
		picked = append(picked, Request{Mode: ModeRebuild})
	}
	if f.Sync {
		picked = append(picked, Request{Mode: ModeSync})
	}
	if f.Reindex != "" {
		picked = append(picked, Request{Mode: ModeReindex, ID: f.Reindex})
	}
	if f.Watch {
		picked = append(picked, Request{Mode: ModeWatch})
	}
	if f.MCP {
		picked = append(picked, Request{Mode: ModeMCP})
	}

	switch {
	case len(picked) > 1:
		return Request{}, fmt.Errorf("%w: conflicting flags", ErrUsage)
	case len(picked) == 1 && len(args) > 0:
		return Request{}, fmt.Errorf("%w: --%s takes no positional arguments", ErrUsage, picked[0].Mode)
	case len(picked) == 1:
		return picked[0], nil
	}

	switch len(args) {
	case 1:
		return Request{Mode: ModeSearch, Query: args[0]}, nil
	case 2:
		return Request{Mode: ModeCreate, Title: args[0], Content: args[1]}, nil
	}
	return Request{}, ErrUsage
}
