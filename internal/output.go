package internal

import (
	"errors"
	"fmt"
	"io"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/index"
	"github.com/starford/nnotes/internal/models"
	"github.com/starford/nnotes/internal/noteservice"
)

const separator = "-----------------------"

// Usage is printed for argument combinations that map to no operation.
const Usage = `Usage:
  nnotes <title> <content>   save a new note
  nnotes -l                  list all notes
  nnotes <query>             search notes
  nnotes -d <id>             delete a note
  nnotes --rebuild           rebuild the search index from the notes
  nnotes --sync              repair drift between notes and index
  nnotes --reindex <id>      re-index one note
  nnotes --watch             keep the index in sync with notes.json
  nnotes --mcp               serve MCP tools on stdio`

// printer renders repository outcomes for humans. Results go to out,
// failures to errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer
}

func (p printer) saved(n models.Note) {
	fmt.Fprintf(p.out, "Note saved successfully! (id: %s)\n", n.ID)
}

func (p printer) note(n models.Note) {
	fmt.Fprintf(p.out, "Note Id: %s\nTitle: %s\nContent: %s\n%s\n", n.ID, n.Title, n.Content, separator)
}

func (p printer) notes(notes []models.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(p.out, "No notes found")
		return
	}
	for _, n := range notes {
		p.note(n)
	}
}

func (p printer) hits(hits []index.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(p.out, "No notes found")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(p.out, "Note Id: %s\nTitle: %s\nContent: %s\nScore: %.4f\n%s\n",
			h.ID, h.Title, h.Content, h.Score, separator)
	}
}

func (p printer) deleted(id string) {
	fmt.Fprintf(p.out, "Note %s deleted successfully!\n", id)
}

func (p printer) notFound(id string) {
	fmt.Fprintf(p.out, "Note %s not found\n", id)
}

func (p printer) rebuilt(n int) {
	fmt.Fprintf(p.out, "Index rebuilt: %d notes\n", n)
}

func (p printer) reindexed(id string) {
	fmt.Fprintf(p.out, "Note %s reindexed\n", id)
}

func (p printer) synced(r noteservice.SyncReport) {
	fmt.Fprintf(p.out, "Index synced: %d added, %d removed, %d updated\n", r.Added, r.Removed, r.Updated)
}

func (p printer) usage() {
	fmt.Fprintln(p.out, "Invalid number of arguments")
	fmt.Fprintln(p.out, Usage)
}

// failure prints err. Stage errors already read "<stage>: <op>: ...".
func (p printer) failure(err error) {
	fmt.Fprintf(p.errOut, "Error: %v\n", err)
	var pf *apperr.PartialFailureError
	if errors.As(err, &pf) {
		fmt.Fprintf(p.errOut, "Run 'nnotes --reindex %s' or 'nnotes --rebuild' to repair the index.\n", pf.ID)
	}
}
