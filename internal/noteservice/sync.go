package noteservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/nnotes/internal/checksum"
	"github.com/starford/nnotes/internal/index"
	"github.com/starford/nnotes/internal/models"
)

// SyncReport counts the index changes made by Sync.
type SyncReport struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// Changed reports whether Sync touched the index.
func (r SyncReport) Changed() bool {
	return r.Added+r.Removed+r.Updated > 0
}

// Sync brings the index up to date with the store:
//   - stored notes missing from the index are added
//   - indexed ids no longer stored are deleted
//   - ids indexed more than once, or with content differing from the
//     store, are re-added
//
// Individual failures are logged and joined into the returned error; the
// remaining notes are still processed.
func (s *Service) Sync(_ context.Context) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report SyncReport
	idx, err := s.index("sync")
	if err != nil {
		return report, err
	}
	notes, err := s.notes.Load()
	if err != nil {
		return report, storeErr("sync", err)
	}
	docs, err := idx.Documents()
	if err != nil {
		return report, indexErr("sync", err)
	}

	stored := make(map[string]models.Note, len(notes))
	for _, n := range notes {
		stored[n.ID] = n
	}
	indexed := make(map[string][]index.Document, len(docs))
	for _, d := range docs {
		indexed[d.ID] = append(indexed[d.ID], d)
	}

	var errs []error
	for _, d := range docs {
		if _, ok := stored[d.ID]; ok {
			continue
		}
		if _, seen := indexed[d.ID]; !seen {
			continue
		}
		delete(indexed, d.ID)
		if err := idx.Delete(d.ID); err != nil {
			s.logger.Warn("sync: delete failed", slog.String("id", d.ID), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("sync: removed stale", slog.String("id", d.ID))
		report.Removed++
	}

	for _, n := range notes {
		entries := indexed[n.ID]
		switch {
		case len(entries) == 0:
			if err := idx.Add(toDocument(n)); err != nil {
				s.logger.Warn("sync: add failed", slog.String("id", n.ID), slog.String("error", err.Error()))
				errs = append(errs, err)
				continue
			}
			s.logger.Debug("sync: added", slog.String("id", n.ID))
			report.Added++

		case len(entries) > 1 || fingerprint(entries[0]) != fingerprint(toDocument(n)):
			if err := idx.Delete(n.ID); err != nil {
				s.logger.Warn("sync: delete failed", slog.String("id", n.ID), slog.String("error", err.Error()))
				errs = append(errs, err)
				continue
			}
			if err := idx.Add(toDocument(n)); err != nil {
				s.logger.Warn("sync: re-add failed", slog.String("id", n.ID), slog.String("error", err.Error()))
				errs = append(errs, err)
				continue
			}
			s.logger.Debug("sync: updated", slog.String("id", n.ID))
			report.Updated++
		}
	}

	if len(errs) > 0 {
		return report, indexErr("sync", errors.Join(errs...))
	}
	if report.Changed() {
		s.logger.Info("sync: done",
			slog.Int("added", report.Added),
			slog.Int("removed", report.Removed),
			slog.Int("updated", report.Updated))
	}
	return report, nil
}

func fingerprint(d index.Document) string {
	return checksum.Fields(d.Title, d.Content)
}
