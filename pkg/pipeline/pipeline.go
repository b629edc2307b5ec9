// Package pipeline orchestrates fetch → sort → filter for a viewer's saved
// items: it pulls normalized items from a Source, orders them newest first
// and derives the per-category counts used by the filter bar.
package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"saveit/pkg/logger"
	"saveit/pkg/models"
)

// ErrNoViewer is returned when no viewer identity was resolved. The pipeline
// fails fast; no store call is made.
var ErrNoViewer = errors.New("no viewer identity: open the app inside Telegram")

// Source yields a viewer's normalized items. The store client implements it;
// tests substitute fakes.
type Source interface {
	ListItems(ownerID int64) ([]models.SavedItem, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ownerID int64) ([]models.SavedItem, error)

func (f SourceFunc) ListItems(ownerID int64) ([]models.SavedItem, error) { return f(ownerID) }

// Result is one render-ready listing: items newest first plus the count map
// (including the "all" total) for badge display.
type Result struct {
	Items  []models.SavedItem `json:"items"`
	Counts models.Counts      `json:"counts"`
}

// Loader runs the list pipeline against a Source.
type Loader struct {
	src Source
}

func New(src Source) *Loader {
	return &Loader{src: src}
}

// Load fetches and orders the owner's items. Ties on CreatedAtMs are
// unordered; the 0 sentinel sorts last.
func (l *Loader) Load(ownerID int64) (Result, error) {
	if ownerID == 0 {
		return Result{}, ErrNoViewer
	}
	items, err := l.src.ListItems(ownerID)
	if err != nil {
		return Result{}, fmt.Errorf("list items for owner %d: %w", ownerID, err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAtMs > items[j].CreatedAtMs
	})
	logger.Debug("pipeline_loaded", "owner", ownerID, "count", len(items))
	return Result{Items: items, Counts: models.CountByCategory(items)}, nil
}

// ApplyFilter selects items matching the category filter. "all" passes
// everything. Pure and non-mutating: the input slice is never reordered or
// modified, and filtering never re-fetches.
func ApplyFilter(items []models.SavedItem, filter string) []models.SavedItem {
	if filter == models.FilterAll {
		return items
	}
	out := make([]models.SavedItem, 0, len(items))
	for _, it := range items {
		if string(it.Category) == filter {
			out = append(out, it)
		}
	}
	return out
}
