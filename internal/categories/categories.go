// Package categories keeps the ordered, append-only list of report
// categories in the index settings table.
package categories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/report"
)

// SettingsKey is the settings-table key holding the JSON category list.
const SettingsKey = "categories"

// Defaults seed an empty or unreadable category list.
var Defaults = []string{"General", "Discovery", "Usability", "Concept Test"}

// Store is the process-wide category list. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	settings index.Settings
	logger   *slog.Logger
	list     []string
}

// Open loads the category list, seeding it with Defaults when the stored
// value is missing, empty or corrupt.
func Open(settings index.Settings, logger *slog.Logger) (*Store, error) {
	s := &Store{settings: settings, logger: logger}
	raw, ok, err := settings.GetSetting(SettingsKey)
	if err != nil {
		return nil, fmt.Errorf("categories: load: %w", err)
	}
	var list []string
	if ok {
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			logger.Warn("categories: stored list unreadable, reseeding", slog.String("error", err.Error()))
			list = nil
		}
	}
	list = clean(list)
	if len(list) == 0 {
		list = slices.Clone(Defaults)
		if err := s.persist(list); err != nil {
			return nil, err
		}
	}
	s.list = list
	return s, nil
}

// List returns a copy of the categories in insertion order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

// First returns the first category, the default for new reports.
func (s *Store) First() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[0]
}

// Contains reports whether name is a known category.
func (s *Store) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.list, strings.TrimSpace(name))
}

// Add appends name unless it is already known and returns the trimmed
// name and whether it was new. The list is persisted before the new
// category becomes visible.
func (s *Store) Add(name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if err := report.ValidateCategory(name); err != nil {
		return "", false, fmt.Errorf("categories: %q: %w: %v", name, apperr.ErrInvalidCategory, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.list, name) {
		return name, false, nil
	}
	next := append(slices.Clone(s.list), name)
	if err := s.persist(next); err != nil {
		return "", false, err
	}
	s.list = next
	s.logger.Info("categories: added", slog.String("name", name))
	return name, true, nil
}

// Ensure adds every name that is not yet known, e.g. category directories
// found on disk. Invalid names are skipped.
func (s *Store) Ensure(names ...string) error {
	for _, n := range names {
		if report.ValidateCategory(strings.TrimSpace(n)) != nil {
			continue
		}
		if _, _, err := s.Add(n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) persist(list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("categories: encode: %w", err)
	}
	if err := s.settings.SetSetting(SettingsKey, string(raw)); err != nil {
		return fmt.Errorf("categories: save: %w", err)
	}
	return nil
}

// clean trims names, drops invalid ones and removes duplicates, keeping the
// first occurrence.
func clean(list []string) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		n = strings.TrimSpace(n)
		if report.ValidateCategory(n) != nil || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
