// Package catalog loads items and their option groups from a directory of JSON
// or YAML documents. It backs the command line tools and the HTTP server; a
// real store supplies its own implementation of the same interface.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
)

// ErrNotFound is returned for unknown item ids. It wraps
// coordinator.ErrUnknownItem so servers can map it to a 404.
var ErrNotFound = fmt.Errorf("catalog: not found: %w", coordinator.ErrUnknownItem)

// Store is an in-memory catalog.
type Store struct {
	items     map[string]model.Item
	groups    map[string]model.Group
	itemGroup map[string]string
}

type documentFile struct {
	Groups map[string]groupFile `json:"groups" yaml:"groups"`
	Items  []itemFile           `json:"items" yaml:"items"`
}

type groupFile struct {
	Options []model.Option `json:"options" yaml:"options"`
}

type itemFile struct {
	model.Item `yaml:",inline"`
	Group      string `json:"group" yaml:"group"`
}

// LoadFS walks fsys and merges every JSON/YAML catalog document. When fsys is
// nil the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{
		items:     make(map[string]model.Item),
		groups:    make(map[string]model.Group),
		itemGroup: make(map[string]string),
	}
	if fsys == nil {
		return store, nil
	}

	pending := map[string]string{}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawID, raw := range doc.Groups {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("catalog: file %s defines an empty group id", path)
			}
			if _, exists := store.groups[id]; exists {
				return fmt.Errorf("catalog: duplicate group %q (file %s)", id, path)
			}
			store.groups[id] = model.Group{ID: id, Options: raw.Options}
		}
		for _, raw := range doc.Items {
			id := strings.TrimSpace(raw.ID)
			if id == "" {
				return fmt.Errorf("catalog: file %s defines an item without id", path)
			}
			if _, exists := store.items[id]; exists {
				return fmt.Errorf("catalog: duplicate item %q (file %s)", id, path)
			}
			raw.Item.ID = id
			store.items[id] = raw.Item
			pending[id] = strings.TrimSpace(raw.Group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for itemID, groupID := range pending {
		if groupID == "" {
			continue
		}
		if _, ok := store.groups[groupID]; !ok {
			return nil, fmt.Errorf("catalog: item %q references unknown group %q", itemID, groupID)
		}
		store.itemGroup[itemID] = groupID
	}
	return store, nil
}

// Item returns a catalog item.
func (s *Store) Item(_ context.Context, id string) (model.Item, error) {
	if s != nil {
		if item, ok := s.items[id]; ok {
			return item, nil
		}
	}
	return model.Item{}, fmt.Errorf("%w: item %q", ErrNotFound, id)
}

// Group returns the option group attached to an item. Items without a group
// get an empty one.
func (s *Store) Group(ctx context.Context, itemID string) (model.Group, error) {
	if _, err := s.Item(ctx, itemID); err != nil {
		return model.Group{}, err
	}
	groupID, ok := s.itemGroup[itemID]
	if !ok {
		return model.Group{ID: itemID, ItemID: itemID}, nil
	}
	return s.groups[groupID], nil
}

// Items returns the item ids, sorted.
func (s *Store) Items() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Groups returns every option group, sorted by id.
func (s *Store) Groups() []model.Group {
	if s == nil {
		return nil
	}
	out := make([]model.Group, 0, len(s.groups))
	for _, group := range s.groups {
		out = append(out, group)
	}
	slices.SortFunc(out, func(a, b model.Group) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("catalog: file %s is empty", source)
	}
	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("catalog: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("catalog: parse %s: %w", source, err)
	}
	return doc, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
