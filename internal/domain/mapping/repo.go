package mapping

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrNotFound          = errors.New("mapping not found")
	ErrInvalidTransition = errors.New("mapping has already been reviewed")
)

// Repository stores mappings. List returns newest first.
type Repository interface {
	Create(ctx context.Context, m *Mapping) error
	Get(ctx context.Context, id string) (*Mapping, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Mapping, int, error)
	// Update loads the mapping, applies fn and persists the result atomically.
	// An error from fn aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*Mapping) error) (*Mapping, error)
}

func sortNewestFirst(items []*Mapping) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// page filters, sorts and slices an in-memory collection.
func page(all []*Mapping, f Filter, limit, offset int) ([]*Mapping, int) {
	matched := make([]*Mapping, 0, len(all))
	for _, m := range all {
		if f.match(m) {
			matched = append(matched, m)
		}
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	return matched[start:end], total
}
