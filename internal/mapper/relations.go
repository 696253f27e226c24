package mapper

import (
	"context"
	"fmt"

	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/store"
)

// SetHasMany replaces a has-many relation with refs. Ids are deduplicated
// keeping first occurrence, assigned in memory, then written to
// <path>/<id>/<field> as {id: true}. If the write fails the error is returned
// and the in-memory value is left ahead of the store.
func (c *Collection) SetHasMany(ctx context.Context, rec *model.Record, field string, refs ...model.Ref) error {
	if !c.model.IsHasMany(field) {
		return fmt.Errorf("%s is not a has_many relation of %s", field, c.model.Name())
	}
	path, err := c.recordPath(rec)
	if err != nil {
		return err
	}
	ids, err := resolveIDs(refs)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}

	rec.Set(field, ids)
	_, err = c.request(ctx, store.Set, store.Join(path, field), nil, idSet(ids))
	return err
}

// PushHasMany appends ref to a has-many relation and writes the full set.
func (c *Collection) PushHasMany(ctx context.Context, rec *model.Record, field string, ref model.Ref) error {
	if rec == nil {
		return fmt.Errorf("%s: record is nil", field)
	}
	refs := model.IDs(rec.RefIDs(field)...)
	return c.SetHasMany(ctx, rec, field, append(refs, ref)...)
}

func resolveIDs(refs []model.Ref) ([]string, error) {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref == nil {
			return nil, fmt.Errorf("nil reference")
		}
		id := ref.StoreID()
		if id == "" {
			return nil, fmt.Errorf("reference has no id")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
