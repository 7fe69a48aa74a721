package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
)

// AddItem appends entry to the working set. Adding an item that is already
// selected changes nothing but still confirms to the user.
func (c *Controller) AddItem(entry domain.CatalogEntry, t domain.ItemType) bool {
	item := entry.Select(t)
	c.mu.Lock()
	added := c.indexOf(item.Key()) < 0
	if added {
		c.st.Items = append(c.st.Items, item)
		delete(c.st.FieldErrors, ErrItemsRequired.Field)
		c.recompute()
	}
	c.mu.Unlock()
	c.notify(LevelSuccess, "Item Added", fmt.Sprintf("%s added to your package", item.Name))
	return added
}

// RemoveItem drops (id, t) from the working set. Once the package exists
// remotely the item is removed there first; a failed call leaves the working
// set as it was.
func (c *Controller) RemoveItem(ctx context.Context, id int64, t domain.ItemType) error {
	key := domain.ItemKey{ID: id, Type: t}
	c.mu.Lock()
	idx := c.indexOf(key)
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}
	name := c.st.Items[idx].Name
	var pkgID int64
	if c.st.Package.Persisted() {
		pkgID = c.st.Package.ID
	}
	gen := c.gen
	c.mu.Unlock()

	if pkgID != 0 {
		sess, err := c.session(ctx)
		if err != nil {
			return err
		}
		if err := c.api.RemovePackageItem(ctx, sess.Token, pkgID, id); err != nil {
			c.log.Warn("remove package item failed", zap.Int64("package_id", pkgID), zap.Int64("item_id", id), zap.Error(err))
			c.notify(LevelError, "Remove Failed", api.Message(err, "Failed to remove item from package"))
			return fmt.Errorf("remove package item: %w", err)
		}
	}

	removed := c.finish(gen, func() {
		i := c.indexOf(key)
		if i < 0 {
			return
		}
		c.st.Items = append(c.st.Items[:i], c.st.Items[i+1:]...)
		if c.st.Package != nil {
			c.st.Package.Items = dropPackageItem(c.st.Package.Items, key)
		}
		c.recompute()
	})
	if removed {
		c.notify(LevelInfo, "Item Removed", fmt.Sprintf("%s removed from your package", name))
	}
	return nil
}

func (c *Controller) indexOf(key domain.ItemKey) int {
	for i, it := range c.st.Items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func dropPackageItem(items []domain.PackageItem, key domain.ItemKey) []domain.PackageItem {
	out := items[:0]
	for _, it := range items {
		switch {
		case key.Type == domain.ItemProduct && it.ProductID != nil && *it.ProductID == key.ID:
		case key.Type == domain.ItemTest && it.TestID != nil && *it.TestID == key.ID:
		default:
			out = append(out, it)
		}
	}
	return out
}
