package domain

import "fmt"

type ItemType string

const (
	ItemProduct ItemType = "product"
	ItemTest    ItemType = "test"
)

func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemProduct, ItemTest:
		return ItemType(s), nil
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// CatalogEntry is a product or test as listed by the remote catalog.
type CatalogEntry struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discountedPrice"`
	Category        string  `json:"category,omitempty"`
}

// SelectedItem is identified by (ID, Type) inside the working set.
type SelectedItem struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	DiscountedPrice float64  `json:"discountedPrice"`
	Type            ItemType `json:"type"`
	Category        string   `json:"category,omitempty"`
}

func (e CatalogEntry) Select(t ItemType) SelectedItem {
	return SelectedItem{
		ID:              e.ID,
		Name:            e.Name,
		Price:           e.Price,
		DiscountedPrice: e.DiscountedPrice,
		Type:            t,
		Category:        e.Category,
	}
}

func (i SelectedItem) Key() ItemKey {
	return ItemKey{ID: i.ID, Type: i.Type}
}

type ItemKey struct {
	ID   int64
	Type ItemType
}
