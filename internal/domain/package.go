package domain

type PackageItem struct {
	ProductID *int64 `json:"productId,omitempty"`
	TestID    *int64 `json:"testId,omitempty"`
}

// CustomPackage has a zero ID until the remote API confirms creation.
type CustomPackage struct {
	ID    int64         `json:"id,omitempty"`
	Name  string        `json:"name"`
	Items []PackageItem `json:"items"`
}

func (p *CustomPackage) Persisted() bool {
	return p != nil && p.ID != 0
}

func PackageItemsOf(items []SelectedItem) []PackageItem {
	out := make([]PackageItem, 0, len(items))
	for _, it := range items {
		id := it.ID
		if it.Type == ItemProduct {
			out = append(out, PackageItem{ProductID: &id})
		} else {
			out = append(out, PackageItem{TestID: &id})
		}
	}
	return out
}
