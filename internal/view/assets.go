package view

import (
	"sort"
	"sync"
)

type Asset struct {
	File       string
	Group      string
	Order      int
	Attributes map[string]string
}

// Assets collects the stylesheets and scripts a page uses.
type Assets struct {
	mu    sync.RWMutex
	items []Asset
}

func NewAssets() *Assets {
	return &Assets{}
}

// Add registers an asset. Adding a file twice replaces the first entry.
func (a *Assets) Add(asset Asset) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, existing := range a.items {
		if existing.File == asset.File {
			a.items[i] = asset
			return
		}
	}
	a.items = append(a.items, asset)
}

// All returns the assets ordered by group then order.
func (a *Assets) All() []Asset {
	a.mu.RLock()
	defer a.mu.RUnlock()

	all := make([]Asset, len(a.items))
	copy(all, a.items)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Group != all[j].Group {
			return all[i].Group < all[j].Group
		}
		return all[i].Order < all[j].Order
	})

	return all
}

func (a *Assets) Clear() {
	a.mu.Lock()
	a.items = nil
	a.mu.Unlock()
}
