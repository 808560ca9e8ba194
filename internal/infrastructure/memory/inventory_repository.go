package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

// InventoryRepository keeps stock counters in process memory. TryDeduct is the
// only path that lowers a counter.
type InventoryRepository struct {
	mu    sync.Mutex
	items map[domain.Key]*domain.Item
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items: make(map[domain.Key]*domain.Item),
	}
}

// Seed sets the starting quantity of key, replacing any previous value.
func (r *InventoryRepository) Seed(key domain.Key, quantity int) error {
	item, err := domain.NewItem(key, quantity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[key] = item
	return nil
}

func (r *InventoryRepository) TryDeduct(ctx context.Context, key domain.Key, quantity int) (int, bool) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok {
		return 0, false
	}
	if err := item.Deduct(quantity); err != nil {
		return item.Quantity, false
	}
	return item.Quantity, true
}

// Quantity reports the current stock of key; unknown keys hold zero.
func (r *InventoryRepository) Quantity(key domain.Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.items[key]; ok {
		return item.Quantity
	}
	return 0
}

// Snapshot copies every counter, ordered by key.
func (r *InventoryRepository) Snapshot(ctx context.Context) []domain.Item {
	_ = ctx

	r.mu.Lock()
	items := make([]domain.Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, *item)
	}
	r.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key.String() < items[j].Key.String()
	})
	return items
}
