package maintenance

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/phrazzld/foobar-daemon/internal/store"
)

// memItemStore is an in-memory store.ItemStore. Each hook, when set,
// replaces the default behavior of the matching method.
type memItemStore struct {
	mu     sync.Mutex
	items  []store.Item
	nextID int32
	rng    *rand.Rand

	StateFn  func(ctx context.Context) (store.TableState, error)
	InsertFn func(ctx context.Context, text string) (store.Item, error)
	EvictFn  func(ctx context.Context) (int32, bool, error)

	inserts int
	evicts  int
}

func newMemItemStore(seed int64) *memItemStore {
	return &memItemStore{nextID: 1, rng: rand.New(rand.NewSource(seed))}
}

// fill adds n rows without going through the worker.
func (s *memItemStore) fill(n int) {
	for i := 0; i < n; i++ {
		_, _ = s.insert("seed")
	}
}

func (s *memItemStore) insert(text string) (store.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := store.Item{ID: s.nextID, Text: text, Time: time.Now()}
	s.nextID++
	s.items = append(s.items, item)
	return item, nil
}

func (s *memItemStore) minID() (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return 0, false
	}
	min := s.items[0].ID
	for _, item := range s.items[1:] {
		if item.ID < min {
			min = item.ID
		}
	}
	return min, true
}

func (s *memItemStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *memItemStore) State(ctx context.Context) (store.TableState, error) {
	if s.StateFn != nil {
		return s.StateFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.TableState{Count: int64(len(s.items)), Random: s.rng.Float64()}, nil
}

func (s *memItemStore) Insert(ctx context.Context, text string) (store.Item, error) {
	s.inserts++
	if s.InsertFn != nil {
		return s.InsertFn(ctx, text)
	}
	return s.insert(text)
}

func (s *memItemStore) EvictOldest(ctx context.Context) (int32, bool, error) {
	s.evicts++
	if s.EvictFn != nil {
		return s.EvictFn(ctx)
	}

	id, ok := s.minID()
	if !ok {
		return 0, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return id, true, nil
}

func (s *memItemStore) List(ctx context.Context) ([]store.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Item(nil), s.items...), nil
}

var _ store.ItemStore = (*memItemStore)(nil)
