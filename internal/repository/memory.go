package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-process booking store. One mutex is held for the
// whole of WithinTx, so units are fully serialised. Writes are staged and
// only applied when fn succeeds.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]model.Booking)}
}

// WithinTx runs fn atomically.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[string]model.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := s.checkConfirmedDisjoint(tx.staged); err != nil {
		return err
	}
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

// Get returns a single booking or model.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &b, nil
}

// List returns bookings ordered by check-in date.
func (s *MemoryStore) List(_ context.Context, f model.ListFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if f.Status != nil && b.PaymentStatus != *f.Status {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Booking) int {
		if c := a.CheckInDate.Compare(b.CheckInDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// checkConfirmedDisjoint mirrors the Postgres exclusion constraint: after
// applying staged writes no two confirmed bookings may overlap. Each staged
// booking is compared with every other booking in the merged view, staged
// ones included.
func (s *MemoryStore) checkConfirmedDisjoint(staged map[string]model.Booking) error {
	for id, b := range staged {
		if !b.PaymentStatus.IsConfirmed() {
			continue
		}
		check := func(otherID string, other model.Booking) error {
			if otherID == id || !other.PaymentStatus.IsConfirmed() {
				return nil
			}
			if b.Stay().Overlaps(other.Stay()) {
				return fmt.Errorf("%w: booking %s overlaps %s", model.ErrConcurrentUpdate, id, otherID)
			}
			return nil
		}
		for otherID, other := range staged {
			if err := check(otherID, other); err != nil {
				return err
			}
		}
		for otherID, other := range s.bookings {
			if _, shadowed := staged[otherID]; shadowed {
				continue
			}
			if err := check(otherID, other); err != nil {
				return err
			}
		}
	}
	return nil
}

type memTx struct {
	store  *MemoryStore
	staged map[string]model.Booking
}

func (t *memTx) lookup(id string) (model.Booking, bool) {
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	b, ok := t.store.bookings[id]
	return b, ok
}

func (t *memTx) ConfirmedOverlapping(_ context.Context, r model.Range, excludeID string) ([]model.Booking, error) {
	seen := make(map[string]bool)
	var out []model.Booking
	visit := func(b model.Booking) {
		if seen[b.ID] {
			return
		}
		seen[b.ID] = true
		if b.ID == excludeID || !b.PaymentStatus.IsConfirmed() {
			return
		}
		if b.Stay().Overlaps(r) {
			out = append(out, b)
		}
	}
	for _, b := range t.staged {
		visit(b)
	}
	for _, b := range t.store.bookings {
		visit(b)
	}
	slices.SortFunc(out, func(a, b model.Booking) int {
		return a.CheckInDate.Compare(b.CheckInDate)
	})
	return out, nil
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (*model.Booking, error) {
	b, ok := t.lookup(id)
	if !ok {
		return nil, model.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) Insert(_ context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if _, exists := t.lookup(b.ID); exists {
		return fmt.Errorf("insert booking: duplicate id %s", b.ID)
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id string, status model.PaymentStatus) error {
	b, ok := t.lookup(id)
	if !ok {
		return model.ErrNotFound
	}
	b.PaymentStatus = status
	b.UpdatedAt = time.Now().UTC()
	t.staged[id] = b
	return nil
}
