package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
)

var base = model.NewDate(2025, 6, 1)

func booking(id string, in, out int, st model.PaymentStatus) *model.Booking {
	return &model.Booking{
		ID:            id,
		CheckInDate:   base.AddDays(in),
		CheckOutDate:  base.AddDays(out),
		PaymentStatus: st,
	}
}

func seed(t *testing.T, s *MemoryStore, bs ...*model.Booking) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		for _, b := range bs {
			if err := tx.Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestMemoryRollbackOnError(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, booking("a", 1, 3, model.StatusPending)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Get(context.Background(), "a"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("staged insert must be discarded, got %v", err)
	}
}

func TestMemoryInsertAssignsID(t *testing.T) {
	s := NewMemoryStore()
	b := booking("", 1, 3, model.StatusPending)
	seed(t, s, b)
	if b.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := s.Get(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, booking(b.ID, 5, 6, model.StatusPending))
	})
	if err == nil {
		t.Fatal("duplicate id must be rejected")
	}
}

func TestMemoryRejectsOverlappingConfirmed(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s,
		booking("a", 10, 15, model.StatusPaid),
		booking("b", 12, 14, model.StatusPending),
	)

	// Skipping the availability check still cannot break disjointness.
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.UpdateStatus(ctx, "b", model.StatusApprovedUnpaid)
	})
	if !errors.Is(err, model.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	b, _ := s.Get(context.Background(), "b")
	if b.PaymentStatus != model.StatusPending {
		t.Fatalf("b must stay pending, got %v", b.PaymentStatus)
	}

	// Releasing a and confirming b in one unit is fine.
	err = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.UpdateStatus(ctx, "a", model.StatusPending); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, "b", model.StatusPaid)
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	// Touching stays do not overlap.
	seed(t, s, booking("c", 14, 20, model.StatusPaid))
}

func TestMemoryRejectsOverlapWithinOneUnit(t *testing.T) {
	s := NewMemoryStore()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, booking("x", 3, 8, model.StatusPaid)); err != nil {
			return err
		}
		return tx.Insert(ctx, booking("y", 6, 10, model.StatusApprovedUnpaid))
	})
	if !errors.Is(err, model.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	all, _ := s.List(context.Background(), model.ListFilter{})
	if len(all) != 0 {
		t.Fatalf("nothing may be committed, got %+v", all)
	}

	// Back-to-back confirmed stays in one unit are fine.
	seed(t, s,
		booking("x", 3, 8, model.StatusPaid),
		booking("y", 8, 10, model.StatusApprovedUnpaid),
	)
}

func TestMemoryConfirmedOverlapping(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s,
		booking("late", 20, 25, model.StatusPaid),
		booking("early", 5, 8, model.StatusApprovedUnpaid),
		booking("pending", 6, 22, model.StatusPending),
		booking("outside", 30, 32, model.StatusPaid),
	)

	var got []model.Booking
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		got, err = tx.ConfirmedOverlapping(ctx, model.Range{Start: base.AddDays(7), End: base.AddDays(21)}, "")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("unexpected overlaps %+v", got)
	}

	_ = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		got, _ = tx.ConfirmedOverlapping(ctx, model.Range{Start: base.AddDays(7), End: base.AddDays(21)}, "late")
		return nil
	})
	if len(got) != 1 || got[0].ID != "early" {
		t.Fatalf("excludeID not honoured: %+v", got)
	}
}

func TestMemoryStagedWritesVisibleInsideUnit(t *testing.T) {
	s := NewMemoryStore()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, booking("a", 1, 4, model.StatusPaid)); err != nil {
			return err
		}
		got, err := tx.ConfirmedOverlapping(ctx, model.Range{Start: base.AddDays(2), End: base.AddDays(3)}, "")
		if err != nil {
			return err
		}
		if len(got) != 1 {
			t.Errorf("staged booking not visible: %+v", got)
		}
		b, err := tx.GetForUpdate(ctx, "a")
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.StatusPaid {
			t.Errorf("status = %v", b.PaymentStatus)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMemoryListOrderAndFilter(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s,
		booking("c", 30, 32, model.StatusPending),
		booking("a", 2, 4, model.StatusPaid),
		booking("b", 10, 12, model.StatusPending),
	)

	all, err := s.List(context.Background(), model.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[1].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unexpected order %+v", all)
	}

	pending := model.StatusPending
	got, _ := s.List(context.Background(), model.ListFilter{Status: &pending})
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("unexpected filtered list %+v", got)
	}

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.UpdateStatus(ctx, "missing", model.StatusPaid)
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
