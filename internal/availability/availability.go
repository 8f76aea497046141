// Package availability decides which dates are blocked by confirmed bookings
// and proposes alternative stays when a request conflicts.
//
// Every stay is a half-open range [check-in, check-out): a guest checking out
// on day D never conflicts with a guest checking in on D. The single overlap
// predicate is model.Range.Overlaps; stores translate the same rule to their
// own query language.
package availability

import (
	"context"
	"fmt"
	"slices"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
)

const (
	// HorizonDays is how far past the last conflict next periods are searched.
	HorizonDays = 90
	// MaxNextPeriods caps the next_available_periods list.
	MaxNextPeriods = 10
	// maxSlides is the number of sliding windows taken from one long free range.
	maxSlides = 5
)

// Store is the query capability the engine needs from the booking store.
type Store interface {
	// ConfirmedOverlapping returns the CONFIRMED bookings whose stay overlaps
	// r, sorted by check-in date. A non-empty excludeID is left out.
	ConfirmedOverlapping(ctx context.Context, r model.Range, excludeID string) ([]model.Booking, error)
}

// Engine answers availability questions against a Store.
type Engine struct {
	store Store
}

// New constructs an Engine.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// IsRangeFree reports whether [start, end) is free of confirmed bookings.
// The conflicting bookings are returned sorted by check-in.
func (e *Engine) IsRangeFree(ctx context.Context, start, end model.Date, excludeID string) (bool, []model.Booking, error) {
	conflicts, err := e.store.ConfirmedOverlapping(ctx, model.Range{Start: start, End: end}, excludeID)
	if err != nil {
		return false, nil, fmt.Errorf("query confirmed bookings: %w", err)
	}
	sortByCheckIn(conflicts)
	return len(conflicts) == 0, conflicts, nil
}

// FreeRanges returns the free periods inside the inclusive window [start, end].
func (e *Engine) FreeRanges(ctx context.Context, start, end model.Date) ([]model.Period, error) {
	if end.Before(start) {
		return nil, nil
	}
	bookings, err := e.store.ConfirmedOverlapping(ctx, model.Range{Start: start, End: end.AddDays(1)}, "")
	if err != nil {
		return nil, fmt.Errorf("query confirmed bookings: %w", err)
	}
	sortByCheckIn(bookings)
	return sweep(start, end, bookings), nil
}

// SuggestAlternatives builds the partial and next-available suggestions for
// a request [start, end) of nights days that conflicts with confirmed
// bookings. It returns nil when the request is actually free.
func (e *Engine) SuggestAlternatives(ctx context.Context, start, end model.Date, nights int) (*model.Alternatives, error) {
	free, conflicts, err := e.IsRangeFree(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	if free {
		return nil, nil
	}
	return e.alternatives(ctx, start, end, nights, conflicts)
}

// Alternatives is SuggestAlternatives for callers that already hold the
// conflicting bookings (for example inside a store transaction).
func (e *Engine) Alternatives(ctx context.Context, r model.Range, conflicts []model.Booking) (*model.Alternatives, error) {
	if len(conflicts) == 0 {
		return nil, nil
	}
	return e.alternatives(ctx, r.Start, r.End, r.Nights(), conflicts)
}

func (e *Engine) alternatives(ctx context.Context, start, end model.Date, nights int, conflicts []model.Booking) (*model.Alternatives, error) {
	partial := PartialAvailability(model.Range{Start: start, End: end}, conflicts)

	horizonStart := lastCheckOut(conflicts).AddDays(1)
	horizonEnd := horizonStart.AddDays(HorizonDays - 1)
	free, err := e.FreeRanges(ctx, horizonStart, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("scan horizon: %w", err)
	}
	next := NextPeriods(free, nights)

	return &model.Alternatives{
		PartialAvailability:  partial,
		NextAvailablePeriods: next,
	}, nil
}

// PartialAvailability returns the free sub-windows of the requested stay
// given the bookings that conflict with it. Gaps of any length are kept.
// The result is ordered by days descending.
func PartialAvailability(requested model.Range, conflicts []model.Booking) []model.Period {
	if requested.Nights() <= 0 {
		return []model.Period{}
	}
	sorted := slices.Clone(conflicts)
	sortByCheckIn(sorted)
	out := sweep(requested.Start, requested.End.AddDays(-1), sorted)
	sortByDaysDesc(out)
	return out
}

// NextPeriods classifies free ranges against the requested duration:
//   - exactly nights days: kept as is;
//   - longer: up to five windows of exactly nights days at offsets 0..4;
//   - shorter but at least max(2, nights/2) days: kept whole;
//   - anything shorter is dropped.
//
// Collection stops at MaxNextPeriods and the result is ordered by days
// descending.
func NextPeriods(free []model.Period, nights int) []model.Period {
	out := make([]model.Period, 0, MaxNextPeriods)
	minimum := max(2, nights/2)

	for _, p := range free {
		if len(out) >= MaxNextPeriods {
			break
		}
		switch {
		case p.Days == nights:
			out = append(out, p)
		case p.Days > nights:
			slides := min(maxSlides-1, p.Days-nights)
			for off := 0; off <= slides && len(out) < MaxNextPeriods; off++ {
				s := p.StartDate.AddDays(off)
				out = append(out, model.NewPeriod(s, s.AddDays(nights-1)))
			}
		case p.Days >= minimum:
			out = append(out, p)
		}
	}
	sortByDaysDesc(out)
	return out
}

// sweep emits the free inclusive periods of [start, end] around bookings,
// which must be sorted by check-in. The cursor jumps to each checkout day,
// since that day is free for the next guest.
func sweep(start, end model.Date, bookings []model.Booking) []model.Period {
	out := []model.Period{}
	cursor := start
	for _, b := range bookings {
		if cursor.After(end) {
			break
		}
		if cursor.Before(b.CheckInDate) {
			gapEnd := b.CheckInDate.AddDays(-1)
			if gapEnd.After(end) {
				gapEnd = end
			}
			out = append(out, model.NewPeriod(cursor, gapEnd))
		}
		cursor = model.MaxDate(cursor, b.CheckOutDate)
	}
	if !cursor.After(end) {
		out = append(out, model.NewPeriod(cursor, end))
	}
	return out
}

func lastCheckOut(bookings []model.Booking) model.Date {
	var last model.Date
	for _, b := range bookings {
		if last.IsZero() || b.CheckOutDate.After(last) {
			last = b.CheckOutDate
		}
	}
	return last
}

func sortByCheckIn(bookings []model.Booking) {
	slices.SortStableFunc(bookings, func(a, b model.Booking) int {
		return a.CheckInDate.Compare(b.CheckInDate)
	})
}

func sortByDaysDesc(periods []model.Period) {
	slices.SortStableFunc(periods, func(a, b model.Period) int {
		return b.Days - a.Days
	})
}
