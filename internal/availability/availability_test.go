package availability

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
)

// fakeStore answers ConfirmedOverlapping from a slice, in insertion order, so
// tests also cover the engine's own sorting.
type fakeStore struct {
	bookings []model.Booking
	calls    int
}

func (f *fakeStore) ConfirmedOverlapping(_ context.Context, r model.Range, excludeID string) ([]model.Booking, error) {
	f.calls++
	var out []model.Booking
	for _, b := range f.bookings {
		if b.ID == excludeID || !b.PaymentStatus.IsConfirmed() {
			continue
		}
		if b.Stay().Overlaps(r) {
			out = append(out, b)
		}
	}
	return out, nil
}

var base = model.NewDate(2025, 1, 1)

func day(n int) model.Date { return base.AddDays(n) }

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func confirmed(id string, in, out model.Date) model.Booking {
	return model.Booking{ID: id, CheckInDate: in, CheckOutDate: out, PaymentStatus: model.StatusPaid}
}

func TestIsRangeFreeTouchingAndOverlapping(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		confirmed("b1", date("2025-06-15"), date("2025-06-20")),
	}}
	e := New(store)
	ctx := context.Background()

	free, conflicts, err := e.IsRangeFree(ctx, date("2025-06-10"), date("2025-06-15"), "")
	if err != nil {
		t.Fatal(err)
	}
	if !free || len(conflicts) != 0 {
		t.Fatalf("touching stay should be free, got free=%v conflicts=%d", free, len(conflicts))
	}

	free, conflicts, err = e.IsRangeFree(ctx, date("2025-06-16"), date("2025-06-22"), "")
	if err != nil {
		t.Fatal(err)
	}
	if free || len(conflicts) != 1 || conflicts[0].ID != "b1" {
		t.Fatalf("expected one conflict with b1, got free=%v conflicts=%v", free, conflicts)
	}

	free, _, err = e.IsRangeFree(ctx, date("2025-06-20"), date("2025-06-23"), "")
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Fatal("check-in on the checkout day should be free")
	}
}

func TestIsRangeFreeIgnoresPendingAndExcluded(t *testing.T) {
	pending := confirmed("p", day(0), day(5))
	pending.PaymentStatus = model.StatusPending
	approved := confirmed("a", day(3), day(8))
	approved.PaymentStatus = model.StatusApprovedUnpaid
	e := New(&fakeStore{bookings: []model.Booking{pending, approved}})

	free, conflicts, err := e.IsRangeFree(context.Background(), day(0), day(4), "")
	if err != nil {
		t.Fatal(err)
	}
	if free || len(conflicts) != 1 || conflicts[0].ID != "a" {
		t.Fatalf("only the approved booking should block, got %v", conflicts)
	}

	free, _, err = e.IsRangeFree(context.Background(), day(0), day(4), "a")
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Fatal("excluded booking must not conflict with itself")
	}
}

func TestIsRangeFreeSortsAndIsIdempotent(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		confirmed("late", day(20), day(22)),
		confirmed("early", day(2), day(4)),
		confirmed("mid", day(10), day(12)),
	}}
	e := New(store)

	free1, c1, err := e.IsRangeFree(context.Background(), day(0), day(30), "")
	if err != nil {
		t.Fatal(err)
	}
	free2, c2, err := e.IsRangeFree(context.Background(), day(0), day(30), "")
	if err != nil {
		t.Fatal(err)
	}
	if free1 != free2 || !reflect.DeepEqual(c1, c2) {
		t.Fatalf("repeated calls differ: %v vs %v", c1, c2)
	}
	var ids []string
	for _, b := range c1 {
		ids = append(ids, b.ID)
	}
	if want := []string{"early", "mid", "late"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("conflicts order = %v, want %v", ids, want)
	}
}

func TestFreeRanges(t *testing.T) {
	cases := []struct {
		name     string
		bookings []model.Booking
		start    model.Date
		end      model.Date
		want     []model.Period
	}{
		{
			name:  "no bookings",
			start: day(0), end: day(30),
			want: []model.Period{model.NewPeriod(day(0), day(30))},
		},
		{
			name:     "one booking in the middle",
			bookings: []model.Booking{confirmed("b", day(7), day(14))},
			start:    day(0), end: day(30),
			want: []model.Period{
				model.NewPeriod(day(0), day(6)),
				model.NewPeriod(day(14), day(30)),
			},
		},
		{
			name: "touching bookings leave no gap",
			bookings: []model.Booking{
				confirmed("a", day(5), day(10)),
				confirmed("b", day(10), day(12)),
			},
			start: day(0), end: day(20),
			want: []model.Period{
				model.NewPeriod(day(0), day(4)),
				model.NewPeriod(day(12), day(20)),
			},
		},
		{
			name:     "booking covers window start",
			bookings: []model.Booking{confirmed("a", day(-3), day(2))},
			start:    day(0), end: day(5),
			want:     []model.Period{model.NewPeriod(day(2), day(5))},
		},
		{
			name:     "booking runs past window end",
			bookings: []model.Booking{confirmed("a", day(3), day(40))},
			start:    day(0), end: day(5),
			want:     []model.Period{model.NewPeriod(day(0), day(2))},
		},
		{
			name:     "fully booked",
			bookings: []model.Booking{confirmed("a", day(-1), day(10))},
			start:    day(0), end: day(5),
			want:     []model.Period{},
		},
	}
	for _, tc := range cases {
		got, err := New(&fakeStore{bookings: tc.bookings}).FreeRanges(context.Background(), tc.start, tc.end)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

// Every day of the window must be covered exactly once, either by a free
// range or by a confirmed booking night.
func TestFreeRangesPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		var bookings []model.Booking
		cursor := rng.Intn(5) - 3
		for cursor < 60 {
			in := cursor + rng.Intn(6)
			out := in + 1 + rng.Intn(7)
			bookings = append(bookings, confirmed(fmt.Sprintf("b%d", len(bookings)), day(in), day(out)))
			cursor = out
		}
		rng.Shuffle(len(bookings), func(i, j int) { bookings[i], bookings[j] = bookings[j], bookings[i] })

		start, end := day(rng.Intn(10)), day(30+rng.Intn(20))
		free, err := New(&fakeStore{bookings: bookings}).FreeRanges(context.Background(), start, end)
		if err != nil {
			t.Fatal(err)
		}

		cover := make(map[string]int)
		for _, p := range free {
			if p.Days != p.StartDate.DaysUntil(p.EndDate)+1 || p.Days < 1 {
				t.Fatalf("iter %d: bad period %+v", iter, p)
			}
			for d := p.StartDate; !d.After(p.EndDate); d = d.AddDays(1) {
				cover[d.String()]++
			}
		}
		for _, b := range bookings {
			for d := b.CheckInDate; d.Before(b.CheckOutDate); d = d.AddDays(1) {
				if !d.Before(start) && !d.After(end) {
					cover[d.String()]++
				}
			}
		}
		for d := start; !d.After(end); d = d.AddDays(1) {
			if cover[d.String()] != 1 {
				t.Fatalf("iter %d: day %s covered %d times", iter, d, cover[d.String()])
			}
		}
		if len(cover) != start.DaysUntil(end)+1 {
			t.Fatalf("iter %d: coverage spills outside the window", iter)
		}
	}
}

func TestSuggestAlternativesPartialAvailability(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		confirmed("a", day(30), day(32)),
		confirmed("b", day(35), day(37)),
		confirmed("c", day(40), day(42)),
	}}
	alts, err := New(store).SuggestAlternatives(context.Background(), day(29), day(43), 14)
	if err != nil {
		t.Fatal(err)
	}
	if alts == nil {
		t.Fatal("expected alternatives")
	}
	partial := alts.PartialAvailability
	if len(partial) < 3 {
		t.Fatalf("expected at least 3 partial windows, got %v", partial)
	}
	for _, p := range partial {
		if p.Days != p.StartDate.DaysUntil(p.EndDate)+1 {
			t.Fatalf("days mismatch in %+v", p)
		}
		if p.StartDate.Before(day(29)) || p.EndDate.After(day(42)) {
			t.Fatalf("partial window %+v escapes the request", p)
		}
	}
	want := []model.Period{
		model.NewPeriod(day(32), day(34)),
		model.NewPeriod(day(37), day(39)),
		model.NewPeriod(day(29), day(29)),
		model.NewPeriod(day(42), day(42)),
	}
	if !reflect.DeepEqual(partial, want) {
		t.Fatalf("partial = %v, want %v", partial, want)
	}
}

func TestSuggestAlternativesSlidingWindows(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		confirmed("conflict", day(10), day(15)),
		confirmed("later", day(28), day(40)),
	}}
	// 5-night request overlapping the first booking.
	alts, err := New(store).SuggestAlternatives(context.Background(), day(12), day(17), 5)
	if err != nil {
		t.Fatal(err)
	}
	next := alts.NextAvailablePeriods
	if len(next) != MaxNextPeriods {
		t.Fatalf("expected %d next periods, got %d: %v", MaxNextPeriods, len(next), next)
	}
	// Horizon starts on day 16; free run [16,27] is 12 days.
	for off := 0; off < 5; off++ {
		p := next[off]
		if p.Days != 5 || !p.StartDate.Equal(day(16+off)) || !p.EndDate.Equal(day(20+off)) {
			t.Fatalf("window %d = %+v, want %s..%s", off, p, day(16+off), day(20+off))
		}
	}
	for _, p := range next {
		if p.Days != 5 {
			t.Fatalf("every window must be 5 days, got %+v", p)
		}
	}
}

func TestSuggestAlternativesFreeRequest(t *testing.T) {
	alts, err := New(&fakeStore{}).SuggestAlternatives(context.Background(), day(1), day(3), 2)
	if err != nil {
		t.Fatal(err)
	}
	if alts != nil {
		t.Fatalf("free request should have no alternatives, got %+v", alts)
	}
}

func TestSuggestAlternativesHorizonBoundary(t *testing.T) {
	// Everything after the conflict is booked except a run that starts on
	// the last horizon day.
	store := &fakeStore{bookings: []model.Booking{
		confirmed("conflict", day(0), day(4)),
		confirmed("block", day(5), day(5+HorizonDays-1)),
	}}
	alts, err := New(store).SuggestAlternatives(context.Background(), day(1), day(3), 2)
	if err != nil {
		t.Fatal(err)
	}
	// Horizon is [5, 94]; the block ends (checks out) on day 94.
	if len(alts.NextAvailablePeriods) != 0 {
		t.Fatalf("a single free horizon day is below the 2-day minimum, got %v", alts.NextAvailablePeriods)
	}
}

func TestNextPeriodsClassification(t *testing.T) {
	p := func(start, days int) model.Period { return model.NewPeriod(day(start), day(start+days-1)) }

	cases := []struct {
		name   string
		free   []model.Period
		nights int
		want   []model.Period
	}{
		{
			name: "exact match kept once",
			free: []model.Period{p(0, 4)}, nights: 4,
			want: []model.Period{p(0, 4)},
		},
		{
			name: "longer slides up to the slack",
			free: []model.Period{p(0, 6)}, nights: 4,
			want: []model.Period{p(0, 4), p(1, 4), p(2, 4)},
		},
		{
			name: "longer slides at most five times",
			free: []model.Period{p(0, 30)}, nights: 3,
			want: []model.Period{p(0, 3), p(1, 3), p(2, 3), p(3, 3), p(4, 3)},
		},
		{
			name: "shorter but acceptable kept whole",
			free: []model.Period{p(0, 3)}, nights: 6,
			want: []model.Period{p(0, 3)},
		},
		{
			name: "shorter than minimum dropped",
			free: []model.Period{p(0, 2)}, nights: 6,
			want: []model.Period{},
		},
		{
			name: "minimum is at least two days",
			free: []model.Period{p(0, 1), p(5, 2)}, nights: 3,
			want: []model.Period{p(5, 2)},
		},
		{
			name: "sorted by days descending, stable",
			free: []model.Period{p(0, 3), p(10, 8), p(30, 4)}, nights: 6,
			want: []model.Period{p(10, 6), p(11, 6), p(12, 6), p(30, 4), p(0, 3)},
		},
	}

	for _, tc := range cases {
		got := NextPeriods(tc.free, tc.nights)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNextPeriodsStopsAtTen(t *testing.T) {
	var free []model.Period
	for i := 0; i < 5; i++ {
		free = append(free, model.NewPeriod(day(i*20), day(i*20+15)))
	}
	got := NextPeriods(free, 3)
	if len(got) != MaxNextPeriods {
		t.Fatalf("got %d periods, want %d", len(got), MaxNextPeriods)
	}
	if !got[MaxNextPeriods-1].StartDate.Equal(day(24)) {
		t.Fatalf("collection should stop inside the second run, last = %+v", got[MaxNextPeriods-1])
	}
}
