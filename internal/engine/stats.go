package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/storage"
)

// Window is a reporting period for lifecycle statistics.
type Window string

const (
	WindowToday Window = "today"
	// WindowWeek covers today and the preceding six days: a 7-day
	// window, inclusive of today.
	WindowWeek  Window = "7d"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowToday, WindowWeek, WindowMonth, WindowYear:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown stats window %q", s)
}

// Bounds returns the half-open [from, to) interval the window covers
// at the given instant. Calendar boundaries are taken in loc, which
// must be the same zone convention events are interpreted in.
func (w Window) Bounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch w {
	case WindowToday:
		return midnight, midnight.AddDate(0, 0, 1)
	case WindowWeek:
		return midnight.AddDate(0, 0, -6), midnight.AddDate(0, 0, 1)
	case WindowMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(0, 1, 0)
	case WindowYear:
		first := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(1, 0, 0)
	}
	return midnight, midnight.AddDate(0, 0, 1)
}

// Aggregator derives per-action counts from the event log. It is a
// pure read path: it may run concurrently with lifecycle mutations
// and tolerates a just-committed event not being reflected yet.
type Aggregator struct {
	store storage.Store
	loc   *time.Location

	// Clock is swappable for tests; defaults to time.Now.
	Clock func() time.Time
}

func NewAggregator(store storage.Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc, Clock: time.Now}
}

// Aggregate counts events per action within the window. Both actions
// are always present in the result, zero-valued when nothing happened.
func (a *Aggregator) Aggregate(ctx context.Context, w Window) (map[models.EventAction]int64, time.Time, time.Time, error) {
	from, to := w.Bounds(a.Clock(), a.loc)
	counts, err := a.store.CountEventsByAction(ctx, &from, &to)
	if err != nil {
		return nil, from, to, err
	}
	return fillActions(counts), from, to, nil
}

// Totals counts events per action over the whole log.
func (a *Aggregator) Totals(ctx context.Context) (map[models.EventAction]int64, error) {
	counts, err := a.store.CountEventsByAction(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return fillActions(counts), nil
}

func fillActions(counts map[models.EventAction]int64) map[models.EventAction]int64 {
	if counts == nil {
		counts = map[models.EventAction]int64{}
	}
	for _, action := range []models.EventAction{models.ActionCheckIn, models.ActionCheckOut} {
		if _, ok := counts[action]; !ok {
			counts[action] = 0
		}
	}
	return counts
}
