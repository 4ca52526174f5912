package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/observability"
	"github.com/your-org/occupancy/internal/storage"
)

// Controller drives guests through the present/departed lifecycle.
// Every operation runs its guest mutation and event append inside one
// storage transaction, so a failure leaves the registry untouched and
// the caller may safely retry.
type Controller struct {
	store   storage.Store
	matcher Matcher

	// Clock is swappable for tests; defaults to time.Now.
	Clock func() time.Time
}

func NewController(store storage.Store, matcher Matcher) *Controller {
	return &Controller{store: store, matcher: matcher, Clock: time.Now}
}

type EnrollParams struct {
	Name     string
	Phone    string
	Encoding models.Encoding
	PhotoKey string
}

type ResumeParams struct {
	Name     string
	Phone    string
	Encoding models.Encoding
}

// Enroll registers a brand-new guest as present. The caller is
// expected to have already run Identify and found no match; Enroll
// re-checks against the full registry inside the transaction and
// fails with ErrDuplicateFace if a match exists, so a race with
// another enrollment cannot create two guests for one face.
func (c *Controller) Enroll(ctx context.Context, p EnrollParams) (*models.Guest, *models.Event, error) {
	if err := c.checkProbe(p.Encoding); err != nil {
		return nil, nil, err
	}

	var (
		guest *models.Guest
		event *models.Event
	)
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockRegistry(ctx); err != nil {
			return err
		}
		cands, err := tx.Candidates(ctx, storage.ScopeAll)
		if err != nil {
			return err
		}
		matchedID, ok, err := c.timedMatch(p.Encoding, cands)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: matches guest %d", ErrDuplicateFace, matchedID)
		}

		now := c.Clock()
		guest = &models.Guest{
			Name:        p.Name,
			Phone:       p.Phone,
			Encoding:    p.Encoding,
			Status:      models.StatusPresent,
			CheckinTime: now,
			PhotoKey:    p.PhotoKey,
		}
		if err := tx.InsertGuest(ctx, guest); err != nil {
			return err
		}
		event = &models.Event{GuestID: guest.ID, Action: models.ActionCheckIn, Count: 1, Time: now}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, nil, err
	}

	observability.LifecycleEvents.WithLabelValues(string(models.ActionCheckIn)).Inc()
	observability.Enrollments.Inc()
	observability.GuestsPresent.Inc()
	slog.Info("guest enrolled", "guest_id", guest.ID, "name", guest.Name)
	return guest, event, nil
}

// Resume checks a previously departed guest back in, overwriting the
// profile fields and the stored encoding with the latest capture.
func (c *Controller) Resume(ctx context.Context, guestID int64, p ResumeParams) (*models.Guest, *models.Event, error) {
	if err := c.checkProbe(p.Encoding); err != nil {
		return nil, nil, err
	}

	var (
		guest *models.Guest
		event *models.Event
	)
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		g, err := tx.GuestForUpdate(ctx, guestID)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("%w: id %d", ErrGuestNotFound, guestID)
		}
		if g.Status == models.StatusPresent {
			return fmt.Errorf("%w: guest %d", ErrAlreadyPresent, guestID)
		}

		now := c.Clock()
		g.Name = p.Name
		g.Phone = p.Phone
		g.Encoding = p.Encoding
		g.Status = models.StatusPresent
		g.CheckinTime = now
		g.CheckoutTime = nil
		if err := tx.UpdateGuest(ctx, g); err != nil {
			return err
		}
		guest = g
		event = &models.Event{GuestID: g.ID, Action: models.ActionCheckIn, Count: 1, Time: now}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, nil, err
	}

	observability.LifecycleEvents.WithLabelValues(string(models.ActionCheckIn)).Inc()
	observability.GuestsPresent.Inc()
	slog.Info("guest checked in", "guest_id", guest.ID, "name", guest.Name)
	return guest, event, nil
}

// Depart checks a present guest out.
func (c *Controller) Depart(ctx context.Context, guestID int64) (*models.Guest, *models.Event, error) {
	var (
		guest *models.Guest
		event *models.Event
	)
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		g, err := tx.GuestForUpdate(ctx, guestID)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("%w: id %d", ErrGuestNotFound, guestID)
		}
		var e error
		guest, event, e = c.departLocked(ctx, tx, g)
		return e
	})
	if err != nil {
		return nil, nil, err
	}

	c.recordDeparture(guest)
	return guest, event, nil
}

// DepartByProbe matches the probe against present guests and checks
// the matched guest out, all inside one transaction so the candidate
// snapshot and the mutation it gates cannot diverge.
func (c *Controller) DepartByProbe(ctx context.Context, probe models.Encoding) (*models.Guest, *models.Event, error) {
	if err := c.checkProbe(probe); err != nil {
		return nil, nil, err
	}

	var (
		guest *models.Guest
		event *models.Event
	)
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		cands, err := tx.Candidates(ctx, storage.ScopePresent)
		if err != nil {
			return err
		}
		matchedID, ok, err := c.timedMatch(probe, cands)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no present guest matches probe", ErrGuestNotFound)
		}

		g, err := tx.GuestForUpdate(ctx, matchedID)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("%w: id %d", ErrGuestNotFound, matchedID)
		}
		var e error
		guest, event, e = c.departLocked(ctx, tx, g)
		return e
	})
	if err != nil {
		return nil, nil, err
	}

	c.recordDeparture(guest)
	return guest, event, nil
}

func (c *Controller) departLocked(ctx context.Context, tx storage.Tx, g *models.Guest) (*models.Guest, *models.Event, error) {
	if g.Status != models.StatusPresent {
		return nil, nil, fmt.Errorf("%w: guest %d", ErrNotPresent, g.ID)
	}

	now := c.Clock()
	g.Status = models.StatusDeparted
	g.CheckoutTime = &now
	if err := tx.UpdateGuest(ctx, g); err != nil {
		return nil, nil, err
	}
	event := &models.Event{GuestID: g.ID, Action: models.ActionCheckOut, Count: 1, Time: now}
	if err := tx.AppendEvent(ctx, event); err != nil {
		return nil, nil, err
	}
	return g, event, nil
}

func (c *Controller) recordDeparture(guest *models.Guest) {
	observability.LifecycleEvents.WithLabelValues(string(models.ActionCheckOut)).Inc()
	observability.GuestsPresent.Dec()
	slog.Info("guest checked out", "guest_id", guest.ID, "name", guest.Name)
}

// Identify matches a probe against the registry without mutating
// anything. Scope should be ScopeAll for check-in flows (returning
// guests are recognized after departure) and ScopePresent for
// check-out flows.
func (c *Controller) Identify(ctx context.Context, probe models.Encoding, scope storage.CandidateScope) (*models.Guest, bool, error) {
	if err := c.checkProbe(probe); err != nil {
		return nil, false, err
	}

	cands, err := c.store.Candidates(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	matchedID, ok, err := c.timedMatch(probe, cands)
	if err != nil || !ok {
		return nil, false, err
	}

	g, err := c.store.GetGuest(ctx, matchedID)
	if err != nil {
		return nil, false, err
	}
	if g == nil {
		return nil, false, fmt.Errorf("%w: id %d", ErrGuestNotFound, matchedID)
	}
	return g, true, nil
}

func (c *Controller) checkProbe(probe models.Encoding) error {
	if shaped, ok := c.matcher.(interface{ CheckShape(models.Encoding) error }); ok {
		return shaped.CheckShape(probe)
	}
	if len(probe) == 0 {
		return fmt.Errorf("%w: empty probe", ErrEncodingShapeMismatch)
	}
	return nil
}

func (c *Controller) timedMatch(probe models.Encoding, cands []models.Candidate) (int64, bool, error) {
	start := time.Now()
	id, ok, err := c.matcher.Match(probe, cands)
	observability.MatchDuration.Observe(time.Since(start).Seconds())
	return id, ok, err
}
