package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/occupancy/internal/models"
)

func newPresentGuest(name string) *models.Guest {
	return &models.Guest{
		Name:        name,
		Encoding:    models.Encoding{0.1, 0.2, 0.3, 0.4},
		Status:      models.StatusPresent,
		CheckinTime: time.Now(),
	}
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g := newPresentGuest("Alice")
	err := s.RunInTx(ctx, func(tx Tx) error {
		if err := tx.InsertGuest(ctx, g); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &models.Event{GuestID: g.ID, Action: models.ActionCheckIn, Time: time.Now()})
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), g.ID)

	got, err := s.GetGuest(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.Name)

	missing, err := s.GetGuest(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(tx Tx) error {
		g := newPresentGuest("Ghost")
		if err := tx.InsertGuest(ctx, g); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, &models.Event{GuestID: g.ID, Action: models.ActionCheckIn, Time: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	guests, err := s.ListGuests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, guests)

	_, total, err := s.ListEvents(ctx, nil, nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	// IDs are not burned by rolled-back transactions.
	g := newPresentGuest("Alice")
	err = s.RunInTx(ctx, func(tx Tx) error { return tx.InsertGuest(ctx, g) })
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID)
}

func TestMemoryStore_TxSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g := newPresentGuest("Alice")
	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error { return tx.InsertGuest(ctx, g) }))

	err := s.RunInTx(ctx, func(tx Tx) error {
		got, err := tx.GuestForUpdate(ctx, g.ID)
		if err != nil {
			return err
		}
		got.Status = models.StatusDeparted
		if err := tx.UpdateGuest(ctx, got); err != nil {
			return err
		}

		// A re-read inside the same transaction observes the staged update.
		again, err := tx.GuestForUpdate(ctx, g.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, models.StatusDeparted, again.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_CandidateScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := newPresentGuest("Alice")
	b := newPresentGuest("Bob")
	b.Status = models.StatusDeparted
	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
		if err := tx.InsertGuest(ctx, a); err != nil {
			return err
		}
		return tx.InsertGuest(ctx, b)
	}))

	all, err := s.Candidates(ctx, ScopeAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Candidates come back in ID order so matching is deterministic.
	assert.Equal(t, a.ID, all[0].GuestID)
	assert.Equal(t, b.ID, all[1].GuestID)

	present, err := s.Candidates(ctx, ScopePresent)
	require.NoError(t, err)
	require.Len(t, present, 1)
	assert.Equal(t, a.ID, present[0].GuestID)
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g := newPresentGuest("Alice")
	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error { return tx.InsertGuest(ctx, g) }))

	got, err := s.GetGuest(ctx, g.ID)
	require.NoError(t, err)
	got.Name = "Mallory"
	got.Encoding[0] = 9

	fresh, err := s.GetGuest(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", fresh.Name)
	assert.Equal(t, float32(0.1), fresh.Encoding[0])
}

func TestMemoryStore_ListEvents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
		for i := 0; i < 5; i++ {
			ev := &models.Event{
				GuestID: int64(i%2 + 1),
				Action:  models.ActionCheckIn,
				Time:    base.Add(time.Duration(i) * time.Hour),
			}
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}))

	events, total, err := s.ListEvents(ctx, nil, nil, nil, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, events, 2)
	// Newest first.
	assert.True(t, events[0].Time.After(events[1].Time))

	guestID := int64(1)
	events, total, err = s.ListEvents(ctx, &guestID, nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, ev := range events {
		assert.Equal(t, guestID, ev.GuestID)
	}

	from := base.Add(1 * time.Hour)
	to := base.Add(3 * time.Hour)
	_, total, err = s.ListEvents(ctx, nil, &from, &to, 10, 0)
	require.NoError(t, err)
	// Half-open interval: events at +1h and +2h, not +3h.
	assert.Equal(t, 2, total)

	_, total, err = s.ListEvents(ctx, nil, nil, nil, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestMemoryStore_CountEventsByAction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
		for i, action := range []models.EventAction{
			models.ActionCheckIn, models.ActionCheckOut, models.ActionCheckIn,
		} {
			ev := &models.Event{GuestID: 1, Action: action, Time: base.Add(time.Duration(i) * time.Hour)}
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}))

	counts, err := s.CountEventsByAction(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.ActionCheckIn])
	assert.Equal(t, int64(1), counts[models.ActionCheckOut])

	from := base.Add(1 * time.Hour)
	counts, err = s.CountEventsByAction(ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ActionCheckIn])
	assert.Equal(t, int64(1), counts[models.ActionCheckOut])
}

func TestMemoryStore_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := newPresentGuest("guest")
			_ = s.RunInTx(ctx, func(tx Tx) error {
				if err := tx.InsertGuest(ctx, g); err != nil {
					return err
				}
				return tx.AppendEvent(ctx, &models.Event{GuestID: g.ID, Action: models.ActionCheckIn, Time: time.Now()})
			})
		}()
	}
	wg.Wait()

	guests, err := s.ListGuests(ctx, nil)
	require.NoError(t, err)
	require.Len(t, guests, workers)

	// Serialized transactions hand out dense, unique IDs.
	seen := map[int64]bool{}
	for _, g := range guests {
		assert.False(t, seen[g.ID])
		seen[g.ID] = true
	}
	_, total, err := s.ListEvents(ctx, nil, nil, nil, workers+1, 0)
	require.NoError(t, err)
	assert.Equal(t, workers, total)
}
