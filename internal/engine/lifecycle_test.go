package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/storage"
)

func newTestController(store storage.Store) *Controller {
	return NewController(store, NewLinearMatcher(0.6, 4))
}

func guestEvents(t *testing.T, store storage.Store, guestID int64) []models.Event {
	t.Helper()
	events, _, err := store.ListEvents(context.Background(), &guestID, nil, nil, 100, 0)
	require.NoError(t, err)
	return events
}

func TestController_EnrollDepartResume(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	enc := encodingOf(4, 0.1)
	guest, event, err := ctrl.Enroll(ctx, EnrollParams{Name: "Alice", Phone: "+100", Encoding: enc})
	require.NoError(t, err)
	require.NotNil(t, guest)
	require.NotNil(t, event)
	assert.Equal(t, models.StatusPresent, guest.Status)
	assert.Equal(t, models.ActionCheckIn, event.Action)
	assert.Equal(t, guest.ID, event.GuestID)
	assert.Nil(t, guest.CheckoutTime)

	departed, outEvent, err := ctrl.Depart(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeparted, departed.Status)
	assert.Equal(t, models.ActionCheckOut, outEvent.Action)
	require.NotNil(t, departed.CheckoutTime)

	resumed, inEvent, err := ctrl.Resume(ctx, guest.ID, ResumeParams{
		Name: "Alice B", Phone: "+200", Encoding: encodingOf(4, 0.11),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, resumed.Status)
	assert.Equal(t, "Alice B", resumed.Name)
	assert.Equal(t, "+200", resumed.Phone)
	assert.Nil(t, resumed.CheckoutTime)
	assert.Equal(t, models.ActionCheckIn, inEvent.Action)

	// The full stay history: check_in, check_out, check_in.
	events := guestEvents(t, store, guest.ID)
	require.Len(t, events, 3)

	var checkIns, checkOuts int
	for _, ev := range events {
		switch ev.Action {
		case models.ActionCheckIn:
			checkIns++
		case models.ActionCheckOut:
			checkOuts++
		}
	}
	assert.Equal(t, 2, checkIns)
	assert.Equal(t, 1, checkOuts)
}

func TestController_EventAlternation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	// Step the clock so the event log has a strict order to assert on.
	var step int
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctrl.Clock = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Bob", Encoding: encodingOf(4, 0.5)})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = ctrl.Depart(ctx, guest.ID)
		require.NoError(t, err)
		_, _, err = ctrl.Resume(ctx, guest.ID, ResumeParams{Name: "Bob", Encoding: encodingOf(4, 0.5)})
		require.NoError(t, err)
	}

	events := guestEvents(t, store, guest.ID)
	require.Len(t, events, 7)

	// ListEvents returns newest first; walk oldest to newest.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	for i, ev := range events {
		want := models.ActionCheckIn
		if i%2 == 1 {
			want = models.ActionCheckOut
		}
		assert.Equalf(t, want, ev.Action, "event %d", i)
	}
}

func TestController_DoubleDepart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Carol", Encoding: encodingOf(4, 0.2)})
	require.NoError(t, err)
	_, _, err = ctrl.Depart(ctx, guest.ID)
	require.NoError(t, err)

	_, _, err = ctrl.Depart(ctx, guest.ID)
	require.ErrorIs(t, err, ErrNotPresent)

	// The rejected attempt must not have appended a second check_out.
	events := guestEvents(t, store, guest.ID)
	require.Len(t, events, 2)
}

func TestController_DepartUnknownGuest(t *testing.T) {
	ctrl := newTestController(storage.NewMemoryStore())
	_, _, err := ctrl.Depart(context.Background(), 42)
	require.ErrorIs(t, err, ErrGuestNotFound)
}

func TestController_EnrollDuplicateFace(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	enc := encodingOf(4, 0.3)
	first, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Dave", Encoding: enc})
	require.NoError(t, err)

	_, _, err = ctrl.Enroll(ctx, EnrollParams{Name: "Impostor", Encoding: enc})
	require.ErrorIs(t, err, ErrDuplicateFace)

	// A departed guest still blocks re-enrollment of the same face.
	_, _, err = ctrl.Depart(ctx, first.ID)
	require.NoError(t, err)
	_, _, err = ctrl.Enroll(ctx, EnrollParams{Name: "Impostor", Encoding: enc})
	require.ErrorIs(t, err, ErrDuplicateFace)

	guests, err := store.ListGuests(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, guests, 1)
}

func TestController_EnrollShapeMismatch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	_, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Eve", Encoding: encodingOf(3, 0.1)})
	require.ErrorIs(t, err, ErrEncodingShapeMismatch)

	guests, err := store.ListGuests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestController_ResumeErrors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	_, _, err := ctrl.Resume(ctx, 99, ResumeParams{Name: "Nobody", Encoding: encodingOf(4, 0.1)})
	require.ErrorIs(t, err, ErrGuestNotFound)

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Frank", Encoding: encodingOf(4, 0.4)})
	require.NoError(t, err)

	_, _, err = ctrl.Resume(ctx, guest.ID, ResumeParams{Name: "Frank", Encoding: encodingOf(4, 0.4)})
	require.ErrorIs(t, err, ErrAlreadyPresent)

	events := guestEvents(t, store, guest.ID)
	require.Len(t, events, 1)
}

func TestController_Identify(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Grace", Encoding: encodingOf(4, 0.25)})
	require.NoError(t, err)

	found, ok, err := ctrl.Identify(ctx, encodingOf(4, 0.25), storage.ScopeAll)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, guest.ID, found.ID)

	_, ok, err = ctrl.Identify(ctx, encodingOf(4, 5), storage.ScopeAll)
	require.NoError(t, err)
	assert.False(t, ok)

	// Once departed, the guest is invisible to present-scope matching
	// but still recognized against the full registry.
	_, _, err = ctrl.Depart(ctx, guest.ID)
	require.NoError(t, err)

	_, ok, err = ctrl.Identify(ctx, encodingOf(4, 0.25), storage.ScopePresent)
	require.NoError(t, err)
	assert.False(t, ok)

	found, ok, err = ctrl.Identify(ctx, encodingOf(4, 0.25), storage.ScopeAll)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, guest.ID, found.ID)
}

func TestController_DepartByProbe(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Heidi", Encoding: encodingOf(4, 0.35)})
	require.NoError(t, err)

	departed, event, err := ctrl.DepartByProbe(ctx, encodingOf(4, 0.35))
	require.NoError(t, err)
	assert.Equal(t, guest.ID, departed.ID)
	assert.Equal(t, models.StatusDeparted, departed.Status)
	assert.Equal(t, models.ActionCheckOut, event.Action)

	// The same probe no longer matches any present guest.
	_, _, err = ctrl.DepartByProbe(ctx, encodingOf(4, 0.35))
	require.ErrorIs(t, err, ErrGuestNotFound)
}

func TestController_ConcurrentDepart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ctrl := newTestController(store)

	guest, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Ivan", Encoding: encodingOf(4, 0.45)})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = ctrl.Depart(ctx, guest.ID)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrNotPresent)
		}
	}
	assert.Equal(t, 1, succeeded)

	events := guestEvents(t, store, guest.ID)
	assert.Len(t, events, 2)
}

// failingStore forces the event append to fail so the test can observe
// that the guest mutation rolls back with it.
type failingStore struct {
	*storage.MemoryStore
}

var errAppendBroken = errors.New("append broken")

func (s *failingStore) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.MemoryStore.RunInTx(ctx, func(tx storage.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

type failingTx struct {
	storage.Tx
}

func (t *failingTx) AppendEvent(context.Context, *models.Event) error {
	return errAppendBroken
}

func TestController_EnrollAtomicity(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	ctrl := newTestController(&failingStore{MemoryStore: mem})

	_, _, err := ctrl.Enroll(ctx, EnrollParams{Name: "Judy", Encoding: encodingOf(4, 0.15)})
	require.ErrorIs(t, err, errAppendBroken)

	// No guest without its event.
	guests, err := mem.ListGuests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestController_DepartAtomicity(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()

	guest, _, err := newTestController(mem).Enroll(ctx, EnrollParams{Name: "Ken", Encoding: encodingOf(4, 0.55)})
	require.NoError(t, err)

	broken := newTestController(&failingStore{MemoryStore: mem})
	_, _, err = broken.Depart(ctx, guest.ID)
	require.ErrorIs(t, err, errAppendBroken)

	// The status flip rolled back with the failed append.
	g, err := mem.GetGuest(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, g.Status)
	assert.Len(t, guestEvents(t, mem, guest.ID), 1)
}
