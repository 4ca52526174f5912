package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/occupancy/internal/models"
)

// MemoryStore is an in-process Store used by tests and by deployments
// that run without Postgres. Transactions stage their writes and apply
// them only when the callback succeeds, mirroring the rollback
// behavior of the Postgres implementation. A single mutex plays the
// role of the per-guest row locks: mutations are fully serialized.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	guests map[int64]*models.Guest
	events []models.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		guests: make(map[int64]*models.Guest),
	}
}

func cloneGuest(g *models.Guest) *models.Guest {
	c := *g
	c.Encoding = append(models.Encoding(nil), g.Encoding...)
	if g.CheckoutTime != nil {
		t := *g.CheckoutTime
		c.CheckoutTime = &t
	}
	return &c
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[int64]*models.Guest)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, g := range tx.staged {
		s.guests[id] = g
	}
	s.events = append(s.events, tx.stagedEvents...)
	s.nextID += int64(tx.inserted)
	return nil
}

func (s *MemoryStore) GetGuest(_ context.Context, id int64) (*models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guests[id]
	if !ok {
		return nil, nil
	}
	return cloneGuest(g), nil
}

func (s *MemoryStore) ListGuests(_ context.Context, status *models.GuestStatus) ([]models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var guests []models.Guest
	for _, g := range s.guests {
		if status != nil && g.Status != *status {
			continue
		}
		guests = append(guests, *cloneGuest(g))
	}
	sort.Slice(guests, func(i, j int) bool { return guests[i].ID < guests[j].ID })
	return guests, nil
}

func (s *MemoryStore) Candidates(_ context.Context, scope CandidateScope) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidatesLocked(scope), nil
}

func (s *MemoryStore) candidatesLocked(scope CandidateScope) []models.Candidate {
	var cands []models.Candidate
	for _, g := range s.guests {
		if scope == ScopePresent && g.Status != models.StatusPresent {
			continue
		}
		cands = append(cands, models.Candidate{
			GuestID:  g.ID,
			Encoding: append(models.Encoding(nil), g.Encoding...),
		})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].GuestID < cands[j].GuestID })
	return cands
}

func (s *MemoryStore) ListEvents(_ context.Context, guestID *int64, from, to *time.Time, limit, offset int) ([]models.Event, int, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []models.Event
	for _, ev := range s.events {
		if guestID != nil && ev.GuestID != *guestID {
			continue
		}
		if from != nil && ev.Time.Before(*from) {
			continue
		}
		if to != nil && !ev.Time.Before(*to) {
			continue
		}
		filtered = append(filtered, ev)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Time.After(filtered[j].Time) })

	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *MemoryStore) CountEventsByAction(_ context.Context, from, to *time.Time) (map[models.EventAction]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[models.EventAction]int64{}
	for _, ev := range s.events {
		if from != nil && ev.Time.Before(*from) {
			continue
		}
		if to != nil && !ev.Time.Before(*to) {
			continue
		}
		counts[ev.Action] += int64(ev.Count)
	}
	return counts, nil
}

// UpdateGuestPhotoKey mirrors the Postgres method for the photo upload path.
func (s *MemoryStore) UpdateGuestPhotoKey(_ context.Context, id int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guests[id]
	if !ok {
		return fmt.Errorf("guest %d not found", id)
	}
	g.PhotoKey = key
	g.UpdatedAt = time.Now()
	return nil
}

type memTx struct {
	store        *MemoryStore
	staged       map[int64]*models.Guest
	stagedEvents []models.Event
	inserted     int
}

func (t *memTx) LockRegistry(context.Context) error {
	// The store mutex already serializes all transactions.
	return nil
}

func (t *memTx) Candidates(_ context.Context, scope CandidateScope) ([]models.Candidate, error) {
	return t.store.candidatesLocked(scope), nil
}

func (t *memTx) GuestForUpdate(_ context.Context, id int64) (*models.Guest, error) {
	if g, ok := t.staged[id]; ok {
		return cloneGuest(g), nil
	}
	g, ok := t.store.guests[id]
	if !ok {
		return nil, nil
	}
	return cloneGuest(g), nil
}

func (t *memTx) InsertGuest(_ context.Context, g *models.Guest) error {
	g.ID = t.store.nextID + int64(t.inserted)
	t.inserted++
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	t.staged[g.ID] = cloneGuest(g)
	return nil
}

func (t *memTx) UpdateGuest(_ context.Context, g *models.Guest) error {
	if _, staged := t.staged[g.ID]; !staged {
		if _, ok := t.store.guests[g.ID]; !ok {
			return fmt.Errorf("guest %d not found", g.ID)
		}
	}
	g.UpdatedAt = time.Now()
	t.staged[g.ID] = cloneGuest(g)
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, ev *models.Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Count == 0 {
		ev.Count = 1
	}
	t.stagedEvents = append(t.stagedEvents, *ev)
	return nil
}
