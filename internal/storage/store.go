package storage

import (
	"context"
	"time"

	"github.com/your-org/occupancy/internal/models"
)

// CandidateScope selects which part of the registry the matcher sees.
// Check-in matches the full registry so returning guests are
// recognized after departure; check-out only considers present guests.
type CandidateScope string

const (
	ScopeAll     CandidateScope = "all"
	ScopePresent CandidateScope = "present"
)

// Tx is the unit the lifecycle controller mutates guests through.
// Guest-row changes and event appends made through one Tx commit
// together or not at all.
type Tx interface {
	// LockRegistry serializes enrollments for the duration of the
	// transaction so two racing enrolls of the same face cannot both
	// insert.
	LockRegistry(ctx context.Context) error

	// Candidates returns (id, encoding) pairs in ascending ID order,
	// read at this transaction's snapshot.
	Candidates(ctx context.Context, scope CandidateScope) ([]models.Candidate, error)

	// GuestForUpdate loads a guest and holds a write lock on its row
	// until the transaction ends. Returns nil when the guest does not
	// exist.
	GuestForUpdate(ctx context.Context, id int64) (*models.Guest, error)

	// InsertGuest creates a guest row and assigns g.ID.
	InsertGuest(ctx context.Context, g *models.Guest) error

	UpdateGuest(ctx context.Context, g *models.Guest) error

	// AppendEvent writes one lifecycle event and assigns ev.ID.
	AppendEvent(ctx context.Context, ev *models.Event) error
}

// Store is the durable registry the engine runs against. Read methods
// outside RunInTx may lag in-flight mutations; the statistics
// aggregator tolerates that.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	GetGuest(ctx context.Context, id int64) (*models.Guest, error)
	ListGuests(ctx context.Context, status *models.GuestStatus) ([]models.Guest, error)
	Candidates(ctx context.Context, scope CandidateScope) ([]models.Candidate, error)

	// UpdateGuestPhotoKey records where a guest's enrollment photo is
	// stored. Photo retention is supplementary; it is not part of any
	// lifecycle transaction.
	UpdateGuestPhotoKey(ctx context.Context, id int64, key string) error

	ListEvents(ctx context.Context, guestID *int64, from, to *time.Time, limit, offset int) ([]models.Event, int, error)

	// CountEventsByAction sums event counts per action over [from, to).
	// Nil bounds mean unbounded on that side.
	CountEventsByAction(ctx context.Context, from, to *time.Time) (map[models.EventAction]int64, error)
}
