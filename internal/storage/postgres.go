package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/occupancy/internal/config"
	"github.com/your-org/occupancy/internal/models"
)

// enrollLockKey is the advisory lock taken by enrolling transactions.
// It serializes enrollments against each other without blocking
// resume/depart, which lock individual guest rows instead.
const enrollLockKey = 0x6f636375

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the schema for the given encoding dimensionality.
func (s *PostgresStore) Migrate(ctx context.Context, dimensions int) error {
	if _, err := s.pool.Exec(ctx, Schema(dimensions)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

// --- Guests ---

const guestColumns = `id, name, phone, encoding, status, checkin_time, checkout_time, photo_key, created_at, updated_at`

func scanGuest(row pgx.Row) (*models.Guest, error) {
	g := &models.Guest{}
	var vec pgvector.Vector
	err := row.Scan(&g.ID, &g.Name, &g.Phone, &vec, &g.Status,
		&g.CheckinTime, &g.CheckoutTime, &g.PhotoKey, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Encoding = models.Encoding(vec.Slice())
	return g, nil
}

func (s *PostgresStore) GetGuest(ctx context.Context, id int64) (*models.Guest, error) {
	g, err := scanGuest(s.pool.QueryRow(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) ListGuests(ctx context.Context, status *models.GuestStatus) ([]models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests`
	var args []interface{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	return guests, nil
}

func (s *PostgresStore) Candidates(ctx context.Context, scope CandidateScope) ([]models.Candidate, error) {
	return queryCandidates(ctx, s.pool, scope)
}

func (s *PostgresStore) UpdateGuestPhotoKey(ctx context.Context, id int64, key string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE guests SET photo_key = $1, updated_at = now() WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("update guest photo key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guest %d not found", id)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryCandidates(ctx context.Context, q querier, scope CandidateScope) ([]models.Candidate, error) {
	query := `SELECT id, encoding FROM guests`
	if scope == ScopePresent {
		query += ` WHERE status = 'present'`
	}
	query += ` ORDER BY id`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var cands []models.Candidate
	for rows.Next() {
		var c models.Candidate
		var vec pgvector.Vector
		if err := rows.Scan(&c.GuestID, &vec); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Encoding = models.Encoding(vec.Slice())
		cands = append(cands, c)
	}
	return cands, nil
}

// --- Events ---

func (s *PostgresStore) ListEvents(ctx context.Context, guestID *int64, from, to *time.Time, limit, offset int) ([]models.Event, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	where := "WHERE TRUE"
	var args []interface{}
	argIdx := 1

	if guestID != nil {
		where += fmt.Sprintf(" AND guest_id = $%d", argIdx)
		args = append(args, *guestID)
		argIdx++
	}
	if from != nil {
		where += fmt.Sprintf(" AND time >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		where += fmt.Sprintf(" AND time < $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, guest_id, action, count, time FROM events %s ORDER BY time DESC, id LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.GuestID, &ev.Action, &ev.Count, &ev.Time); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, total, nil
}

func (s *PostgresStore) CountEventsByAction(ctx context.Context, from, to *time.Time) (map[models.EventAction]int64, error) {
	where := "WHERE TRUE"
	var args []interface{}
	argIdx := 1

	if from != nil {
		where += fmt.Sprintf(" AND time >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		where += fmt.Sprintf(" AND time < $%d", argIdx)
		args = append(args, *to)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT action, COALESCE(SUM(count), 0) FROM events `+where+` GROUP BY action`, args...)
	if err != nil {
		return nil, fmt.Errorf("count events by action: %w", err)
	}
	defer rows.Close()

	counts := map[models.EventAction]int64{}
	for rows.Next() {
		var action models.EventAction
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[action] = n
	}
	return counts, nil
}

// --- Transaction ---

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockRegistry(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, enrollLockKey); err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	return nil
}

func (t *pgTx) Candidates(ctx context.Context, scope CandidateScope) ([]models.Candidate, error) {
	return queryCandidates(ctx, t.tx, scope)
}

func (t *pgTx) GuestForUpdate(ctx context.Context, id int64) (*models.Guest, error) {
	g, err := scanGuest(t.tx.QueryRow(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get guest for update: %w", err)
	}
	return g, nil
}

func (t *pgTx) InsertGuest(ctx context.Context, g *models.Guest) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO guests (name, phone, encoding, status, checkin_time, checkout_time, photo_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		g.Name, g.Phone, pgvector.NewVector(g.Encoding), g.Status,
		g.CheckinTime, g.CheckoutTime, g.PhotoKey,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert guest: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateGuest(ctx context.Context, g *models.Guest) error {
	err := t.tx.QueryRow(ctx,
		`UPDATE guests
		 SET name = $1, phone = $2, encoding = $3, status = $4,
		     checkin_time = $5, checkout_time = $6, photo_key = $7, updated_at = now()
		 WHERE id = $8 RETURNING updated_at`,
		g.Name, g.Phone, pgvector.NewVector(g.Encoding), g.Status,
		g.CheckinTime, g.CheckoutTime, g.PhotoKey, g.ID,
	).Scan(&g.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("guest %d not found", g.ID)
		}
		return fmt.Errorf("update guest: %w", err)
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, ev *models.Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Count == 0 {
		ev.Count = 1
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, guest_id, action, count, time) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.GuestID, ev.Action, ev.Count, ev.Time); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
