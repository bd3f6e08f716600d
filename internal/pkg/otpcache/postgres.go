package otpcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn is the subset of *pgxpool.Pool used by the Postgres backend.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const (
	pgSchema = `CREATE TABLE IF NOT EXISTS otp_records (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

	pgUpsert = `INSERT INTO otp_records (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	pgSelect = `SELECT value FROM otp_records WHERE key = $1 AND expires_at > now()`

	pgDelete = `DELETE FROM otp_records WHERE key = $1`

	pgPurge = `DELETE FROM otp_records WHERE expires_at <= now()`
)

// Postgres is a shared Backend keeping records in the otp_records table.
// Expiry is enforced on read; Purge reclaims the rows.
type Postgres struct {
	conn  PgxConn
	clock func() time.Time
}

// NewPostgres wraps conn. The pool stays owned by the caller.
func NewPostgres(conn PgxConn) *Postgres {
	return &Postgres{
		conn:  conn,
		clock: time.Now,
	}
}

// Name implements Backend.
func (*Postgres) Name() string { return "postgres" }

// Ping checks the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.conn.Ping(ctx)
}

// EnsureSchema creates the otp_records table when it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.conn.Exec(ctx, pgSchema)
	return err
}

// Set upserts the record with expires_at = now + ttl.
func (p *Postgres) Set(ctx context.Context, phone string, entry Entry) error {
	expiresAt := p.clock().Add(entry.TTL())
	_, err := p.conn.Exec(ctx, pgUpsert, namespacedKey(phone), entry.Encoded, expiresAt)
	return err
}

// Get returns the unexpired record under phone.
func (p *Postgres) Get(ctx context.Context, phone string) (*Record, error) {
	var raw []byte
	err := p.conn.QueryRow(ctx, pgSelect, namespacedKey(phone)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Join(ErrDeserialize, err)
	}

	return &rec, nil
}

// Delete implements Backend.
func (p *Postgres) Delete(ctx context.Context, phone string) error {
	_, err := p.conn.Exec(ctx, pgDelete, namespacedKey(phone))
	return err
}

// Purge deletes expired rows and reports how many were removed.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	tag, err := p.conn.Exec(ctx, pgPurge)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// Close is a no-op; the pool is closed by its owner.
func (*Postgres) Close() error { return nil }
