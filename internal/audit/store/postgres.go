package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinypath/tinypath/internal/audit"
)

// Postgres persists audit events in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE redirect_changes (
//	    id          UUID PRIMARY KEY,
//	    action      TEXT        NOT NULL,
//	    source      TEXT        NOT NULL,
//	    destination TEXT,
//	    is_private  BOOLEAN     NOT NULL DEFAULT FALSE,
//	    "user"      TEXT        NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE redirect_visits (
//	    id          UUID PRIMARY KEY,
//	    source      TEXT        NOT NULL,
//	    destination TEXT        NOT NULL,
//	    resolved_at TIMESTAMPTZ NOT NULL,
//	    client_ip   TEXT,
//	    user_agent  TEXT,
//	    referrer    TEXT
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-backed audit store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) SaveRedirectChanged(ctx context.Context, event *audit.RedirectChangedEvent) error {
	query := `
		INSERT INTO redirect_changes (id, action, source, destination, is_private, "user", occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.pool.Exec(ctx, query,
		uuid.New(),
		event.Action,
		event.Source,
		nullable(event.Destination),
		event.IsPrivate,
		event.User,
		event.OccurredAt,
	)

	return err
}

func (p *Postgres) SaveRedirectResolved(ctx context.Context, event *audit.RedirectResolvedEvent) error {
	query := `
		INSERT INTO redirect_visits (id, source, destination, resolved_at, client_ip, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.pool.Exec(ctx, query,
		uuid.New(),
		event.Source,
		event.Destination,
		event.ResolvedAt,
		nullable(event.ClientIP),
		nullable(event.UserAgent),
		nullable(event.Referrer),
	)

	return err
}

// Shutdown closes the connection pool.
func (p *Postgres) Shutdown() error {
	p.pool.Close()

	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
