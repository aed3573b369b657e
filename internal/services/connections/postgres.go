package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"github.com/jackc/pgx/v5"
)

// dialPostgres opens a single ephemeral pgx connection. Supabase targets
// go through the same wire protocol; their descriptor already carries
// sslmode=require in the URI.
func dialPostgres(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
	cfg, err := pgx.ParseConfig(desc.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		cfg.ConnectTimeout = time.Until(deadline)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgConn{conn: conn}, nil
}

type pgConn struct {
	conn *pgx.Conn
}

// Live issues a trivial scalar query against the target database, so a
// missing database surfaces as a failure for this engine family.
func (c *pgConn) Live(ctx context.Context) error {
	var one int
	return c.conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (c *pgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
