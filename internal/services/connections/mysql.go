package connections

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"

	gomysql "github.com/go-sql-driver/mysql"
)

// dialMySQL opens a single ephemeral connection using the driver's
// structural config. MySQL is the one engine addressed by discrete
// fields rather than an assembled URI; the DSN exists only inside the
// connector.
func dialMySQL(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
	cfg := gomysql.NewConfig()
	cfg.User = desc.Username
	cfg.Passwd = desc.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(desc.Host, strconv.Itoa(desc.Port))
	cfg.DBName = desc.Database
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		cfg.Timeout = remaining
		cfg.ReadTimeout = remaining
		cfg.WriteTimeout = remaining
	}

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)

	// sql.OpenDB dials lazily; Conn forces establishment now so the
	// timer covers the handshake.
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &mysqlConn{db: db, conn: conn}, nil
}

type mysqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

// Live issues a trivial scalar query against the target database, so a
// missing database surfaces as a failure for this engine.
func (c *mysqlConn) Live(ctx context.Context) error {
	var one int
	return c.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (c *mysqlConn) Close(_ context.Context) error {
	return errors.Join(c.conn.Close(), c.db.Close())
}
