package connections

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/datadeck-io/datadeck-api/internal/models"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ProbeErrorKind
	}{
		{
			"pg invalid password",
			&pgconn.PgError{Code: "28P01", Message: "password authentication failed for user \"u\""},
			models.ProbeErrorAuth,
		},
		{
			"pg missing database",
			&pgconn.PgError{Code: "3D000", Message: "database \"nope\" does not exist"},
			models.ProbeErrorProtocol,
		},
		{
			"pg wrapped in connect error",
			fmt.Errorf("failed to connect: %w", &pgconn.PgError{Code: "28000"}),
			models.ProbeErrorAuth,
		},
		{
			"mysql access denied",
			&gomysql.MySQLError{Number: 1045, Message: "Access denied for user 'u'@'localhost'"},
			models.ProbeErrorAuth,
		},
		{
			"mysql unknown database",
			&gomysql.MySQLError{Number: 1049, Message: "Unknown database 'nope'"},
			models.ProbeErrorProtocol,
		},
		{
			"mongo authentication failed",
			mongo.CommandError{Code: 18, Name: "AuthenticationFailed", Message: "Authentication failed."},
			models.ProbeErrorAuth,
		},
		{
			"mongo handshake auth text",
			errors.New("connection() error occurred during connection handshake: auth error: sasl conversation error"),
			models.ProbeErrorAuth,
		},
		{
			"deadline exceeded",
			context.DeadlineExceeded,
			models.ProbeErrorTimeout,
		},
		{
			"connection refused",
			&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			models.ProbeErrorNetwork,
		},
		{
			"dns failure",
			&net.DNSError{Err: "no such host", Name: "db.nowhere.invalid"},
			models.ProbeErrorNetwork,
		},
		{
			"mongo server selection against unreachable host",
			errors.New("server selection error: context deadline exceeded, current topology: { Type: Unknown, Servers: [{ Addr: localhost:27017, State: Unknown, Error: connection refused }] }"),
			models.ProbeErrorNetwork,
		},
		{
			"anything else from a live connection",
			errors.New("unexpected EOF"),
			models.ProbeErrorProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestNormalizeError_LatencyOnlyAfterEstablishment(t *testing.T) {
	desc := &models.ConnectionDescriptor{Kind: models.EnginePostgreSQL, Password: "secret"}
	latency := int64(42)

	authRes := normalizeError(&pgconn.PgError{Code: "28P01"}, desc, &latency)
	assert.Equal(t, &latency, authRes.LatencyMs)

	netRes := normalizeError(&net.DNSError{Err: "no such host"}, desc, &latency)
	assert.Nil(t, netRes.LatencyMs)

	timeoutRes := normalizeError(context.DeadlineExceeded, desc, &latency)
	assert.Nil(t, timeoutRes.LatencyMs)
}

func TestNormalizeError_StampsAttemptedKind(t *testing.T) {
	desc := &models.ConnectionDescriptor{Kind: models.EngineMongoDB}
	res := normalizeError(errors.New("no reachable servers"), desc, nil)

	assert.Equal(t, models.EngineMongoDB, res.Kind)
	assert.Equal(t, models.ProbeErrorNetwork, res.ErrorKind)
	assert.NotEmpty(t, res.Message)
}

func TestScrub_NeverEchoesCredentials(t *testing.T) {
	desc := &models.ConnectionDescriptor{Kind: models.EnginePostgreSQL, Password: "p@ss:word"}

	msg := scrub("failed to connect to postgresql://u:p%40ss%3Aword@h:5432/db: auth failed for p@ss:word", desc)

	assert.NotContains(t, msg, "p@ss:word")
	assert.NotContains(t, msg, "p%40ss%3Aword")
	assert.Contains(t, msg, "*****")
}
