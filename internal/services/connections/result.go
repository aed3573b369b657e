package connections

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/datadeck-io/datadeck-api/internal/models"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// Postgres SQLSTATE classes and codes of interest.
const (
	pgClassInvalidAuth = "28"    // invalid_authorization_specification
	pgInvalidCatalog   = "3D000" // target database does not exist
)

// MySQL server error numbers of interest.
const (
	myErrAccessDenied   = 1044 // ER_DBACCESS_DENIED_ERROR
	myErrAccessDeniedPw = 1045 // ER_ACCESS_DENIED_ERROR
	myErrBadDB          = 1049 // ER_BAD_DB_ERROR
)

// mongoAuthFailed is the server code for AuthenticationFailed.
const mongoAuthFailed = 18

// normalizeError converts a driver-native failure into the uniform probe
// result. The engine kind actually attempted is always stamped, and the
// message is scrubbed of credential material before it leaves the
// prober. Latency is attached only for failures that occurred after a
// connection was at least partially established (auth, protocol).
func normalizeError(err error, desc *models.ConnectionDescriptor, latencyMs *int64) *models.ProbeResult {
	errKind := classify(err)

	res := &models.ProbeResult{
		Kind:      desc.Kind,
		ErrorKind: errKind,
		Message:   scrub(err.Error(), desc),
	}
	switch errKind {
	case models.ProbeErrorAuth, models.ProbeErrorProtocol:
		res.LatencyMs = latencyMs
	}
	return res
}

// classify maps a driver error onto the probe error taxonomy. Most
// specific checks run first: engine-native auth and protocol codes, then
// network-level failures, then timeouts, with protocol error as the
// terminal fallback for anything a liveness command reported.
func classify(err error) models.ProbeErrorKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, pgClassInvalidAuth):
			return models.ProbeErrorAuth
		case pgErr.Code == pgInvalidCatalog:
			return models.ProbeErrorProtocol
		default:
			return models.ProbeErrorProtocol
		}
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myErrAccessDenied, myErrAccessDeniedPw:
			return models.ProbeErrorAuth
		case myErrBadDB:
			return models.ProbeErrorProtocol
		default:
			return models.ProbeErrorProtocol
		}
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == mongoAuthFailed || cmdErr.Name == "AuthenticationFailed" {
			return models.ProbeErrorAuth
		}
		return models.ProbeErrorProtocol
	}

	if isNetworkErr(err) {
		return models.ProbeErrorNetwork
	}

	if isTimeoutErr(err) {
		return models.ProbeErrorTimeout
	}

	// The mongo driver aggregates handshake failures into strings, so
	// auth failures there are matched textually as a last resort.
	msg := err.Error()
	if strings.Contains(msg, "auth error") || strings.Contains(msg, "AuthenticationFailed") || strings.Contains(msg, "SCRAM") {
		return models.ProbeErrorAuth
	}

	return models.ProbeErrorProtocol
}

func isNetworkErr(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	// Drivers that aggregate dial errors (mongo server selection,
	// pgx multi-host fallback) flatten the cause into the message.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "no reachable servers")
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// scrub removes the credential material of the probed target from a
// driver message. Both the raw password and its percent-encoded form are
// replaced, since URI-addressed drivers may echo either back.
func scrub(msg string, desc *models.ConnectionDescriptor) string {
	if desc.Password == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, desc.Password, "*****")
	if escaped := url.QueryEscape(desc.Password); escaped != desc.Password {
		msg = strings.ReplaceAll(msg, escaped, "*****")
	}
	return msg
}
