package connections

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/datadeck-io/datadeck-api/internal/models"
)

// ErrUnsupportedEngine is returned when no prober exists for the
// requested engine kind.
var ErrUnsupportedEngine = errors.New("unsupported engine kind")

// ValidationError reports the form fields missing for the requested
// engine kind. It is raised before any network attempt.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// BuildDescriptor assembles the canonical connection descriptor for the
// given engine kind from discrete form fields. URI-addressed engines
// (mongodb, postgresql, supabase) get a percent-encoded URI so literal
// '@' or ':' in credentials cannot break the address. MySQL is addressed
// structurally: its driver accepts discrete fields natively, so the
// descriptor carries them as-is and no URI is assembled. That asymmetry
// mirrors how each engine canonically addresses a target.
func BuildDescriptor(kind models.EngineKind, host string, port int, database, username, password string) (*models.ConnectionDescriptor, error) {
	if !kind.Probeable() {
		return nil, ErrUnsupportedEngine
	}

	var missing []string
	if host == "" {
		missing = append(missing, "host")
	}
	if port <= 0 {
		missing = append(missing, "port")
	}
	if database == "" {
		missing = append(missing, "database")
	}
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	desc := &models.ConnectionDescriptor{
		Kind:     kind,
		Host:     host,
		Port:     port,
		Database: database,
		Username: username,
		Password: password,
	}

	switch kind {
	case models.EngineMongoDB:
		desc.URI = buildURI("mongodb", desc, "")
	case models.EnginePostgreSQL:
		desc.URI = buildURI("postgresql", desc, "")
	case models.EngineSupabase:
		desc.RequireTLS = true
		desc.URI = buildURI("postgresql", desc, "sslmode=require")
	case models.EngineMySQL:
		// Structural path: the go-sql-driver config is built at dial
		// time from the discrete fields.
	}

	return desc, nil
}

func buildURI(scheme string, desc *models.ConnectionDescriptor, query string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(desc.Username, desc.Password),
		Host:     net.JoinHostPort(desc.Host, strconv.Itoa(desc.Port)),
		Path:     "/" + desc.Database,
		RawQuery: query,
	}
	return u.String()
}

// descriptorFromString wraps a raw connection string in a descriptor for
// the detected kind. URI engines dispatch on the string as-is; MySQL has
// no native URI form, so a mysql:// string is decomposed into the
// discrete fields its driver expects.
func descriptorFromString(kind models.EngineKind, connectionString string) (*models.ConnectionDescriptor, error) {
	desc := &models.ConnectionDescriptor{
		Kind: kind,
		URI:  connectionString,
	}

	u, err := url.Parse(connectionString)
	if err != nil {
		if kind == models.EngineMySQL {
			return nil, fmt.Errorf("invalid mysql connection string: %w", err)
		}
		// URI engines hand the string to the driver untouched; the
		// driver reports its own parse failure.
		return desc, nil
	}

	desc.Host = u.Hostname()
	if p, perr := strconv.Atoi(u.Port()); perr == nil {
		desc.Port = p
	}
	desc.Database = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		desc.Username = u.User.Username()
		desc.Password, _ = u.User.Password()
	}
	if kind == models.EngineSupabase {
		desc.RequireTLS = true
	}
	if kind == models.EngineMySQL {
		desc.URI = ""
	}

	return desc, nil
}
