package connections

import (
	"strings"

	"github.com/datadeck-io/datadeck-api/internal/models"
)

// Scheme markers recognized by the detector, checked in priority order.
const (
	schemeMongo    = "mongodb://"
	schemeMongoSRV = "mongodb+srv://"
	schemePostgres = "postgres://"
	schemePgFull   = "postgresql://"
	schemeMySQL    = "mysql://"
)

// supabaseHostFragment marks a managed-Postgres-as-a-service hostname.
const supabaseHostFragment = "supabase."

// Detect classifies an opaque connection string into an engine kind using
// scheme and hostname heuristics only. It is pure: no network access, no
// partial guessing. Anything ambiguous resolves to EngineUnknown.
func Detect(connectionString string) models.EngineKind {
	s := strings.ToLower(strings.TrimSpace(connectionString))

	switch {
	case strings.HasPrefix(s, schemeMongo), strings.HasPrefix(s, schemeMongoSRV):
		return models.EngineMongoDB
	case strings.HasPrefix(s, schemePostgres), strings.HasPrefix(s, schemePgFull):
		if strings.Contains(hostSegment(s), supabaseHostFragment) {
			return models.EngineSupabase
		}
		return models.EnginePostgreSQL
	case strings.HasPrefix(s, schemeMySQL):
		return models.EngineMySQL
	}

	return models.EngineUnknown
}

// hostSegment extracts the authority host portion of a URI-shaped string
// without full URL parsing, so malformed input degrades to "" instead of
// an error. Credentials before '@' are skipped to keep the supabase check
// off usernames and passwords.
func hostSegment(s string) string {
	idx := strings.Index(s, "://")
	if idx < 0 {
		return ""
	}
	rest := s[idx+3:]

	if end := strings.IndexAny(rest, "/?"); end >= 0 {
		rest = rest[:end]
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return rest
}
