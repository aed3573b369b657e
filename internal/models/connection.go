package models

import "strconv"

// EngineKind identifies the database protocol family a connection target
// speaks. It is a closed set: unknown targets are never probed.
type EngineKind string

const (
	EnginePostgreSQL EngineKind = "postgresql"
	EngineMySQL      EngineKind = "mysql"
	EngineMongoDB    EngineKind = "mongodb"
	// EngineSupabase is a managed Postgres variant that requires
	// encrypted transport.
	EngineSupabase EngineKind = "supabase"
	EngineUnknown  EngineKind = "unknown"
)

// Probeable reports whether a prober exists for the kind.
func (k EngineKind) Probeable() bool {
	switch k {
	case EnginePostgreSQL, EngineMySQL, EngineMongoDB, EngineSupabase:
		return true
	}
	return false
}

// ProbeErrorKind classifies a failed probe attempt.
type ProbeErrorKind string

const (
	ProbeErrorValidation  ProbeErrorKind = "validation_error"
	ProbeErrorUnsupported ProbeErrorKind = "unsupported_engine"
	ProbeErrorTimeout     ProbeErrorKind = "timeout"
	ProbeErrorAuth        ProbeErrorKind = "authentication_failure"
	ProbeErrorNetwork     ProbeErrorKind = "network_unreachable"
	ProbeErrorProtocol    ProbeErrorKind = "protocol_error"
)

// ConnectionDescriptor is the canonical addressable form of a probe
// target. It is built per request, lives for the duration of one probe
// and is never persisted. The password must never appear in logs or
// response bodies; use Redacted for any diagnostic output.
type ConnectionDescriptor struct {
	Kind       EngineKind
	Host       string
	Port       int
	Database   string
	Username   string
	Password   string
	RequireTLS bool

	// URI holds the assembled connection string for URI-addressed
	// engines (postgresql, supabase, mongodb). MySQL is addressed
	// structurally and leaves this empty.
	URI string
}

// Redacted returns a display-safe form of the target address.
func (d *ConnectionDescriptor) Redacted() string {
	if d.Host == "" {
		return string(d.Kind)
	}
	out := string(d.Kind) + "://" + d.Host
	if d.Port > 0 {
		out += ":" + strconv.Itoa(d.Port)
	}
	if d.Database != "" {
		out += "/" + d.Database
	}
	return out
}

// ProbeResult is the uniform outcome of one connection probe, regardless
// of the engine that was attempted.
type ProbeResult struct {
	Success   bool
	Kind      EngineKind
	LatencyMs *int64
	ErrorKind ProbeErrorKind
	Message   string
}

// ConnectionTestRequest carries either a raw connection string or the
// discrete form fields for one probe. The two variants are mutually
// exclusive; the string path wins when both are present.
type ConnectionTestRequest struct {
	ConnectionString string `json:"connection_string,omitempty"`

	Type     EngineKind `json:"type,omitempty"`
	Host     string     `json:"host,omitempty"`
	Port     int        `json:"port,omitempty"`
	Database string     `json:"database,omitempty"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
}

// IsStringInput reports whether the request uses the connection-string path.
func (r *ConnectionTestRequest) IsStringInput() bool {
	return r.ConnectionString != ""
}

// ConnectionTestResponse is the wire shape returned for every probe,
// success or failure. Probe failures are data, not HTTP errors.
type ConnectionTestResponse struct {
	Success   bool           `json:"success"`
	Type      EngineKind     `json:"type"`
	LatencyMs *int64         `json:"latency_ms,omitempty"`
	Message   string         `json:"message,omitempty"`
	Error     ProbeErrorKind `json:"error,omitempty"`
}

func (r *ProbeResult) ToResponse() *ConnectionTestResponse {
	return &ConnectionTestResponse{
		Success:   r.Success,
		Type:      r.Kind,
		LatencyMs: r.LatencyMs,
		Message:   r.Message,
		Error:     r.ErrorKind,
	}
}

// DetectRequest is the payload for the read-only type detection endpoint.
type DetectRequest struct {
	ConnectionString string `json:"connection_string"`
}

type DetectResponse struct {
	Type EngineKind `json:"type"`
}
