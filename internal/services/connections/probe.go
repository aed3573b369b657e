package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// DefaultProbeTimeout is the ceiling applied uniformly to every probe,
// covering connection establishment and the liveness command together.
const DefaultProbeTimeout = 5000 * time.Millisecond

// closeGrace bounds connection teardown after the probe deadline has
// already elapsed, so a timed-out probe still releases its connection.
const closeGrace = 2 * time.Second

// livenessConn is the seam between the engine dialers and the shared
// probe loop: one established connection that can run its engine's
// liveness command and be closed.
type livenessConn interface {
	Live(ctx context.Context) error
	Close(ctx context.Context) error
}

// proberFunc opens exactly one ephemeral connection to the described
// target. Establishment must honor the context deadline.
type proberFunc func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error)

// Service runs connectivity probes. Each invocation is independent:
// probes never share connections, credentials, or driver pools.
type Service struct {
	timeout time.Duration
	probers map[models.EngineKind]proberFunc
}

func NewService() *Service {
	return &Service{
		timeout: DefaultProbeTimeout,
		probers: map[models.EngineKind]proberFunc{
			models.EnginePostgreSQL: dialPostgres,
			models.EngineSupabase:   dialPostgres,
			models.EngineMySQL:      dialMySQL,
			models.EngineMongoDB:    dialMongo,
		},
	}
}

// DetectType classifies a connection string without any network access.
func (s *Service) DetectType(connectionString string) models.EngineKind {
	return Detect(connectionString)
}

// TestConnection runs exactly one probe for the request: detect (string
// path) or build (form path), dispatch to the matching prober, normalize
// the outcome. Validation and unsupported-engine failures return before
// any network attempt; no retries, no fallback engine guessing.
func (s *Service) TestConnection(ctx context.Context, req *models.ConnectionTestRequest) *models.ProbeResult {
	if req.IsStringInput() {
		kind := Detect(req.ConnectionString)
		if kind == models.EngineUnknown {
			return &models.ProbeResult{
				Kind:      kind,
				ErrorKind: models.ProbeErrorUnsupported,
				Message:   "unrecognized connection string: supported engines are postgresql, mysql, mongodb and supabase",
			}
		}

		desc, err := descriptorFromString(kind, req.ConnectionString)
		if err != nil {
			return &models.ProbeResult{
				Kind:      kind,
				ErrorKind: models.ProbeErrorValidation,
				Message:   err.Error(),
			}
		}
		return s.probe(ctx, desc)
	}

	desc, err := BuildDescriptor(req.Type, req.Host, req.Port, req.Database, req.Username, req.Password)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return &models.ProbeResult{
				Kind:      req.Type,
				ErrorKind: models.ProbeErrorValidation,
				Message:   verr.Error(),
			}
		}
		return &models.ProbeResult{
			Kind:      req.Type,
			ErrorKind: models.ProbeErrorUnsupported,
			Message:   fmt.Sprintf("no prober available for engine kind %q", req.Type),
		}
	}

	return s.probe(ctx, desc)
}

// probe runs the uniform algorithm: start the clock, establish, run the
// liveness command, stop the clock, and close the connection on every
// exit path. The whole attempt shares a single deadline; expiry counts
// as a timeout failure and the connection is still force-closed.
func (s *Service) probe(ctx context.Context, desc *models.ConnectionDescriptor) *models.ProbeResult {
	dial, ok := s.probers[desc.Kind]
	if !ok {
		return &models.ProbeResult{
			Kind:      desc.Kind,
			ErrorKind: models.ProbeErrorUnsupported,
			Message:   fmt.Sprintf("no prober available for engine kind %q", desc.Kind),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	conn, err := dial(ctx, desc)
	if err != nil {
		return normalizeError(err, desc, nil)
	}
	defer func() {
		// Fresh context: teardown must proceed even when the probe
		// deadline has already elapsed.
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeGrace)
		defer closeCancel()
		if cerr := conn.Close(closeCtx); cerr != nil {
			fiberlog.Warnf("probe close failed for %s: %v", desc.Redacted(), cerr)
		}
	}()

	err = conn.Live(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return normalizeError(err, desc, &latency)
	}

	return &models.ProbeResult{
		Success:   true,
		Kind:      desc.Kind,
		LatencyMs: &latency,
		Message:   "connection established",
	}
}
