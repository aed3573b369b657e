package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a livenessConn double that records whether it was released.
type fakeConn struct {
	liveErr error
	// blockLive makes the liveness command hang until the probe
	// deadline expires.
	blockLive bool
	closed    bool
}

func (f *fakeConn) Live(ctx context.Context) error {
	if f.blockLive {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.liveErr
}

func (f *fakeConn) Close(_ context.Context) error {
	f.closed = true
	return nil
}

func stubService(timeout time.Duration, kind models.EngineKind, dial proberFunc) *Service {
	return &Service{
		timeout: timeout,
		probers: map[models.EngineKind]proberFunc{kind: dial},
	}
}

func TestTestConnection_SuccessStampsKindAndLatency(t *testing.T) {
	conn := &fakeConn{}
	svc := stubService(DefaultProbeTimeout, models.EnginePostgreSQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		return conn, nil
	})

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		ConnectionString: "postgresql://u:p@localhost:5432/testdb",
	})

	assert.True(t, res.Success)
	assert.Equal(t, models.EnginePostgreSQL, res.Kind)
	require.NotNil(t, res.LatencyMs)
	assert.Empty(t, res.ErrorKind)
	assert.True(t, conn.closed, "connection must be released on the success path")
}

func TestTestConnection_LivenessFailureStillCloses(t *testing.T) {
	conn := &fakeConn{liveErr: errors.New("database \"missing\" does not exist")}
	svc := stubService(DefaultProbeTimeout, models.EnginePostgreSQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		return conn, nil
	})

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		ConnectionString: "postgresql://u:p@localhost:5432/missing",
	})

	assert.False(t, res.Success)
	assert.Equal(t, models.ProbeErrorProtocol, res.ErrorKind)
	assert.NotEmpty(t, res.Message)
	require.NotNil(t, res.LatencyMs, "latency is measured once the connection was established")
	assert.True(t, conn.closed, "connection must be released on the liveness-failure path")
}

func TestTestConnection_DialFailureHasNoLatency(t *testing.T) {
	svc := stubService(DefaultProbeTimeout, models.EngineMongoDB, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		return nil, errors.New("dial tcp 127.0.0.1:27017: connect: connection refused")
	})

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		ConnectionString: "mongodb://u:p@localhost:27017/testdb",
	})

	assert.False(t, res.Success)
	assert.Equal(t, models.EngineMongoDB, res.Kind)
	assert.Equal(t, models.ProbeErrorNetwork, res.ErrorKind)
	assert.Nil(t, res.LatencyMs)
}

func TestTestConnection_TimeoutIsBoundedAndReleasesConnection(t *testing.T) {
	conn := &fakeConn{blockLive: true}
	svc := stubService(50*time.Millisecond, models.EnginePostgreSQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		return conn, nil
	})

	start := time.Now()
	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		ConnectionString: "postgresql://u:p@10.255.255.1:5432/testdb",
	})
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, models.ProbeErrorTimeout, res.ErrorKind)
	assert.Less(t, elapsed, 2*time.Second, "a timed-out probe must return close to the ceiling")
	assert.True(t, conn.closed, "connection must be force-closed after the deadline")
	assert.Nil(t, res.LatencyMs)
}

func TestTestConnection_UnknownStringFailsWithoutProbing(t *testing.T) {
	dialed := false
	svc := stubService(DefaultProbeTimeout, models.EnginePostgreSQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		dialed = true
		return &fakeConn{}, nil
	})

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		ConnectionString: "redis://localhost:6379",
	})

	assert.False(t, res.Success)
	assert.Equal(t, models.EngineUnknown, res.Kind)
	assert.Equal(t, models.ProbeErrorUnsupported, res.ErrorKind)
	assert.NotEmpty(t, res.Message)
	assert.False(t, dialed, "unknown targets are terminal: no network attempt")
}

func TestTestConnection_FormValidationFailsFast(t *testing.T) {
	dialed := false
	svc := stubService(DefaultProbeTimeout, models.EngineMySQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		dialed = true
		return &fakeConn{}, nil
	})

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		Type: models.EngineMySQL,
		Host: "localhost",
		// port, database, username, password missing
	})

	assert.False(t, res.Success)
	assert.Equal(t, models.ProbeErrorValidation, res.ErrorKind)
	assert.Contains(t, res.Message, "password")
	assert.False(t, dialed, "validation failures precede any network attempt")
}

func TestTestConnection_FormUnsupportedKind(t *testing.T) {
	svc := NewService()

	res := svc.TestConnection(context.Background(), &models.ConnectionTestRequest{
		Type:     models.EngineKind("oracle"),
		Host:     "localhost",
		Port:     1521,
		Database: "xe",
		Username: "system",
		Password: "oracle",
	})

	assert.False(t, res.Success)
	assert.Equal(t, models.ProbeErrorUnsupported, res.ErrorKind)
}

func TestTestConnection_RepeatedProbesMeasureIndependently(t *testing.T) {
	svc := stubService(DefaultProbeTimeout, models.EnginePostgreSQL, func(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
		return &fakeConn{}, nil
	})
	req := &models.ConnectionTestRequest{ConnectionString: "postgresql://u:p@localhost:5432/testdb"}

	first := svc.TestConnection(context.Background(), req)
	second := svc.TestConnection(context.Background(), req)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	require.NotNil(t, first.LatencyMs)
	require.NotNil(t, second.LatencyMs)
	assert.NotSame(t, first.LatencyMs, second.LatencyMs, "latency is measured per probe, never cached")
}

func TestDetectType_NoNetworkAccess(t *testing.T) {
	svc := &Service{timeout: DefaultProbeTimeout, probers: map[models.EngineKind]proberFunc{}}
	assert.Equal(t, models.EngineSupabase, svc.DetectType("postgresql://u:p@db.supabase.co:5432/postgres"))
}
