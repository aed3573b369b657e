package connections

import (
	"context"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// dialMongo opens a single ephemeral client for the target deployment.
func dialMongo(ctx context.Context, desc *models.ConnectionDescriptor) (livenessConn, error) {
	opts := options.Client().ApplyURI(desc.URI)
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		opts.SetConnectTimeout(remaining)
		opts.SetServerSelectionTimeout(remaining)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &mongoConn{client: client}, nil
}

type mongoConn struct {
	client *mongo.Client
}

// Live pings the server administratively rather than querying the named
// database. A mongo probe therefore succeeds even when the target
// database does not exist yet: database creation is lazy in MongoDB and
// its existence is not required for a healthy connection.
func (c *mongoConn) Live(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
