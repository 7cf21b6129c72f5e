package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeouts.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
)

// ConnectConfig describes how to reach MongoDB. URI wins when set;
// otherwise an Atlas-style mongodb+srv URI is assembled from the
// credential fields.
type ConnectConfig struct {
	URI      string
	Username string
	Password string
	Host     string
	AppName  string
	Database string
}

// HasCredentials reports whether the config can produce a connection
// string at all. When false the caller should fall back to the
// in-memory stores.
func (c ConnectConfig) HasCredentials() bool {
	return c.URI != "" || (c.Username != "" && c.Password != "" && c.Host != "")
}

func (c ConnectConfig) uri() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?appName=%s", c.Username, c.Password, c.Host, c.AppName)
}

// Connect establishes a MongoDB client, verifies it with a ping, and
// returns the configured database handle.
func Connect(ctx context.Context, cfg ConnectConfig) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.uri()).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrUnavailable, err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	return client.Database(cfg.Database), nil
}

// EnsureIndexes creates the ts-descending indexes both collections are
// queried by. Index creation may fail on restricted deployments; the
// caller logs and continues, matching query-path behavior without the
// index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "ts", Value: -1}}}
	if _, err := db.Collection(samplesCollection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("index samples: %w", err)
	}
	if _, err := db.Collection(eventsCollection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("index events: %w", err)
	}
	return nil
}
