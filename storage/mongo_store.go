package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"home-scraper/models"
)

// ErrDuplicate is returned by Insert when the detail URL is already stored.
var ErrDuplicate = errors.New("storage: duplicate detail url")

// MongoStore keeps one collection per partition.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	indexed map[string]bool
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &MongoStore{
		client:  client,
		db:      client.Database(database),
		indexed: make(map[string]bool),
	}, nil
}

// EnsureIndexes creates the unique detail-url index and the lookup indexes on partition.
// It is idempotent and runs at most once per partition for the life of the store.
func (m *MongoStore) EnsureIndexes(ctx context.Context, partition string) error {
	if err := ValidatePartition(partition); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexed[partition] {
		return nil
	}

	_, err := m.db.Collection(partition).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "detailUrl", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "scraped_at", Value: -1}}},
		{Keys: bson.D{{Key: "city_state_zipcode", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create indexes on %s: %w", partition, err)
	}
	m.indexed[partition] = true
	return nil
}

// Exists reports whether a document with detailURL is stored in partition.
func (m *MongoStore) Exists(ctx context.Context, detailURL, partition string) (bool, error) {
	if err := m.EnsureIndexes(ctx, partition); err != nil {
		return false, err
	}
	n, err := m.db.Collection(partition).CountDocuments(ctx,
		bson.D{{Key: "detailUrl", Value: detailURL}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo: count %s: %w", partition, err)
	}
	return n > 0, nil
}

// Insert stores p in partition and returns the generated document id.
func (m *MongoStore) Insert(ctx context.Context, p *models.Property, partition string) (string, error) {
	if err := m.EnsureIndexes(ctx, partition); err != nil {
		return "", err
	}
	res, err := m.db.Collection(partition).InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, p.DetailURL)
		}
		return "", fmt.Errorf("mongo: insert into %s: %w", partition, err)
	}

	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
