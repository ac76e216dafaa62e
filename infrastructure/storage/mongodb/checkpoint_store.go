package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// checkpointDocument is the MongoDB document representation of a checkpoint.
type checkpointDocument struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// CheckpointStore is a MongoDB-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	client       *mongo.Client
	collection   *mongo.Collection
	queryTimeout time.Duration
	now          func() time.Time
}

// Connect dials MongoDB, verifies the connection and ensures the TTL index.
func Connect(ctx context.Context, cfg Config, opts ...ConfigOption) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}

	s := NewCheckpointStore(client.Database(cfg.Database).Collection(cfg.Collection), cfg.QueryTimeout)
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewCheckpointStore creates a store on an existing collection.
func NewCheckpointStore(collection *mongo.Collection, queryTimeout time.Duration) *CheckpointStore {
	if queryTimeout <= 0 {
		queryTimeout = DefaultConfig().QueryTimeout
	}
	return &CheckpointStore{
		collection:   collection,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// EnsureIndexes creates the TTL index that lets the server expire documents.
func (s *CheckpointStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return wrapError(err)
}

// Put stores value under key, replacing any previous value.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc := s.toDocument(key, value, opts)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return wrapError(err)
}

// Fetch returns the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc checkpointDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, wrapError(err)
	}

	// The TTL monitor runs about once a minute, so check expiry here too.
	if s.expired(doc) {
		return nil, checkpoint.ErrNotFound
	}
	return doc.Value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	return wrapError(err)
}

// Close disconnects the client if the store opened it.
func (s *CheckpointStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *CheckpointStore) toDocument(key string, value []byte, opts checkpoint.PutOptions) checkpointDocument {
	now := s.now()
	doc := checkpointDocument{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	if opts.TTL > 0 {
		exp := now.Add(opts.TTL)
		doc.ExpiresAt = &exp
	}
	return doc
}

func (s *CheckpointStore) expired(doc checkpointDocument) bool {
	return doc.ExpiresAt != nil && !s.now().Before(*doc.ExpiresAt)
}

// wrapError wraps MongoDB errors with domain errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(checkpoint.ErrOperationTimeout, err)
	}

	return errors.Join(checkpoint.ErrConnectionFailed, err)
}

var (
	_ checkpoint.Store  = (*CheckpointStore)(nil)
	_ checkpoint.Closer = (*CheckpointStore)(nil)
)
