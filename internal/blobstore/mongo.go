package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no artifact exists at the requested path.
var ErrNotFound = errors.New("blobstore: artifact not found")

const artifactCollection = "artifacts"

// MongoStore keeps each artifact as one document keyed by its path. The
// JSON payload is stored as a raw string so round-trips preserve exactly
// what the pipeline serialized.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type artifactDoc struct {
	Path      string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and pings it before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	log.Printf("Connected to blob store at %s (database: %s)", uri, database)

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(artifactCollection),
	}, nil
}

// WriteJSON serializes value and upserts it at path.
func (s *MongoStore) WriteJSON(ctx context.Context, path string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact for %s: %w", path, err)
	}

	_, err = s.collection.ReplaceOne(ctx,
		bson.M{"_id": path},
		artifactDoc{Path: path, Payload: string(payload), UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	return nil
}

// ReadJSON loads the artifact at path into out.
func (s *MongoStore) ReadJSON(ctx context.Context, path string, out any) error {
	var doc artifactDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	if err := json.Unmarshal([]byte(doc.Payload), out); err != nil {
		return fmt.Errorf("failed to unmarshal artifact %s: %w", path, err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
