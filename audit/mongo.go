package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoRecorder(ctx context.Context, uri, database, collection string) (*MongoRecorder, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoRecorder{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    2 * time.Second,
	}, nil
}

// Record inserts the event. It is detached from the caller's cancellation so
// a finished request still leaves its trail.
func (r *MongoRecorder) Record(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, toDocument(e))
	return err
}

func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toDocument(e Event) bson.M {
	doc := bson.M{
		"event":      e.Name,
		"actor_type": string(e.Actor.Type),
		"created_at": e.At,
	}
	if e.Actor.ID != nil {
		doc["actor_id"] = *e.Actor.ID
	}
	if e.RequestID != "" {
		doc["request_id"] = e.RequestID
	}
	if e.OrderID != 0 {
		doc["order_id"] = e.OrderID
	}
	if e.Serial != "" {
		doc["serial"] = e.Serial
	}
	if e.StatusFrom != "" {
		doc["status_from"] = e.StatusFrom
	}
	if e.StatusTo != "" {
		doc["status_to"] = e.StatusTo
	}
	if e.EmailMask != "" {
		doc["email"] = e.EmailMask
	}
	if len(e.Extra) > 0 {
		doc["extra"] = bson.M(e.Extra)
	}
	return doc
}
