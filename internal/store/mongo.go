package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vigil/internal/services"
)

const (
	mongoEventsCollection  = "workflow_events"
	mongoReportsCollection = "reports"
)

// mongoStore keeps events and reports in two collections of one database.
//
// Mongo stores times with millisecond precision, so event timestamps are
// truncated before they are returned to the caller. The ObjectID breaks ties
// between events written in the same millisecond.
type mongoStore struct {
	client  *mongo.Client
	events  *mongo.Collection
	reports *mongo.Collection
	now     func() time.Time
	timeout time.Duration
}

type mongoEventDoc struct {
	ObjectID     primitive.ObjectID `bson:"_id"`
	EventID      string             `bson:"event_id"`
	Step         string             `bson:"step"`
	Status       string             `bson:"status"`
	DurationMs   int64              `bson:"duration_ms"`
	ErrorMessage string             `bson:"error_message,omitempty"`
	Metadata     map[string]string  `bson:"metadata,omitempty"`
	Timestamp    time.Time          `bson:"ts"`
}

type mongoReportDoc struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// OpenMongo connects to uri and prepares the collections in database.
func OpenMongo(ctx context.Context, uri, database string, opts ...Option) (Store, error) {
	o := buildOptions(opts)
	if database == "" {
		database = "vigil"
	}

	connectCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &mongoStore{
		client:  client,
		events:  db.Collection(mongoEventsCollection),
		reports: db.Collection(mongoReportsCollection),
		now:     o.now,
		timeout: o.timeout,
	}

	_, err = s.events.Indexes().CreateMany(connectCtx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}
	return s, nil
}

func (s *mongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *mongoStore) AppendEvent(ctx context.Context, event WorkflowEvent) (string, error) {
	prepared, err := prepareEvent(event, s.now().Truncate(time.Millisecond))
	if err != nil {
		return "", err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := mongoEventDoc{
		ObjectID:     primitive.NewObjectID(),
		EventID:      prepared.ID,
		Step:         prepared.Step,
		Status:       string(prepared.Status),
		DurationMs:   prepared.DurationMs,
		ErrorMessage: prepared.ErrorMessage,
		Metadata:     prepared.Metadata,
		Timestamp:    prepared.Timestamp,
	}
	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		return "", services.Wrap(services.ErrTransient, "store", "append event", "mongo", err)
	}
	return prepared.ID, nil
}

func (s *mongoStore) ListEvents(ctx context.Context, r Range) ([]WorkflowEvent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tsFilter := bson.M{"$gte": r.Since.UTC()}
	if r.Until != nil {
		tsFilter["$lte"] = r.Until.UTC()
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.events.Find(ctx, bson.M{"ts": tsFilter}, findOpts)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "store", "list events", "mongo", err)
	}
	defer cursor.Close(ctx)

	var events []WorkflowEvent
	for cursor.Next(ctx) {
		var doc mongoEventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, services.Wrap(services.ErrTransient, "store", "decode event", "mongo", err)
		}
		events = append(events, decodeEvent(WorkflowEvent{
			ID:           doc.EventID,
			Step:         doc.Step,
			Status:       Status(doc.Status),
			DurationMs:   doc.DurationMs,
			ErrorMessage: doc.ErrorMessage,
			Metadata:     doc.Metadata,
			Timestamp:    doc.Timestamp,
		}))
	}
	if err := cursor.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "store", "list events", "mongo", err)
	}
	return events, nil
}

func (s *mongoStore) PutReport(ctx context.Context, namespace, key string, body []byte) error {
	if err := validateReportKey(namespace, key); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := mongoReportDoc{
		ID:        namespace + "/" + key,
		Namespace: namespace,
		Key:       key,
		Body:      string(body),
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.reports.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return services.Wrap(services.ErrTransient, "store", "put report", doc.ID, err)
	}
	return nil
}

func (s *mongoStore) GetReport(ctx context.Context, namespace, key string) (Report, error) {
	if err := validateReportKey(namespace, key); err != nil {
		return Report{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc mongoReportDoc
	err := s.reports.FindOne(ctx, bson.M{"_id": namespace + "/" + key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Report{}, notFound(namespace, key)
	}
	if err != nil {
		return Report{}, services.Wrap(services.ErrTransient, "store", "get report", namespace+"/"+key, err)
	}
	return Report{
		Namespace: doc.Namespace,
		Key:       doc.Key,
		Body:      []byte(doc.Body),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return services.Wrap(services.ErrUnavailable, "store", "ping", "mongo", err)
	}
	return nil
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
