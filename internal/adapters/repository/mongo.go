package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ribslabs/ribs/internal/domain/model"
	"github.com/ribslabs/ribs/pkg/metrics"
)

// MongoDB-backed Store implementations.
//
// Document field names mirror the deployed collections: samples carry
// {ts, slouch_prob, label}, events carry {ts, type, prob}. Equal
// timestamps (second precision) break ties on _id descending, which is
// insertion order for ObjectIDs generated by one process.

// Collection names.
const (
	samplesCollection = "samples"
	eventsCollection  = "events"
)

type sampleDoc struct {
	TS         time.Time `bson:"ts"`
	SlouchProb float64   `bson:"slouch_prob"`
	Label      string    `bson:"label"`
}

type eventDoc struct {
	TS   time.Time `bson:"ts"`
	Type string    `bson:"type"`
	Prob float64   `bson:"prob"`
}

// MongoSampleStore implements SampleStore on a MongoDB collection.
type MongoSampleStore struct {
	coll *mongo.Collection
}

// NewMongoSampleStore binds a sample store to db's samples collection.
func NewMongoSampleStore(db *mongo.Database) *MongoSampleStore {
	return &MongoSampleStore{coll: db.Collection(samplesCollection)}
}

// Append inserts a sample; the write is acknowledged before return.
func (s *MongoSampleStore) Append(ctx context.Context, smp model.Sample) error {
	start := time.Now()
	_, err := s.coll.InsertOne(ctx, sampleDoc{
		TS:         smp.TS.UTC(),
		SlouchProb: smp.Probability,
		Label:      string(smp.Label),
	})
	metrics.RecordStoreAppendLatency(samplesCollection, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// Latest returns the newest sample, ok=false on an empty collection.
func (s *MongoSampleStore) Latest(ctx context.Context) (model.Sample, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}})
	var doc sampleDoc
	err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.Sample{}, false, nil
	}
	if err != nil {
		return model.Sample{}, false, fmt.Errorf("latest sample: %w", err)
	}
	return doc.sample(), true, nil
}

// RangeSince returns samples with ts >= cutoff, ascending.
func (s *MongoSampleStore) RangeSince(ctx context.Context, cutoff time.Time) ([]model.Sample, error) {
	start := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"ts": bson.M{"$gte": cutoff.UTC()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("range samples: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Sample, 0)
	for cur.Next(ctx) {
		var doc sampleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
		out = append(out, doc.sample())
	}
	metrics.RecordStoreQueryLatency(samplesCollection, float64(time.Since(start).Milliseconds()))
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("range samples: %w", err)
	}
	return out, nil
}

// Recent returns up to min(limit, MaxRecentLimit) samples, descending.
func (s *MongoSampleStore) Recent(ctx context.Context, limit int) ([]model.Sample, error) {
	limit = clampLimit(limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Sample, 0, limit)
	for cur.Next(ctx) {
		var doc sampleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
		out = append(out, doc.sample())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	return out, nil
}

// Count returns the number of stored samples, 0 on query failure.
func (s *MongoSampleStore) Count(ctx context.Context) int {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0
	}
	return int(n)
}

// Clear removes all samples. Test support only.
func (s *MongoSampleStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}
	return nil
}

func (d sampleDoc) sample() model.Sample {
	return model.Sample{
		TS:          d.TS.UTC().Truncate(time.Second),
		Probability: d.SlouchProb,
		Label:       model.Label(d.Label),
	}
}

// MongoEventStore implements EventStore on a MongoDB collection.
type MongoEventStore struct {
	coll *mongo.Collection
}

// NewMongoEventStore binds an event store to db's events collection.
func NewMongoEventStore(db *mongo.Database) *MongoEventStore {
	return &MongoEventStore{coll: db.Collection(eventsCollection)}
}

// Append inserts an event; the write is acknowledged before return.
func (s *MongoEventStore) Append(ctx context.Context, ev model.Event) error {
	start := time.Now()
	_, err := s.coll.InsertOne(ctx, eventDoc{
		TS:   ev.TS.UTC(),
		Type: string(ev.Type),
		Prob: ev.Probability,
	})
	metrics.RecordStoreAppendLatency(eventsCollection, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Latest returns the newest event, ok=false on an empty collection.
func (s *MongoEventStore) Latest(ctx context.Context) (model.Event, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}})
	var doc eventDoc
	err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, fmt.Errorf("latest event: %w", err)
	}
	return doc.event(), true, nil
}

// RangeSince returns events with ts >= cutoff, ascending.
func (s *MongoEventStore) RangeSince(ctx context.Context, cutoff time.Time) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"ts": bson.M{"$gte": cutoff.UTC()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("range events: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Event, 0)
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, doc.event())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("range events: %w", err)
	}
	return out, nil
}

// Recent returns up to min(limit, MaxRecentLimit) events, descending.
func (s *MongoEventStore) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	limit = clampLimit(limit)
	start := time.Now()
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Event, 0, limit)
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, doc.event())
	}
	metrics.RecordStoreQueryLatency(eventsCollection, float64(time.Since(start).Milliseconds()))
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return out, nil
}

// Count returns the number of stored events, 0 on query failure.
func (s *MongoEventStore) Count(ctx context.Context) int {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0
	}
	return int(n)
}

// Clear removes all events. Test support only.
func (s *MongoEventStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

func (d eventDoc) event() model.Event {
	return model.Event{
		TS:          d.TS.UTC().Truncate(time.Second),
		Type:        model.EventType(d.Type),
		Probability: d.Prob,
	}
}
