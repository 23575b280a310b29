package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/lamet/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// countersCollection holds one sequence document per metrics collection.
const countersCollection = "lamet_counters"

type mongoRecord struct {
	ID         int64          `bson:"_id"`
	Name       string         `bson:"name"`
	Value      float64        `bson:"value"`
	Tags       map[string]any `bson:"tags"`
	Kind       string         `bson:"type"`
	Unit       string         `bson:"unit,omitempty"`
	Count      int64          `bson:"count"`
	RecordedAt time.Time      `bson:"recorded_at"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

// MongoStore persists records to a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
	counters   *mongo.Collection
	closer     func() error
}

// NewMongoStore stores records in db.collection. closer runs on Close.
func NewMongoStore(db *mongo.Database, collection string, closer func() error) *MongoStore {
	if closer == nil {
		closer = func() error { return nil }
	}
	return &MongoStore{
		collection: db.Collection(collection),
		counters:   db.Collection(countersCollection),
		closer:     closer,
	}
}

// reserveIDs advances the collection sequence by n and returns the first id.
func (s *MongoStore) reserveIDs(ctx context.Context, n int) (int64, error) {
	var seq struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.collection.Name()},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("storage: reserve ids: %w", err)
	}
	return seq.Seq - int64(n) + 1, nil
}

func (s *MongoStore) BulkInsert(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	first, err := s.reserveIDs(ctx, len(records))
	if err != nil {
		return err
	}

	docs := make([]any, len(records))
	for i, r := range records {
		tags := map[string]any(r.Tags)
		if tags == nil {
			tags = map[string]any{}
		}
		docs[i] = mongoRecord{
			ID:         first + int64(i),
			Name:       r.Name,
			Value:      r.Value,
			Tags:       tags,
			Kind:       string(r.Kind.OrDefault()),
			Unit:       r.Unit,
			Count:      r.Count,
			RecordedAt: r.RecordedAt.UTC(),
			CreatedAt:  r.CreatedAt.UTC(),
			UpdatedAt:  r.UpdatedAt.UTC(),
		}
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("storage: insert into %s: %w", s.collection.Name(), err)
	}
	return nil
}

func (s *MongoStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"recorded_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("storage: delete from %s: %w", s.collection.Name(), err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) DescribeDeleteBefore(cutoff time.Time) string {
	return fmt.Sprintf(`db.%s.deleteMany({"recorded_at": {"$lt": ISODate("%s")}})`,
		s.collection.Name(), cutoff.UTC().Format(time.RFC3339Nano))
}

func (s *MongoStore) Query(ctx context.Context, filter Filter) ([]types.Record, error) {
	q := bson.M{}
	if filter.Name != "" {
		q["name"] = filter.Name
	}
	if filter.Kind != "" {
		q["type"] = filter.Kind
	}
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = filter.From.UTC()
		}
		if filter.To != nil {
			rng["$lte"] = filter.To.UTC()
		}
		q["recorded_at"] = rng
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.collection.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: query %s: %w", s.collection.Name(), err)
	}
	defer cur.Close(ctx)

	out := make([]types.Record, 0)
	for cur.Next(ctx) {
		var doc mongoRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("storage: decode: %w", err)
		}
		out = append(out, types.Record{
			ID:         doc.ID,
			Name:       doc.Name,
			Value:      doc.Value,
			Tags:       types.Tags(doc.Tags),
			Kind:       types.Kind(doc.Kind),
			Unit:       doc.Unit,
			Count:      doc.Count,
			RecordedAt: doc.RecordedAt.UTC(),
			CreatedAt:  doc.CreatedAt.UTC(),
			UpdatedAt:  doc.UpdatedAt.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("storage: cursor: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	name := s.collection.Name()
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "recorded_at", Value: 1}},
			Options: options.Index().SetName(name + "_name_time_idx"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "recorded_at", Value: 1}},
			Options: options.Index().SetName(name + "_type_time_idx"),
		},
	})
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.HasErrorCode(85) {
			return nil
		}
		return fmt.Errorf("storage: migrate %s: %w", name, err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.closer()
}
