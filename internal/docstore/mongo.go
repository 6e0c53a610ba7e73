package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Unauthorized
const mongoUnauthorized = 13

// MongoStore maps each collection to a MongoDB collection. Times are
// stored as BSON datetimes, which carry millisecond precision.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Add(ctx context.Context, collection string, data Fields) (string, error) {
	id := uuid.NewString()
	doc := toBSON(data)
	doc["_id"] = id
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("add %s: %w", collection, mapMongoError(err))
	}
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data Fields, merge bool) error {
	coll := s.db.Collection(collection)
	doc := toBSON(data)
	var err error
	if merge {
		_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	} else {
		_, err = coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, mapMongoError(err))
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, mapMongoError(err))
	}
	doc := fromBSONDocument(raw)
	return &doc, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, data Fields) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": toBSON(data)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, mapMongoError(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, mapMongoError(err))
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	filter := bson.D{}
	for _, f := range q.Filters {
		v := toStore(f.Value, encodeBSONTime)
		switch f.Op {
		case OpEqual:
			filter = append(filter, bson.E{Key: f.Field, Value: v})
		case OpLess:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$lt": v}})
		case OpGreater:
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$gt": v}})
		}
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, mapMongoError(err))
	}
	defer cur.Close(ctx)

	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, mapMongoError(err))
	}
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSONDocument(raw))
	}
	return docs, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func encodeBSONTime(t time.Time) any {
	return primitive.NewDateTimeFromTime(t)
}

func toBSON(data Fields) bson.M {
	return bson.M(toStore(data, encodeBSONTime).(map[string]any))
}

func fromBSONDocument(raw bson.M) Document {
	id, _ := raw["_id"].(string)
	delete(raw, "_id")
	data, _ := fromBSON(raw).(map[string]any)
	if data == nil {
		data = Fields{}
	}
	return Document{ID: id, Data: data}
}

// fromBSON converts driver types back to the plain Fields vocabulary.
func fromBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.M:
		return fromBSONMap(x)
	case map[string]any:
		return fromBSONMap(x)
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case primitive.A:
		return fromBSONSlice(x)
	case []any:
		return fromBSONSlice(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return v
}

func fromBSONMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = fromBSON(e)
	}
	return out
}

func fromBSONSlice(s []any) []any {
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = fromBSON(e)
	}
	return out
}

func mapMongoError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(mongoUnauthorized) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}
