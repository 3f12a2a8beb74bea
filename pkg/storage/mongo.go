package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/httputil"
	fio "github.com/matzehuels/flametower/pkg/io"
)

// Defaults for [NewMongoStore].
const (
	DefaultMongoDatabase   = "flametower"
	DefaultMongoCollection = "graphs"
)

// MongoStore keeps graphs in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// graphRecord is the stored shape of a Graph. interval_count lets List
// project the intervals away.
type graphRecord struct {
	ID            string           `bson:"_id"`
	Name          string           `bson:"name,omitempty"`
	Title         string           `bson:"title,omitempty"`
	ColorMode     string           `bson:"color_mode,omitempty"`
	Intervals     []intervalRecord `bson:"intervals,omitempty"`
	IntervalCount int              `bson:"interval_count"`
	CreatedAt     time.Time        `bson:"created_at"`
}

type intervalRecord struct {
	ID       string  `bson:"id"`
	Label    string  `bson:"label,omitempty"`
	Start    float64 `bson:"start"`
	End      float64 `bson:"end"`
	ParentID string  `bson:"parent_id,omitempty"`
	Color    string  `bson:"color,omitempty"`
}

func toRecord(g *Graph) graphRecord {
	rec := graphRecord{
		ID:            g.ID,
		Name:          g.Name,
		Title:         g.Document.Title,
		ColorMode:     string(g.Document.ColorMode),
		Intervals:     make([]intervalRecord, len(g.Document.Intervals)),
		IntervalCount: len(g.Document.Intervals),
		CreatedAt:     g.CreatedAt,
	}
	for i, iv := range g.Document.Intervals {
		rec.Intervals[i] = intervalRecord{
			ID:       iv.ID,
			Label:    iv.Label,
			Start:    iv.Start,
			End:      iv.End,
			ParentID: iv.ParentID,
			Color:    iv.ColorOverride,
		}
	}
	return rec
}

func (rec graphRecord) graph() *Graph {
	g := &Graph{
		ID:   rec.ID,
		Name: rec.Name,
		Document: fio.Document{
			Title:     rec.Title,
			ColorMode: flame.ColorMode(rec.ColorMode),
			Intervals: make([]flame.Interval, len(rec.Intervals)),
		},
		CreatedAt: rec.CreatedAt.UTC(),
	}
	for i, iv := range rec.Intervals {
		g.Document.Intervals[i] = flame.Interval{
			ID:            iv.ID,
			Label:         iv.Label,
			Start:         iv.Start,
			End:           iv.End,
			ParentID:      iv.ParentID,
			ColorOverride: iv.Color,
		}
	}
	return g
}

func (rec graphRecord) summary() Summary {
	return Summary{
		ID:        rec.ID,
		Name:      rec.Name,
		Title:     rec.Title,
		Intervals: rec.IntervalCount,
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

// NewMongoStore connects to uri and uses the graphs collection of database.
// An empty database selects DefaultMongoDatabase. The connection is verified
// with a ping, retried on transient failures.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "mongo connect %s", uri)
	}
	err = httputil.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return &httputil.RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "mongo ping")
	}
	s := NewMongoStoreFromClient(client, database)
	s.owned = true
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStoreFromClient wraps an existing client. Close leaves the client
// connected.
func NewMongoStoreFromClient(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultMongoCollection),
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "create graph index")
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, g *Graph) error {
	if err := prepare(g); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": g.ID},
		toRecord(g),
		options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "save graph %s", g.ID)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Graph, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var rec graphRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "get graph %s", id)
	}
	return rec.graph(), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "delete graph %s", id)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limitOrDefault(limit))).
		SetProjection(bson.M{"intervals": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "list graphs")
	}
	defer cur.Close(ctx)

	var out []Summary
	for cur.Next(ctx) {
		var rec graphRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "decode graph")
		}
		out = append(out, rec.summary())
	}
	if err := cur.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "list graphs")
	}
	if out == nil {
		out = []Summary{}
	}
	return out, nil
}

// Close disconnects the client when the store created it.
func (s *MongoStore) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
