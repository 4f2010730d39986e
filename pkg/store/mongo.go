package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "codecity"

const mongoCollection = "repositories"

// Mongo stores repositories as documents keyed by repository ID.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and verifies the connection.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo store needs a uri")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return NewMongoFromCollection(client, client.Database(database).Collection(mongoCollection)), nil
}

// NewMongoFromCollection wraps an existing collection.
func NewMongoFromCollection(client *mongo.Client, coll *mongo.Collection) *Mongo {
	return &Mongo{client: client, coll: coll}
}

func (m *Mongo) Put(ctx context.Context, repo metrics.Repository) error {
	if err := validate(repo); err != nil {
		return err
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": repo.ID}, repo, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store %s", repo.ID)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (metrics.Repository, error) {
	var r metrics.Repository
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return metrics.Repository{}, notFound(id)
	}
	if err != nil {
		return metrics.Repository{}, errors.Wrap(errors.ErrCodeInternal, err, "load %s", id)
	}
	return r, nil
}

func (m *Mongo) List(ctx context.Context) ([]metrics.Repository, error) {
	cur, err := m.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list repositories")
	}
	var out []metrics.Repository
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode repositories")
	}
	return out, nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", id)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
