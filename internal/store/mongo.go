package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri, verifies the connection and selects database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// Collection returns the named Mongo collection.
func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

// Ping verifies the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	toInsert := bson.M(clone(doc))
	if id, ok := toInsert[IDField].(string); ok {
		oid, err := ParseID(id)
		if err != nil {
			return "", err
		}
		toInsert[IDField] = oid
	}

	res, err := c.coll.InsertOne(ctx, toInsert)
	if err != nil {
		return "", fmt.Errorf("inserting into %s: %w", c.coll.Name(), err)
	}
	return IDString(res.InsertedID), nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	var out bson.M
	err := c.coll.FindOne(ctx, toBSON(filter)).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding in %s: %w", c.coll.Name(), err)
	}
	return Document(out), nil
}

func (c *mongoCollection) FindByID(ctx context.Context, id string) (Document, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, Filter{IDField: oid})
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	cursor, err := c.coll.Find(ctx, toBSON(filter))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.coll.Name(), err)
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("reading %s cursor: %w", c.coll.Name(), err)
	}

	docs := make([]Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, Document(d))
	}
	return docs, nil
}

func (c *mongoCollection) UpdateByID(ctx context.Context, id string, set Document) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	fields := bson.M(clone(set))
	delete(fields, IDField)

	res, err := c.coll.UpdateByID(ctx, oid, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("updating %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) DeleteByID(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	res, err := c.coll.DeleteOne(ctx, bson.M{IDField: oid})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// toBSON converts a filter, turning string _id values into ObjectIDs.
func toBSON(filter Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if k == IDField {
			if s, ok := v.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					v = oid
				}
			}
		}
		out[k] = v
	}
	return out
}
