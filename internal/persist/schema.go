package persist

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates idempotent indexes on all collections.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: "trades",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "symbol", Value: 1},
					{Key: "executed_at", Value: -1},
				},
			},
		},
		{
			collection: "execution_reports",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "symbol", Value: 1},
					{Key: "recorded_at", Value: -1},
				},
			},
		},
		{
			collection: "execution_reports",
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "source", Value: 1}},
			},
		},
		{
			// Small key/value bookkeeping collection; currently holds
			// only the trade archiver's cursor.
			collection: "sim_state",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for _, i := range indexes {
		_, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", i.collection, err)
		}
	}

	log.Println("MongoDB indexes ensured")
	return nil
}
