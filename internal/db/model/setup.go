package model

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nativestake/custody-ledger/internal/config"
)

// Setup creates the collections and indexes the journal relies on. It is run
// once at startup, before the database client starts serving.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()

	database := client.Database(cfg.DbName)

	collections := []string{
		StakeRequestCollection,
		UnstakeRequestCollection,
		RewardClaimRequestCollection,
		VaultStateCollection,
		RewardEntryCollection,
		FreezeWindowCollection,
	}
	for _, collection := range collections {
		if err := createCollection(ctx, database, collection); err != nil {
			return err
		}
	}

	indexes := map[string][]mongo.IndexModel{
		StakeRequestCollection: {
			{Keys: bson.D{{Key: "processed", Value: 1}}},
		},
		UnstakeRequestCollection: {
			{Keys: bson.D{{Key: "processed", Value: 1}}},
			{
				Keys:    bson.D{{Key: "correlation_id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		RewardClaimRequestCollection: {
			{Keys: bson.D{{Key: "processed", Value: 1}}},
		},
	}
	for collection, models := range indexes {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}

	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, collection string) error {
	err := database.CreateCollection(ctx, collection)
	if err == nil {
		return nil
	}
	// Re-running setup against an existing database is fine.
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorCode(48) {
		return nil
	}
	return err
}
