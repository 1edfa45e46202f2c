package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

func (db *Database) UpsertRewardEntry(ctx context.Context, doc *model.RewardEntryDocument) error {
	filter := bson.M{"_id": doc.User}
	update := bson.M{"$set": doc}
	_, err := db.collection(model.RewardEntryCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (db *Database) DeleteRewardEntry(ctx context.Context, user string) error {
	_, err := db.collection(model.RewardEntryCollection).
		DeleteOne(ctx, bson.M{"_id": user})
	return err
}

func (db *Database) GetRewardEntries(ctx context.Context) ([]model.RewardEntryDocument, error) {
	cursor, err := db.collection(model.RewardEntryCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.RewardEntryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
