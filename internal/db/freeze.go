package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

func (db *Database) UpsertFreezeWindow(ctx context.Context, doc *model.FreezeWindowDocument) error {
	doc.ID = model.FreezeWindowID
	filter := bson.M{"_id": model.FreezeWindowID}
	update := bson.M{"$set": doc}
	_, err := db.collection(model.FreezeWindowCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (db *Database) GetFreezeWindow(ctx context.Context) (*model.FreezeWindowDocument, error) {
	res := db.collection(model.FreezeWindowCollection).
		FindOne(ctx, bson.M{"_id": model.FreezeWindowID})

	var doc model.FreezeWindowDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.FreezeWindowID,
				Message: "freeze window not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}
