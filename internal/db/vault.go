package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

func (db *Database) UpsertVaultState(ctx context.Context, doc *model.VaultStateDocument) error {
	doc.ID = model.VaultStateID
	filter := bson.M{"_id": model.VaultStateID}
	update := bson.M{"$set": doc}
	_, err := db.collection(model.VaultStateCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (db *Database) GetVaultState(ctx context.Context) (*model.VaultStateDocument, error) {
	res := db.collection(model.VaultStateCollection).
		FindOne(ctx, bson.M{"_id": model.VaultStateID})

	var doc model.VaultStateDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.VaultStateID,
				Message: "vault state not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}
