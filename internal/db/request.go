package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

func (db *Database) SaveStakeRequest(ctx context.Context, doc *model.StakeRequestDocument) error {
	return db.insertRequest(ctx, model.StakeRequestCollection, doc.ID, doc)
}

func (db *Database) SaveUnstakeRequest(ctx context.Context, doc *model.UnstakeRequestDocument) error {
	return db.insertRequest(ctx, model.UnstakeRequestCollection, doc.ID, doc)
}

func (db *Database) SaveRewardClaimRequest(ctx context.Context, doc *model.RewardClaimRequestDocument) error {
	return db.insertRequest(ctx, model.RewardClaimRequestCollection, doc.ID, doc)
}

func (db *Database) insertRequest(ctx context.Context, collection string, id uint64, doc any) error {
	_, err := db.collection(collection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &DuplicateKeyError{
				Key:     fmt.Sprintf("%d", id),
				Message: "request already journaled",
			}
		}
		return err
	}
	return nil
}

// MarkStakeRequestProcessed flips the processed flag. Marking is idempotent:
// a fulfillment whose external effect failed after the mark was persisted can
// be retried, and the exactly-once rule is enforced by the settlement core,
// not by the journal.
func (db *Database) MarkStakeRequestProcessed(ctx context.Context, id uint64) error {
	return db.markProcessed(ctx, model.StakeRequestCollection, id, bson.M{"processed": true})
}

func (db *Database) MarkUnstakeRequestProcessed(ctx context.Context, id uint64, correlationID string) error {
	fields := bson.M{"processed": true}
	if correlationID != "" {
		fields["correlation_id"] = correlationID
	}
	return db.markProcessed(ctx, model.UnstakeRequestCollection, id, fields)
}

func (db *Database) MarkRewardClaimRequestProcessed(ctx context.Context, id uint64, amount string) error {
	fields := bson.M{"processed": true}
	if amount != "" {
		fields["amount"] = amount
	}
	return db.markProcessed(ctx, model.RewardClaimRequestCollection, id, fields)
}

func (db *Database) markProcessed(ctx context.Context, collection string, id uint64, fields bson.M) error {
	filter := bson.M{"_id": id}
	res := db.collection(collection).FindOneAndUpdate(ctx, filter, bson.M{"$set": fields})
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     fmt.Sprintf("%d", id),
				Message: "request not journaled",
			}
		}
		return res.Err()
	}
	return nil
}

func (db *Database) GetStakeRequests(ctx context.Context) ([]model.StakeRequestDocument, error) {
	return findRequests[model.StakeRequestDocument](ctx, db, model.StakeRequestCollection)
}

func (db *Database) GetUnstakeRequests(ctx context.Context) ([]model.UnstakeRequestDocument, error) {
	return findRequests[model.UnstakeRequestDocument](ctx, db, model.UnstakeRequestCollection)
}

func (db *Database) GetRewardClaimRequests(ctx context.Context) ([]model.RewardClaimRequestDocument, error) {
	return findRequests[model.RewardClaimRequestDocument](ctx, db, model.RewardClaimRequestCollection)
}

// findRequests returns the whole book ordered by id, which is the order the
// recovery loader requires.
func findRequests[T any](ctx context.Context, db *Database, collection string) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := db.collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
