package repository

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoAccounts struct {
	coll *mongo.Collection
}

func (r *mongoAccounts) Create(ctx context.Context, account *models.Account) error {
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, account)
	return mapErr(err)
}

func (r *mongoAccounts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return findOne[models.Account](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return findOne[models.Account](ctx, r.coll, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *mongoAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.coll, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *mongoAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return exists(ctx, r.coll, bson.M{"username": models.NormalizeUsername(username)})
}

func (r *mongoAccounts) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordHash": hash,
		"updatedAt":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAccounts) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
