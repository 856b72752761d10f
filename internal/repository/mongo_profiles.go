package repository

import (
	"context"
	"fmt"

	"github.com/harentsoaR/clinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type profileDoc[T any] interface {
	*T
	models.Profile
}

// mongoProfiles implements ProfileRepository for one profile document type.
type mongoProfiles[T any, P profileDoc[T]] struct {
	coll *mongo.Collection
}

func newMongoProfiles[T any, P profileDoc[T]](coll *mongo.Collection) *mongoProfiles[T, P] {
	return &mongoProfiles[T, P]{coll: coll}
}

func (r *mongoProfiles[T, P]) Create(ctx context.Context, profile models.Profile) error {
	doc, ok := profile.(P)
	if !ok {
		return fmt.Errorf("%T cannot be stored in %s", profile, r.coll.Name())
	}
	_, err := r.coll.InsertOne(ctx, doc)
	return mapErr(err)
}

func (r *mongoProfiles[T, P]) FindByAccount(ctx context.Context, accountID primitive.ObjectID) (models.Profile, error) {
	doc, err := findOne[T](ctx, r.coll, bson.M{"account": accountID})
	if err != nil {
		return nil, err
	}
	return P(doc), nil
}

func (r *mongoProfiles[T, P]) DeleteByAccount(ctx context.Context, accountID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"account": accountID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var byFullName = options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})

type mongoStaff struct {
	*mongoProfiles[models.StaffProfile, *models.StaffProfile]
}

func (r *mongoStaff) List(ctx context.Context) ([]*models.StaffProfile, error) {
	return findAll[models.StaffProfile](ctx, r.coll, bson.M{}, byFullName)
}

type mongoDoctors struct {
	*mongoProfiles[models.DoctorProfile, *models.DoctorProfile]
}

func (r *mongoDoctors) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DoctorProfile, error) {
	return findOne[models.DoctorProfile](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoDoctors) ExistsByLicense(ctx context.Context, license string) (bool, error) {
	return exists(ctx, r.coll, bson.M{"licenseNumber": license})
}

func (r *mongoDoctors) List(ctx context.Context) ([]*models.DoctorProfile, error) {
	return findAll[models.DoctorProfile](ctx, r.coll, bson.M{}, byFullName)
}

type mongoPatients struct {
	*mongoProfiles[models.PatientProfile, *models.PatientProfile]
}

func (r *mongoPatients) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PatientProfile, error) {
	return findOne[models.PatientProfile](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoPatients) List(ctx context.Context, doctorID primitive.ObjectID) ([]*models.PatientProfile, error) {
	filter := bson.M{}
	if !doctorID.IsZero() {
		filter["doctors"] = doctorID
	}
	return findAll[models.PatientProfile](ctx, r.coll, filter, byFullName)
}

func (r *mongoPatients) SetDoctors(ctx context.Context, id primitive.ObjectID, doctors []primitive.ObjectID) (*models.PatientProfile, error) {
	if doctors == nil {
		doctors = []primitive.ObjectID{}
	}
	return findOneAndSet[models.PatientProfile](ctx, r.coll, bson.M{"_id": id}, bson.M{"doctors": doctors})
}
