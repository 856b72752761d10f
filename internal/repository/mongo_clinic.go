package repository

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAppointments struct {
	coll *mongo.Collection
}

func (r *mongoAppointments) Create(ctx context.Context, apt *models.Appointment) error {
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, apt)
	return mapErr(err)
}

func (r *mongoAppointments) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	return findOne[models.Appointment](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoAppointments) List(ctx context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	filter := bson.M{}
	if !f.PatientID.IsZero() {
		filter["patientId"] = f.PatientID
	}
	if !f.DoctorID.IsZero() {
		filter["doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = f.From
	}
	if !f.To.IsZero() {
		window["$lte"] = f.To
	}
	if len(window) > 0 {
		filter["startTime"] = window
	}

	// Newest first
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}})
	return findAll[models.Appointment](ctx, r.coll, filter, opts)
}

func (r *mongoAppointments) Update(ctx context.Context, id primitive.ObjectID, u AppointmentUpdate) (*models.Appointment, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.StartTime != nil {
		set["startTime"] = *u.StartTime
	}
	if u.EndTime != nil {
		set["endTime"] = *u.EndTime
	}
	if u.Reason != nil {
		set["reason"] = *u.Reason
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}
	return findOneAndSet[models.Appointment](ctx, r.coll, bson.M{"_id": id}, set)
}

type mongoPrescriptions struct {
	coll *mongo.Collection
}

func (r *mongoPrescriptions) Create(ctx context.Context, p *models.Prescription) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return mapErr(err)
}

func (r *mongoPrescriptions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	return findOne[models.Prescription](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoPrescriptions) List(ctx context.Context, f models.PrescriptionFilter) ([]*models.Prescription, error) {
	filter := bson.M{}
	if !f.PatientID.IsZero() {
		filter["patientId"] = f.PatientID
	}
	if !f.DoctorID.IsZero() {
		filter["doctorId"] = f.DoctorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "issuedAt", Value: -1}})
	return findAll[models.Prescription](ctx, r.coll, filter, opts)
}

type mongoTransactions struct {
	coll *mongo.Collection
}

func (r *mongoTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, tx)
	return mapErr(err)
}

func (r *mongoTransactions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	return findOne[models.Transaction](ctx, r.coll, bson.M{"_id": id})
}

func (r *mongoTransactions) List(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	filter := bson.M{}
	if !f.PatientID.IsZero() {
		filter["patientId"] = f.PatientID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Transaction](ctx, r.coll, filter, opts)
}

func (r *mongoTransactions) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TransactionStatus) (*models.Transaction, error) {
	return findOneAndSet[models.Transaction](ctx, r.coll, bson.M{"_id": id}, bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	})
}
