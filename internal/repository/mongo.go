package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	accountsCollection      = "accounts"
	staffCollection         = "staff"
	doctorsCollection       = "doctors"
	patientsCollection      = "patients"
	appointmentsCollection  = "appointments"
	prescriptionsCollection = "prescriptions"
	transactionsCollection  = "transactions"
)

// MongoOptions configures OpenMongo.
type MongoOptions struct {
	URI      string
	Database string
	// Transactions enables multi-document transactions. Requires a replica set.
	Transactions   bool
	ConnectTimeout time.Duration
}

// OpenMongo connects, pings and creates indexes, then returns repositories
// backed by the database.
func OpenMongo(ctx context.Context, opts MongoOptions, log zerolog.Logger) (*Repositories, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(opts.Database)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("database", opts.Database).Bool("transactions", opts.Transactions).Msg("connected to mongodb")

	var tx TxRunner = NoTx{}
	if opts.Transactions {
		tx = mongoTx{client: client}
	}

	return &Repositories{
		Accounts: &mongoAccounts{coll: db.Collection(accountsCollection)},
		Profiles: Profiles{
			Staff:    &mongoStaff{newMongoProfiles[models.StaffProfile](db.Collection(staffCollection))},
			Doctors:  &mongoDoctors{newMongoProfiles[models.DoctorProfile](db.Collection(doctorsCollection))},
			Patients: &mongoPatients{newMongoProfiles[models.PatientProfile](db.Collection(patientsCollection))},
		},
		Appointments:  &mongoAppointments{coll: db.Collection(appointmentsCollection)},
		Prescriptions: &mongoPrescriptions{coll: db.Collection(prescriptionsCollection)},
		Transactions:  &mongoTransactions{coll: db.Collection(transactionsCollection)},
		Tx:            tx,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}
	index := func(key string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}}
	}

	specs := map[string][]mongo.IndexModel{
		accountsCollection: {
			unique("email"),
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		staffCollection:         {unique("account")},
		doctorsCollection:       {unique("account"), unique("licenseNumber")},
		patientsCollection:      {unique("account"), index("doctors")},
		appointmentsCollection:  {index("patientId"), index("doctorId"), index("startTime")},
		prescriptionsCollection: {index("patientId"), index("doctorId")},
		transactionsCollection:  {index("patientId")},
	}
	for coll, idx := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

type mongoTx struct {
	client *mongo.Client
}

func (t mongoTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sctx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sctx)
	})
	return err
}

func (mongoTx) Atomic() bool { return true }

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func exists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// findAll decodes every document matching filter, returning an empty slice
// rather than nil when nothing matches.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*T, len(docs))
	for i := range docs {
		out[i] = &docs[i]
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return &doc, nil
}

func findOneAndSet[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, set bson.M) (*T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return &doc, nil
}
