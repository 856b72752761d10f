// Package repository holds the persistence contracts of the API and their
// MongoDB implementation. The memory subpackage provides an in-process
// implementation of the same contracts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProfileRepository is the role-agnostic view of one profile collection.
type ProfileRepository interface {
	Create(ctx context.Context, profile models.Profile) error
	FindByAccount(ctx context.Context, accountID primitive.ObjectID) (models.Profile, error)
	DeleteByAccount(ctx context.Context, accountID primitive.ObjectID) error
}

type StaffRepository interface {
	ProfileRepository
	List(ctx context.Context) ([]*models.StaffProfile, error)
}

type DoctorRepository interface {
	ProfileRepository
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DoctorProfile, error)
	ExistsByLicense(ctx context.Context, license string) (bool, error)
	List(ctx context.Context) ([]*models.DoctorProfile, error)
}

type PatientRepository interface {
	ProfileRepository
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PatientProfile, error)
	// List returns every patient, or only those linked to doctorID when it is set.
	List(ctx context.Context, doctorID primitive.ObjectID) ([]*models.PatientProfile, error)
	SetDoctors(ctx context.Context, id primitive.ObjectID, doctors []primitive.ObjectID) (*models.PatientProfile, error)
}

// Profiles groups the per-role profile repositories.
type Profiles struct {
	Staff    StaffRepository
	Doctors  DoctorRepository
	Patients PatientRepository
}

// For returns the profile repository that stores profiles of role.
func (p Profiles) For(role models.Role) (ProfileRepository, error) {
	switch role {
	case models.RoleStaff:
		return p.Staff, nil
	case models.RoleDoctor:
		return p.Doctors, nil
	case models.RolePatient:
		return p.Patients, nil
	}
	return nil, fmt.Errorf("no profile repository for role %q", role)
}

type AppointmentRepository interface {
	Create(ctx context.Context, apt *models.Appointment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)
	Update(ctx context.Context, id primitive.ObjectID, update AppointmentUpdate) (*models.Appointment, error)
}

// AppointmentUpdate lists the mutable appointment fields. Nil means unchanged.
type AppointmentUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Reason    *string
	Status    *models.AppointmentStatus
	Notes     *string
}

func (u AppointmentUpdate) Empty() bool {
	return u.StartTime == nil && u.EndTime == nil && u.Reason == nil && u.Status == nil && u.Notes == nil
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error)
	List(ctx context.Context, filter models.PrescriptionFilter) ([]*models.Prescription, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TransactionStatus) (*models.Transaction, error)
}

// TxRunner runs fn as one unit of work. When Atomic reports false, fn runs
// without isolation and callers must compensate partial writes themselves.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

// Repositories bundles every store the API uses.
type Repositories struct {
	Accounts      AccountRepository
	Profiles      Profiles
	Appointments  AppointmentRepository
	Prescriptions PrescriptionRepository
	Transactions  TransactionRepository
	Tx            TxRunner

	// Ping checks the backing store and Close releases it.
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// NoTx runs fn directly.
type NoTx struct{}

func (NoTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
func (NoTx) Atomic() bool                                                          { return false }
