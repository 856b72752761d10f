package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"github.com/harentsoaR/clinic-api/internal/repository/memory"
)

func TestRegisterEachRole(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		want models.Role
	}{
		{"staff", RegisterInput{Email: "s@x.com", Password: "s3cret-pass", Role: "staff", FullName: "Sam", Username: "sam", Gender: "female"}, models.RoleStaff},
		{"doctor", doctorInput("d@x.com", "drd", "L9"), models.RoleDoctor},
		{"patient", RegisterInput{Email: "p@x.com", Password: "s3cret-pass", Role: "Patient", FullName: "Pat", Gender: "male", DateOfBirth: "1990-04-02"}, models.RolePatient},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, profile := f.register(t, tt.in)
			if account.Role != tt.want || profile.ProfileRole() != tt.want {
				t.Errorf("role = %s/%s, want %s", account.Role, profile.ProfileRole(), tt.want)
			}
			if profile.AccountID() != account.ID {
				t.Error("profile does not reference its account")
			}
			if account.PasswordHash == tt.in.Password || account.PasswordHash == "" {
				t.Error("password was not hashed")
			}
			if !account.IsActive {
				t.Error("new accounts should be active")
			}
		})
	}
}

func withPassword(in RegisterInput, password string) RegisterInput {
	in.Password = password
	return in
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing email", RegisterInput{Password: "s3cret-pass", Role: "patient", FullName: "P", Gender: "male"}, "email"},
		{"bad email", RegisterInput{Email: "nope", Password: "s3cret-pass", Role: "patient", FullName: "P", Gender: "male"}, "email"},
		{"short password", RegisterInput{Email: "p@x.com", Password: "short", Role: "patient", FullName: "P", Gender: "male"}, "password"},
		{"unknown role", RegisterInput{Email: "p@x.com", Password: "s3cret-pass", Role: "admin", FullName: "P"}, "role"},
		{"doctor without license", doctorInput("d@x.com", "drd", ""), "licenseNumber"},
		{"doctor without username", doctorInput("d@x.com", "", "L1"), "username"},
		{"staff without gender", RegisterInput{Email: "s@x.com", Password: "s3cret-pass", Role: "staff", FullName: "S", Username: "sam"}, "gender"},
		{"staff without full name", RegisterInput{Email: "s@x.com", Password: "s3cret-pass", Role: "staff", Username: "sam", Gender: "male"}, "fullName"},
		{"multibyte password over 72 bytes", withPassword(doctorInput("d@x.com", "drd", "L1"), strings.Repeat("é", 40)), "password"},
		{"patient bad birth date", RegisterInput{Email: "p@x.com", Password: "s3cret-pass", Role: "patient", FullName: "P", Gender: "male", DateOfBirth: "02/04/1990"}, "dateOfBirth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, _, err := f.svc.Register(context.Background(), tt.in)
			assertKind(t, err, apperr.Validation)
			if _, ok := apperr.As(err).Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want an entry for %q", apperr.As(err).Fields, tt.field)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture(t)
	f.register(t, doctorInput("doc@x.com", "drwho", "L1"))

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"email", doctorInput("DOC@x.com", "other", "L2")},
		{"username", doctorInput("other@x.com", "DrWho", "L2")},
		{"license", doctorInput("other@x.com", "other", "L1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Register(context.Background(), tt.in)
			assertKind(t, err, apperr.DuplicateAccount)
		})
	}
}

// racyDoctors hides existing licenses from the pre-check, like a concurrent
// registration that commits between the check and the write.
type racyDoctors struct {
	repository.DoctorRepository
}

func (racyDoctors) ExistsByLicense(context.Context, string) (bool, error) { return false, nil }

func TestRegisterRollsBackAccountWhenProfileFails(t *testing.T) {
	repos := memory.New()
	repos.Profiles.Doctors = racyDoctors{repos.Profiles.Doctors}
	f := newFixtureWith(t, repos)
	ctx := context.Background()

	f.register(t, doctorInput("first@x.com", "first", "L1"))

	_, _, err := f.svc.Register(ctx, doctorInput("second@x.com", "second", "L1"))
	assertKind(t, err, apperr.DuplicateAccount)

	if _, err := repos.Accounts.FindByEmail(ctx, "second@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("orphan account survived: err = %v", err)
	}
	// The email is free again, so a corrected registration succeeds.
	f.register(t, doctorInput("second@x.com", "second", "L2"))
}

// lostAckDoctors stores the profile and then reports a failure, like a
// write whose acknowledgement timed out.
type lostAckDoctors struct {
	repository.DoctorRepository
}

func (r lostAckDoctors) Create(ctx context.Context, p models.Profile) error {
	if err := r.DoctorRepository.Create(ctx, p); err != nil {
		return err
	}
	return context.DeadlineExceeded
}

func TestRegisterRollbackRemovesPartialProfile(t *testing.T) {
	repos := memory.New()
	repos.Profiles.Doctors = lostAckDoctors{repos.Profiles.Doctors}
	f := newFixtureWith(t, repos)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, doctorInput("doc@x.com", "drwho", "L1"))
	assertKind(t, err, apperr.Internal)

	if _, err := repos.Accounts.FindByEmail(ctx, "doc@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("account survived rollback: err = %v", err)
	}
	if taken, _ := repos.Profiles.Doctors.ExistsByLicense(ctx, "L1"); taken {
		t.Error("profile written before the failure survived rollback")
	}
}

// atomicTx marks the store as transactional; the test asserts the service
// leaves rollback to it.
type atomicTx struct {
	ran bool
}

func (tx *atomicTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	tx.ran = true
	return fn(ctx)
}

func (*atomicTx) Atomic() bool { return true }

func TestRegisterUsesTransactionWhenAvailable(t *testing.T) {
	repos := memory.New()
	tx := &atomicTx{}
	repos.Tx = tx
	repos.Profiles.Doctors = racyDoctors{repos.Profiles.Doctors}
	f := newFixtureWith(t, repos)
	ctx := context.Background()

	f.register(t, doctorInput("first@x.com", "first", "L1"))
	if !tx.ran {
		t.Fatal("registration did not run inside the transaction runner")
	}

	_, _, err := f.svc.Register(ctx, doctorInput("second@x.com", "second", "L1"))
	assertKind(t, err, apperr.DuplicateAccount)

	// No compensating delete: the transaction owns the rollback.
	if _, err := repos.Accounts.FindByEmail(ctx, "second@x.com"); err != nil {
		t.Errorf("account should be left for the transaction to abort, got %v", err)
	}
}
