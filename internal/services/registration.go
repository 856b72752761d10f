package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const rollbackTimeout = 5 * time.Second

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func passwordTooLong(field string) error {
	return apperr.NewValidation("Password is too long", map[string]string{
		field: fmt.Sprintf("The field '%s' must be at most %d bytes long.", field, maxPasswordBytes),
	})
}

// RegisterInput carries the union of every role's registration fields.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=staff doctor patient"`
	FullName string `json:"fullName" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`

	Username       string `json:"username,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Position       string `json:"position,omitempty"`
	LicenseNumber  string `json:"licenseNumber,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	Address        string `json:"address,omitempty"`
}

type staffFields struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Gender   string `json:"gender" validate:"required,oneof=male female other"`
}

type doctorFields struct {
	Username      string `json:"username" validate:"required,min=3,max=50,alphanum"`
	LicenseNumber string `json:"licenseNumber" validate:"required,max=64"`
}

type patientFields struct {
	Gender      string `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

func (s *AuthService) validateRegistration(in *RegisterInput) (models.Role, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return "", err
	}
	// validator's max counts runes; bcrypt caps the input in bytes.
	if len(in.Password) > maxPasswordBytes {
		return "", passwordTooLong("password")
	}
	role, _ := models.ParseRole(in.Role)

	var fields any
	switch role {
	case models.RoleStaff:
		fields = &staffFields{Username: in.Username, Gender: in.Gender}
	case models.RoleDoctor:
		fields = &doctorFields{Username: in.Username, LicenseNumber: in.LicenseNumber}
	case models.RolePatient:
		fields = &patientFields{Gender: in.Gender, DateOfBirth: in.DateOfBirth}
	}
	return role, validateStruct(s.validate, fields)
}

// Register creates an account and its role profile as one operation. When
// the store cannot run transactions a failed profile write deletes the account again.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, models.Profile, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Username = models.NormalizeUsername(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)

	role, err := s.validateRegistration(&in)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkUnique(ctx, role, &in); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, nil, passwordTooLong("password")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "Failed to hash password", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           primitive.NewObjectID(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role != models.RolePatient {
		account.Username = in.Username
	}
	profile := newProfile(role, account.ID, &in, now)

	repo, err := s.profiles.For(role)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "No profile store for role", err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.NewDuplicateAccount("An account with this email or username already exists")
			}
			return apperr.Wrap(apperr.Internal, "Failed to create account", err)
		}
		if err := repo.Create(ctx, profile); err != nil {
			if !s.tx.Atomic() {
				s.rollbackAccount(ctx, repo, account.ID)
			}
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.NewDuplicateAccount("A profile with these details already exists")
			}
			return apperr.Wrap(apperr.Internal, "Failed to create profile", err)
		}
		return nil
	})
	if err != nil {
		s.log.Info().Str("email", account.Email).Str("kind", apperr.KindOf(err).String()).Msg("registration failed")
		return nil, nil, err
	}

	s.log.Info().Str("account", account.ID.Hex()).Str("role", role.String()).Msg("account registered")
	s.notifier.Notify(Event{Type: EventAccountRegistered, Account: account})
	return account, profile, nil
}

// checkUnique reports the common duplicate cases before anything is written.
// Unique indexes still guard the race between two concurrent registrations.
func (s *AuthService) checkUnique(ctx context.Context, role models.Role, in *RegisterInput) error {
	taken, err := s.accounts.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Could not check email", err)
	}
	if taken {
		return apperr.NewDuplicateAccount("An account with this email already exists")
	}

	if role != models.RolePatient {
		taken, err = s.accounts.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "Could not check username", err)
		}
		if taken {
			return apperr.NewDuplicateAccount("This username is already taken")
		}
	}

	if role == models.RoleDoctor {
		taken, err = s.profiles.Doctors.ExistsByLicense(ctx, in.LicenseNumber)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "Could not check license number", err)
		}
		if taken {
			return apperr.NewDuplicateAccount("This license number is already registered")
		}
	}
	return nil
}

// rollbackAccount deletes an account whose profile could not be written,
// along with any profile a failed write may still have stored.
// It runs detached from the request so a cancelled client cannot leave an orphan.
func (s *AuthService) rollbackAccount(ctx context.Context, profiles repository.ProfileRepository, id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := profiles.DeleteByAccount(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).Str("account", id.Hex()).Msg("failed to remove partial profile")
		return
	}
	if err := s.accounts.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).Str("account", id.Hex()).Msg("failed to roll back account without profile")
		return
	}
	s.log.Warn().Str("account", id.Hex()).Msg("rolled back account after profile write failed")
}

func newProfile(role models.Role, accountID primitive.ObjectID, in *RegisterInput, now time.Time) models.Profile {
	switch role {
	case models.RoleStaff:
		return &models.StaffProfile{
			ID:        primitive.NewObjectID(),
			Account:   accountID,
			FullName:  in.FullName,
			Gender:    in.Gender,
			Position:  in.Position,
			Phone:     in.Phone,
			CreatedAt: now,
		}
	case models.RoleDoctor:
		return &models.DoctorProfile{
			ID:             primitive.NewObjectID(),
			Account:        accountID,
			FullName:       in.FullName,
			LicenseNumber:  in.LicenseNumber,
			Specialization: in.Specialization,
			Phone:          in.Phone,
			CreatedAt:      now,
		}
	}

	p := &models.PatientProfile{
		ID:        primitive.NewObjectID(),
		Account:   accountID,
		FullName:  in.FullName,
		Gender:    in.Gender,
		Phone:     in.Phone,
		Address:   in.Address,
		Doctors:   []primitive.ObjectID{},
		CreatedAt: now,
	}
	if dob, err := time.Parse("2006-01-02", in.DateOfBirth); err == nil {
		p.DateOfBirth = &dob
	}
	return p
}
