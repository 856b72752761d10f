package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"github.com/harentsoaR/clinic-api/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errAccountDisabled = apperr.NewForbidden("This account is disabled")

// Principal is the verified caller attached to a request. Role always comes
// from the stored account, never from the token.
type Principal struct {
	AccountID primitive.ObjectID
	Role      models.Role
	Account   *models.Account
	Profile   models.Profile
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Account   *models.Account `json:"account"`
	Profile   models.Profile  `json:"profile"`
}

// AuthService verifies credentials, issues and checks tokens, and registers accounts.
type AuthService struct {
	accounts repository.AccountRepository
	profiles repository.Profiles
	tx       repository.TxRunner
	hasher   utils.PasswordHasher
	tokens   *utils.TokenCodec
	notifier Notifier
	validate *validator.Validate
	log      zerolog.Logger

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one hash verification.
	dummyHash string
}

func NewAuthService(repos *repository.Repositories, hasher utils.PasswordHasher, tokens *utils.TokenCodec, notifier Notifier, log zerolog.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash("clinic-api/unknown-account")
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	tx := repos.Tx
	if tx == nil {
		tx = repository.NoTx{}
	}
	return &AuthService{
		accounts:  repos.Accounts,
		profiles:  repos.Profiles,
		tx:        tx,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		validate:  newValidator(),
		log:       log.With().Str("component", "auth").Logger(),
		dummyHash: dummy,
	}, nil
}

// VerifyCredentials checks email and password and loads the role profile.
// An unknown email and a wrong password fail identically.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*models.Account, models.Profile, error) {
	account, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		return nil, nil, apperr.NewInvalidCredentials()
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "Could not look up account", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, nil, apperr.NewInvalidCredentials()
	}
	if !account.IsActive {
		return nil, nil, errAccountDisabled
	}

	profile, err := s.loadProfile(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return account, profile, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, profile, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.log.Debug().Str("kind", apperr.KindOf(err).String()).Msg("login rejected")
		return nil, err
	}

	token, expiresAt, err := s.tokens.Sign(account.ID.Hex(), account.Role.String())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not generate token", err)
	}
	s.log.Info().Str("account", account.ID.Hex()).Str("role", account.Role.String()).Msg("login succeeded")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account, Profile: profile}, nil
}

// Authenticate verifies a bearer token and reloads the account and its
// profile. Nothing is cached between calls.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Verify(token)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, apperr.NewUnauthenticated(apperr.CodeTokenExpired, "Session has expired, please log in again")
	}
	if err != nil {
		return nil, apperr.NewUnauthenticated(apperr.CodeTokenInvalid, "Invalid access token")
	}

	accountID, err := primitive.ObjectIDFromHex(claims.AccountID)
	if err != nil {
		return nil, apperr.NewUnauthenticated(apperr.CodeTokenInvalid, "Invalid access token")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewUnauthenticated(apperr.CodeTokenInvalid, "Account no longer exists")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not load account", err)
	}
	if !account.IsActive {
		return nil, errAccountDisabled
	}

	profile, err := s.loadProfile(ctx, account)
	if err != nil {
		return nil, err
	}
	return &Principal{AccountID: account.ID, Role: account.Role, Account: account, Profile: profile}, nil
}

// ChangePassword rotates the account's password hash after checking the current password.
func (s *AuthService) ChangePassword(ctx context.Context, accountID primitive.ObjectID, current, next string) error {
	if utf8.RuneCountInString(next) < 8 {
		return apperr.NewValidation("New password is invalid", map[string]string{
			"newPassword": "The field 'newPassword' must be at least 8 characters long.",
		})
	}
	if len(next) > maxPasswordBytes {
		return passwordTooLong("newPassword")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NewUnauthenticated(apperr.CodeTokenInvalid, "Account no longer exists")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Could not load account", err)
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return apperr.NewInvalidCredentials()
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to hash password", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to update password", err)
	}
	s.log.Info().Str("account", accountID.Hex()).Msg("password rotated")
	return nil
}

func (s *AuthService) loadProfile(ctx context.Context, account *models.Account) (models.Profile, error) {
	repo, err := s.profiles.For(account.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Account has an unknown role", err)
	}
	profile, err := repo.FindByAccount(ctx, account.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn().Str("account", account.ID.Hex()).Str("role", account.Role.String()).Msg("account has no profile")
		return nil, apperr.NewProfileNotFound(account.Role)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not load profile", err)
	}
	return profile, nil
}
