package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler carries the dependencies shared by every route.
type Handler struct {
	Auth     *services.AuthService
	Repos    *repository.Repositories
	Notifier services.Notifier
	Log      zerolog.Logger
}

func NewHandler(auth *services.AuthService, repos *repository.Repositories, notifier services.Notifier, log zerolog.Logger) *Handler {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	return &Handler{
		Auth:     auth,
		Repos:    repos,
		Notifier: notifier,
		Log:      log.With().Str("component", "http").Logger(),
	}
}

// bindJSON decodes the body into dst and reports binding failures as a Validation error.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.NewValidation("Request data is invalid", services.FieldErrors(verrs))
	}
	return apperr.Wrap(apperr.Validation, "Invalid request body", err)
}

// objectID parses a hex id supplied under field.
func objectID(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, apperr.NewValidation("Invalid identifier", map[string]string{
			field: "The field '" + field + "' must be a valid id.",
		})
	}
	return id, nil
}

func optionalObjectID(field, value string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := objectID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// paramID parses the :id path parameter.
func paramID(c *gin.Context) (primitive.ObjectID, error) {
	return objectID("id", c.Param("id"))
}

// parseDay accepts RFC3339 or a bare date. A bare date used as an upper bound
// covers the whole day.
func parseDay(field, value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, apperr.NewValidation("Invalid date", map[string]string{
			field: "The field '" + field + "' must be a date formatted as YYYY-MM-DD or RFC3339.",
		})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// caller returns the principal attached by the auth middleware. Routes are
// only mounted behind it, so a missing principal is an internal fault.
func caller(c *gin.Context) (*services.Principal, error) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return nil, apperr.E(apperr.Internal, "Request has no verified principal")
	}
	return p, nil
}

// notFound translates repository.ErrNotFound into a NotFound error for what.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NewNotFound(what)
	}
	return apperr.Wrap(apperr.Internal, "Could not load "+strings.ToLower(what), err)
}
