package handlers

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/response"
	"github.com/harentsoaR/clinic-api/internal/services"
)

const healthTimeout = 2 * time.Second

// NewRouter wires the middleware chain and every route.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		services.UseJSONFieldNames(v)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(h.Log), middleware.Recovery(h.Log))
	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperr.NewNotFound("Route"))
	})

	r.GET("/healthz", h.Health)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
	}

	staff := middleware.RequireRole(models.RoleStaff)
	doctor := middleware.RequireRole(models.RoleDoctor)
	clinicians := middleware.RequireRole(models.RoleStaff, models.RoleDoctor)

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.AuthMiddleware(h.Auth)) // Protect all /api routes
	{
		apiRoutes.GET("/me", h.Me)
		apiRoutes.PUT("/me/password", h.ChangePassword)

		apiRoutes.GET("/doctors", h.ListDoctors)
		apiRoutes.GET("/staff", staff, h.ListStaff)
		apiRoutes.GET("/patients", clinicians, h.ListPatients)
		apiRoutes.GET("/patients/:id", clinicians, h.GetPatient)
		apiRoutes.PUT("/patients/:id/doctors", staff, h.SetPatientDoctors)

		// Appointment Routes
		apiRoutes.GET("/appointments", h.ListAppointments)
		apiRoutes.POST("/appointments", middleware.RequireRole(models.RoleStaff, models.RolePatient), h.CreateAppointment)
		apiRoutes.PUT("/appointments/:id", clinicians, h.UpdateAppointment)
		apiRoutes.PATCH("/appointments/:id/cancel", h.CancelAppointment)

		apiRoutes.GET("/prescriptions", h.ListPrescriptions)
		apiRoutes.GET("/prescriptions/:id", h.GetPrescription)
		apiRoutes.POST("/prescriptions", doctor, h.CreatePrescription)

		apiRoutes.GET("/transactions", middleware.RequireRole(models.RoleStaff, models.RolePatient), h.ListTransactions)
		apiRoutes.POST("/transactions", staff, h.CreateTransaction)
		apiRoutes.PATCH("/transactions/:id/status", staff, h.UpdateTransactionStatus)
	}

	return r
}

// Health pings the backing store.
func (h *Handler) Health(c *gin.Context) {
	if h.Repos.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := h.Repos.Ping(ctx); err != nil {
			response.Error(c, apperr.Wrap(apperr.Internal, "Database unavailable", err))
			return
		}
	}
	response.OK(c, gin.H{"status": "ok"})
}
