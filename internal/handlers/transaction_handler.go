package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/response"
)

const transactionStatuses = "pending paid refunded cancelled"

type createTransactionRequest struct {
	PatientID     string `json:"patientId" binding:"required"`
	AppointmentID string `json:"appointmentId"`
	AmountCents   int64  `json:"amountCents" binding:"required,gt=0"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Description   string `json:"description" binding:"required,max=500"`
	Method        string `json:"method" binding:"max=50"`
}

type transactionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListTransactions lists billing records. Patients only see their own.
func (h *Handler) ListTransactions(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.TransactionFilter
	if v := c.Query("patientId"); v != "" {
		if filter.PatientID, err = objectID("patientId", v); err != nil {
			response.Error(c, err)
			return
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = models.TransactionStatus(v)
		if !filter.Status.Valid() {
			response.Error(c, invalidStatus("status", transactionStatuses))
			return
		}
	}
	if p.Role == models.RolePatient {
		filter.PatientID = p.Profile.ProfileID()
	}

	list, err := h.Repos.Transactions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve transactions", err))
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	response.OK(c, list)
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	var req createTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	patientID, err := objectID("patientId", req.PatientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	appointmentID, err := optionalObjectID("appointmentId", req.AppointmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.Repos.Profiles.Patients.FindByID(ctx, patientID); err != nil {
		response.Error(c, notFound(err, "Patient"))
		return
	}
	if appointmentID != nil {
		apt, err := h.Repos.Appointments.FindByID(ctx, *appointmentID)
		if err != nil {
			response.Error(c, notFound(err, "Appointment"))
			return
		}
		if apt.PatientID != patientID {
			response.Error(c, apperr.NewValidation("Appointment does not match transaction", map[string]string{
				"appointmentId": "The appointment must belong to the billed patient.",
			}))
			return
		}
	}

	now := time.Now().UTC()
	tx := &models.Transaction{
		PatientID:     patientID,
		AppointmentID: appointmentID,
		AmountCents:   req.AmountCents,
		Currency:      strings.ToUpper(req.Currency),
		Description:   req.Description,
		Method:        req.Method,
		Status:        models.TransactionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Repos.Transactions.Create(ctx, tx); err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to create transaction", err))
		return
	}
	response.Created(c, tx)
}

func (h *Handler) UpdateTransactionStatus(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req transactionStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	status := models.TransactionStatus(strings.ToLower(req.Status))
	if !status.Valid() {
		response.Error(c, invalidStatus("status", transactionStatuses))
		return
	}

	tx, err := h.Repos.Transactions.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		response.Error(c, notFound(err, "Transaction"))
		return
	}
	response.OK(c, tx)
}
