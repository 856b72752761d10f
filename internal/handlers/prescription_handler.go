package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/response"
	"github.com/harentsoaR/clinic-api/internal/services"
)

type createPrescriptionRequest struct {
	PatientID     string              `json:"patientId" binding:"required"`
	AppointmentID string              `json:"appointmentId"`
	Medications   []models.Medication `json:"medications" binding:"required,min=1,dive"`
	Notes         string              `json:"notes" binding:"max=2000"`
}

// prescriptionScope narrows a listing to what the caller may read.
func prescriptionScope(p *services.Principal, f *models.PrescriptionFilter) {
	switch p.Role {
	case models.RolePatient:
		f.PatientID = p.Profile.ProfileID()
	case models.RoleDoctor:
		f.DoctorID = p.Profile.ProfileID()
	}
}

func canReadPrescription(p *services.Principal, rx *models.Prescription) bool {
	switch p.Role {
	case models.RoleStaff:
		return true
	case models.RoleDoctor:
		return rx.DoctorID == p.Profile.ProfileID()
	case models.RolePatient:
		return rx.PatientID == p.Profile.ProfileID()
	}
	return false
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.PrescriptionFilter
	if v := c.Query("patientId"); v != "" {
		if filter.PatientID, err = objectID("patientId", v); err != nil {
			response.Error(c, err)
			return
		}
	}
	prescriptionScope(p, &filter)

	list, err := h.Repos.Prescriptions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve prescriptions", err))
		return
	}
	if list == nil {
		list = []*models.Prescription{}
	}
	response.OK(c, list)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rx, err := h.Repos.Prescriptions.FindByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, notFound(err, "Prescription"))
		return
	}
	if !canReadPrescription(p, rx) {
		response.Error(c, apperr.NewNotFound("Prescription"))
		return
	}
	response.OK(c, rx)
}

// CreatePrescription issues a prescription from the calling doctor to one of
// their linked patients.
func (h *Handler) CreatePrescription(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req createPrescriptionRequest
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

	doctorID := p.Profile.ProfileID()
	patient, err := h.Repos.Profiles.Patients.FindByID(ctx, patientID)
	if err != nil {
		response.Error(c, notFound(err, "Patient"))
		return
	}
	if !patient.HasDoctor(doctorID) {
		response.Error(c, apperr.NewNotFound("Patient"))
		return
	}
	if appointmentID != nil {
		apt, err := h.Repos.Appointments.FindByID(ctx, *appointmentID)
		if err != nil {
			response.Error(c, notFound(err, "Appointment"))
			return
		}
		if apt.PatientID != patientID || apt.DoctorID != doctorID {
			response.Error(c, apperr.NewValidation("Appointment does not match prescription", map[string]string{
				"appointmentId": "The appointment must be between this doctor and patient.",
			}))
			return
		}
	}

	rx := &models.Prescription{
		PatientID:     patientID,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Medications:   req.Medications,
		Notes:         req.Notes,
		IssuedAt:      time.Now().UTC(),
	}
	if err := h.Repos.Prescriptions.Create(ctx, rx); err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to create prescription", err))
		return
	}
	response.Created(c, rx)
}
