package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type setDoctorsRequest struct {
	Doctors []string `json:"doctors"`
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.Repos.Profiles.Doctors.List(c.Request.Context())
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve doctors", err))
		return
	}
	if doctors == nil {
		doctors = []*models.DoctorProfile{}
	}
	response.OK(c, doctors)
}

func (h *Handler) ListStaff(c *gin.Context) {
	staff, err := h.Repos.Profiles.Staff.List(c.Request.Context())
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve staff", err))
		return
	}
	if staff == nil {
		staff = []*models.StaffProfile{}
	}
	response.OK(c, staff)
}

// ListPatients returns every patient to staff and only linked patients to doctors.
func (h *Handler) ListPatients(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var doctorID primitive.ObjectID
	if p.Role == models.RoleDoctor {
		doctorID = p.Profile.ProfileID()
	}

	patients, err := h.Repos.Profiles.Patients.List(c.Request.Context(), doctorID)
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve patients", err))
		return
	}
	if patients == nil {
		patients = []*models.PatientProfile{}
	}
	response.OK(c, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
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

	patient, err := h.Repos.Profiles.Patients.FindByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, notFound(err, "Patient"))
		return
	}
	if p.Role == models.RoleDoctor && !patient.HasDoctor(p.Profile.ProfileID()) {
		response.Error(c, apperr.NewNotFound("Patient"))
		return
	}
	response.OK(c, patient)
}

// SetPatientDoctors replaces the doctors linked to a patient.
func (h *Handler) SetPatientDoctors(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req setDoctorsRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	doctors := make([]primitive.ObjectID, 0, len(req.Doctors))
	seen := make(map[primitive.ObjectID]bool, len(req.Doctors))
	for _, raw := range req.Doctors {
		doctorID, err := objectID("doctors", raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		if seen[doctorID] {
			continue
		}
		if _, err := h.Repos.Profiles.Doctors.FindByID(ctx, doctorID); err != nil {
			response.Error(c, notFound(err, "Doctor"))
			return
		}
		seen[doctorID] = true
		doctors = append(doctors, doctorID)
	}

	patient, err := h.Repos.Profiles.Patients.SetDoctors(ctx, id, doctors)
	if err != nil {
		response.Error(c, notFound(err, "Patient"))
		return
	}
	response.OK(c, patient)
}
