package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"github.com/harentsoaR/clinic-api/internal/response"
	"github.com/harentsoaR/clinic-api/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createAppointmentRequest struct {
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId" binding:"required"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Reason    string    `json:"reason" binding:"max=500"`
	Notes     string    `json:"notes" binding:"max=2000"`
}

type updateAppointmentRequest struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// ownsAppointment reports whether p may act on apt. Staff see every appointment.
func ownsAppointment(p *services.Principal, apt *models.Appointment) bool {
	switch p.Role {
	case models.RoleStaff:
		return true
	case models.RoleDoctor:
		return apt.DoctorID == p.Profile.ProfileID()
	case models.RolePatient:
		return apt.PatientID == p.Profile.ProfileID()
	}
	return false
}

func invalidRange() error {
	return apperr.NewValidation("Invalid appointment time", map[string]string{
		"endTime": "The field 'endTime' must be after 'startTime'.",
	})
}

// CreateAppointment books an appointment. Patients always book for themselves.
func (h *Handler) CreateAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req createAppointmentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if !req.EndTime.After(req.StartTime) {
		response.Error(c, invalidRange())
		return
	}

	doctorID, err := objectID("doctorId", req.DoctorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.Repos.Profiles.Doctors.FindByID(ctx, doctorID); err != nil {
		response.Error(c, notFound(err, "Doctor"))
		return
	}

	var patient *models.PatientProfile
	if p.Role == models.RolePatient {
		patient, _ = p.Profile.(*models.PatientProfile)
	} else {
		patientID, err := objectID("patientId", req.PatientID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if patient, err = h.Repos.Profiles.Patients.FindByID(ctx, patientID); err != nil {
			response.Error(c, notFound(err, "Patient"))
			return
		}
	}
	if patient == nil {
		response.Error(c, apperr.E(apperr.Internal, "Caller has no patient profile"))
		return
	}

	now := time.Now().UTC()
	apt := &models.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctorID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Reason:    req.Reason,
		Notes:     req.Notes,
		Status:    models.AppointmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Repos.Appointments.Create(ctx, apt); err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to create appointment", err))
		return
	}

	h.Notifier.Notify(services.Event{Type: services.EventAppointmentBooked, Patient: patient, Appointment: apt})
	response.Created(c, apt)
}

// ListAppointments lists appointments visible to the caller, newest first.
// Patients and doctors only ever see their own regardless of query filters.
func (h *Handler) ListAppointments(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.AppointmentFilter
	if v := c.Query("from"); v != "" {
		if filter.From, err = parseDay("from", v, false); err != nil {
			response.Error(c, err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if filter.To, err = parseDay("to", v, true); err != nil {
			response.Error(c, err)
			return
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = models.AppointmentStatus(v)
		if !filter.Status.Valid() {
			response.Error(c, invalidStatus("status", "scheduled completed cancelled"))
			return
		}
	}
	if v := c.Query("patientId"); v != "" {
		if filter.PatientID, err = objectID("patientId", v); err != nil {
			response.Error(c, err)
			return
		}
	}
	if v := c.Query("doctorId"); v != "" {
		if filter.DoctorID, err = objectID("doctorId", v); err != nil {
			response.Error(c, err)
			return
		}
	}

	switch p.Role {
	case models.RolePatient:
		filter.PatientID = p.Profile.ProfileID()
	case models.RoleDoctor:
		filter.DoctorID = p.Profile.ProfileID()
	}

	appointments, err := h.Repos.Appointments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, apperr.Wrap(apperr.Internal, "Failed to retrieve appointments", err))
		return
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	response.OK(c, appointments)
}

// UpdateAppointment changes schedule, reason, notes or status. Doctors may
// only touch their own appointments.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	ctx := c.Request.Context()
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
	var req updateAppointmentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	apt, err := h.ownedAppointment(ctx, p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	update := repository.AppointmentUpdate{StartTime: utc(req.StartTime), EndTime: utc(req.EndTime), Reason: req.Reason, Notes: req.Notes}
	if req.Status != nil {
		status := models.AppointmentStatus(*req.Status)
		if !status.Valid() {
			response.Error(c, invalidStatus("status", "scheduled completed cancelled"))
			return
		}
		update.Status = &status
	}
	if update.Empty() {
		response.Error(c, apperr.NewValidation("No fields to update", nil))
		return
	}

	start, end := apt.StartTime, apt.EndTime
	if update.StartTime != nil {
		start = *update.StartTime
	}
	if update.EndTime != nil {
		end = *update.EndTime
	}
	if !end.After(start) {
		response.Error(c, invalidRange())
		return
	}

	updated, err := h.Repos.Appointments.Update(ctx, id, update)
	if err != nil {
		response.Error(c, notFound(err, "Appointment"))
		return
	}
	response.OK(c, updated)
}

// CancelAppointment marks an appointment cancelled and notifies the patient.
func (h *Handler) CancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()
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

	if _, err := h.ownedAppointment(ctx, p, id); err != nil {
		response.Error(c, err)
		return
	}
	status := models.AppointmentCancelled
	apt, err := h.Repos.Appointments.Update(ctx, id, repository.AppointmentUpdate{Status: &status})
	if err != nil {
		response.Error(c, notFound(err, "Appointment"))
		return
	}

	// Find patient details for notification
	patient, err := h.Repos.Profiles.Patients.FindByID(ctx, apt.PatientID)
	if err == nil {
		h.Notifier.Notify(services.Event{Type: services.EventAppointmentCancelled, Patient: patient, Appointment: apt})
	} else {
		h.Log.Warn().Err(err).Str("appointment", apt.ID.Hex()).Msg("cancellation not notified")
	}
	response.OK(c, apt)
}

// ownedAppointment loads id and hides it when the caller may not act on it.
func (h *Handler) ownedAppointment(ctx context.Context, p *services.Principal, id primitive.ObjectID) (*models.Appointment, error) {
	apt, err := h.Repos.Appointments.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Appointment")
	}
	if !ownsAppointment(p, apt) {
		return nil, apperr.NewNotFound("Appointment")
	}
	return apt, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func invalidStatus(field, allowed string) error {
	return apperr.NewValidation("Invalid status", map[string]string{
		field: "The field '" + field + "' must be one of [" + allowed + "].",
	})
}
