package memory

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type appointments struct{ s *store }

func (r *appointments) Create(_ context.Context, apt *models.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&apt.ID)
	r.s.appointments[apt.ID] = *apt
	return nil
}

func (r *appointments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &apt, nil
}

func (r *appointments) List(_ context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	keep := func(a *models.Appointment) bool {
		switch {
		case !f.PatientID.IsZero() && a.PatientID != f.PatientID:
			return false
		case !f.DoctorID.IsZero() && a.DoctorID != f.DoctorID:
			return false
		case f.Status != "" && a.Status != f.Status:
			return false
		case !f.From.IsZero() && a.StartTime.Before(f.From):
			return false
		case !f.To.IsZero() && a.StartTime.After(f.To):
			return false
		}
		return true
	}
	return sortedValues(r.s.appointments, keep, func(a, b *models.Appointment) bool {
		return a.StartTime.After(b.StartTime)
	}), nil
}

func (r *appointments) Update(_ context.Context, id primitive.ObjectID, u repository.AppointmentUpdate) (*models.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.StartTime != nil {
		apt.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		apt.EndTime = *u.EndTime
	}
	if u.Reason != nil {
		apt.Reason = *u.Reason
	}
	if u.Status != nil {
		apt.Status = *u.Status
	}
	if u.Notes != nil {
		apt.Notes = *u.Notes
	}
	apt.UpdatedAt = time.Now().UTC()
	r.s.appointments[id] = apt
	return &apt, nil
}

type prescriptions struct{ s *store }

func (r *prescriptions) Create(_ context.Context, p *models.Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&p.ID)
	cp := *p
	cp.Medications = append([]models.Medication{}, p.Medications...)
	r.s.prescriptions[p.ID] = cp
	return nil
}

func (r *prescriptions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.prescriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *prescriptions) List(_ context.Context, f models.PrescriptionFilter) ([]*models.Prescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	keep := func(p *models.Prescription) bool {
		if !f.PatientID.IsZero() && p.PatientID != f.PatientID {
			return false
		}
		return f.DoctorID.IsZero() || p.DoctorID == f.DoctorID
	}
	return sortedValues(r.s.prescriptions, keep, func(a, b *models.Prescription) bool {
		return a.IssuedAt.After(b.IssuedAt)
	}), nil
}

type transactions struct{ s *store }

func (r *transactions) Create(_ context.Context, tx *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&tx.ID)
	r.s.transactions[tx.ID] = *tx
	return nil
}

func (r *transactions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (r *transactions) List(_ context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	keep := func(tx *models.Transaction) bool {
		if !f.PatientID.IsZero() && tx.PatientID != f.PatientID {
			return false
		}
		return f.Status == "" || tx.Status == f.Status
	}
	return sortedValues(r.s.transactions, keep, func(a, b *models.Transaction) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (r *transactions) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.TransactionStatus) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	r.s.transactions[id] = tx
	return &tx, nil
}
