package memory

import (
	"context"
	"fmt"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// insertProfile stores p in m unless its account already has a profile.
func insertProfile[T any](m map[primitive.ObjectID]T, id, account primitive.ObjectID, accountOf func(T) primitive.ObjectID, p T) error {
	for _, other := range m {
		if accountOf(other) == account {
			return repository.ErrDuplicate
		}
	}
	m[id] = p
	return nil
}

func findProfile[T any](m map[primitive.ObjectID]T, account primitive.ObjectID, accountOf func(T) primitive.ObjectID) (*T, bool) {
	for _, p := range m {
		if accountOf(p) == account {
			return &p, true
		}
	}
	return nil, false
}

func deleteProfile[T any](m map[primitive.ObjectID]T, account primitive.ObjectID, accountOf func(T) primitive.ObjectID) error {
	for id, p := range m {
		if accountOf(p) == account {
			delete(m, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func byName[T any](name func(*T) string) func(a, b *T) bool {
	return func(a, b *T) bool { return name(a) < name(b) }
}

type staff struct{ s *store }

func staffAccount(p models.StaffProfile) primitive.ObjectID { return p.Account }

func (r *staff) Create(_ context.Context, profile models.Profile) error {
	p, ok := profile.(*models.StaffProfile)
	if !ok {
		return fmt.Errorf("%T cannot be stored as a staff profile", profile)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&p.ID)
	return insertProfile(r.s.staff, p.ID, p.Account, staffAccount, *p)
}

func (r *staff) FindByAccount(_ context.Context, account primitive.ObjectID) (models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := findProfile(r.s.staff, account, staffAccount); ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *staff) DeleteByAccount(_ context.Context, account primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return deleteProfile(r.s.staff, account, staffAccount)
}

func (r *staff) List(context.Context) ([]*models.StaffProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.staff, nil, byName(func(p *models.StaffProfile) string { return p.FullName })), nil
}

type doctors struct{ s *store }

func doctorAccount(p models.DoctorProfile) primitive.ObjectID { return p.Account }

func (r *doctors) Create(_ context.Context, profile models.Profile) error {
	p, ok := profile.(*models.DoctorProfile)
	if !ok {
		return fmt.Errorf("%T cannot be stored as a doctor profile", profile)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.doctors {
		if other.LicenseNumber == p.LicenseNumber {
			return repository.ErrDuplicate
		}
	}
	ensureID(&p.ID)
	return insertProfile(r.s.doctors, p.ID, p.Account, doctorAccount, *p)
}

func (r *doctors) FindByAccount(_ context.Context, account primitive.ObjectID) (models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := findProfile(r.s.doctors, account, doctorAccount); ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *doctors) DeleteByAccount(_ context.Context, account primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return deleteProfile(r.s.doctors, account, doctorAccount)
}

func (r *doctors) FindByID(_ context.Context, id primitive.ObjectID) (*models.DoctorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *doctors) ExistsByLicense(_ context.Context, license string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.doctors {
		if p.LicenseNumber == license {
			return true, nil
		}
	}
	return false, nil
}

func (r *doctors) List(context.Context) ([]*models.DoctorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.doctors, nil, byName(func(p *models.DoctorProfile) string { return p.FullName })), nil
}

type patients struct{ s *store }

func patientAccount(p models.PatientProfile) primitive.ObjectID { return p.Account }

func (r *patients) Create(_ context.Context, profile models.Profile) error {
	p, ok := profile.(*models.PatientProfile)
	if !ok {
		return fmt.Errorf("%T cannot be stored as a patient profile", profile)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&p.ID)
	cp := *p
	cp.Doctors = append([]primitive.ObjectID{}, p.Doctors...)
	return insertProfile(r.s.patients, p.ID, p.Account, patientAccount, cp)
}

func (r *patients) FindByAccount(_ context.Context, account primitive.ObjectID) (models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := findProfile(r.s.patients, account, patientAccount); ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *patients) DeleteByAccount(_ context.Context, account primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return deleteProfile(r.s.patients, account, patientAccount)
}

func (r *patients) FindByID(_ context.Context, id primitive.ObjectID) (*models.PatientProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patients) List(_ context.Context, doctorID primitive.ObjectID) ([]*models.PatientProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var keep func(*models.PatientProfile) bool
	if !doctorID.IsZero() {
		keep = func(p *models.PatientProfile) bool { return p.HasDoctor(doctorID) }
	}
	return sortedValues(r.s.patients, keep, byName(func(p *models.PatientProfile) string { return p.FullName })), nil
}

func (r *patients) SetDoctors(_ context.Context, id primitive.ObjectID, doctorIDs []primitive.ObjectID) (*models.PatientProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Doctors = append([]primitive.ObjectID{}, doctorIDs...)
	r.s.patients[id] = p
	return &p, nil
}
