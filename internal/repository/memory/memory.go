// Package memory implements the repository contracts in process memory.
// It backs DB_DRIVER=memory and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// New returns repositories sharing one in-memory store.
func New() *repository.Repositories {
	s := &store{
		accounts:      map[primitive.ObjectID]models.Account{},
		staff:         map[primitive.ObjectID]models.StaffProfile{},
		doctors:       map[primitive.ObjectID]models.DoctorProfile{},
		patients:      map[primitive.ObjectID]models.PatientProfile{},
		appointments:  map[primitive.ObjectID]models.Appointment{},
		prescriptions: map[primitive.ObjectID]models.Prescription{},
		transactions:  map[primitive.ObjectID]models.Transaction{},
	}
	return &repository.Repositories{
		Accounts: &accounts{s},
		Profiles: repository.Profiles{
			Staff:    &staff{s},
			Doctors:  &doctors{s},
			Patients: &patients{s},
		},
		Appointments:  &appointments{s},
		Prescriptions: &prescriptions{s},
		Transactions:  &transactions{s},
		Tx:            repository.NoTx{},
		Ping:          func(context.Context) error { return nil },
		Close:         func(context.Context) error { return nil },
	}
}

type store struct {
	mu            sync.RWMutex
	accounts      map[primitive.ObjectID]models.Account
	staff         map[primitive.ObjectID]models.StaffProfile
	doctors       map[primitive.ObjectID]models.DoctorProfile
	patients      map[primitive.ObjectID]models.PatientProfile
	appointments  map[primitive.ObjectID]models.Appointment
	prescriptions map[primitive.ObjectID]models.Prescription
	transactions  map[primitive.ObjectID]models.Transaction
}

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

type accounts struct{ s *store }

func (r *accounts) Create(_ context.Context, a *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.accounts {
		if other.Email == a.Email || (a.Username != "" && other.Username == a.Username) {
			return repository.ErrDuplicate
		}
	}
	ensureID(&a.ID)
	if _, taken := r.s.accounts[a.ID]; taken {
		return repository.ErrDuplicate
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *accounts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *accounts) ExistsByUsername(_ context.Context, username string) (bool, error) {
	username = models.NormalizeUsername(username)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if username != "" && a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *accounts) UpdatePasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[id] = a
	return nil
}

func (r *accounts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.accounts, id)
	return nil
}

// sortedValues copies the map values and orders them with less.
func sortedValues[T any](m map[primitive.ObjectID]T, keep func(*T) bool, less func(a, b *T) bool) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
