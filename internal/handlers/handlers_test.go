package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/repository"
	"github.com/harentsoaR/clinic-api/internal/repository/memory"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status  string            `json:"status"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []services.Event
}

func (n *recordingNotifier) Notify(ev services.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, memory.New())
}

func newTestServerWith(t *testing.T, repos *repository.Repositories) *testServer {
	t.Helper()
	tokens, err := utils.NewTokenCodec("handler-tests-secret-0123456789abcdef", "clinic-api", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	notifier := &recordingNotifier{}
	auth, err := services.NewAuthService(repos, utils.NewBcryptHasher(bcrypt.MinCost), tokens, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	h := NewHandler(auth, repos, notifier, zerolog.Nop())
	return &testServer{t: t, router: NewRouter(h, []string{"http://localhost:5173"}), notifier: notifier}
}

func (s *testServer) call(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (s *testServer) expect(want int, method, path, token string, body any) envelope {
	s.t.Helper()
	code, env := s.call(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s = %d, want %d (%+v)", method, path, code, want, env)
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

type session struct {
	Token     string
	AccountID string
	ProfileID string
}

// signUp registers body and logs the new account in.
func (s *testServer) signUp(body map[string]any) session {
	s.t.Helper()
	s.expect(http.StatusCreated, http.MethodPost, "/auth/register", "", body)
	env := s.expect(http.StatusOK, http.MethodPost, "/auth/login", "", map[string]any{
		"email": body["email"], "password": body["password"],
	})
	login := decode[struct {
		Token   string `json:"token"`
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
		Profile struct {
			ID string `json:"id"`
		} `json:"profile"`
	}](s.t, env)
	return session{Token: login.Token, AccountID: login.Account.ID, ProfileID: login.Profile.ID}
}

func staffBody(email string) map[string]any {
	return map[string]any{
		"email": email, "password": "s3cret-pass", "role": "staff",
		"fullName": "Front Desk", "username": "desk" + email[:2], "gender": "female",
	}
}

func doctorBody(email, license string) map[string]any {
	return map[string]any{
		"email": email, "password": "s3cret-pass", "role": "doctor",
		"fullName": "Dr. Who", "username": "dr" + license, "licenseNumber": license,
	}
}

func patientBody(email string) map[string]any {
	return map[string]any{
		"email": email, "password": "s3cret-pass", "role": "patient",
		"fullName": "Pat Ient", "gender": "male", "dateOfBirth": "1990-04-01",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	env := s.expect(http.StatusCreated, http.MethodPost, "/auth/register", "", doctorBody("doc@x.com", "L1"))
	created := decode[struct {
		Account map[string]any `json:"account"`
		Profile map[string]any `json:"profile"`
	}](t, env)
	if _, leaked := created.Account["passwordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}
	if created.Profile["licenseNumber"] != "L1" {
		t.Errorf("profile = %v, want licenseNumber L1", created.Profile)
	}

	env = s.expect(http.StatusOK, http.MethodPost, "/auth/login", "", map[string]any{"email": "doc@x.com", "password": "s3cret-pass"})
	login := decode[struct {
		Token   string `json:"token"`
		Account struct {
			Role string `json:"role"`
		} `json:"account"`
		Profile struct {
			LicenseNumber string `json:"licenseNumber"`
		} `json:"profile"`
	}](t, env)
	if login.Token == "" || login.Account.Role != "doctor" || login.Profile.LicenseNumber != "L1" {
		t.Errorf("login = %+v", login)
	}

	wrong := s.expect(http.StatusUnauthorized, http.MethodPost, "/auth/login", "", map[string]any{"email": "doc@x.com", "password": "nope-nope"})
	unknown := s.expect(http.StatusUnauthorized, http.MethodPost, "/auth/login", "", map[string]any{"email": "who@x.com", "password": "nope-nope"})
	if wrong.Code != "InvalidCredentials" || wrong.Message != unknown.Message || wrong.Code != unknown.Code {
		t.Errorf("login failures differ: %+v vs %+v", wrong, unknown)
	}
}

func TestRegisterRejections(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.StatusCreated, http.MethodPost, "/auth/register", "", doctorBody("doc@x.com", "L1"))

	env := s.expect(http.StatusConflict, http.MethodPost, "/auth/register", "", doctorBody("DOC@x.com", "L2"))
	if env.Code != "DuplicateAccount" {
		t.Errorf("code = %q, want DuplicateAccount", env.Code)
	}

	body := doctorBody("other@x.com", "L3")
	delete(body, "licenseNumber")
	env = s.expect(http.StatusBadRequest, http.MethodPost, "/auth/register", "", body)
	if env.Code != "ValidationError" || env.Fields["licenseNumber"] == "" {
		t.Errorf("envelope = %+v, want licenseNumber field error", env)
	}

	s.expect(http.StatusBadRequest, http.MethodPost, "/auth/register", "", map[string]any{"email": "x@x.com", "role": "admin"})
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))
	staff := s.signUp(staffBody("st@x.com"))

	env := s.expect(http.StatusUnauthorized, http.MethodGet, "/api/me", "", nil)
	if env.Code != "TokenMissing" {
		t.Errorf("code = %q, want TokenMissing", env.Code)
	}
	env = s.expect(http.StatusUnauthorized, http.MethodGet, "/api/me", "garbage", nil)
	if env.Code != "TokenInvalid" {
		t.Errorf("code = %q, want TokenInvalid", env.Code)
	}

	env = s.expect(http.StatusForbidden, http.MethodGet, "/api/staff", doctor.Token, nil)
	if env.Code != "Forbidden" {
		t.Errorf("code = %q, want Forbidden", env.Code)
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/staff", staff.Token, nil)

	me := decode[struct {
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
		Profile struct {
			ID string `json:"id"`
		} `json:"profile"`
	}](t, s.expect(http.StatusOK, http.MethodGet, "/api/me", doctor.Token, nil))
	if me.Account.ID != doctor.AccountID || me.Profile.ID != doctor.ProfileID {
		t.Errorf("me = %+v, want %+v", me, doctor)
	}

	doctors := decode[[]map[string]any](t, s.expect(http.StatusOK, http.MethodGet, "/api/doctors", staff.Token, nil))
	if len(doctors) != 1 {
		t.Errorf("doctors = %d, want 1", len(doctors))
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	patient := s.signUp(patientBody("pat@x.com"))

	env := s.expect(http.StatusUnauthorized, http.MethodPut, "/api/me/password", patient.Token, map[string]any{
		"currentPassword": "wrong-pass", "newPassword": "another-pass",
	})
	if env.Code != "InvalidCredentials" {
		t.Errorf("code = %q, want InvalidCredentials", env.Code)
	}
	s.expect(http.StatusBadRequest, http.MethodPut, "/api/me/password", patient.Token, map[string]any{
		"currentPassword": "s3cret-pass", "newPassword": "short",
	})
	s.expect(http.StatusOK, http.MethodPut, "/api/me/password", patient.Token, map[string]any{
		"currentPassword": "s3cret-pass", "newPassword": "another-pass",
	})

	s.expect(http.StatusUnauthorized, http.MethodPost, "/auth/login", "", map[string]any{"email": "pat@x.com", "password": "s3cret-pass"})
	s.expect(http.StatusOK, http.MethodPost, "/auth/login", "", map[string]any{"email": "pat@x.com", "password": "another-pass"})
}

type appointmentJSON struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	Status    string `json:"status"`
}

func TestAppointmentScoping(t *testing.T) {
	s := newTestServer(t)
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))
	other := s.signUp(doctorBody("doc2@x.com", "L2"))
	staff := s.signUp(staffBody("st@x.com"))
	alice := s.signUp(patientBody("alice@x.com"))
	bob := s.signUp(patientBody("bob@x.com"))

	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	booking := map[string]any{
		"doctorId":  doctor.ProfileID,
		"patientId": bob.ProfileID,
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(30 * time.Minute).Format(time.RFC3339),
		"reason":    "check-up",
	}
	apt := decode[appointmentJSON](t, s.expect(http.StatusCreated, http.MethodPost, "/api/appointments", alice.Token, booking))
	if apt.PatientID != alice.ProfileID || apt.Status != "scheduled" {
		t.Fatalf("appointment = %+v, want scheduled for alice", apt)
	}

	s.expect(http.StatusForbidden, http.MethodPost, "/api/appointments", doctor.Token, booking)

	bad := map[string]any{"doctorId": doctor.ProfileID, "startTime": booking["endTime"], "endTime": booking["startTime"]}
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/appointments", alice.Token, bad)

	visible := func(token, query string) int {
		t.Helper()
		list := decode[[]appointmentJSON](t, s.expect(http.StatusOK, http.MethodGet, "/api/appointments"+query, token, nil))
		return len(list)
	}
	tests := []struct {
		name  string
		token string
		query string
		want  int
	}{
		{"owner patient", alice.Token, "", 1},
		{"other patient", bob.Token, "", 0},
		{"other patient with filter", bob.Token, "?patientId=" + alice.ProfileID, 0},
		{"assigned doctor", doctor.Token, "", 1},
		{"other doctor", other.Token, "", 0},
		{"staff", staff.Token, "", 1},
		{"staff in range", staff.Token, "?from=2030-05-01&to=2030-05-01", 1},
		{"staff out of range", staff.Token, "?from=2030-05-02", 0},
		{"staff by status", staff.Token, "?status=cancelled", 0},
	}
	for _, tt := range tests {
		if got := visible(tt.token, tt.query); got != tt.want {
			t.Errorf("%s: visible = %d, want %d", tt.name, got, tt.want)
		}
	}

	s.expect(http.StatusBadRequest, http.MethodGet, "/api/appointments?status=lost", staff.Token, nil)

	path := "/api/appointments/" + apt.ID
	s.expect(http.StatusNotFound, http.MethodPut, path, other.Token, map[string]any{"notes": "x"})
	updated := decode[appointmentJSON](t, s.expect(http.StatusOK, http.MethodPut, path, doctor.Token, map[string]any{"status": "completed"}))
	if updated.Status != "completed" {
		t.Errorf("status = %q, want completed", updated.Status)
	}
	s.expect(http.StatusBadRequest, http.MethodPut, path, doctor.Token, map[string]any{})

	s.expect(http.StatusNotFound, http.MethodPatch, path+"/cancel", bob.Token, nil)
	cancelled := decode[appointmentJSON](t, s.expect(http.StatusOK, http.MethodPatch, path+"/cancel", alice.Token, nil))
	if cancelled.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	var booked, cancels int
	for _, typ := range s.notifier.types() {
		switch typ {
		case services.EventAppointmentBooked:
			booked++
		case services.EventAppointmentCancelled:
			cancels++
		}
	}
	if booked != 1 || cancels != 1 {
		t.Errorf("events = %v, want one booking and one cancellation", s.notifier.types())
	}
}

func TestPatientLinksAndPrescriptions(t *testing.T) {
	s := newTestServer(t)
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))
	staff := s.signUp(staffBody("st@x.com"))
	alice := s.signUp(patientBody("alice@x.com"))
	bob := s.signUp(patientBody("bob@x.com"))

	patients := func(token string) int {
		t.Helper()
		return len(decode[[]map[string]any](t, s.expect(http.StatusOK, http.MethodGet, "/api/patients", token, nil)))
	}
	if got := patients(doctor.Token); got != 0 {
		t.Errorf("doctor sees %d patients before linking, want 0", got)
	}
	if got := patients(staff.Token); got != 2 {
		t.Errorf("staff sees %d patients, want 2", got)
	}
	s.expect(http.StatusForbidden, http.MethodGet, "/api/patients", alice.Token, nil)

	rx := map[string]any{
		"patientId":   alice.ProfileID,
		"medications": []map[string]any{{"name": "Amoxicillin", "dosage": "500mg", "frequency": "3x daily"}},
	}
	s.expect(http.StatusNotFound, http.MethodPost, "/api/prescriptions", doctor.Token, rx)
	s.expect(http.StatusNotFound, http.MethodGet, "/api/patients/"+alice.ProfileID, doctor.Token, nil)

	s.expect(http.StatusForbidden, http.MethodPut, "/api/patients/"+alice.ProfileID+"/doctors", doctor.Token, map[string]any{"doctors": []string{doctor.ProfileID}})
	s.expect(http.StatusNotFound, http.MethodPut, "/api/patients/"+alice.ProfileID+"/doctors", staff.Token, map[string]any{"doctors": []string{staff.ProfileID}})
	s.expect(http.StatusOK, http.MethodPut, "/api/patients/"+alice.ProfileID+"/doctors", staff.Token, map[string]any{"doctors": []string{doctor.ProfileID}})

	if got := patients(doctor.Token); got != 1 {
		t.Errorf("doctor sees %d patients after linking, want 1", got)
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/patients/"+alice.ProfileID, doctor.Token, nil)

	s.expect(http.StatusBadRequest, http.MethodPost, "/api/prescriptions", doctor.Token, map[string]any{"patientId": alice.ProfileID})
	s.expect(http.StatusForbidden, http.MethodPost, "/api/prescriptions", staff.Token, rx)
	created := decode[struct {
		ID       string `json:"id"`
		DoctorID string `json:"doctorId"`
	}](t, s.expect(http.StatusCreated, http.MethodPost, "/api/prescriptions", doctor.Token, rx))
	if created.DoctorID != doctor.ProfileID {
		t.Errorf("doctorId = %q, want caller %q", created.DoctorID, doctor.ProfileID)
	}

	path := "/api/prescriptions/" + created.ID
	s.expect(http.StatusOK, http.MethodGet, path, alice.Token, nil)
	s.expect(http.StatusOK, http.MethodGet, path, staff.Token, nil)
	s.expect(http.StatusNotFound, http.MethodGet, path, bob.Token, nil)
	s.expect(http.StatusBadRequest, http.MethodGet, "/api/prescriptions/not-an-id", alice.Token, nil)

	if n := len(decode[[]map[string]any](t, s.expect(http.StatusOK, http.MethodGet, "/api/prescriptions", bob.Token, nil))); n != 0 {
		t.Errorf("bob sees %d prescriptions, want 0", n)
	}
}

func TestTransactions(t *testing.T) {
	s := newTestServer(t)
	staff := s.signUp(staffBody("st@x.com"))
	alice := s.signUp(patientBody("alice@x.com"))
	bob := s.signUp(patientBody("bob@x.com"))
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))

	body := map[string]any{"patientId": alice.ProfileID, "amountCents": 7500, "currency": "usd", "description": "Check-up"}
	s.expect(http.StatusForbidden, http.MethodPost, "/api/transactions", alice.Token, body)
	tx := decode[struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
	}](t, s.expect(http.StatusCreated, http.MethodPost, "/api/transactions", staff.Token, body))
	if tx.Status != "pending" || tx.Currency != "USD" {
		t.Errorf("transaction = %+v, want pending USD", tx)
	}

	s.expect(http.StatusBadRequest, http.MethodPost, "/api/transactions", staff.Token, map[string]any{"patientId": alice.ProfileID, "amountCents": 0})
	s.expect(http.StatusForbidden, http.MethodGet, "/api/transactions", doctor.Token, nil)

	count := func(token string) int {
		t.Helper()
		return len(decode[[]map[string]any](t, s.expect(http.StatusOK, http.MethodGet, "/api/transactions", token, nil)))
	}
	if count(alice.Token) != 1 || count(bob.Token) != 0 || count(staff.Token) != 1 {
		t.Error("transactions are not scoped to the patient")
	}

	path := "/api/transactions/" + tx.ID + "/status"
	s.expect(http.StatusBadRequest, http.MethodPatch, path, staff.Token, map[string]any{"status": "lost"})
	paid := decode[struct {
		Status string `json:"status"`
	}](t, s.expect(http.StatusOK, http.MethodPatch, path, staff.Token, map[string]any{"status": "paid"}))
	if paid.Status != "paid" {
		t.Errorf("status = %q, want paid", paid.Status)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.StatusOK, http.MethodGet, "/healthz", "", nil)
	env := s.expect(http.StatusNotFound, http.MethodGet, "/nowhere", "", nil)
	if env.Code != "NotFound" {
		t.Errorf("code = %q, want NotFound", env.Code)
	}
}

// switchableAccounts reports accounts as deactivated once disabled is set.
type switchableAccounts struct {
	repository.AccountRepository
	disabled *bool
}

func (r switchableAccounts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return r.apply(r.AccountRepository.FindByID(ctx, id))
}

func (r switchableAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.apply(r.AccountRepository.FindByEmail(ctx, email))
}

func (r switchableAccounts) apply(a *models.Account, err error) (*models.Account, error) {
	if a != nil && *r.disabled {
		a.IsActive = false
	}
	return a, err
}

func TestDisabledAccountIsForbidden(t *testing.T) {
	repos := memory.New()
	disabled := false
	repos.Accounts = switchableAccounts{AccountRepository: repos.Accounts, disabled: &disabled}
	s := newTestServerWith(t, repos)
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))

	disabled = true
	env := s.expect(http.StatusForbidden, http.MethodGet, "/api/me", doctor.Token, nil)
	if env.Code != "Forbidden" {
		t.Errorf("code = %q, want Forbidden", env.Code)
	}
	env = s.expect(http.StatusForbidden, http.MethodPost, "/auth/login", "", map[string]any{"email": "doc@x.com", "password": "s3cret-pass"})
	if env.Code != "Forbidden" {
		t.Errorf("code = %q, want Forbidden", env.Code)
	}
	env = s.expect(http.StatusUnauthorized, http.MethodPost, "/auth/login", "", map[string]any{"email": "doc@x.com", "password": "wrong-pass"})
	if env.Code != "InvalidCredentials" {
		t.Errorf("code = %q, want InvalidCredentials", env.Code)
	}
}

func TestUpdateAppointmentStoresUTC(t *testing.T) {
	s := newTestServer(t)
	doctor := s.signUp(doctorBody("doc@x.com", "L1"))
	patient := s.signUp(patientBody("pat@x.com"))

	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	apt := decode[appointmentJSON](t, s.expect(http.StatusCreated, http.MethodPost, "/api/appointments", patient.Token, map[string]any{
		"doctorId":  doctor.ProfileID,
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(30 * time.Minute).Format(time.RFC3339),
	}))

	zone := time.FixedZone("UTC+2", 2*60*60)
	moved := start.Add(24 * time.Hour).In(zone)
	updated := decode[struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	}](t, s.expect(http.StatusOK, http.MethodPut, "/api/appointments/"+apt.ID, doctor.Token, map[string]any{
		"startTime": moved.Format(time.RFC3339),
		"endTime":   moved.Add(time.Hour).Format(time.RFC3339),
	}))
	if want := moved.UTC().Format(time.RFC3339); updated.StartTime != want {
		t.Errorf("startTime = %q, want %q", updated.StartTime, want)
	}
	if want := moved.Add(time.Hour).UTC().Format(time.RFC3339); updated.EndTime != want {
		t.Errorf("endTime = %q, want %q", updated.EndTime, want)
	}
}
