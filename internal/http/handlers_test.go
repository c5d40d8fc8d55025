package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/export"
	"github.com/example/table-reservations/internal/scheduler"
)

var (
	testCustomer = application.Principal{UserID: "cust-1", Role: application.RoleCustomer}
	testAdmin    = application.Principal{UserID: "admin-1", Role: application.RoleAdmin}
	testCreated  = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clock(t *testing.T, value string) scheduler.Clock {
	t.Helper()
	c, err := scheduler.ParseClock(value)
	require.NoError(t, err)
	return c
}

func sampleReservation(t *testing.T) application.Reservation {
	t.Helper()
	return application.Reservation{
		ID:            "res-1",
		CustomerID:    testCustomer.UserID,
		TableID:       "tbl-1",
		CustomerName:  "Ana Perez",
		CustomerEmail: "ana@example.com",
		CustomerPhone: "5551234",
		Date:          "2024-03-15",
		Start:         clock(t, "19:00"),
		End:           clock(t, "20:30"),
		PartySize:     3,
		Zone:          scheduler.ZoneInterior,
		State:         scheduler.StatePending,
		Channel:       application.ChannelWeb,
		CreatedAt:     testCreated,
		UpdatedAt:     testCreated,
	}
}

// fakeAuthenticator accepts any token and maps it onto a fixed principal.
type fakeAuthenticator struct {
	principal application.Principal
}

func (f fakeAuthenticator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if token == "" {
		return application.Principal{}, application.ErrSessionExpired
	}
	return f.principal, nil
}

type fakeReservationService struct {
	created     application.CreateReservationParams
	createErr   error
	reservation application.Reservation
	state       application.ChangeStateParams
	reschedule  application.RescheduleParams
	cancelled   string
	cancelErr   error
	deleted     string
	filter      application.ReservationFilter
	list        []application.Reservation
	mine        application.MyReservations
	status      application.ReservationStatus
}

func (f *fakeReservationService) Create(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error) {
	f.created = params
	if f.createErr != nil {
		return application.Reservation{}, f.createErr
	}
	return f.reservation, nil
}

func (f *fakeReservationService) ChangeState(ctx context.Context, params application.ChangeStateParams) (application.Reservation, error) {
	f.state = params
	r := f.reservation
	r.State = scheduler.State(params.State)
	return r, nil
}

func (f *fakeReservationService) Reschedule(ctx context.Context, params application.RescheduleParams) (application.Reservation, error) {
	f.reschedule = params
	return f.reservation, nil
}

func (f *fakeReservationService) CancelSelf(ctx context.Context, principal application.Principal, id string) (application.Reservation, error) {
	f.cancelled = id
	if f.cancelErr != nil {
		return application.Reservation{}, f.cancelErr
	}
	r := f.reservation
	r.State = scheduler.StateCancelled
	return r, nil
}

func (f *fakeReservationService) Delete(ctx context.Context, principal application.Principal, id string) error {
	f.deleted = id
	return nil
}

func (f *fakeReservationService) GetStatus(ctx context.Context, principal application.Principal, id string) (application.ReservationStatus, error) {
	if id != f.status.ID {
		return application.ReservationStatus{}, application.ErrNotFound
	}
	return f.status, nil
}

func (f *fakeReservationService) ListMine(ctx context.Context, principal application.Principal) (application.MyReservations, error) {
	return f.mine, nil
}

func (f *fakeReservationService) List(ctx context.Context, principal application.Principal, filter application.ReservationFilter) ([]application.Reservation, error) {
	if !principal.IsStaff() {
		return nil, application.ErrUnauthorized
	}
	f.filter = filter
	return f.list, nil
}

type fakePolicyService struct {
	policy  application.Policy
	updated application.Policy
}

func (f *fakePolicyService) GetOrInitialize(ctx context.Context) (application.Policy, error) {
	return f.policy, nil
}

func (f *fakePolicyService) Update(ctx context.Context, principal application.Principal, input application.Policy) (application.Policy, error) {
	if !principal.IsAdmin() {
		return application.Policy{}, application.ErrUnauthorized
	}
	if input.MaxPartySize <= 0 {
		return application.Policy{}, &application.ValidationError{FieldErrors: map[string]string{"max_party_size": "must be positive"}}
	}
	f.updated = input
	input.UpdatedAt = testCreated
	return input, nil
}

type fakeTableService struct {
	tables    []application.Table
	input     application.TableInput
	deleteErr error
}

func (f *fakeTableService) Create(ctx context.Context, principal application.Principal, input application.TableInput) (application.Table, error) {
	f.input = input
	return application.Table{ID: "tbl-new", Name: input.Name, Capacity: input.Capacity, Zone: scheduler.Zone(input.Zone), Status: scheduler.TableStatus(input.Status), CreatedAt: testCreated, UpdatedAt: testCreated}, nil
}

func (f *fakeTableService) Update(ctx context.Context, principal application.Principal, id string, input application.TableInput) (application.Table, error) {
	f.input = input
	return application.Table{ID: id, Name: input.Name, Capacity: input.Capacity, Zone: scheduler.Zone(input.Zone), Status: scheduler.TableStatus(input.Status)}, nil
}

func (f *fakeTableService) Delete(ctx context.Context, principal application.Principal, id string) error {
	return f.deleteErr
}

func (f *fakeTableService) List(ctx context.Context, principal application.Principal) ([]application.Table, error) {
	return f.tables, nil
}

func (f *fakeTableService) Occupancy(ctx context.Context, principal application.Principal) ([]application.TableOccupancy, error) {
	return nil, application.ErrUnauthorized
}

type fakeHoursService struct {
	hours   []application.OperatingHours
	upsert  application.HoursInput
	deleted string
}

func (f *fakeHoursService) List(ctx context.Context, principal application.Principal) ([]application.OperatingHours, error) {
	return f.hours, nil
}

func (f *fakeHoursService) Upsert(ctx context.Context, principal application.Principal, input application.HoursInput) (application.OperatingHours, error) {
	f.upsert = input
	return application.OperatingHours{ID: "hrs-1", Weekday: time.Weekday(input.Weekday), Active: input.Active}, nil
}

func (f *fakeHoursService) Delete(ctx context.Context, principal application.Principal, id string) error {
	f.deleted = id
	return nil
}

type fakeReportService struct {
	summary application.ReportSummary
}

func (f *fakeReportService) Summary(ctx context.Context, principal application.Principal) (application.ReportSummary, error) {
	if !principal.IsAdmin() {
		return application.ReportSummary{}, application.ErrUnauthorized
	}
	return f.summary, nil
}

func (f *fakeReportService) Dashboard(ctx context.Context, principal application.Principal) (application.Dashboard, error) {
	return application.Dashboard{TotalReservations: 12, TodayReservations: 2, Accounts: 5}, nil
}

type fakeAccountService struct {
	registered application.RegisterParams
	resetFor   string
	role       application.ChangeRoleParams
}

func (f *fakeAccountService) Register(ctx context.Context, params application.RegisterParams) (application.Account, error) {
	if params.Email == "taken@example.com" {
		return application.Account{}, application.ErrAlreadyExists
	}
	f.registered = params
	return application.Account{ID: "acc-1", Name: params.Name, Email: params.Email, Role: application.RoleCustomer, Status: application.AccountActive, CreatedAt: testCreated}, nil
}

func (f *fakeAccountService) Confirm(ctx context.Context, token string) (application.Account, error) {
	if token != "good" {
		return application.Account{}, application.ErrInvalidToken
	}
	return application.Account{ID: "acc-1", Confirmed: true}, nil
}

func (f *fakeAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	f.resetFor = email
	return nil
}

func (f *fakeAccountService) ResetPassword(ctx context.Context, params application.ResetPasswordParams) error {
	return nil
}

func (f *fakeAccountService) CreateStaff(ctx context.Context, params application.CreateStaffParams) (application.Account, error) {
	return application.Account{ID: "acc-2", Role: application.Role(params.Role)}, nil
}

func (f *fakeAccountService) List(ctx context.Context, principal application.Principal) ([]application.Account, error) {
	return []application.Account{{ID: "acc-1"}}, nil
}

func (f *fakeAccountService) ChangeRole(ctx context.Context, params application.ChangeRoleParams) (application.Account, error) {
	f.role = params
	return application.Account{ID: params.AccountID, Role: application.Role(params.Role)}, nil
}

type fakeAuthService struct {
	params  application.AuthenticateParams
	role    application.Role
	err     error
	revoked []string
}

func (f *fakeAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	f.params = params
	if f.err != nil {
		return application.AuthenticateResult{}, f.err
	}
	role := f.role
	if role == "" {
		role = application.RoleCustomer
	}
	return application.AuthenticateResult{
		Account: application.Account{ID: "acct-1", Name: "Ana Perez", Email: params.Email, Role: role},
		Session: application.Session{ID: "sess-1", Token: "tok-1", ExpiresAt: testCreated.Add(24 * time.Hour)},
	}, nil
}

func (f *fakeAuthService) RevokeSession(ctx context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, token)
	return nil
}

type fixture struct {
	reservations *fakeReservationService
	policy       *fakePolicyService
	tables       *fakeTableService
	hours        *fakeHoursService
	reports      *fakeReportService
	accounts     *fakeAccountService
	auth         *fakeAuthService
	router       http.Handler
}

func newFixture(t *testing.T, principal application.Principal) *fixture {
	t.Helper()
	logger := discardLogger()
	f := &fixture{
		reservations: &fakeReservationService{reservation: sampleReservation(t)},
		policy:       &fakePolicyService{policy: application.DefaultPolicy()},
		tables:       &fakeTableService{tables: []application.Table{{ID: "tbl-1", Name: "T1", Capacity: 4, Zone: scheduler.ZoneInterior, Status: scheduler.TableActive}}},
		hours:        &fakeHoursService{},
		reports:      &fakeReportService{summary: application.ReportSummary{GeneratedAt: testCreated, Total30: 3}},
		accounts:     &fakeAccountService{},
		auth:         &fakeAuthService{},
	}
	f.router = NewRouter(RouterConfig{
		Auth:         NewAuthHandler(f.auth, logger),
		Accounts:     NewAccountHandler(f.accounts, logger),
		Reservations: NewReservationHandler(f.reservations, f.policy, f.tables, logger),
		Tables:       NewTableHandler(f.tables, logger),
		Config:       NewConfigHandler(f.hours, f.policy, logger),
		Reports:      NewReportHandler(f.reports, logger),
		Authenticate: RequireSession(fakeAuthenticator{principal: principal}, logger),
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestReservationHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create passes the principal and form through", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodPost, "/reservations", map[string]any{
			"name": "Ana Perez", "email": "ana@example.com", "phone": "5551234",
			"date": "2024-03-15", "start_time": " 19:00 ", "party_size": 3, "zone": "interior",
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, testCustomer, f.reservations.created.Principal)
		assert.Equal(t, "19:00", f.reservations.created.Input.StartTime)
		assert.Empty(t, f.reservations.created.Input.Device)

		body := decodeBody(t, rec)
		reservation := body["reservation"].(map[string]any)
		assert.Equal(t, "res-1", reservation["id"])
		assert.Equal(t, "19:00", reservation["start_time"])
		assert.Equal(t, "20:30", reservation["end_time"])
		assert.Equal(t, "pending", reservation["state"])
	})

	t.Run("availability failures carry code and capacity", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		f.reservations.createErr = &application.AvailabilityError{
			Code:        scheduler.FailureInsufficientCapacity,
			MaxCapacity: 6,
		}

		rec := f.do(t, http.MethodPost, "/reservations", map[string]any{"party_size": 9})

		require.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "INSUFFICIENT_CAPACITY", body["error_code"])
		assert.EqualValues(t, 6, body["max_capacity"])
	})

	t.Run("validation failures list field errors", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		f.reservations.createErr = &application.ValidationError{FieldErrors: map[string]string{"email": "is not a valid address"}}

		rec := f.do(t, http.MethodPost, "/reservations", map[string]any{})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
		assert.Equal(t, map[string]any{"email": "is not a valid address"}, body["errors"])
	})

	t.Run("malformed body is rejected before the service", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader("{"))
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.reservations.created.Principal.UserID)
	})

	t.Run("cancel routes the id and maps a closed window", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodPost, "/my-reservations/res-1/cancel", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "res-1", f.reservations.cancelled)

		f.reservations.cancelErr = application.ErrCancellationWindow
		rec = f.do(t, http.MethodPost, "/my-reservations/res-1/cancel", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CANCELLATION_WINDOW_CLOSED", decodeBody(t, rec)["error_code"])
	})

	t.Run("status is not cached", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		f.reservations.status = application.ReservationStatus{ID: "res-1", State: scheduler.StateConfirmed, Date: "2024-03-15", Start: clock(t, "19:00"), End: clock(t, "20:30")}

		rec := f.do(t, http.MethodGet, "/my-reservations/res-1/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		rec = f.do(t, http.MethodGet, "/my-reservations/other/status", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("staff list forwards query filters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)
		f.reservations.list = []application.Reservation{sampleReservation(t)}

		rec := f.do(t, http.MethodGet, "/admin/reservations?date_from=2024-03-01&state=pending&zone=terrace", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2024-03-01", f.reservations.filter.DateFrom)
		assert.Equal(t, "pending", f.reservations.filter.State)
		assert.Equal(t, "terrace", f.reservations.filter.Zone)
	})

	t.Run("customers cannot list all reservations", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodGet, "/admin/reservations", nil)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "AUTH_FORBIDDEN", decodeBody(t, rec)["error_code"])
	})

	t.Run("export returns a workbook attachment", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)
		f.reservations.list = []application.Reservation{sampleReservation(t)}

		rec := f.do(t, http.MethodGet, "/admin/reservations/export", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")
		assert.NotZero(t, rec.Body.Len())
	})

	t.Run("admin actions route by path suffix", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPost, "/admin/reservations/res-1/state", map[string]string{"state": "confirmed"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, application.ChangeStateParams{Principal: testAdmin, ReservationID: "res-1", State: "confirmed"}, f.reservations.state)

		rec = f.do(t, http.MethodPost, "/admin/reservations/res-1/reschedule", map[string]string{"date": "2024-03-16", "start_time": "20:00", "reason": "guest asked"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2024-03-16", f.reservations.reschedule.Date)
		assert.Equal(t, "guest asked", f.reservations.reschedule.Reason)

		rec = f.do(t, http.MethodPost, "/admin/reservations/res-1/delete", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "res-1", f.reservations.deleted)

		rec = f.do(t, http.MethodPost, "/admin/reservations/res-1/unknown", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, http.MethodGet, "/admin/reservations/res-1/state", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("options describe the booking form", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodGet, "/reservations/options", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, application.DefaultPolicy().MaxPartySize, body["max_party_size"])
		assert.Len(t, body["zones"], len(scheduler.Zones()))
	})
}

func TestTableAndConfigHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create defaults status to active", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPost, "/tables", map[string]any{"name": " T9 ", "capacity": 4, "zone": "terrace"})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, application.TableInput{Name: "T9", Capacity: 4, Zone: "terrace", Status: "active"}, f.tables.input)
	})

	t.Run("deleting a booked table is a conflict", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)
		f.tables.deleteErr = application.ErrTableInUse

		rec := f.do(t, http.MethodDelete, "/tables/tbl-1", nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "TABLE_IN_USE", decodeBody(t, rec)["error_code"])
	})

	t.Run("occupancy is served before the id route", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodGet, "/tables/occupancy", nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("hours default to active and delete reads the id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPost, "/config/hours", map[string]any{"weekday": 5, "open": "12:00", "close": "23:00"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, f.hours.upsert.Active)
		assert.Equal(t, 5, f.hours.upsert.Weekday)

		rec = f.do(t, http.MethodDelete, "/config/hours/hrs-1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "hrs-1", f.hours.deleted)
	})

	t.Run("policy update validates and echoes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPut, "/config/policy", map[string]any{"max_party_size": 0})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = f.do(t, http.MethodPut, "/config/policy", map[string]any{
			"cancellation_cutoff_minutes": 120, "advance_notice_hours": 2, "max_party_size": 12, "default_duration_minutes": 90,
			"late_tolerance_minutes": 10,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 120, f.policy.updated.CancellationCutoffMinutes)
		assert.Equal(t, 10, f.policy.updated.LateToleranceMinutes)
		policy := decodeBody(t, rec)["policy"].(map[string]any)
		assert.NotEmpty(t, policy["updated_at"])
		assert.EqualValues(t, 10, policy["late_tolerance_minutes"])
	})
}

func TestReportHandlers(t *testing.T) {
	t.Parallel()

	t.Run("summary requires an administrator", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		rec := f.do(t, http.MethodGet, "/reports/summary", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("summary and export", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodGet, "/reports/summary", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decodeBody(t, rec)["total_30_days"])

		rec = f.do(t, http.MethodGet, "/reports/summary/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "2024-03-10")
	})

	t.Run("dashboard", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)
		rec := f.do(t, http.MethodGet, "/admin/dashboard", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 12, decodeBody(t, rec)["total_reservations"])
	})
}

func TestAccountHandlers(t *testing.T) {
	t.Parallel()

	t.Run("registration is public and duplicate email conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, application.Principal{})

		req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"secret123"}`))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "ana@example.com", f.accounts.registered.Email)

		req = httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"email":"taken@example.com"}`))
		rec = httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("listing accounts needs a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("confirmation maps invalid tokens", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, application.Principal{})

		rec := f.do(t, http.MethodPost, "/accounts/confirm", map[string]string{"token": "bad"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", decodeBody(t, rec)["error_code"])

		rec = f.do(t, http.MethodPost, "/accounts/confirm", map[string]string{"token": "good"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("password reset request always accepts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, application.Principal{})

		rec := f.do(t, http.MethodPost, "/accounts/password-reset", map[string]string{"email": "nobody@example.com"})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "nobody@example.com", f.accounts.resetFor)
	})

	t.Run("role change reads the account id from the path", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPost, "/accounts/acc-7/role", map[string]string{"role": "receptionist"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, application.ChangeRoleParams{Principal: testAdmin, AccountID: "acc-7", Role: "receptionist"}, f.accounts.role)
	})

	t.Run("staff creation is protected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testAdmin)

		rec := f.do(t, http.MethodPost, "/accounts/staff", map[string]string{"role": "server"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts/staff", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouterBasics(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestSplitResourcePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		id     string
		action string
		ok     bool
	}{
		{path: "/tables/", ok: false},
		{path: "/tables/tbl-1", id: "tbl-1", ok: true},
		{path: "/tables/tbl-1/", id: "tbl-1", ok: true},
		{path: "/tables/tbl-1/state", id: "tbl-1", action: "state", ok: true},
		{path: "/tables/a/b/c", ok: false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%q", tc.path), func(t *testing.T) {
			id, action, ok := splitResourcePath("/tables/", tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
			assert.Equal(t, tc.action, action)
		})
	}
}

func TestAuthHandler(t *testing.T) {
	t.Parallel()

	t.Run("sign-in sets the session cookie and the landing page", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		f.auth.role = application.RoleReceptionist

		rec := f.do(t, http.MethodPost, "/sessions", map[string]string{"email": "host@example.com", "password": "secret-pass"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		assert.Equal(t, "tok-1", body["token"])
		assert.Equal(t, "/admin/reservations", body["home"])
		assert.Equal(t, "host@example.com", f.auth.params.Email)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.Equal(t, "tok-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	t.Run("wrong credentials are unauthorized", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)
		f.auth.err = application.ErrInvalidCredentials

		rec := f.do(t, http.MethodPost, "/sessions", map[string]string{"email": "a@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "AUTH_INVALID_CREDENTIALS", decodeBody(t, rec)["error_code"])
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sign-out revokes the bearer token and clears the cookie", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodDelete, "/sessions/current", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"token"}, f.auth.revoked)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge)
	})

	t.Run("only POST creates sessions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, testCustomer)

		rec := f.do(t, http.MethodGet, "/sessions", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHomeFor(t *testing.T) {
	t.Parallel()

	cases := map[application.Role]string{
		application.RoleCustomer:     "/my-reservations",
		application.RoleAdmin:        "/admin/dashboard",
		application.RoleReceptionist: "/admin/reservations",
		application.RoleServer:       "/tables/occupancy",
	}
	for role, want := range cases {
		assert.Equal(t, want, homeFor(role), role)
	}
}
