package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

type accountStoreAdapter struct {
	repo persistence.AccountRepository
}

func newAccountStoreAdapter(repo persistence.AccountRepository) *accountStoreAdapter {
	return &accountStoreAdapter{repo: repo}
}

func (a *accountStoreAdapter) CreateAccount(ctx context.Context, account application.Account) error {
	return a.repo.CreateAccount(ctx, toPersistenceAccount(account))
}

func (a *accountStoreAdapter) UpdateAccount(ctx context.Context, account application.Account) error {
	return a.repo.UpdateAccount(ctx, toPersistenceAccount(account))
}

func (a *accountStoreAdapter) GetAccount(ctx context.Context, id string) (application.Account, error) {
	stored, err := a.repo.GetAccount(ctx, id)
	if err != nil {
		return application.Account{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountStoreAdapter) GetAccountByEmail(ctx context.Context, email string) (application.Account, error) {
	stored, err := a.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return application.Account{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountStoreAdapter) ListAccounts(ctx context.Context) ([]application.Account, error) {
	models, err := a.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	accounts := make([]application.Account, 0, len(models))
	for _, model := range models {
		accounts = append(accounts, toApplicationAccount(model))
	}
	return accounts, nil
}

func (a *accountStoreAdapter) CountAccounts(ctx context.Context) (int, error) {
	return a.repo.CountAccounts(ctx)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type tableRepositoryAdapter struct {
	repo persistence.TableRepository
}

func newTableRepositoryAdapter(repo persistence.TableRepository) *tableRepositoryAdapter {
	return &tableRepositoryAdapter{repo: repo}
}

func (a *tableRepositoryAdapter) CreateTable(ctx context.Context, table application.Table) error {
	return a.repo.CreateTable(ctx, toPersistenceTable(table))
}

func (a *tableRepositoryAdapter) UpdateTable(ctx context.Context, table application.Table) error {
	return a.repo.UpdateTable(ctx, toPersistenceTable(table))
}

func (a *tableRepositoryAdapter) GetTable(ctx context.Context, id string) (application.Table, error) {
	stored, err := a.repo.GetTable(ctx, id)
	if err != nil {
		return application.Table{}, err
	}
	return toApplicationTable(stored), nil
}

func (a *tableRepositoryAdapter) ListTables(ctx context.Context) ([]application.Table, error) {
	models, err := a.repo.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationTables(models), nil
}

func (a *tableRepositoryAdapter) DeleteTable(ctx context.Context, id, activeFrom string) error {
	return a.repo.DeleteTable(ctx, id, activeFrom)
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) error {
	return a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation))
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		CustomerID: filter.CustomerID,
		TableID:    filter.TableID,
		State:      filter.State,
		Zone:       filter.Zone,
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (a *reservationRepositoryAdapter) WithAssignment(ctx context.Context, fn func(tx application.AssignmentTx) error) error {
	return a.repo.WithAssignment(ctx, func(tx persistence.AssignmentTx) error {
		return fn(assignmentTxAdapter{tx: tx})
	})
}

// assignmentTxAdapter exposes the locked transaction in application types.
type assignmentTxAdapter struct {
	tx persistence.AssignmentTx
}

func (a assignmentTxAdapter) CountTables(ctx context.Context) (int, error) {
	return a.tx.CountTables(ctx)
}

func (a assignmentTxAdapter) ListTablesInZone(ctx context.Context, zone scheduler.Zone) ([]application.Table, error) {
	models, err := a.tx.ListTablesInZone(ctx, string(zone))
	if err != nil {
		return nil, err
	}
	return toApplicationTables(models), nil
}

func (a assignmentTxAdapter) ListTableReservations(ctx context.Context, tableID, date string) ([]application.Reservation, error) {
	models, err := a.tx.ListTableReservations(ctx, tableID, date)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (a assignmentTxAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.tx.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a assignmentTxAdapter) InsertReservation(ctx context.Context, reservation application.Reservation) error {
	return a.tx.InsertReservation(ctx, toPersistenceReservation(reservation))
}

func (a assignmentTxAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) error {
	return a.tx.UpdateReservation(ctx, toPersistenceReservation(reservation))
}

type hoursRepositoryAdapter struct {
	repo persistence.HoursRepository
	now  func() time.Time
}

func newHoursRepositoryAdapter(repo persistence.HoursRepository, now func() time.Time) *hoursRepositoryAdapter {
	return &hoursRepositoryAdapter{repo: repo, now: now}
}

func (a *hoursRepositoryAdapter) UpsertHours(ctx context.Context, hours application.OperatingHours) error {
	now := a.now().UTC()
	return a.repo.UpsertHours(ctx, persistence.OperatingHours{
		ID:        hours.ID,
		Weekday:   int(hours.Weekday),
		OpenTime:  hours.Open.String(),
		CloseTime: hours.Close.String(),
		Active:    hours.Active,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (a *hoursRepositoryAdapter) ListHours(ctx context.Context) ([]application.OperatingHours, error) {
	models, err := a.repo.ListHours(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.OperatingHours, 0, len(models))
	for _, model := range models {
		open, err := scheduler.ParseClock(model.OpenTime)
		if err != nil {
			return nil, fmt.Errorf("hours %s: %w", model.ID, err)
		}
		closing, err := scheduler.ParseEndClock(model.CloseTime)
		if err != nil {
			return nil, fmt.Errorf("hours %s: %w", model.ID, err)
		}
		out = append(out, application.OperatingHours{
			ID:      model.ID,
			Weekday: time.Weekday(model.Weekday),
			Open:    open,
			Close:   closing,
			Active:  model.Active,
		})
	}
	return out, nil
}

func (a *hoursRepositoryAdapter) DeleteHours(ctx context.Context, id string) error {
	return a.repo.DeleteHours(ctx, id)
}

type policyRepositoryAdapter struct {
	repo persistence.PolicyRepository
}

func newPolicyRepositoryAdapter(repo persistence.PolicyRepository) *policyRepositoryAdapter {
	return &policyRepositoryAdapter{repo: repo}
}

func (a *policyRepositoryAdapter) GetPolicy(ctx context.Context) (application.Policy, error) {
	stored, err := a.repo.GetPolicy(ctx)
	if err != nil {
		return application.Policy{}, err
	}
	return application.Policy{
		CancellationCutoffMinutes: stored.CancellationCutoffMinutes,
		AdvanceNoticeHours:        stored.AdvanceNoticeHours,
		MaxPartySize:              stored.MaxPartySize,
		DefaultDurationMinutes:    stored.DefaultDurationMinutes,
		LateToleranceMinutes:      stored.LateToleranceMinutes,
		UpdatedAt:                 stored.UpdatedAt,
	}, nil
}

func (a *policyRepositoryAdapter) SavePolicy(ctx context.Context, policy application.Policy) error {
	return a.repo.SavePolicy(ctx, persistence.Policy{
		CancellationCutoffMinutes: policy.CancellationCutoffMinutes,
		AdvanceNoticeHours:        policy.AdvanceNoticeHours,
		MaxPartySize:              policy.MaxPartySize,
		DefaultDurationMinutes:    policy.DefaultDurationMinutes,
		LateToleranceMinutes:      policy.LateToleranceMinutes,
		CreatedAt:                 policy.UpdatedAt,
		UpdatedAt:                 policy.UpdatedAt,
	})
}

func toApplicationAccount(model persistence.Account) application.Account {
	return application.Account{
		ID:           model.ID,
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		Role:         application.Role(model.Role),
		Phone:        model.Phone,
		Notes:        model.Notes,
		Status:       model.Status,
		Confirmed:    model.Confirmed,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceAccount(account application.Account) persistence.Account {
	return persistence.Account{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		Phone:        account.Phone,
		Notes:        account.Notes,
		Status:       account.Status,
		Confirmed:    account.Confirmed,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		AccountID: model.AccountID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		AccountID: session.AccountID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toApplicationTable(model persistence.Table) application.Table {
	return application.Table{
		ID:        model.ID,
		Name:      model.Name,
		Capacity:  model.Capacity,
		Zone:      scheduler.Zone(model.Zone),
		Status:    scheduler.TableStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toApplicationTables(models []persistence.Table) []application.Table {
	tables := make([]application.Table, 0, len(models))
	for _, model := range models {
		tables = append(tables, toApplicationTable(model))
	}
	return tables
}

func toPersistenceTable(table application.Table) persistence.Table {
	return persistence.Table{
		ID:        table.ID,
		Name:      table.Name,
		Capacity:  table.Capacity,
		Zone:      string(table.Zone),
		Status:    string(table.Status),
		CreatedAt: table.CreatedAt,
		UpdatedAt: table.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) (application.Reservation, error) {
	start, err := scheduler.ParseClock(model.StartTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %s: %w", model.ID, err)
	}
	end, err := scheduler.ParseEndClock(model.EndTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %s: %w", model.ID, err)
	}
	return application.Reservation{
		ID:            model.ID,
		CustomerID:    derefString(model.CustomerID),
		CreatedByID:   model.CreatedByID,
		TableID:       derefString(model.TableID),
		CustomerName:  model.CustomerName,
		CustomerEmail: model.CustomerEmail,
		CustomerPhone: model.CustomerPhone,
		Date:          model.Date,
		Start:         start,
		End:           end,
		PartySize:     model.PartySize,
		Zone:          scheduler.Zone(model.Zone),
		State:         scheduler.State(model.State),
		Channel:       application.Channel(model.Channel),
		Device:        model.Device,
		Notes:         model.Notes,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

func toApplicationReservations(models []persistence.Reservation) ([]application.Reservation, error) {
	out := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		r, err := toApplicationReservation(model)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toPersistenceReservation(r application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:            r.ID,
		CustomerID:    optionalString(r.CustomerID),
		CreatedByID:   r.CreatedByID,
		TableID:       optionalString(r.TableID),
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Date:          r.Date,
		StartTime:     r.Start.String(),
		EndTime:       r.End.String(),
		PartySize:     r.PartySize,
		Zone:          string(r.Zone),
		State:         string(r.State),
		Channel:       string(r.Channel),
		Device:        r.Device,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
