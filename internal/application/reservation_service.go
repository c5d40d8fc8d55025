package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

const (
	maxNotesLength = 500
	noteTimeLayout = "2006-01-02 15:04"
	noticeWindow   = 24 * time.Hour
)

// AssignmentTx is the storage view available while the reservation write
// lock is held. Reads made through it stay valid until the enclosing
// WithAssignment call returns.
type AssignmentTx interface {
	CountTables(ctx context.Context) (int, error)
	ListTablesInZone(ctx context.Context, zone scheduler.Zone) ([]Table, error)
	ListTableReservations(ctx context.Context, tableID, date string) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	InsertReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
}

// ReservationRepository captures the persistence operations needed for reservations.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	WithAssignment(ctx context.Context, fn func(tx AssignmentTx) error) error
}

// TableLookup resolves a table by id.
type TableLookup interface {
	GetTable(ctx context.Context, id string) (Table, error)
}

// ReservationService manages the reservation lifecycle: booking with table
// assignment, staff state changes and reschedules, and customer cancellation.
type ReservationService struct {
	reservations ReservationRepository
	tables       TableLookup
	hours        HoursChecker
	policies     PolicyProvider
	idGenerator  func() string
	now          func() time.Time
	loc          *time.Location
	notifier     Notifier
	metrics      ReservationMetrics
	logger       *slog.Logger
}

// NewReservationService constructs a reservation service with the provided dependencies.
func NewReservationService(reservations ReservationRepository, tables TableLookup, hours HoursChecker, policies PolicyProvider, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, tables, hours, policies, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, tables TableLookup, hours HoursChecker, policies PolicyProvider, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		tables:       tables,
		hours:        hours,
		policies:     policies,
		idGenerator:  idGenerator,
		now:          now,
		loc:          time.UTC,
		logger:       defaultLogger(logger),
	}
}

// WithLocation sets the restaurant's wall-clock time zone.
func (s *ReservationService) WithLocation(loc *time.Location) *ReservationService {
	if s != nil && loc != nil {
		s.loc = loc
	}
	return s
}

// WithNotifier sets the notification sender.
func (s *ReservationService) WithNotifier(notifier Notifier) *ReservationService {
	if s != nil {
		s.notifier = notifier
	}
	return s
}

// WithMetrics sets the outcome recorder.
func (s *ReservationService) WithMetrics(metrics ReservationMetrics) *ReservationService {
	if s != nil {
		s.metrics = metrics
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

func (s *ReservationService) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *ReservationService) policy(ctx context.Context) (Policy, error) {
	if s.policies == nil {
		return DefaultPolicy(), nil
	}
	return s.policies.GetOrInitialize(ctx)
}

// Create validates a booking, assigns the smallest free table that fits and
// stores the reservation. Customers' bookings start pending; staff bookings
// start confirmed.
func (s *ReservationService) Create(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "Create",
		"principal_id", principal.UserID,
		"zone", params.Input.Zone,
		"date", params.Input.Date,
	)
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveReservation(ReservationOutcome(err))
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"reservation_id", reservation.ID,
			"table_id", reservation.TableID,
			"state", reservation.State,
		).InfoContext(ctx, "reservation created")
	}()

	if principal.UserID == "" || (principal.Role != RoleCustomer && !principal.IsStaff()) {
		err = ErrUnauthorized
		return
	}

	// Loaded before the write lock: an in-memory database has one connection.
	var policy Policy
	if policy, err = s.policy(ctx); err != nil {
		return
	}

	now := s.clock()
	var vErr *ValidationError
	reservation, vErr = s.buildReservation(params, policy, now)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.checkHours(ctx, reservation.Date, reservation.Start); err != nil {
		return
	}

	req := scheduler.Request{
		Date:            reservation.Date,
		Start:           reservation.Start,
		PartySize:       reservation.PartySize,
		Zone:            reservation.Zone,
		DurationMinutes: policy.DefaultDurationMinutes,
	}
	err = s.reservations.WithAssignment(ctx, func(tx AssignmentTx) error {
		table, err := scheduler.FindTable(ctx, assignmentSource{tx: tx}, req)
		if err != nil {
			return err
		}
		reservation.TableID = table.ID
		return tx.InsertReservation(ctx, reservation)
	})
	if err != nil {
		err = mapAssignmentError(err)
		reservation = Reservation{}
		return
	}

	deliver(ctx, s.notifier, logger, reservationNotification(NotifyReservationCreated, reservation,
		"Reservation received",
		fmt.Sprintf("Your reservation for %d on %s at %s is %s.", reservation.PartySize, reservation.Date, reservation.Start, reservation.State)))
	return
}

func (s *ReservationService) buildReservation(params CreateReservationParams, policy Policy, now time.Time) (Reservation, *ValidationError) {
	input := params.Input
	principal := params.Principal
	vErr := &ValidationError{}

	reservation := Reservation{
		ID:            s.idGenerator(),
		CreatedByID:   principal.UserID,
		CustomerName:  strings.TrimSpace(input.Name),
		CustomerEmail: strings.ToLower(strings.TrimSpace(input.Email)),
		CustomerPhone: strings.TrimSpace(input.Phone),
		Date:          strings.TrimSpace(input.Date),
		PartySize:     input.PartySize,
		Notes:         strings.TrimSpace(input.Notes),
		Device:        strings.ToLower(strings.TrimSpace(input.Device)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if reservation.CustomerName == "" {
		vErr.add("name", "name is required")
	}
	if !validEmail(reservation.CustomerEmail) {
		vErr.add("email", "email must be a valid address")
	}
	if !numeric(reservation.CustomerPhone) {
		vErr.add("phone", "phone must contain digits only")
	}
	today := scheduler.FormatDate(now)
	validateDate(vErr, "date", reservation.Date, today)

	start, err := scheduler.ParseClock(input.StartTime)
	if err != nil {
		vErr.add("start_time", "start time must be an HH:MM time")
	}
	reservation.Start = start
	reservation.End = start.Add(policy.DefaultDurationMinutes)

	if input.PartySize < 1 || input.PartySize > policy.MaxPartySize {
		vErr.add("party_size", fmt.Sprintf("party size must be between 1 and %d", policy.MaxPartySize))
	}
	zone, ok := scheduler.ParseZone(strings.TrimSpace(input.Zone))
	if !ok {
		vErr.add("zone", "zone must be one of interior, terrace, bar, private")
	}
	reservation.Zone = zone

	if utf8.RuneCountInString(reservation.Notes) > maxNotesLength {
		vErr.add("notes", fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}
	if reservation.Device != "" && !slices.Contains(Devices(), reservation.Device) {
		vErr.add("device", "device must be one of mobile, desktop, tablet")
	}

	reservation.Channel = ChannelWeb
	reservation.State = scheduler.StatePending
	reservation.CustomerID = principal.UserID
	if principal.IsStaff() {
		reservation.State = scheduler.StateConfirmed
		reservation.CustomerID = strings.TrimSpace(input.CustomerID)
		if channel := strings.TrimSpace(input.Channel); channel != "" {
			if !slices.Contains(Channels(), Channel(channel)) {
				vErr.add("channel", "channel must be one of web, phone, in_person")
			}
			reservation.Channel = Channel(channel)
		}
	}

	if !vErr.HasErrors() {
		startAt, err := scheduler.StartInstant(reservation.Date, reservation.Start, s.loc)
		if err != nil {
			vErr.add("date", "date must be a YYYY-MM-DD calendar date")
		} else if startAt.Before(now.Add(time.Duration(policy.AdvanceNoticeHours) * time.Hour)) {
			vErr.add("start_time", fmt.Sprintf("reservations must be made at least %d hour(s) in advance", policy.AdvanceNoticeHours))
		}
	}
	return reservation, vErr
}

func (s *ReservationService) checkHours(ctx context.Context, date string, start scheduler.Clock) error {
	if s.hours == nil {
		return nil
	}
	open, err := s.hours.IsWithinHours(ctx, date, start)
	if err != nil {
		return err
	}
	if !open {
		return &AvailabilityError{Code: scheduler.FailureOutOfHours}
	}
	return nil
}

// ChangeState moves a reservation to another lifecycle state. Staff only.
// Moving to the current state is a no-op; terminal states cannot be left.
func (s *ReservationService) ChangeState(ctx context.Context, params ChangeStateParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ChangeState",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
		"target_state", params.State,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change reservation state", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("state", reservation.State).InfoContext(ctx, "reservation state changed")
	}()

	if !params.Principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	target, ok := scheduler.ParseState(strings.TrimSpace(params.State))
	if !ok {
		vErr := &ValidationError{}
		vErr.add("state", "unknown reservation state")
		err = vErr
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, strings.TrimSpace(params.ReservationID))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if reservation.State == target {
		return
	}
	if !scheduler.CanTransition(reservation.State, target) {
		err = fmt.Errorf("%w: %s to %s", ErrInvalidTransition, reservation.State, target)
		return
	}

	now := s.clock()
	previous := reservation.State
	reservation.State = target
	reservation.UpdatedAt = now
	reservation.Notes = appendNote(reservation.Notes, fmt.Sprintf("State changed from %s to %s by %s on %s",
		previous, target, params.Principal.UserID, now.Format(noteTimeLayout)))

	if err = s.reservations.UpdateReservation(ctx, reservation); err != nil {
		err = mapRepoError(err)
		return
	}

	deliver(ctx, s.notifier, logger, reservationNotification(NotifyReservationStateChanged, reservation,
		"Reservation updated",
		fmt.Sprintf("Your reservation on %s at %s is now %s.", reservation.Date, reservation.Start, reservation.State)))
	return
}

// Reschedule moves a reservation to a new date and start time on its current
// table. Staff only.
func (s *ReservationService) Reschedule(ctx context.Context, params RescheduleParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Reschedule",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"date", reservation.Date,
			"start", reservation.Start.String(),
			"table_id", reservation.TableID,
		).InfoContext(ctx, "reservation rescheduled")
	}()

	if !params.Principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	var policy Policy
	if policy, err = s.policy(ctx); err != nil {
		return
	}

	now := s.clock()
	date := strings.TrimSpace(params.Date)
	vErr := &ValidationError{}
	validateDate(vErr, "date", date, scheduler.FormatDate(now))
	start, parseErr := scheduler.ParseClock(params.StartTime)
	if parseErr != nil {
		vErr.add("start_time", "start time must be an HH:MM time")
	}
	if !vErr.HasErrors() {
		startAt, instantErr := scheduler.StartInstant(date, start, s.loc)
		if instantErr != nil {
			vErr.add("date", "date must be a YYYY-MM-DD calendar date")
		} else if startAt.Before(now) {
			vErr.add("start_time", "start time must not be in the past")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.checkHours(ctx, date, start); err != nil {
		return
	}

	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		reason = "no reason given"
	}

	err = s.reservations.WithAssignment(ctx, func(tx AssignmentTx) error {
		current, err := tx.GetReservation(ctx, strings.TrimSpace(params.ReservationID))
		if err != nil {
			return err
		}
		if current.State.Terminal() {
			return fmt.Errorf("%w: cannot reschedule a %s reservation", ErrInvalidTransition, current.State)
		}

		req := scheduler.Request{
			Date:            date,
			Start:           start,
			PartySize:       current.PartySize,
			Zone:            current.Zone,
			DurationMinutes: policy.DefaultDurationMinutes,
		}
		src := assignmentSource{tx: tx}
		reassign := current.TableID == ""
		if !reassign {
			err := scheduler.CheckTable(ctx, src, current.TableID, req, current.ID)
			switch {
			case errors.Is(err, scheduler.ErrTableNotEligible):
				logger.InfoContext(ctx, "assigned table no longer eligible, reassigning", "table_id", current.TableID)
				reassign = true
			case err != nil:
				return err
			}
		}
		if reassign {
			table, err := scheduler.FindTable(ctx, src, req)
			if err != nil {
				return err
			}
			current.TableID = table.ID
		}

		current.Date = date
		current.Start = start
		current.End = start.Add(policy.DefaultDurationMinutes)
		current.UpdatedAt = now
		current.Notes = appendNote(current.Notes, fmt.Sprintf("Rescheduled on %s: %s", now.Format(noteTimeLayout), reason))
		if err := tx.UpdateReservation(ctx, current); err != nil {
			return err
		}
		reservation = current
		return nil
	})
	if err != nil {
		err = mapAssignmentError(err)
		reservation = Reservation{}
		return
	}

	deliver(ctx, s.notifier, logger, reservationNotification(NotifyReservationRescheduled, reservation,
		"Reservation rescheduled",
		fmt.Sprintf("Your reservation now starts on %s at %s.", reservation.Date, reservation.Start)))
	return
}

// CancelSelf cancels the caller's own reservation. It is refused once the
// start is no more than the policy's cancellation cutoff away.
func (s *ReservationService) CancelSelf(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelSelf", "principal_id", principal.UserID, "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	if principal.UserID == "" || principal.Role != RoleCustomer {
		err = ErrUnauthorized
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if reservation.CustomerID != principal.UserID {
		reservation = Reservation{}
		err = ErrUnauthorized
		return
	}
	if reservation.State.Terminal() {
		err = fmt.Errorf("%w: reservation is already %s", ErrInvalidTransition, reservation.State)
		return
	}

	var policy Policy
	if policy, err = s.policy(ctx); err != nil {
		return
	}

	now := s.clock()
	var startAt time.Time
	startAt, err = scheduler.StartInstant(reservation.Date, reservation.Start, s.loc)
	if err != nil {
		return
	}
	if startAt.Sub(now) <= time.Duration(policy.CancellationCutoffMinutes)*time.Minute {
		err = ErrCancellationWindow
		return
	}

	reservation.State = scheduler.StateCancelled
	reservation.UpdatedAt = now
	reservation.Notes = appendNote(reservation.Notes, "Cancelled by customer on "+now.Format(noteTimeLayout))
	if err = s.reservations.UpdateReservation(ctx, reservation); err != nil {
		err = mapRepoError(err)
		return
	}

	deliver(ctx, s.notifier, logger, reservationNotification(NotifyReservationCancelled, reservation,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation on %s at %s has been cancelled.", reservation.Date, reservation.Start)))
	return
}

// Delete removes a reservation permanently. Staff only.
func (s *ReservationService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation deleted")
	}()

	if !principal.IsStaff() {
		return ErrUnauthorized
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}
	return mapRepoError(s.reservations.DeleteReservation(ctx, strings.TrimSpace(id)))
}

// GetStatus returns the polling view of a reservation to its owner or to staff.
func (s *ReservationService) GetStatus(ctx context.Context, principal Principal, id string) (ReservationStatus, error) {
	if s == nil {
		return ReservationStatus{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ReservationStatus{}, fmt.Errorf("reservation repository not configured")
	}
	if principal.UserID == "" {
		return ReservationStatus{}, ErrUnauthorized
	}

	reservation, err := s.reservations.GetReservation(ctx, strings.TrimSpace(id))
	if err != nil {
		return ReservationStatus{}, mapRepoError(err)
	}
	if !principal.IsStaff() && reservation.CustomerID != principal.UserID {
		return ReservationStatus{}, ErrUnauthorized
	}

	status := ReservationStatus{
		ID:      reservation.ID,
		State:   reservation.State,
		Date:    reservation.Date,
		Start:   reservation.Start,
		End:     reservation.End,
		TableID: reservation.TableID,
	}
	if reservation.TableID != "" && s.tables != nil {
		table, err := s.tables.GetTable(ctx, reservation.TableID)
		switch {
		case err == nil:
			status.TableName = table.Name
		case !errors.Is(mapRepoError(err), ErrNotFound):
			return ReservationStatus{}, err
		}
	}
	return status, nil
}

// ListMine groups the caller's reservations into active, past and cancelled,
// and lists those changed by staff during the last day.
func (s *ReservationService) ListMine(ctx context.Context, principal Principal) (MyReservations, error) {
	if s == nil {
		return MyReservations{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return MyReservations{}, fmt.Errorf("reservation repository not configured")
	}
	if principal.UserID == "" {
		return MyReservations{}, ErrUnauthorized
	}

	list, err := s.reservations.ListReservations(ctx, ReservationFilter{CustomerID: principal.UserID})
	if err != nil {
		return MyReservations{}, err
	}

	now := s.clock()
	today := scheduler.FormatDate(now)
	var mine MyReservations
	for _, r := range list {
		switch {
		case r.State == scheduler.StateCancelled:
			mine.Cancelled = append(mine.Cancelled, r)
		case r.Date < today || r.State.Terminal():
			mine.Past = append(mine.Past, r)
		default:
			mine.Active = append(mine.Active, r)
		}
		if r.UpdatedAt.After(r.CreatedAt) && now.Sub(r.UpdatedAt) < noticeWindow {
			mine.Notices = append(mine.Notices, r)
		}
	}
	return mine, nil
}

// List returns reservations matching filter. Staff only.
func (s *ReservationService) List(ctx context.Context, principal Principal, filter ReservationFilter) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}
	if !principal.IsStaff() {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	for field, value := range map[string]string{"date_from": filter.DateFrom, "date_to": filter.DateTo} {
		if value == "" {
			continue
		}
		if _, err := scheduler.ParseDate(value, s.loc); err != nil {
			vErr.add(field, "must be a YYYY-MM-DD calendar date")
		}
	}
	if filter.State != "" {
		if _, ok := scheduler.ParseState(filter.State); !ok {
			vErr.add("state", "unknown reservation state")
		}
	}
	if filter.Zone != "" {
		if _, ok := scheduler.ParseZone(filter.Zone); !ok {
			vErr.add("zone", "unknown zone")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return s.reservations.ListReservations(ctx, filter)
}

// ReservationOutcome labels the result of a booking attempt for metrics.
func ReservationOutcome(err error) string {
	if err == nil {
		return "created"
	}
	var aErr *AvailabilityError
	if errors.As(err, &aErr) {
		return string(aErr.Code)
	}
	return ErrorKind(err)
}

// assignmentSource exposes an AssignmentTx to the availability engine.
type assignmentSource struct {
	tx AssignmentTx
}

func (a assignmentSource) CountTables(ctx context.Context) (int, error) {
	return a.tx.CountTables(ctx)
}

func (a assignmentSource) ListTablesInZone(ctx context.Context, zone scheduler.Zone) ([]scheduler.Table, error) {
	tables, err := a.tx.ListTablesInZone(ctx, zone)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, scheduler.Table{ID: t.ID, Name: t.Name, Capacity: t.Capacity, Zone: t.Zone, Status: t.Status})
	}
	return out, nil
}

func (a assignmentSource) ListTableBookings(ctx context.Context, tableID, date string) ([]scheduler.Booking, error) {
	reservations, err := a.tx.ListTableReservations(ctx, tableID, date)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Booking, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, scheduler.Booking{
			ReservationID: r.ID,
			TableID:       r.TableID,
			Date:          r.Date,
			Interval:      scheduler.Interval{Start: r.Start, End: r.End},
			State:         r.State,
		})
	}
	return out, nil
}

func mapAssignmentError(err error) error {
	var failure *scheduler.Failure
	if errors.As(err, &failure) {
		return newAvailabilityError(failure)
	}
	if errors.Is(err, scheduler.ErrInvalidRequest) {
		vErr := &ValidationError{}
		vErr.add("request", err.Error())
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("customer_id", "customer account does not exist")
		return vErr
	}
	return mapRepoError(err)
}

func reservationNotification(kind NotificationKind, r Reservation, subject, body string) Notification {
	return Notification{
		Kind:          kind,
		To:            r.CustomerEmail,
		Subject:       subject,
		Body:          body,
		ReservationID: r.ID,
		Metadata: map[string]string{
			"date":  r.Date,
			"start": r.Start.String(),
			"state": string(r.State),
		},
	}
}

func appendNote(notes, line string) string {
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return notes + " | " + line
}

func validateDate(vErr *ValidationError, field, date, today string) {
	if _, err := scheduler.Weekday(date); err != nil {
		vErr.add(field, "date must be a YYYY-MM-DD calendar date")
		return
	}
	if date < today {
		vErr.add(field, "date cannot be in the past")
	}
}

func validEmail(value string) bool {
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value && strings.Contains(value[strings.LastIndex(value, "@"):], ".")
}

func numeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
