package application

import (
	"time"

	"github.com/example/table-reservations/internal/scheduler"
)

// Role identifies what an account may do.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleServer       Role = "server"
	RoleCustomer     Role = "customer"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleReceptionist, RoleServer, RoleCustomer:
		return Role(value), true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal administers the restaurant.
func (p Principal) IsAdmin() bool {
	return p.UserID != "" && p.Role == RoleAdmin
}

// IsStaff reports whether the principal manages reservations on behalf of customers.
func (p Principal) IsStaff() bool {
	return p.UserID != "" && (p.Role == RoleAdmin || p.Role == RoleReceptionist)
}

// CanViewFloor reports whether the principal may see table occupancy.
func (p Principal) CanViewFloor() bool {
	return p.IsStaff() || (p.UserID != "" && p.Role == RoleServer)
}

// Account status values.
const (
	AccountActive   = "active"
	AccountDisabled = "disabled"
)

// Account represents a customer or staff member.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        string
	Notes        string
	Status       string
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated session issued to an account.
type Session struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures login credentials.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult contains the account and the session issued for it.
type AuthenticateResult struct {
	Account Account
	Session Session
}

// Table is a bookable dining table.
type Table struct {
	ID        string
	Name      string
	Capacity  int
	Zone      scheduler.Zone
	Status    scheduler.TableStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableInput captures caller provided table fields.
type TableInput struct {
	Name     string
	Capacity int
	Zone     string
	Status   string
}

// TableOccupancy is the live view of one table for floor staff.
type TableOccupancy struct {
	Table    Table
	Occupied bool
	Current  *Reservation
	Next     *Reservation
}

// Channel records how a reservation reached the restaurant.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelPhone    Channel = "phone"
	ChannelInPerson Channel = "in_person"
)

// Channels lists every booking channel.
func Channels() []Channel {
	return []Channel{ChannelWeb, ChannelPhone, ChannelInPerson}
}

// Devices lists the accepted client device labels.
func Devices() []string {
	return []string{"mobile", "desktop", "tablet"}
}

// Reservation is a customer's claim on a table for an interval.
type Reservation struct {
	ID            string
	CustomerID    string
	CreatedByID   string
	TableID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string
	Start         scheduler.Clock
	End           scheduler.Clock
	PartySize     int
	Zone          scheduler.Zone
	State         scheduler.State
	Channel       Channel
	Device        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationInput captures the booking form.
type ReservationInput struct {
	CustomerID string
	Name       string
	Email      string
	Phone      string
	Date       string
	StartTime  string
	PartySize  int
	Zone       string
	Notes      string
	Channel    string
	Device     string
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ChangeStateParams wraps a staff state change.
type ChangeStateParams struct {
	Principal     Principal
	ReservationID string
	State         string
}

// RescheduleParams wraps a staff reschedule.
type RescheduleParams struct {
	Principal     Principal
	ReservationID string
	Date          string
	StartTime     string
	Reason        string
}

// ReservationFilter narrows reservation listings. Empty fields do not filter.
type ReservationFilter struct {
	CustomerID string
	DateFrom   string
	DateTo     string
	State      string
	TableID    string
	Zone       string
}

// ReservationStatus is the lightweight polling view of one reservation.
type ReservationStatus struct {
	ID        string
	State     scheduler.State
	Date      string
	Start     scheduler.Clock
	End       scheduler.Clock
	TableID   string
	TableName string
}

// MyReservations groups a customer's reservations for their overview page.
type MyReservations struct {
	Active    []Reservation
	Past      []Reservation
	Cancelled []Reservation
	// Notices lists reservations changed by staff in the last 24 hours.
	Notices []Reservation
}

// OperatingHours is one weekday opening window.
type OperatingHours struct {
	ID      string
	Weekday time.Weekday
	Open    scheduler.Clock
	Close   scheduler.Clock
	Active  bool
}

// HoursInput captures caller provided operating-hours fields.
type HoursInput struct {
	ID      string
	Weekday int
	Open    string
	Close   string
	Active  bool
}

// Policy holds the restaurant-wide booking parameters.
type Policy struct {
	CancellationCutoffMinutes int
	AdvanceNoticeHours        int
	MaxPartySize              int
	DefaultDurationMinutes    int
	// LateToleranceMinutes is how long a table is held for a late party.
	LateToleranceMinutes int
	UpdatedAt            time.Time
}

// DefaultPolicy returns the policy used until an administrator saves one.
func DefaultPolicy() Policy {
	return Policy{
		CancellationCutoffMinutes: 60,
		AdvanceNoticeHours:        1,
		MaxPartySize:              20,
		DefaultDurationMinutes:    90,
		LateToleranceMinutes:      15,
	}
}

// RegisterParams captures a public sign-up.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// CreateStaffParams captures an administrator creating a staff account.
type CreateStaffParams struct {
	Principal Principal
	Name      string
	Email     string
	Password  string
	Phone     string
	Role      string
}

// ResetPasswordParams captures a password reset completion.
type ResetPasswordParams struct {
	Token    string
	Password string
}

// ChangeRoleParams captures an administrator changing an account's role.
type ChangeRoleParams struct {
	Principal Principal
	AccountID string
	Role      string
}

// CountEntry is one labelled count in a report.
type CountEntry struct {
	Label string
	Count int
}

// TableUsage counts reservations per table.
type TableUsage struct {
	TableID  string
	Name     string
	Capacity int
	Zone     scheduler.Zone
	Count    int
}

// ReportSummary aggregates recent reservation activity.
type ReportSummary struct {
	GeneratedAt      time.Time
	PerDay           []CountEntry
	TopDays          []CountEntry
	ByWeekday        []CountEntry
	ByState          []CountEntry
	ByChannel        []CountEntry
	TopHours         []CountEntry
	TableUsage       []TableUsage
	AveragePartySize float64
	NoShows          int
	NoShowRate       float64
	Total30          int
	Confirmed30      int
	Cancelled90      int
	Total120         int
}

// Dashboard is the administrator's landing summary.
type Dashboard struct {
	TotalReservations int
	TodayReservations int
	Accounts          int
}
