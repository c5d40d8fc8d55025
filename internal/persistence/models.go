package persistence

import "time"

// Account represents a customer or staff member.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Phone        string
	Notes        string
	Status       string
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an account.
type Session struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// Table represents a bookable dining table.
type Table struct {
	ID        string
	Name      string
	Capacity  int
	Zone      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation represents a stored reservation. Date is a YYYY-MM-DD wall-clock
// date and StartTime/EndTime are HH:MM strings on that date.
type Reservation struct {
	ID            string
	CustomerID    *string
	CreatedByID   string
	TableID       *string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string
	StartTime     string
	EndTime       string
	PartySize     int
	Zone          string
	State         string
	Channel       string
	Device        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OperatingHours represents one weekday opening window.
type OperatingHours struct {
	ID        string
	Weekday   int
	OpenTime  string
	CloseTime string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Policy is the singleton booking policy row.
type Policy struct {
	CancellationCutoffMinutes int
	AdvanceNoticeHours        int
	MaxPartySize              int
	DefaultDurationMinutes    int
	LateToleranceMinutes      int
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}
