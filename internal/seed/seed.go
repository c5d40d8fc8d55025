// Package seed loads a YAML description of the restaurant and applies it through the application services.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/scheduler"
)

// File is the root of a seed document.
type File struct {
	Policy   *Policy   `yaml:"policy"`
	Hours    []Hours   `yaml:"hours"`
	Tables   []Table   `yaml:"tables"`
	Accounts []Account `yaml:"accounts"`
}

// Policy mirrors application.Policy.
type Policy struct {
	CancellationCutoffMinutes int `yaml:"cancellation_cutoff_minutes"`
	AdvanceNoticeHours        int `yaml:"advance_notice_hours"`
	MaxPartySize              int `yaml:"max_party_size"`
	DefaultDurationMinutes    int `yaml:"default_duration_minutes"`
	LateToleranceMinutes      int `yaml:"late_tolerance_minutes"`
}

// Hours is one opening window. Active defaults to true.
type Hours struct {
	Weekday Weekday `yaml:"weekday"`
	Open    string  `yaml:"open"`
	Close   string  `yaml:"close"`
	Active  *bool   `yaml:"active"`
}

// Table is one dining table. Status defaults to active.
type Table struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Zone     string `yaml:"zone"`
	Status   string `yaml:"status"`
}

// Account is a staff account.
type Account struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Phone    string `yaml:"phone"`
	Role     string `yaml:"role"`
}

// Weekday accepts either 0..6 (Sunday first) or an English day name.
type Weekday time.Weekday

// UnmarshalYAML implements yaml.Unmarshaler.
func (w *Weekday) UnmarshalYAML(node *yaml.Node) error {
	value := strings.TrimSpace(node.Value)
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return fmt.Errorf("line %d: weekday %d out of range 0..6", node.Line, n)
		}
		*w = Weekday(n)
		return nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(value, name) || strings.EqualFold(value, name[:3]) {
			*w = Weekday(d)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown weekday %q", node.Line, value)
}

// Load decodes a seed document. Unknown keys are rejected.
func Load(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("seed: decode: %w", err)
	}
	return f, nil
}

// LoadFile opens and decodes the seed document at path.
func LoadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer fh.Close()
	return Load(fh)
}

type policyUpdater interface {
	ReplaceDefault(ctx context.Context, principal application.Principal, input application.Policy) (application.Policy, bool, error)
}

type hoursManager interface {
	List(ctx context.Context, principal application.Principal) ([]application.OperatingHours, error)
	Upsert(ctx context.Context, principal application.Principal, input application.HoursInput) (application.OperatingHours, error)
}

type tableCreator interface {
	Create(ctx context.Context, principal application.Principal, input application.TableInput) (application.Table, error)
}

type staffCreator interface {
	CreateStaff(ctx context.Context, params application.CreateStaffParams) (application.Account, error)
}

// Services are the application services a seed is applied through.
type Services struct {
	Policy   policyUpdater
	Hours    hoursManager
	Tables   tableCreator
	Accounts staffCreator
}

// Result counts what Apply changed.
type Result struct {
	PolicyUpdated   bool
	HoursUpserted   int
	TablesCreated   int
	TablesSkipped   int
	AccountsCreated int
	AccountsSkipped int
}

// Principal is the identity seed changes are made under.
var Principal = application.Principal{UserID: "seed", Role: application.RoleAdmin}

// Apply writes the seed through the services. Tables and accounts that already exist are
// skipped; hours windows are matched on weekday and opening time and updated in place.
// The policy is only written while it still holds the defaults.
func Apply(ctx context.Context, svc Services, f File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")
	var res Result

	if f.Policy != nil && svc.Policy != nil {
		_, saved, err := svc.Policy.ReplaceDefault(ctx, Principal, application.Policy{
			CancellationCutoffMinutes: f.Policy.CancellationCutoffMinutes,
			AdvanceNoticeHours:        f.Policy.AdvanceNoticeHours,
			MaxPartySize:              f.Policy.MaxPartySize,
			DefaultDurationMinutes:    f.Policy.DefaultDurationMinutes,
			LateToleranceMinutes:      f.Policy.LateToleranceMinutes,
		})
		if err != nil {
			return res, fmt.Errorf("seed: policy: %w", err)
		}
		res.PolicyUpdated = saved
	}

	if len(f.Hours) > 0 && svc.Hours != nil {
		existing, err := svc.Hours.List(ctx, Principal)
		if err != nil {
			return res, fmt.Errorf("seed: list hours: %w", err)
		}
		for i, h := range f.Hours {
			active := true
			if h.Active != nil {
				active = *h.Active
			}
			input := application.HoursInput{
				Weekday: int(h.Weekday),
				Open:    h.Open,
				Close:   h.Close,
				Active:  active,
			}
			if open, err := scheduler.ParseClock(strings.TrimSpace(h.Open)); err == nil {
				for _, window := range existing {
					if int(window.Weekday) == input.Weekday && window.Open == open {
						input.ID = window.ID
						break
					}
				}
			}
			if _, err := svc.Hours.Upsert(ctx, Principal, input); err != nil {
				return res, fmt.Errorf("seed: hours[%d]: %w", i, err)
			}
			res.HoursUpserted++
		}
	}

	if svc.Tables != nil {
		for i, t := range f.Tables {
			status := t.Status
			if status == "" {
				status = "active"
			}
			_, err := svc.Tables.Create(ctx, Principal, application.TableInput{
				Name:     t.Name,
				Capacity: t.Capacity,
				Zone:     t.Zone,
				Status:   status,
			})
			switch {
			case errors.Is(err, application.ErrAlreadyExists):
				logger.DebugContext(ctx, "table already present", "name", t.Name)
				res.TablesSkipped++
			case err != nil:
				return res, fmt.Errorf("seed: tables[%d]: %w", i, err)
			default:
				res.TablesCreated++
			}
		}
	}

	if svc.Accounts != nil {
		for i, a := range f.Accounts {
			_, err := svc.Accounts.CreateStaff(ctx, application.CreateStaffParams{
				Principal: Principal,
				Name:      a.Name,
				Email:     a.Email,
				Password:  a.Password,
				Phone:     a.Phone,
				Role:      a.Role,
			})
			switch {
			case errors.Is(err, application.ErrAlreadyExists):
				logger.DebugContext(ctx, "account already present", "email", a.Email)
				res.AccountsSkipped++
			case err != nil:
				return res, fmt.Errorf("seed: accounts[%d]: %w", i, err)
			default:
				res.AccountsCreated++
			}
		}
	}

	logger.InfoContext(ctx, "seed applied",
		"policy_updated", res.PolicyUpdated,
		"hours_upserted", res.HoursUpserted,
		"tables_created", res.TablesCreated,
		"tables_skipped", res.TablesSkipped,
		"accounts_created", res.AccountsCreated,
		"accounts_skipped", res.AccountsSkipped,
	)
	return res, nil
}
