package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/example/table-reservations/internal/scheduler"
)

// Report windows in days, counted back from and including today.
const (
	shortWindowDays  = 30
	mediumWindowDays = 90
	longWindowDays   = 120
	topDaysLimit     = 7
	topHoursLimit    = 5
)

// TableLister lists every table.
type TableLister interface {
	ListTables(ctx context.Context) ([]Table, error)
}

// AccountCounter counts accounts.
type AccountCounter interface {
	CountAccounts(ctx context.Context) (int, error)
}

// ReportService computes activity summaries for staff.
type ReportService struct {
	reservations ReservationLister
	tables       TableLister
	accounts     AccountCounter
	now          func() time.Time
	loc          *time.Location
	cache        *reportCache
	logger       *slog.Logger
}

// NewReportService constructs a report service.
func NewReportService(reservations ReservationLister, tables TableLister, accounts AccountCounter, now func() time.Time) *ReportService {
	return NewReportServiceWithLogger(reservations, tables, accounts, now, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(reservations ReservationLister, tables TableLister, accounts AccountCounter, now func() time.Time, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		reservations: reservations,
		tables:       tables,
		accounts:     accounts,
		now:          now,
		loc:          time.UTC,
		logger:       defaultLogger(logger),
	}
}

// WithLocation sets the restaurant's wall-clock time zone.
func (s *ReportService) WithLocation(loc *time.Location) *ReportService {
	if s != nil && loc != nil {
		s.loc = loc
	}
	return s
}

// WithCache keeps built summaries for ttl. A non-positive ttl disables caching.
func (s *ReportService) WithCache(ttl time.Duration) *ReportService {
	if s == nil {
		return s
	}
	if ttl <= 0 {
		s.cache = nil
		return s
	}
	s.cache = newReportCache(ttl, 0, s.now)
	return s
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// Summary aggregates reservation activity over the 30, 90 and 120 day windows.
func (s *ReportService) Summary(ctx context.Context, principal Principal) (summary ReportSummary, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Summary", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("total_120", summary.Total120).DebugContext(ctx, "report built")
	}()

	if !principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	now := s.now().In(s.loc)
	cacheKey := scheduler.FormatDate(now)
	if cached, ok := s.cache.Get(cacheKey); ok {
		summary = cached
		return
	}
	defer func() {
		if err == nil {
			s.cache.Store(cacheKey, summary)
		}
	}()

	from30 := windowStart(now, shortWindowDays)
	from90 := windowStart(now, mediumWindowDays)
	from120 := windowStart(now, longWindowDays)

	var list []Reservation
	list, err = s.reservations.ListReservations(ctx, ReservationFilter{DateFrom: from120})
	if err != nil {
		return
	}

	var tables []Table
	if s.tables != nil {
		if tables, err = s.tables.ListTables(ctx); err != nil {
			return
		}
	}

	perDay := map[string]int{}
	days90 := map[string]int{}
	weekdays := map[time.Weekday]int{}
	states := map[string]int{}
	channels := map[string]int{}
	hours := map[int]int{}
	usage := map[string]int{}
	var partyTotal, count90 int

	for _, r := range list {
		summary.Total120++
		if r.State == scheduler.StateNoShow {
			summary.NoShows++
		}

		if r.Date >= from90 {
			count90++
			partyTotal += r.PartySize
			days90[r.Date]++
			if wd, wdErr := scheduler.Weekday(r.Date); wdErr == nil {
				weekdays[wd]++
			}
			states[string(r.State)]++
			channels[string(r.Channel)]++
			hours[r.Start.Hour()]++
			if r.State == scheduler.StateCancelled {
				summary.Cancelled90++
			}
		}

		if r.Date >= from30 {
			summary.Total30++
			perDay[r.Date]++
			if r.State == scheduler.StateConfirmed {
				summary.Confirmed30++
			}
			if r.TableID != "" {
				usage[r.TableID]++
			}
		}
	}

	summary.GeneratedAt = now
	summary.PerDay = countsByLabel(perDay)
	summary.TopDays = limit(rankCounts(days90), topDaysLimit)
	summary.ByState = rankCounts(states)
	summary.ByChannel = rankCounts(channels)

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if n := weekdays[wd]; n > 0 {
			summary.ByWeekday = append(summary.ByWeekday, CountEntry{Label: wd.String(), Count: n})
		}
	}
	sort.SliceStable(summary.ByWeekday, func(i, j int) bool {
		return summary.ByWeekday[i].Count > summary.ByWeekday[j].Count
	})

	hourLabels := make(map[string]int, len(hours))
	for h, n := range hours {
		hourLabels[fmt.Sprintf("%02d:00", h)] = n
	}
	summary.TopHours = limit(rankCounts(hourLabels), topHoursLimit)

	if count90 > 0 {
		summary.AveragePartySize = round1(float64(partyTotal) / float64(count90))
	}
	if summary.Total120 > 0 {
		summary.NoShowRate = round1(float64(summary.NoShows) / float64(summary.Total120) * 100)
	}

	byID := make(map[string]Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}
	for id, n := range usage {
		entry := TableUsage{TableID: id, Count: n}
		if t, ok := byID[id]; ok {
			entry.Name = t.Name
			entry.Capacity = t.Capacity
			entry.Zone = t.Zone
		}
		summary.TableUsage = append(summary.TableUsage, entry)
	}
	sort.Slice(summary.TableUsage, func(i, j int) bool {
		a, b := summary.TableUsage[i], summary.TableUsage[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.TableID < b.TableID
	})
	return
}

// Dashboard returns the administrator's headline numbers.
func (s *ReportService) Dashboard(ctx context.Context, principal Principal) (Dashboard, error) {
	if s == nil {
		return Dashboard{}, fmt.Errorf("ReportService is nil")
	}
	if !principal.IsAdmin() {
		return Dashboard{}, ErrUnauthorized
	}
	if s.reservations == nil {
		return Dashboard{}, fmt.Errorf("reservation repository not configured")
	}

	all, err := s.reservations.ListReservations(ctx, ReservationFilter{})
	if err != nil {
		return Dashboard{}, err
	}

	today := scheduler.FormatDate(s.now().In(s.loc))
	dashboard := Dashboard{TotalReservations: len(all)}
	for _, r := range all {
		if r.Date == today {
			dashboard.TodayReservations++
		}
	}
	if s.accounts != nil {
		if dashboard.Accounts, err = s.accounts.CountAccounts(ctx); err != nil {
			return Dashboard{}, err
		}
	}
	return dashboard, nil
}

// windowStart returns the first date of a window of days ending today.
func windowStart(now time.Time, days int) string {
	return scheduler.FormatDate(now.AddDate(0, 0, -(days - 1)))
}

// countsByLabel orders entries by label.
func countsByLabel(counts map[string]int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for label, n := range counts {
		entries = append(entries, CountEntry{Label: label, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
	return entries
}

// rankCounts orders entries by descending count, then by label.
func rankCounts(counts map[string]int) []CountEntry {
	entries := countsByLabel(counts)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	return entries
}

func limit(entries []CountEntry, n int) []CountEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
