// Package export renders reservation listings and report summaries as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/table-reservations/internal/application"
)

// ContentType is the media type of the rendered workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	reservationsSheet = "Reservations"
	summarySheet      = "Summary"
	tablesSheet       = "Tables"
)

var reservationHeaders = []string{
	"ID", "Date", "Start", "End", "Table", "Zone", "Party", "State",
	"Customer", "Email", "Phone", "Channel", "Notes",
}

// Reservations writes one row per reservation. tableNames maps table ids to display names;
// unknown ids are written as-is.
func Reservations(w io.Writer, reservations []application.Reservation, tableNames map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reservationsSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := writeHeader(f, reservationsSheet, reservationHeaders); err != nil {
		return err
	}

	for i, r := range reservations {
		table := r.TableID
		if name, ok := tableNames[r.TableID]; ok {
			table = name
		}
		row := []any{
			r.ID, r.Date, r.Start.String(), r.End.String(), table, string(r.Zone), r.PartySize, string(r.State),
			r.CustomerName, r.CustomerEmail, r.CustomerPhone, string(r.Channel), r.Notes,
		}
		if err := writeRow(f, reservationsSheet, i+2, row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(reservationsSheet, "A", "A", 38)
	_ = f.SetColWidth(reservationsSheet, "I", "J", 24)
	_ = f.SetColWidth(reservationsSheet, "M", "M", 60)
	return finish(f, w)
}

// Summary writes the report totals and distributions on one sheet and table usage on another.
func Summary(w io.Writer, s application.ReportSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	row := 1
	put := func(values ...any) error {
		err := writeRow(f, summarySheet, row, values)
		row++
		return err
	}

	totals := [][]any{
		{"Generated at", s.GeneratedAt.UTC().Format("2006-01-02 15:04")},
		{"Reservations (30 days)", s.Total30},
		{"Confirmed (30 days)", s.Confirmed30},
		{"Cancelled (90 days)", s.Cancelled90},
		{"Reservations (120 days)", s.Total120},
		{"No-shows (120 days)", s.NoShows},
		{"No-show rate %", s.NoShowRate},
		{"Average party size", s.AveragePartySize},
	}
	for _, values := range totals {
		if err := put(values...); err != nil {
			return err
		}
	}

	sections := []struct {
		title   string
		entries []application.CountEntry
	}{
		{"Per day (30 days)", s.PerDay},
		{"Busiest days (90 days)", s.TopDays},
		{"By weekday", s.ByWeekday},
		{"By state", s.ByState},
		{"By channel", s.ByChannel},
		{"Top start hours", s.TopHours},
	}
	for _, section := range sections {
		row++
		if err := put(section.title, "Count"); err != nil {
			return err
		}
		if err := boldRow(f, summarySheet, row-1, 2); err != nil {
			return err
		}
		for _, entry := range section.entries {
			if err := put(entry.Label, entry.Count); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 28)

	if _, err := f.NewSheet(tablesSheet); err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}
	if err := writeHeader(f, tablesSheet, []string{"Table", "Zone", "Capacity", "Reservations (30 days)"}); err != nil {
		return err
	}
	for i, usage := range s.TableUsage {
		if err := writeRow(f, tablesSheet, i+2, []any{usage.Name, string(usage.Zone), usage.Capacity, usage.Count}); err != nil {
			return err
		}
	}

	return finish(f, w)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	if err := boldRow(f, sheet, 1, len(headers)); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: write row %d: %w", row, err)
	}
	return nil
}

func boldRow(f *excelize.File, sheet string, row, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(columns, row)
	return f.SetCellStyle(sheet, first, last, style)
}

func finish(f *excelize.File, w io.Writer) error {
	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// Filename builds a download name such as "reservations-2024-03-14.xlsx".
func Filename(prefix, date string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "export"
	}
	if date == "" {
		return prefix + ".xlsx"
	}
	return prefix + "-" + date + ".xlsx"
}
