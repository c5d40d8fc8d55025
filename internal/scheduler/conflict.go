package scheduler

import "sort"

// DetectConflicts returns the existing bookings that occupy the candidate's
// table and date and overlap its interval. The candidate's own reservation id
// and non-blocking states are ignored.
func DetectConflicts(existing []Booking, candidate Booking) []Booking {
	var conflicts []Booking
	for _, booking := range existing {
		if candidate.ReservationID != "" && booking.ReservationID == candidate.ReservationID {
			continue
		}
		if booking.TableID != candidate.TableID || booking.Date != candidate.Date {
			continue
		}
		if !booking.State.BlocksTable() {
			continue
		}
		if booking.Interval.Overlaps(candidate.Interval) {
			conflicts = append(conflicts, booking)
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Interval.Start != conflicts[j].Interval.Start {
			return conflicts[i].Interval.Start < conflicts[j].Interval.Start
		}
		return conflicts[i].ReservationID < conflicts[j].ReservationID
	})
	return conflicts
}
