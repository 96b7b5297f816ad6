package billing

import "time"

// BillableHours returns the elapsed time between entry and exit rounded up to
// whole hours. Anything at or below zero still bills one hour: a driver who
// turns around at the gate occupied a spot.
func BillableHours(entry, exit time.Time) int64 {
	elapsed := exit.Sub(entry)
	if elapsed <= 0 {
		return 1
	}
	hours := int64(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

// DisplayDuration splits the elapsed time into hours and minutes for
// presentation. Negative elapsed time displays as zero.
func DisplayDuration(entry, exit time.Time) (hours int64, minutes int64) {
	elapsed := exit.Sub(entry)
	if elapsed <= 0 {
		return 0, 0
	}
	hours = int64(elapsed / time.Hour)
	minutes = int64(elapsed%time.Hour) / int64(time.Minute)
	return hours, minutes
}
