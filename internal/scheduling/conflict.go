package scheduling

import (
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

// ActiveStatuses are the appointment statuses that hold a therapist's
// time slot. Only these participate in conflict detection.
var ActiveStatuses = []models.AppointmentStatus{
	models.AppointmentScheduled,
	models.AppointmentConfirmed,
	models.AppointmentInProgress,
}

var timeOfDay = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ConflictError reports a double-booking attempt against an existing slot.
type ConflictError struct {
	Existing *models.Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("therapist already booked on %s from %s to %s (appointment %s)",
		e.Existing.Date, e.Existing.StartTime, e.Existing.EndTime, e.Existing.ID)
}

// ValidateSlot checks that date is "YYYY-MM-DD", the times are "HH:MM",
// and the range is non-empty.
func ValidateSlot(date, startTime, endTime string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	if !timeOfDay.MatchString(startTime) {
		return fmt.Errorf("invalid start time %q, expected HH:MM", startTime)
	}
	if !timeOfDay.MatchString(endTime) {
		return fmt.Errorf("invalid end time %q, expected HH:MM", endTime)
	}
	if startTime >= endTime {
		return fmt.Errorf("start time %s must be before end time %s", startTime, endTime)
	}
	return nil
}

// Overlaps reports whether two half-open [start, end) ranges intersect.
// "HH:MM" strings order lexicographically the same as chronologically.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// FindConflict returns the first active appointment for the therapist on
// the given date whose [startTime, endTime) range overlaps the requested
// one, ignoring excludeAppointmentID (pass "" for new bookings). A nil
// result means the slot is free.
//
// Booking, rescheduling and intake scheduling all go through this one
// query; run it inside the same transaction as the following mutation.
func FindConflict(db *gorm.DB, therapistID, date, startTime, endTime, excludeAppointmentID string) (*models.Appointment, error) {
	query := db.Where("therapist_id = ? AND date = ? AND status IN ?", therapistID, date, ActiveStatuses).
		Where("start_time < ? AND end_time > ?", endTime, startTime)
	if excludeAppointmentID != "" {
		query = query.Where("id != ?", excludeAppointmentID)
	}

	var existing models.Appointment
	if err := query.First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}
