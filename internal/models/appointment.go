package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed   AppointmentStatus = "CONFIRMED"
	AppointmentInProgress  AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted   AppointmentStatus = "COMPLETED"
	AppointmentNoShow      AppointmentStatus = "NO_SHOW"
	AppointmentRescheduled AppointmentStatus = "RESCHEDULED"
	AppointmentCancelled   AppointmentStatus = "CANCELLED"
)

// AppointmentType represents the kind of session being booked
type AppointmentType string

const (
	TypeConsulta    AppointmentType = "CONSULTA"
	TypeEntrevista  AppointmentType = "ENTREVISTA"
	TypeSeguimiento AppointmentType = "SEGUIMIENTO"
	TypeTerapia     AppointmentType = "TERAPIA"
)

// Appointment represents a therapist time slot on a given date.
// Date is "YYYY-MM-DD" and StartTime/EndTime are "HH:MM"; both orderings
// are lexicographic, which matches chronological order within a day.
type Appointment struct {
	BaseModel
	TherapistID string            `gorm:"size:36;index;not null" json:"therapistId"`
	PatientID   *string           `gorm:"size:36;index" json:"patientId,omitempty"` // nil for intake-only bookings
	Date        string            `gorm:"size:10;index;not null" json:"date"`
	StartTime   string            `gorm:"size:5;not null" json:"startTime"`
	EndTime     string            `gorm:"size:5;not null" json:"endTime"`
	Type        AppointmentType   `gorm:"size:20;not null" json:"type"`
	Status      AppointmentStatus `gorm:"size:20;default:'SCHEDULED'" json:"status"`
	Notes       string            `gorm:"type:text" json:"notes,omitempty"`

	// Reschedule lineage: the immediately prior and current slot dates.
	// Full history lives in AppointmentReschedule rows.
	RescheduledFrom *string `gorm:"size:10" json:"rescheduledFrom,omitempty"`
	RescheduledTo   *string `gorm:"size:10" json:"rescheduledTo,omitempty"`

	// Absence metadata
	AbsenceReason    *string    `gorm:"size:255" json:"absenceReason,omitempty"`
	MarkedAbsentByID *string    `gorm:"size:36" json:"markedAbsentBy,omitempty"`
	MarkedAbsentAt   *time.Time `json:"markedAbsentAt,omitempty"`

	// Relations
	Therapist User     `gorm:"foreignKey:TherapistID" json:"-"`
	Patient   *Patient `gorm:"foreignKey:PatientID" json:"-"`
}

// IsTerminal reports whether the appointment can no longer change status.
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentCompleted || a.Status == AppointmentCancelled
}

// AppointmentReschedule records one reschedule hop so the full chain
// survives the in-place overwrite of the appointment row.
type AppointmentReschedule struct {
	BaseModel
	AppointmentID   string `gorm:"size:36;index;not null" json:"appointmentId"`
	FromDate        string `gorm:"size:10" json:"fromDate"`
	FromStartTime   string `gorm:"size:5" json:"fromStartTime"`
	FromEndTime     string `gorm:"size:5" json:"fromEndTime"`
	ToDate          string `gorm:"size:10" json:"toDate"`
	ToStartTime     string `gorm:"size:5" json:"toStartTime"`
	ToEndTime       string `gorm:"size:5" json:"toEndTime"`
	RescheduledByID string `gorm:"size:36" json:"rescheduledBy"`
	Reason          string `gorm:"size:255" json:"reason,omitempty"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
