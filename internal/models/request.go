package models

import (
	"time"
)

// RequestStatus represents the state of an intake request
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestScheduled RequestStatus = "SCHEDULED"
	RequestCompleted RequestStatus = "COMPLETED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// ConsultationRequest is the initial intake record created from the
// public consultation form, before any patient exists in the system.
type ConsultationRequest struct {
	BaseModel
	ParentName       string        `gorm:"size:200;not null" json:"parentName"`
	ContactEmail     string        `gorm:"size:255;not null" json:"contactEmail"`
	ContactPhone     string        `gorm:"size:50" json:"contactPhone,omitempty"`
	ChildName        string        `gorm:"size:200;not null" json:"childName"`
	ChildDateOfBirth *time.Time    `json:"childDateOfBirth,omitempty"`
	Reason           string        `gorm:"type:text" json:"reason"`
	Status           RequestStatus `gorm:"size:20;default:'PENDING'" json:"status"`

	AssignedTherapistID *string `gorm:"size:36;index" json:"assignedTherapistId,omitempty"`
	AppointmentID       *string `gorm:"size:36" json:"appointmentId,omitempty"`
	ScheduledDate       *string `gorm:"size:10" json:"scheduledDate,omitempty"`
	ScheduledStartTime  *string `gorm:"size:5" json:"scheduledStartTime,omitempty"`
	ScheduledEndTime    *string `gorm:"size:5" json:"scheduledEndTime,omitempty"`

	AssignedTherapist *User `gorm:"foreignKey:AssignedTherapistID" json:"-"`
}

// InterviewRequest is the follow-up intake step after a consultation,
// where parents are interviewed before treatment is proposed.
type InterviewRequest struct {
	BaseModel
	ConsultationRequestID *string       `gorm:"size:36;index" json:"consultationRequestId,omitempty"`
	ParentName            string        `gorm:"size:200;not null" json:"parentName"`
	ContactEmail          string        `gorm:"size:255;not null" json:"contactEmail"`
	ContactPhone          string        `gorm:"size:50" json:"contactPhone,omitempty"`
	ChildName             string        `gorm:"size:200;not null" json:"childName"`
	Notes                 string        `gorm:"type:text" json:"notes,omitempty"`
	Status                RequestStatus `gorm:"size:20;default:'PENDING'" json:"status"`

	AssignedTherapistID *string `gorm:"size:36;index" json:"assignedTherapistId,omitempty"`
	AppointmentID       *string `gorm:"size:36" json:"appointmentId,omitempty"`
	ScheduledDate       *string `gorm:"size:10" json:"scheduledDate,omitempty"`
	ScheduledStartTime  *string `gorm:"size:5" json:"scheduledStartTime,omitempty"`
	ScheduledEndTime    *string `gorm:"size:5" json:"scheduledEndTime,omitempty"`

	AssignedTherapist *User `gorm:"foreignKey:AssignedTherapistID" json:"-"`
}
