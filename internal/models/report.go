package models

import (
	"time"
)

// ReportType categorizes generated reports
type ReportType string

const (
	ReportSession   ReportType = "SESSION"
	ReportProgress  ReportType = "PROGRESS"
	ReportDischarge ReportType = "DISCHARGE"
	ReportOther     ReportType = "OTHER"
)

// Report is a therapist-authored document about a patient, optionally
// backed by an uploaded file in object storage.
type Report struct {
	BaseModel
	PatientID   string     `gorm:"size:36;index;not null" json:"patientId"`
	TherapistID string     `gorm:"size:36;index;not null" json:"therapistId"`
	Type        ReportType `gorm:"size:20;default:'SESSION'" json:"type"`
	ReportDate  time.Time  `json:"reportDate"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Content     string     `gorm:"type:text" json:"content"`
	DocumentURL string     `gorm:"size:512" json:"documentUrl,omitempty"`

	// Relations
	Patient   Patient `gorm:"foreignKey:PatientID" json:"-"`
	Therapist User    `gorm:"foreignKey:TherapistID" json:"-"`
}
