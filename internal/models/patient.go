package models

import (
	"time"
)

// Patient represents a child patient linked to a parent account
type Patient struct {
	BaseModel
	FirstName           string    `gorm:"size:100;not null" json:"firstName"`
	LastName            string    `gorm:"size:100;not null" json:"lastName"`
	DateOfBirth         time.Time `json:"dateOfBirth"`
	ParentID            string    `gorm:"size:36;index" json:"parentId"`
	AssignedTherapistID *string   `gorm:"size:36;index" json:"assignedTherapistId,omitempty"`
	School              string    `gorm:"size:255" json:"school,omitempty"`
	Grade               string    `gorm:"size:50" json:"grade,omitempty"`
	Diagnosis           string    `gorm:"type:text" json:"diagnosis,omitempty"`
	Notes               string    `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Parent            User  `gorm:"foreignKey:ParentID" json:"-"`
	AssignedTherapist *User `gorm:"foreignKey:AssignedTherapistID" json:"-"`
}

// PatientSummary is the reshaped patient payload returned by list endpoints.
type PatientSummary struct {
	ID                  string    `json:"id"`
	FullName            string    `json:"fullName"`
	DateOfBirth         time.Time `json:"dateOfBirth"`
	Age                 int       `json:"age"`
	ParentID            string    `json:"parentId"`
	AssignedTherapistID *string   `json:"assignedTherapistId,omitempty"`
	School              string    `json:"school,omitempty"`
	Grade               string    `json:"grade,omitempty"`
	Diagnosis           string    `json:"diagnosis,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Age returns the patient's age in whole years as of now.
func (p *Patient) Age() int {
	return p.AgeAt(time.Now())
}

// AgeAt returns the patient's age in whole years as of the given time.
func (p *Patient) AgeAt(at time.Time) int {
	years := at.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Summarize creates a PatientSummary from a Patient model.
func (p *Patient) Summarize() PatientSummary {
	return PatientSummary{
		ID:                  p.ID,
		FullName:            p.FirstName + " " + p.LastName,
		DateOfBirth:         p.DateOfBirth,
		Age:                 p.Age(),
		ParentID:            p.ParentID,
		AssignedTherapistID: p.AssignedTherapistID,
		School:              p.School,
		Grade:               p.Grade,
		Diagnosis:           p.Diagnosis,
		CreatedAt:           p.CreatedAt,
	}
}
