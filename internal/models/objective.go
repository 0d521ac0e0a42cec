package models

// ObjectiveStatus represents the state of a therapeutic objective
type ObjectiveStatus string

const (
	ObjectivePending    ObjectiveStatus = "PENDING"
	ObjectiveInProgress ObjectiveStatus = "IN_PROGRESS"
	ObjectiveCompleted  ObjectiveStatus = "COMPLETED"
	ObjectivePaused     ObjectiveStatus = "PAUSED"
	ObjectiveCancelled  ObjectiveStatus = "CANCELLED"
)

// PatientObjective is a tracked therapeutic goal for a patient.
// Its status is derived from the most recently written progress entry.
type PatientObjective struct {
	BaseModel
	PatientID   string          `gorm:"size:36;index;not null" json:"patientId"`
	TherapistID string          `gorm:"size:36;index;not null" json:"therapistId"`
	ProposalID  *string         `gorm:"size:36;index" json:"proposalId,omitempty"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Status      ObjectiveStatus `gorm:"size:20;default:'PENDING'" json:"status"`

	// Relations
	Progress  []ObjectiveProgress `gorm:"foreignKey:ObjectiveID" json:"progress,omitempty"`
	Patient   Patient             `gorm:"foreignKey:PatientID" json:"-"`
	Therapist User                `gorm:"foreignKey:TherapistID" json:"-"`
}

// ObjectiveProgress is one percentage measurement tied to a completed
// session. At most one entry exists per objective per appointment.
type ObjectiveProgress struct {
	BaseModel
	ObjectiveID   string `gorm:"size:36;not null;uniqueIndex:idx_objective_appointment" json:"objectiveId"`
	AppointmentID string `gorm:"size:36;not null;uniqueIndex:idx_objective_appointment" json:"appointmentId"`
	Percentage    int    `gorm:"not null" json:"percentage"`
	Comment       string `gorm:"type:text" json:"comment,omitempty"`
	RecordedByID  string `gorm:"size:36" json:"recordedBy"`

	// Relations
	Objective   PatientObjective `gorm:"foreignKey:ObjectiveID" json:"-"`
	Appointment Appointment      `gorm:"foreignKey:AppointmentID" json:"-"`
}

// ObjectiveStatusFor derives the objective status from a progress percentage.
func ObjectiveStatusFor(percentage int) ObjectiveStatus {
	switch {
	case percentage >= 100:
		return ObjectiveCompleted
	case percentage > 0:
		return ObjectiveInProgress
	default:
		return ObjectivePending
	}
}
