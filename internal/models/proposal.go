package models

import (
	"time"
)

// ProposalStatus represents the lifecycle state of a treatment proposal
type ProposalStatus string

const (
	ProposalDraft            ProposalStatus = "DRAFT"
	ProposalPaymentPending   ProposalStatus = "PAYMENT_PENDING"
	ProposalPaymentConfirmed ProposalStatus = "PAYMENT_CONFIRMED"
	ProposalActive           ProposalStatus = "ACTIVE"
	ProposalCompleted        ProposalStatus = "COMPLETED"
	ProposalCancelled        ProposalStatus = "CANCELLED"
)

// ProposalVariant distinguishes the two plan options offered to parents
type ProposalVariant string

const (
	VariantA ProposalVariant = "A"
	VariantB ProposalVariant = "B"
)

// PaymentStatus represents the settlement state of a single payment
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPartial   PaymentStatus = "PARTIAL"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// TreatmentProposal is a therapist-authored treatment plan with two
// cost/session variants; the parent selects one and pays before activation.
type TreatmentProposal struct {
	BaseModel
	PatientID   string `gorm:"size:36;index;not null" json:"patientId"`
	TherapistID string `gorm:"size:36;index;not null" json:"therapistId"`
	Title       string `gorm:"size:255" json:"title"`
	Notes       string `gorm:"type:text" json:"notes,omitempty"`

	TotalAmountA   float64 `json:"totalAmountA"`
	TotalSessionsA int     `json:"totalSessionsA"`
	TotalAmountB   float64 `json:"totalAmountB"`
	TotalSessionsB int     `json:"totalSessionsB"`

	SelectedProposal ProposalVariant `gorm:"size:1" json:"selectedProposal,omitempty"`
	Status           ProposalStatus  `gorm:"size:20;default:'DRAFT'" json:"status"`
	ApprovedDate     *time.Time      `json:"approvedDate,omitempty"`

	// Relations
	Services  []ProposalService `gorm:"foreignKey:ProposalID" json:"services,omitempty"`
	Payments  []Payment         `gorm:"foreignKey:ProposalID" json:"payments,omitempty"`
	Patient   Patient           `gorm:"foreignKey:PatientID" json:"-"`
	Therapist User              `gorm:"foreignKey:TherapistID" json:"-"`
}

// TotalAmount returns the amount owed for the selected variant.
// Variant A is the default until a selection is recorded.
func (p *TreatmentProposal) TotalAmount() float64 {
	if p.SelectedProposal == VariantB {
		return p.TotalAmountB
	}
	return p.TotalAmountA
}

// TotalSessions returns the session count for the selected variant.
func (p *TreatmentProposal) TotalSessions() int {
	if p.SelectedProposal == VariantB {
		return p.TotalSessionsB
	}
	return p.TotalSessionsA
}

// IsTerminal reports whether the proposal can no longer change status.
func (p *TreatmentProposal) IsTerminal() bool {
	return p.Status == ProposalCompleted || p.Status == ProposalCancelled
}

// ProposalService is a line item inside one variant of a proposal.
type ProposalService struct {
	BaseModel
	ProposalID     string          `gorm:"size:36;index;not null" json:"proposalId"`
	Variant        ProposalVariant `gorm:"size:1;not null" json:"variant"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	Sessions       int             `json:"sessions"`
	CostPerSession float64         `json:"costPerSession"`
}

// Payment is a single payment recorded against a proposal.
type Payment struct {
	BaseModel
	ProposalID      string        `gorm:"size:36;index;not null" json:"proposalId"`
	Amount          float64       `gorm:"not null" json:"amount"`
	PaymentMethod   string        `gorm:"size:50" json:"paymentMethod"`
	Status          PaymentStatus `gorm:"size:20;default:'COMPLETED'" json:"status"`
	ReferenceNumber string        `gorm:"size:100" json:"referenceNumber,omitempty"`
	Notes           string        `gorm:"size:255" json:"notes,omitempty"`
	RecordedByID    string        `gorm:"size:36" json:"recordedBy"`
}
