package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleTherapist Role = "THERAPIST"
	RoleParent    Role = "PARENT"
)

// User represents a staff member or parent account in the system
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password     string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName    string `gorm:"size:100" json:"firstName"`
	LastName     string `gorm:"size:100" json:"lastName"`
	Role         Role   `gorm:"size:20;default:'PARENT'" json:"role"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Specialty    string `gorm:"size:100" json:"specialty,omitempty"` // therapists only
	ProfileImage string `json:"profileImage,omitempty"`
	IsActive     bool   `gorm:"default:true" json:"isActive"`

	// Relations (not always preloaded)
	RefreshTokens         []RefreshToken     `gorm:"foreignKey:UserID" json:"-"`
	TherapistAppointments []Appointment      `gorm:"foreignKey:TherapistID" json:"-"`
	Children              []Patient          `gorm:"foreignKey:ParentID" json:"-"`
	AssignedPatients      []Patient          `gorm:"foreignKey:AssignedTherapistID" json:"-"`
	Objectives            []PatientObjective `gorm:"foreignKey:TherapistID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Specialty    string    `json:"specialty,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     u.FirstName + " " + u.LastName,
		Role:         u.Role,
		PhoneNumber:  u.PhoneNumber,
		Specialty:    u.Specialty,
		ProfileImage: u.ProfileImage,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
