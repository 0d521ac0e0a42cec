package models

import (
	"time"
)

// RefreshToken is a rotating session credential for a clinic account.
// Rows are revoked on logout and on every rotation, so a replayed
// token can be detected against the stored state.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// IsUsable reports whether the token can still mint a new access token.
func (r *RefreshToken) IsUsable(now time.Time) bool {
	return !r.IsRevoked && r.ExpiresAt.After(now)
}
