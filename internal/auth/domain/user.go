package domain

import "time"

type User struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Provider  string `json:"provider"` // "google" when a mailbox is connected

	// Google OAuth tokens used for Gmail label sync
	AccessToken  string     `json:"-" gorm:"type:text"`
	RefreshToken string     `json:"-" gorm:"type:text"`
	TokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMailbox reports whether Gmail labels can be synced for the user
func (u *User) HasMailbox() bool {
	return u.Provider == "google" && (u.AccessToken != "" || u.RefreshToken != "")
}
