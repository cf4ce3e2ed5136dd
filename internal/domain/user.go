package domain

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Status       string    `json:"status"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

const DefaultUserStatus = "Hey there! I am using Gallan"

// ContactFlags carry no behavior in the core; they are stored and returned as-is.
type ContactFlags struct {
	Scholar  bool `json:"is_scholar"`
	Blocked  bool `json:"is_blocked"`
	Starred  bool `json:"is_starred"`
	Archived bool `json:"is_archived"`
	Muted    bool `json:"is_muted"`
}

type Contact struct {
	ID            int64        `json:"id"`
	OwnerUserID   int64        `json:"owner_user_id"`
	ContactUserID int64        `json:"contact_user_id"`
	DisplayName   string       `json:"display_name"`
	Flags         ContactFlags `json:"flags"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ContactView is a contact joined with the contact user's public profile.
type ContactView struct {
	Contact
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	IsOnline  bool      `json:"is_online"`
	LastSeen  time.Time `json:"last_seen"`
}
