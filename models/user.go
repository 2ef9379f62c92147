package models

import "time"

type Provider string

const (
	ProviderSteam  Provider = "steam"
	ProviderTwitch Provider = "twitch"
)

type User struct {
	ID            int       `json:"id" db:"id"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	IndexedName   string    `json:"-" db:"indexed_name"`
	AvatarURL     *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	AvatarFullURL *string   `json:"avatar_full_url,omitempty" db:"avatar_full_url"`
	Created       time.Time `json:"created" db:"created"`
	LastSeen      time.Time `json:"last_seen" db:"last_seen"`

	// NumStars counts stars received in the streamer role.
	NumStars int `json:"num_stars" db:"num_stars"`

	// URLByID is stable (provider + provider id). URLByName follows the
	// display name and is globally unique while present; the name belongs
	// to whoever logged in with it most recently.
	URLByID   string  `json:"url_by_id" db:"url_by_id"`
	URLByName *string `json:"url_by_name,omitempty" db:"url_by_name"`

	// Local account fields (optional; most users sign in via a provider).
	Email        *string `json:"email,omitempty" db:"email"`
	PasswordHash *string `json:"-" db:"password_hash"`

	AvatarKey *string `json:"-" db:"avatar_key"`

	Steam  *SteamIdentity  `json:"steam,omitempty" db:"-"`
	Twitch *TwitchIdentity `json:"twitch,omitempty" db:"-"`
}

// SteamIdentity связывает пользователя с его Steam-аккаунтом (1:1).
type SteamIdentity struct {
	UserID      int     `json:"user_id" db:"user_id"`
	SteamID     string  `json:"steam_id" db:"steam_id"`
	AccessToken *string `json:"-" db:"access_token"`
}

// TwitchIdentity связывает пользователя с его Twitch-аккаунтом (1:1).
type TwitchIdentity struct {
	UserID      int     `json:"user_id" db:"user_id"`
	TwitchID    string  `json:"twitch_id" db:"twitch_id"`
	AccessToken *string `json:"-" db:"access_token"`
}
