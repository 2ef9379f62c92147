package models

import "time"

type Video struct {
	ID    int    `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	URL   string `json:"url" db:"url"`

	// ExternalID dedups the same video added twice, e.g. "youtube:dQw4w9WgXcQ".
	ExternalID string `json:"-" db:"external_id"`
}

// Bookmark is a user-owned pointer into a video, optionally at an offset.
type Bookmark struct {
	ID            int       `json:"id" db:"id"`
	UserID        int       `json:"user_id" db:"user_id"`
	VideoID       int       `json:"video_id" db:"video_id"`
	Title         string    `json:"title" db:"title"`
	Comment       *string   `json:"comment,omitempty" db:"comment"`
	StartSeconds  int       `json:"start_seconds" db:"start_seconds"`
	NumThumbsUp   int       `json:"num_thumbs_up" db:"num_thumbs_up"`
	NumThumbsDown int       `json:"num_thumbs_down" db:"num_thumbs_down"`
	Added         time.Time `json:"added" db:"added"`

	Video *Video `json:"video,omitempty" db:"-"`
}

type BookmarkVote struct {
	UserID     int       `json:"user_id" db:"user_id"`
	BookmarkID int       `json:"bookmark_id" db:"bookmark_id"`
	ThumbUp    bool      `json:"thumb_up" db:"thumb_up"`
	Added      time.Time `json:"added" db:"added"`
}
