package models

import "time"

type Playlist struct {
	ID            int       `json:"id" db:"id"`
	UserID        int       `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	IndexedName   string    `json:"-" db:"indexed_name"`
	NumBookmarks  int       `json:"num_bookmarks" db:"num_bookmarks"`
	NumThumbsUp   int       `json:"num_thumbs_up" db:"num_thumbs_up"`
	NumThumbsDown int       `json:"num_thumbs_down" db:"num_thumbs_down"`
	Created       time.Time `json:"created" db:"created"`
}

// PlaylistBookmark links a bookmark into a playlist; (playlist_id,
// bookmark_id) is unique.
type PlaylistBookmark struct {
	PlaylistID int       `json:"playlist_id" db:"playlist_id"`
	BookmarkID int       `json:"bookmark_id" db:"bookmark_id"`
	Added      time.Time `json:"added" db:"added"`
}

// PlaylistVote holds a user's single vote on a playlist: thumb up or down,
// never both.
type PlaylistVote struct {
	UserID     int       `json:"user_id" db:"user_id"`
	PlaylistID int       `json:"playlist_id" db:"playlist_id"`
	ThumbUp    bool      `json:"thumb_up" db:"thumb_up"`
	Added      time.Time `json:"added" db:"added"`
}
