package models

import "time"

// StreamedMatch records that a user streams a match. Several streamers may
// stream the same match; (streamer_id, match_id) is unique.
type StreamedMatch struct {
	StreamerID int       `json:"streamer_id" db:"streamer_id"`
	MatchID    int       `json:"match_id" db:"match_id"`
	Time       time.Time `json:"time" db:"time"`
	Added      time.Time `json:"added" db:"added"`
	Comment    *string   `json:"comment,omitempty" db:"comment"`

	Streamer *User `json:"streamer,omitempty" db:"-"`
}
