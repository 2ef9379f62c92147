package models

import "time"

// CalendarEntry is a derived row: match M is on user U's personal calendar.
// It exists iff the match is currently streamed and NumUserStars > 0.
// NumUserStars is the multiplicity of independent interest paths from U to M
// (direct match star, star on either team, star on each streaming user).
// Entries are maintained exclusively by the calendar fan-out; no caller
// creates or deletes them directly.
type CalendarEntry struct {
	UserID       int       `json:"user_id" db:"user_id"`
	MatchID      int       `json:"match_id" db:"match_id"`
	Time         time.Time `json:"time" db:"time"`
	NumUserStars int       `json:"num_user_stars" db:"num_user_stars"`

	Match *Match `json:"match,omitempty" db:"-"`
}
