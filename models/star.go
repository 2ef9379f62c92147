package models

import "time"

// Starred* rows are one per (user, target) pair, enforced by unique
// constraints at the storage layer. Each carries a denormalized copy of the
// target's sort key so paginated "starred" listings avoid a join.

type StarredMatch struct {
	UserID  int       `json:"user_id" db:"user_id"`
	MatchID int       `json:"match_id" db:"match_id"`
	Time    time.Time `json:"time" db:"time"`
	Added   time.Time `json:"added" db:"added"`
}

type StarredTeam struct {
	UserID      int       `json:"user_id" db:"user_id"`
	TeamID      int       `json:"team_id" db:"team_id"`
	IndexedName string    `json:"-" db:"indexed_name"`
	Added       time.Time `json:"added" db:"added"`
}

type StarredStreamer struct {
	UserID      int       `json:"user_id" db:"user_id"`
	StreamerID  int       `json:"streamer_id" db:"streamer_id"`
	IndexedName string    `json:"-" db:"indexed_name"`
	Added       time.Time `json:"added" db:"added"`
}
