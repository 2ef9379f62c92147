package models

import "time"

type Match struct {
	ID         int       `json:"id" db:"id"`
	Team1ID    int       `json:"team1_id" db:"team1_id"`
	Team2ID    int       `json:"team2_id" db:"team2_id"`
	Time       time.Time `json:"time" db:"time"`
	Game       string    `json:"game" db:"game"`
	Division   string    `json:"division" db:"division"`
	NumStars   int       `json:"num_stars" db:"num_stars"`
	NumStreams int       `json:"num_streams" db:"num_streams"`
	IsStreamed bool      `json:"is_streamed" db:"is_streamed"`

	Fingerprint string `json:"-" db:"fingerprint"`

	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}

// MatchOpponent — денормализованная строка "команда в матче" (две на матч),
// чтобы выборка матчей команды обходилась без self-join по teams.
// IsStreamed обязан совпадать с Match.IsStreamed.
type MatchOpponent struct {
	MatchID    int       `json:"match_id" db:"match_id"`
	TeamID     int       `json:"team_id" db:"team_id"`
	Time       time.Time `json:"time" db:"time"`
	IsStreamed bool      `json:"is_streamed" db:"is_streamed"`
}
