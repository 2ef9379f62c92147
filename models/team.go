package models

type Team struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	IndexedName string `json:"-" db:"indexed_name"`
	Game        string `json:"game" db:"game"`
	Division    string `json:"division" db:"division"`
	NumStars    int    `json:"num_stars" db:"num_stars"`

	// Fingerprint is the external dedup key, e.g. "esea:51134".
	// Same fingerprint always resolves to the same row.
	Fingerprint string `json:"-" db:"fingerprint"`
}
