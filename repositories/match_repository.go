package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
)

var ErrMatchNotFound = errors.New("match not found")

const matchColumns = `m.id, m.team1_id, m.team2_id, m.time, m.game, m.division,
		m.num_stars, m.num_streams, m.is_streamed, m.fingerprint`

type MatchRepository interface {
	// CreateWithFingerprint inserts the match and its two match_opponents
	// rows. A second call with the same fingerprint resolves to the
	// existing row and mutates nothing; created reports which case ran.
	CreateWithFingerprint(ctx context.Context, exec SQLExecutor, match *models.Match) (created bool, err error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	AddStars(ctx context.Context, exec SQLExecutor, matchID, delta int) error

	// IncrementStreams/DecrementStreams run an atomic counter update and
	// return the counter's new value so the caller can detect the 0→1 and
	// 1→0 transitions.
	IncrementStreams(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	DecrementStreams(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	// SetStreamed flips is_streamed on the match and both of its
	// match_opponents rows, keeping the denormalized copies in sync.
	SetStreamed(ctx context.Context, exec SQLExecutor, matchID int, streamed bool) error

	All() pagination.Source[models.Match]
	StarredBy(userID int) pagination.Source[models.Match]
	ByTeam(teamID int) pagination.Source[models.Match]
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) CreateWithFingerprint(ctx context.Context, exec SQLExecutor, match *models.Match) (bool, error) {
	insert := `
		INSERT INTO matches (team1_id, team2_id, time, game, division, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id`

	err := exec.QueryRowContext(ctx, insert,
		match.Team1ID,
		match.Team2ID,
		match.Time,
		match.Game,
		match.Division,
		match.Fingerprint,
	).Scan(&match.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// Fingerprint already known; resolve to the existing row.
		lookup := `SELECT id, num_stars, num_streams, is_streamed FROM matches WHERE fingerprint = $1`
		err = exec.QueryRowContext(ctx, lookup, match.Fingerprint).
			Scan(&match.ID, &match.NumStars, &match.NumStreams, &match.IsStreamed)
		if err != nil {
			return false, fmt.Errorf("failed to resolve match fingerprint %q: %w", match.Fingerprint, err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create match %q: %w", match.Fingerprint, err)
	}

	opponents := `
		INSERT INTO match_opponents (match_id, team_id, time, is_streamed)
		VALUES ($1, $2, $3, FALSE), ($1, $4, $3, FALSE)`
	if _, err := exec.ExecContext(ctx, opponents, match.ID, match.Team1ID, match.Time, match.Team2ID); err != nil {
		return false, fmt.Errorf("failed to create match opponents for match %d: %w", match.ID, err)
	}
	return true, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1 FOR UPDATE`
	return scanMatch(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresMatchRepository) AddStars(ctx context.Context, exec SQLExecutor, matchID, delta int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET num_stars = num_stars + $1 WHERE id = $2`, delta, matchID)
	if err != nil {
		return fmt.Errorf("failed to adjust match num_stars: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) IncrementStreams(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	return r.adjustStreams(ctx, exec, matchID, 1)
}

func (r *postgresMatchRepository) DecrementStreams(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	return r.adjustStreams(ctx, exec, matchID, -1)
}

func (r *postgresMatchRepository) adjustStreams(ctx context.Context, exec SQLExecutor, matchID, delta int) (int, error) {
	query := `UPDATE matches SET num_streams = num_streams + $1 WHERE id = $2 RETURNING num_streams`

	var numStreams int
	err := exec.QueryRowContext(ctx, query, delta, matchID).Scan(&numStreams)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMatchNotFound
		}
		return 0, fmt.Errorf("failed to adjust match num_streams: %w", err)
	}
	return numStreams, nil
}

func (r *postgresMatchRepository) SetStreamed(ctx context.Context, exec SQLExecutor, matchID int, streamed bool) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET is_streamed = $1 WHERE id = $2`, streamed, matchID)
	if err != nil {
		return fmt.Errorf("failed to update match is_streamed: %w", err)
	}
	if err := checkAffectedRows(result, ErrMatchNotFound); err != nil {
		return err
	}

	if _, err := exec.ExecContext(ctx,
		`UPDATE match_opponents SET is_streamed = $1 WHERE match_id = $2`, streamed, matchID); err != nil {
		return fmt.Errorf("failed to update match_opponents is_streamed: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) All() pagination.Source[models.Match] {
	return &keysetSource[models.Match]{
		db:          r.db,
		selectCols:  matchColumns,
		from:        "matches m",
		primaryCol:  "m.time",
		primaryCast: "::timestamptz",
		idCol:       "m.id",
		scan:        scanMatchRow,
		key:         matchKey,
	}
}

func (r *postgresMatchRepository) StarredBy(userID int) pagination.Source[models.Match] {
	return &keysetSource[models.Match]{
		db:          r.db,
		selectCols:  matchColumns,
		from:        "matches m JOIN starred_matches sm ON sm.match_id = m.id",
		where:       "sm.user_id = $1",
		args:        []interface{}{userID},
		primaryCol:  "sm.time",
		primaryCast: "::timestamptz",
		idCol:       "m.id",
		scan:        scanMatchRow,
		key:         matchKey,
	}
}

// ByTeam reads through match_opponents, so a team's schedule needs no
// self-join on matches.
func (r *postgresMatchRepository) ByTeam(teamID int) pagination.Source[models.Match] {
	return &keysetSource[models.Match]{
		db:          r.db,
		selectCols:  matchColumns,
		from:        "matches m JOIN match_opponents mo ON mo.match_id = m.id",
		where:       "mo.team_id = $1",
		args:        []interface{}{teamID},
		primaryCol:  "mo.time",
		primaryCast: "::timestamptz",
		idCol:       "m.id",
		scan:        scanMatchRow,
		key:         matchKey,
	}
}

func matchKey(m models.Match) pagination.Cursor {
	return pagination.Cursor{Primary: m.Time.UTC().Format(time.RFC3339Nano), ID: m.ID}
}

func scanMatch(row *sql.Row, id int) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.Team1ID,
		&match.Team2ID,
		&match.Time,
		&match.Game,
		&match.Division,
		&match.NumStars,
		&match.NumStreams,
		&match.IsStreamed,
		&match.Fingerprint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func scanMatchRow(rows *sql.Rows) (models.Match, error) {
	var match models.Match
	err := rows.Scan(
		&match.ID,
		&match.Team1ID,
		&match.Team2ID,
		&match.Time,
		&match.Game,
		&match.Division,
		&match.NumStars,
		&match.NumStreams,
		&match.IsStreamed,
		&match.Fingerprint,
	)
	return match, err
}
