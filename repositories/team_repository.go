package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
)

var ErrTeamNotFound = errors.New("team not found")

const teamColumns = `t.id, t.name, t.indexed_name, t.game, t.division, t.num_stars, t.fingerprint`

type TeamRepository interface {
	// UpsertByFingerprint creates the team or, when the fingerprint already
	// exists, refreshes its names. The id of the surviving row is written
	// back into team.
	UpsertByFingerprint(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	// GetByIDForUpdate locks the team row for the duration of the
	// transaction. Star mutations take it so the calendar fan-out cannot
	// interleave with a stream count transition on the same match.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	AddStars(ctx context.Context, exec SQLExecutor, teamID, delta int) error

	All() pagination.Source[models.Team]
	StarredBy(userID int) pagination.Source[models.Team]
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) UpsertByFingerprint(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, indexed_name, game, division, fingerprint)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO UPDATE
			SET name = EXCLUDED.name, indexed_name = EXCLUDED.indexed_name
		RETURNING id, num_stars`

	err := exec.QueryRowContext(ctx, query,
		team.Name,
		team.IndexedName,
		team.Game,
		team.Division,
		team.Fingerprint,
	).Scan(&team.ID, &team.NumStars)
	if err != nil {
		return fmt.Errorf("failed to upsert team %q: %w", team.Fingerprint, err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	return scanTeam(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTeamRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1 FOR UPDATE`
	return scanTeam(exec.QueryRowContext(ctx, query, id), id)
}

func scanTeam(row *sql.Row, id int) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.IndexedName,
		&team.Game,
		&team.Division,
		&team.NumStars,
		&team.Fingerprint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by id %d: %w", id, err)
	}
	return &team, nil
}

func (r *postgresTeamRepository) AddStars(ctx context.Context, exec SQLExecutor, teamID, delta int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE teams SET num_stars = num_stars + $1 WHERE id = $2`, delta, teamID)
	if err != nil {
		return fmt.Errorf("failed to adjust team num_stars: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) All() pagination.Source[models.Team] {
	return &keysetSource[models.Team]{
		db:         r.db,
		selectCols: teamColumns,
		from:       "teams t",
		primaryCol: "t.indexed_name",
		idCol:      "t.id",
		scan:       scanTeamRow,
		key:        teamKey,
	}
}

func (r *postgresTeamRepository) StarredBy(userID int) pagination.Source[models.Team] {
	return &keysetSource[models.Team]{
		db:         r.db,
		selectCols: teamColumns,
		from:       "teams t JOIN starred_teams st ON st.team_id = t.id",
		where:      "st.user_id = $1",
		args:       []interface{}{userID},
		primaryCol: "st.indexed_name",
		idCol:      "t.id",
		scan:       scanTeamRow,
		key:        teamKey,
	}
}

func teamKey(t models.Team) pagination.Cursor {
	return pagination.Cursor{Primary: t.IndexedName, ID: t.ID}
}

func scanTeamRow(rows *sql.Rows) (models.Team, error) {
	var team models.Team
	err := rows.Scan(
		&team.ID,
		&team.Name,
		&team.IndexedName,
		&team.Game,
		&team.Division,
		&team.NumStars,
		&team.Fingerprint,
	)
	return team, err
}
