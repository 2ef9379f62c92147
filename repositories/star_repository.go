package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/stream-follow/models"
)

// StarRepository manages the three star relation tables. Add methods are
// insert-ignore: a duplicate (user, target) pair affects nothing and returns
// inserted=false, which the service layer uses to skip the counter update.
// Remove methods report deleted=false for a relation that never existed.
type StarRepository interface {
	AddMatchStar(ctx context.Context, exec SQLExecutor, star *models.StarredMatch) (inserted bool, err error)
	RemoveMatchStar(ctx context.Context, exec SQLExecutor, userID, matchID int) (deleted bool, err error)
	HasMatchStar(ctx context.Context, userID, matchID int) (bool, error)

	AddTeamStar(ctx context.Context, exec SQLExecutor, star *models.StarredTeam) (inserted bool, err error)
	RemoveTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) (deleted bool, err error)
	HasTeamStar(ctx context.Context, userID, teamID int) (bool, error)

	AddStreamerStar(ctx context.Context, exec SQLExecutor, star *models.StarredStreamer) (inserted bool, err error)
	RemoveStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) (deleted bool, err error)
	HasStreamerStar(ctx context.Context, userID, streamerID int) (bool, error)
}

type postgresStarRepository struct {
	db *sql.DB
}

func NewPostgresStarRepository(db *sql.DB) StarRepository {
	return &postgresStarRepository{db: db}
}

func (r *postgresStarRepository) AddMatchStar(ctx context.Context, exec SQLExecutor, star *models.StarredMatch) (bool, error) {
	query := `
		INSERT INTO starred_matches (user_id, match_id, time, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, match_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, star.UserID, star.MatchID, star.Time, star.Added)
	if err != nil {
		return false, fmt.Errorf("failed to add match star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) RemoveMatchStar(ctx context.Context, exec SQLExecutor, userID, matchID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM starred_matches WHERE user_id = $1 AND match_id = $2`, userID, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to remove match star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) HasMatchStar(ctx context.Context, userID, matchID int) (bool, error) {
	return r.has(ctx, `SELECT EXISTS (SELECT 1 FROM starred_matches WHERE user_id = $1 AND match_id = $2)`, userID, matchID)
}

func (r *postgresStarRepository) AddTeamStar(ctx context.Context, exec SQLExecutor, star *models.StarredTeam) (bool, error) {
	query := `
		INSERT INTO starred_teams (user_id, team_id, indexed_name, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, team_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, star.UserID, star.TeamID, star.IndexedName, star.Added)
	if err != nil {
		return false, fmt.Errorf("failed to add team star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) RemoveTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM starred_teams WHERE user_id = $1 AND team_id = $2`, userID, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to remove team star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) HasTeamStar(ctx context.Context, userID, teamID int) (bool, error) {
	return r.has(ctx, `SELECT EXISTS (SELECT 1 FROM starred_teams WHERE user_id = $1 AND team_id = $2)`, userID, teamID)
}

func (r *postgresStarRepository) AddStreamerStar(ctx context.Context, exec SQLExecutor, star *models.StarredStreamer) (bool, error) {
	query := `
		INSERT INTO starred_streamers (user_id, streamer_id, indexed_name, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, streamer_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, star.UserID, star.StreamerID, star.IndexedName, star.Added)
	if err != nil {
		return false, fmt.Errorf("failed to add streamer star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) RemoveStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM starred_streamers WHERE user_id = $1 AND streamer_id = $2`, userID, streamerID)
	if err != nil {
		return false, fmt.Errorf("failed to remove streamer star: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStarRepository) HasStreamerStar(ctx context.Context, userID, streamerID int) (bool, error) {
	return r.has(ctx, `SELECT EXISTS (SELECT 1 FROM starred_streamers WHERE user_id = $1 AND streamer_id = $2)`, userID, streamerID)
}

func (r *postgresStarRepository) has(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check star existence: %w", err)
	}
	return exists, nil
}
