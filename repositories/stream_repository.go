package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
)

type StreamRepository interface {
	Add(ctx context.Context, exec SQLExecutor, stream *models.StreamedMatch) (inserted bool, err error)
	Remove(ctx context.Context, exec SQLExecutor, streamerID, matchID int) (deleted bool, err error)
	// ListByMatch returns every current stream of the match with the
	// streaming user attached, ordered by when streaming began.
	ListByMatch(ctx context.Context, matchID int) ([]*models.StreamedMatch, error)

	ByStreamer(streamerID int) pagination.Source[models.StreamedMatch]
}

type postgresStreamRepository struct {
	db *sql.DB
}

func NewPostgresStreamRepository(db *sql.DB) StreamRepository {
	return &postgresStreamRepository{db: db}
}

func (r *postgresStreamRepository) Add(ctx context.Context, exec SQLExecutor, stream *models.StreamedMatch) (bool, error) {
	query := `
		INSERT INTO streamed_matches (streamer_id, match_id, time, added, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (streamer_id, match_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query,
		stream.StreamerID, stream.MatchID, stream.Time, stream.Added, stream.Comment)
	if err != nil {
		return false, fmt.Errorf("failed to add stream: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStreamRepository) Remove(ctx context.Context, exec SQLExecutor, streamerID, matchID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM streamed_matches WHERE streamer_id = $1 AND match_id = $2`, streamerID, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to remove stream: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresStreamRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.StreamedMatch, error) {
	query := `
		SELECT s.streamer_id, s.match_id, s.time, s.added, s.comment,
		       ` + userColumns + `
		FROM streamed_matches s
		JOIN users u ON u.id = s.streamer_id
		WHERE s.match_id = $1
		ORDER BY s.added, s.streamer_id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var streams []*models.StreamedMatch
	for rows.Next() {
		stream := &models.StreamedMatch{}
		var streamer models.User
		err := rows.Scan(
			&stream.StreamerID,
			&stream.MatchID,
			&stream.Time,
			&stream.Added,
			&stream.Comment,
			&streamer.ID,
			&streamer.DisplayName,
			&streamer.IndexedName,
			&streamer.AvatarURL,
			&streamer.AvatarFullURL,
			&streamer.Created,
			&streamer.LastSeen,
			&streamer.NumStars,
			&streamer.URLByID,
			&streamer.URLByName,
			&streamer.Email,
			&streamer.PasswordHash,
			&streamer.AvatarKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream row: %w", err)
		}
		stream.Streamer = &streamer
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream rows: %w", err)
	}
	return streams, nil
}

func (r *postgresStreamRepository) ByStreamer(streamerID int) pagination.Source[models.StreamedMatch] {
	return &keysetSource[models.StreamedMatch]{
		db:          r.db,
		selectCols:  "s.streamer_id, s.match_id, s.time, s.added, s.comment",
		from:        "streamed_matches s",
		where:       "s.streamer_id = $1",
		args:        []interface{}{streamerID},
		primaryCol:  "s.time",
		primaryCast: "::timestamptz",
		idCol:       "s.match_id",
		scan: func(rows *sql.Rows) (models.StreamedMatch, error) {
			var s models.StreamedMatch
			err := rows.Scan(&s.StreamerID, &s.MatchID, &s.Time, &s.Added, &s.Comment)
			return s, err
		},
		key: func(s models.StreamedMatch) pagination.Cursor {
			return pagination.Cursor{Primary: s.Time.UTC().Format(time.RFC3339Nano), ID: s.MatchID}
		},
	}
}
