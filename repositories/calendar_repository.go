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

// ErrCalendarEntryMissing means a decrement targeted a row that does not
// exist. Correct sequencing never produces this; it marks a maintainer bug
// and the caller must abort the transaction instead of absorbing it.
var ErrCalendarEntryMissing = errors.New("calendar entry missing for decrement")

// CalendarRepository holds the set-based statements behind the calendar
// fan-out. Every mutation uses ON CONFLICT arithmetic or UPDATE ... FROM
// against related tables; nothing is read into Go and written back, so
// concurrent transactions on the same match cannot lose increments.
//
// Entry rows are owned entirely by this fan-out: they exist only while the
// match is streamed and num_user_stars is positive.
type CalendarRepository interface {
	// FanOutMatchStars credits every user who starred the match directly.
	FanOutMatchStars(ctx context.Context, exec SQLExecutor, matchID int, matchTime time.Time) error
	// FanOutTeamStars credits users who starred either team; a user who
	// starred both gets +2 via the grouped count.
	FanOutTeamStars(ctx context.Context, exec SQLExecutor, matchID, team1ID, team2ID int, matchTime time.Time) error
	// FanOutStreamerStars credits users who starred one particular streamer.
	FanOutStreamerStars(ctx context.Context, exec SQLExecutor, matchID, streamerID int, matchTime time.Time) error
	// WithdrawStreamerStars undoes FanOutStreamerStars when that streamer
	// stops streaming the match (and other streams remain).
	WithdrawStreamerStars(ctx context.Context, exec SQLExecutor, matchID, streamerID int) error
	// DeleteAllForMatch wipes the match off every calendar. Used when the
	// last stream ends; remaining multiplicity is irrelevant at that point.
	DeleteAllForMatch(ctx context.Context, exec SQLExecutor, matchID int) error

	// Single-user variants, used when a star is added or removed while the
	// related match(es) are already streamed.
	IncrementOne(ctx context.Context, exec SQLExecutor, userID, matchID int, matchTime time.Time) error
	DecrementOne(ctx context.Context, exec SQLExecutor, userID, matchID int) error
	IncrementForTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) error
	DecrementForTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) error
	IncrementForStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) error
	DecrementForStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) error

	ForUser(userID int) pagination.Source[models.CalendarEntry]
}

type postgresCalendarRepository struct {
	db *sql.DB
}

func NewPostgresCalendarRepository(db *sql.DB) CalendarRepository {
	return &postgresCalendarRepository{db: db}
}

const calendarUpsertSuffix = `
		ON CONFLICT (user_id, match_id)
		DO UPDATE SET num_user_stars = calendar_entries.num_user_stars + EXCLUDED.num_user_stars`

func (r *postgresCalendarRepository) FanOutMatchStars(ctx context.Context, exec SQLExecutor, matchID int, matchTime time.Time) error {
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		SELECT sm.user_id, $1, $2, 1
		FROM starred_matches sm
		WHERE sm.match_id = $1` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, matchID, matchTime); err != nil {
		return fmt.Errorf("failed to fan out match stars for match %d: %w", matchID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) FanOutTeamStars(ctx context.Context, exec SQLExecutor, matchID, team1ID, team2ID int, matchTime time.Time) error {
	// Grouping collapses a both-teams starrer into a single +2 row, so the
	// upsert never touches the same entry twice in one statement.
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		SELECT st.user_id, $1, $2, COUNT(*)
		FROM starred_teams st
		WHERE st.team_id IN ($3, $4)
		GROUP BY st.user_id` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, matchID, matchTime, team1ID, team2ID); err != nil {
		return fmt.Errorf("failed to fan out team stars for match %d: %w", matchID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) FanOutStreamerStars(ctx context.Context, exec SQLExecutor, matchID, streamerID int, matchTime time.Time) error {
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		SELECT ss.user_id, $1, $2, 1
		FROM starred_streamers ss
		WHERE ss.streamer_id = $3` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, matchID, matchTime, streamerID); err != nil {
		return fmt.Errorf("failed to fan out streamer stars for match %d: %w", matchID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) WithdrawStreamerStars(ctx context.Context, exec SQLExecutor, matchID, streamerID int) error {
	update := `
		UPDATE calendar_entries ce
		SET num_user_stars = ce.num_user_stars - 1
		FROM starred_streamers ss
		WHERE ss.streamer_id = $2 AND ss.user_id = ce.user_id AND ce.match_id = $1`

	result, err := exec.ExecContext(ctx, update, matchID, streamerID)
	if err != nil {
		return fmt.Errorf("failed to withdraw streamer stars for match %d: %w", matchID, err)
	}
	updated, err := affectedRows(result)
	if err != nil {
		return err
	}

	var expected int64
	err = exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM starred_streamers WHERE streamer_id = $1`, streamerID).Scan(&expected)
	if err != nil {
		return fmt.Errorf("failed to count streamer stars: %w", err)
	}
	if updated != expected {
		return fmt.Errorf("%w: match %d streamer %d: updated %d of %d",
			ErrCalendarEntryMissing, matchID, streamerID, updated, expected)
	}

	return r.sweepZeroRows(ctx, exec, `match_id = $1`, matchID)
}

func (r *postgresCalendarRepository) DeleteAllForMatch(ctx context.Context, exec SQLExecutor, matchID int) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM calendar_entries WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete calendar entries for match %d: %w", matchID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) IncrementOne(ctx context.Context, exec SQLExecutor, userID, matchID int, matchTime time.Time) error {
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		VALUES ($1, $2, $3, 1)` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, userID, matchID, matchTime); err != nil {
		return fmt.Errorf("failed to increment calendar entry (%d, %d): %w", userID, matchID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) DecrementOne(ctx context.Context, exec SQLExecutor, userID, matchID int) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE calendar_entries
		SET num_user_stars = num_user_stars - 1
		WHERE user_id = $1 AND match_id = $2`, userID, matchID)
	if err != nil {
		return fmt.Errorf("failed to decrement calendar entry (%d, %d): %w", userID, matchID, err)
	}
	updated, err := affectedRows(result)
	if err != nil {
		return err
	}
	if updated == 0 {
		return fmt.Errorf("%w: user %d match %d", ErrCalendarEntryMissing, userID, matchID)
	}
	return r.sweepZeroRows(ctx, exec, `user_id = $1 AND match_id = $2`, userID, matchID)
}

func (r *postgresCalendarRepository) IncrementForTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) error {
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		SELECT $1, mo.match_id, mo.time, 1
		FROM match_opponents mo
		WHERE mo.team_id = $2 AND mo.is_streamed` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, userID, teamID); err != nil {
		return fmt.Errorf("failed to increment calendar entries for team %d star: %w", teamID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) DecrementForTeamStar(ctx context.Context, exec SQLExecutor, userID, teamID int) error {
	update := `
		UPDATE calendar_entries ce
		SET num_user_stars = ce.num_user_stars - 1
		FROM match_opponents mo
		WHERE mo.team_id = $2 AND mo.is_streamed AND ce.match_id = mo.match_id AND ce.user_id = $1`

	expectedQuery := `SELECT COUNT(*) FROM match_opponents WHERE team_id = $1 AND is_streamed`
	return r.decrementAgainstExpected(ctx, exec, update, expectedQuery, userID, teamID)
}

func (r *postgresCalendarRepository) IncrementForStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) error {
	// Every streamed_matches row refers to a currently streamed match, so
	// no is_streamed filter is needed here.
	query := `
		INSERT INTO calendar_entries (user_id, match_id, time, num_user_stars)
		SELECT $1, s.match_id, s.time, 1
		FROM streamed_matches s
		WHERE s.streamer_id = $2` + calendarUpsertSuffix

	if _, err := exec.ExecContext(ctx, query, userID, streamerID); err != nil {
		return fmt.Errorf("failed to increment calendar entries for streamer %d star: %w", streamerID, err)
	}
	return nil
}

func (r *postgresCalendarRepository) DecrementForStreamerStar(ctx context.Context, exec SQLExecutor, userID, streamerID int) error {
	update := `
		UPDATE calendar_entries ce
		SET num_user_stars = ce.num_user_stars - 1
		FROM streamed_matches s
		WHERE s.streamer_id = $2 AND ce.match_id = s.match_id AND ce.user_id = $1`

	expectedQuery := `SELECT COUNT(*) FROM streamed_matches WHERE streamer_id = $1`
	return r.decrementAgainstExpected(ctx, exec, update, expectedQuery, userID, streamerID)
}

func (r *postgresCalendarRepository) decrementAgainstExpected(ctx context.Context, exec SQLExecutor, update, expectedQuery string, userID, targetID int) error {
	result, err := exec.ExecContext(ctx, update, userID, targetID)
	if err != nil {
		return fmt.Errorf("failed to decrement calendar entries: %w", err)
	}
	updated, err := affectedRows(result)
	if err != nil {
		return err
	}

	var expected int64
	if err := exec.QueryRowContext(ctx, expectedQuery, targetID).Scan(&expected); err != nil {
		return fmt.Errorf("failed to count expected calendar decrements: %w", err)
	}
	if updated != expected {
		return fmt.Errorf("%w: user %d target %d: updated %d of %d",
			ErrCalendarEntryMissing, userID, targetID, updated, expected)
	}

	return r.sweepZeroRows(ctx, exec, `user_id = $1`, userID)
}

// sweepZeroRows removes entries whose multiplicity dropped to zero; a
// calendar entry exists iff num_user_stars > 0.
func (r *postgresCalendarRepository) sweepZeroRows(ctx context.Context, exec SQLExecutor, where string, args ...interface{}) error {
	query := `DELETE FROM calendar_entries WHERE num_user_stars <= 0 AND ` + where
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to sweep empty calendar entries: %w", err)
	}
	return nil
}

func (r *postgresCalendarRepository) ForUser(userID int) pagination.Source[models.CalendarEntry] {
	return &keysetSource[models.CalendarEntry]{
		db: r.db,
		selectCols: `ce.user_id, ce.match_id, ce.time, ce.num_user_stars,
		` + matchColumns,
		from:        "calendar_entries ce JOIN matches m ON m.id = ce.match_id",
		where:       "ce.user_id = $1",
		args:        []interface{}{userID},
		primaryCol:  "ce.time",
		primaryCast: "::timestamptz",
		idCol:       "ce.match_id",
		scan: func(rows *sql.Rows) (models.CalendarEntry, error) {
			var entry models.CalendarEntry
			var match models.Match
			err := rows.Scan(
				&entry.UserID,
				&entry.MatchID,
				&entry.Time,
				&entry.NumUserStars,
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
				return entry, err
			}
			entry.Match = &match
			return entry, nil
		},
		key: func(entry models.CalendarEntry) pagination.Cursor {
			return pagination.Cursor{Primary: entry.Time.UTC().Format(time.RFC3339Nano), ID: entry.MatchID}
		},
	}
}
