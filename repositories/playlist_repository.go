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

var ErrPlaylistNotFound = errors.New("playlist not found")

const playlistColumns = `p.id, p.user_id, p.name, p.indexed_name, p.num_bookmarks,
		p.num_thumbs_up, p.num_thumbs_down, p.created`

type PlaylistRepository interface {
	Create(ctx context.Context, playlist *models.Playlist) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Playlist, error)

	AddBookmarkLink(ctx context.Context, exec SQLExecutor, link *models.PlaylistBookmark) (inserted bool, err error)
	RemoveBookmarkLink(ctx context.Context, exec SQLExecutor, playlistID, bookmarkID int) (deleted bool, err error)
	AddBookmarks(ctx context.Context, exec SQLExecutor, playlistID, delta int) error

	// GetVoteForUpdate reads the user's current vote and locks the row for
	// the rest of the transaction. nil means no vote. GetVote is the
	// lock-free variant for read paths.
	GetVoteForUpdate(ctx context.Context, exec SQLExecutor, userID, playlistID int) (*bool, error)
	GetVote(ctx context.Context, exec SQLExecutor, userID, playlistID int) (*bool, error)
	// InsertVote is insert-ignore: a concurrent duplicate first vote loses
	// the race silently (inserted=false) so the caller can skip the
	// counter bump.
	InsertVote(ctx context.Context, exec SQLExecutor, vote *models.PlaylistVote) (inserted bool, err error)
	UpdateVote(ctx context.Context, exec SQLExecutor, userID, playlistID int, thumbUp bool) error
	DeleteVote(ctx context.Context, exec SQLExecutor, userID, playlistID int) (deleted bool, err error)
	AddThumbs(ctx context.Context, exec SQLExecutor, playlistID, upDelta, downDelta int) error

	All() pagination.Source[models.Playlist]
	BookmarksOf(playlistID int) pagination.Source[models.Bookmark]
}

type postgresPlaylistRepository struct {
	db *sql.DB
}

func NewPostgresPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &postgresPlaylistRepository{db: db}
}

func (r *postgresPlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	query := `
		INSERT INTO playlists (user_id, name, indexed_name, created)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		playlist.UserID,
		playlist.Name,
		playlist.IndexedName,
		playlist.Created,
	).Scan(&playlist.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (r *postgresPlaylistRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists p WHERE p.id = $1`

	var playlist models.Playlist
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&playlist.ID,
		&playlist.UserID,
		&playlist.Name,
		&playlist.IndexedName,
		&playlist.NumBookmarks,
		&playlist.NumThumbsUp,
		&playlist.NumThumbsDown,
		&playlist.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to scan playlist by id %d: %w", id, err)
	}
	return &playlist, nil
}

func (r *postgresPlaylistRepository) AddBookmarkLink(ctx context.Context, exec SQLExecutor, link *models.PlaylistBookmark) (bool, error) {
	query := `
		INSERT INTO playlist_bookmarks (playlist_id, bookmark_id, added)
		VALUES ($1, $2, $3)
		ON CONFLICT (playlist_id, bookmark_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, link.PlaylistID, link.BookmarkID, link.Added)
	if err != nil {
		return false, fmt.Errorf("failed to link bookmark to playlist: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresPlaylistRepository) RemoveBookmarkLink(ctx context.Context, exec SQLExecutor, playlistID, bookmarkID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM playlist_bookmarks WHERE playlist_id = $1 AND bookmark_id = $2`, playlistID, bookmarkID)
	if err != nil {
		return false, fmt.Errorf("failed to unlink bookmark from playlist: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresPlaylistRepository) AddBookmarks(ctx context.Context, exec SQLExecutor, playlistID, delta int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE playlists SET num_bookmarks = num_bookmarks + $1 WHERE id = $2`, delta, playlistID)
	if err != nil {
		return fmt.Errorf("failed to adjust playlist num_bookmarks: %w", err)
	}
	return checkAffectedRows(result, ErrPlaylistNotFound)
}

func (r *postgresPlaylistRepository) GetVoteForUpdate(ctx context.Context, exec SQLExecutor, userID, playlistID int) (*bool, error) {
	var thumbUp bool
	err := exec.QueryRowContext(ctx,
		`SELECT thumb_up FROM playlist_votes WHERE user_id = $1 AND playlist_id = $2 FOR UPDATE`,
		userID, playlistID).Scan(&thumbUp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist vote: %w", err)
	}
	return &thumbUp, nil
}

func (r *postgresPlaylistRepository) GetVote(ctx context.Context, exec SQLExecutor, userID, playlistID int) (*bool, error) {
	var thumbUp bool
	err := exec.QueryRowContext(ctx,
		`SELECT thumb_up FROM playlist_votes WHERE user_id = $1 AND playlist_id = $2`,
		userID, playlistID).Scan(&thumbUp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist vote: %w", err)
	}
	return &thumbUp, nil
}

func (r *postgresPlaylistRepository) InsertVote(ctx context.Context, exec SQLExecutor, vote *models.PlaylistVote) (bool, error) {
	query := `
		INSERT INTO playlist_votes (user_id, playlist_id, thumb_up, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, playlist_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, vote.UserID, vote.PlaylistID, vote.ThumbUp, vote.Added)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrPlaylistNotFound
		}
		return false, fmt.Errorf("failed to insert playlist vote: %w", err)
	}
	rowsAffected, err := affectedRows(result)
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *postgresPlaylistRepository) UpdateVote(ctx context.Context, exec SQLExecutor, userID, playlistID int, thumbUp bool) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE playlist_votes SET thumb_up = $1 WHERE user_id = $2 AND playlist_id = $3`,
		thumbUp, userID, playlistID)
	if err != nil {
		return fmt.Errorf("failed to update playlist vote: %w", err)
	}
	return checkAffectedRows(result, ErrPlaylistNotFound)
}

func (r *postgresPlaylistRepository) DeleteVote(ctx context.Context, exec SQLExecutor, userID, playlistID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM playlist_votes WHERE user_id = $1 AND playlist_id = $2`, userID, playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist vote: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresPlaylistRepository) AddThumbs(ctx context.Context, exec SQLExecutor, playlistID, upDelta, downDelta int) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE playlists
		SET num_thumbs_up = num_thumbs_up + $1, num_thumbs_down = num_thumbs_down + $2
		WHERE id = $3`, upDelta, downDelta, playlistID)
	if err != nil {
		return fmt.Errorf("failed to adjust playlist thumb counters: %w", err)
	}
	return checkAffectedRows(result, ErrPlaylistNotFound)
}

func (r *postgresPlaylistRepository) All() pagination.Source[models.Playlist] {
	return &keysetSource[models.Playlist]{
		db:         r.db,
		selectCols: playlistColumns,
		from:       "playlists p",
		primaryCol: "p.indexed_name",
		idCol:      "p.id",
		scan: func(rows *sql.Rows) (models.Playlist, error) {
			var p models.Playlist
			err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.IndexedName,
				&p.NumBookmarks, &p.NumThumbsUp, &p.NumThumbsDown, &p.Created)
			return p, err
		},
		key: func(p models.Playlist) pagination.Cursor {
			return pagination.Cursor{Primary: p.IndexedName, ID: p.ID}
		},
	}
}

func (r *postgresPlaylistRepository) BookmarksOf(playlistID int) pagination.Source[models.Bookmark] {
	return &keysetSource[models.Bookmark]{
		db: r.db,
		selectCols: `b.id, b.user_id, b.video_id, b.title, b.comment, b.start_seconds,
		b.num_thumbs_up, b.num_thumbs_down, b.added`,
		from:        "bookmarks b JOIN playlist_bookmarks pb ON pb.bookmark_id = b.id",
		where:       "pb.playlist_id = $1",
		args:        []interface{}{playlistID},
		primaryCol:  "b.added",
		primaryCast: "::timestamptz",
		idCol:       "b.id",
		scan:        scanBookmarkRow,
		key: func(b models.Bookmark) pagination.Cursor {
			return pagination.Cursor{Primary: b.Added.UTC().Format(time.RFC3339Nano), ID: b.ID}
		},
	}
}
