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

var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrBookmarkNotFound = errors.New("bookmark not found")
)

type VideoRepository interface {
	// UpsertByExternalID creates the video or resolves the existing row by
	// its external id, refreshing title and URL either way.
	UpsertByExternalID(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id int) (*models.Video, error)

	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error
	GetBookmarkByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bookmark, error)

	GetVoteForUpdate(ctx context.Context, exec SQLExecutor, userID, bookmarkID int) (*bool, error)
	// InsertVote is insert-ignore, mirroring the playlist vote contract.
	InsertVote(ctx context.Context, exec SQLExecutor, vote *models.BookmarkVote) (inserted bool, err error)
	UpdateVote(ctx context.Context, exec SQLExecutor, userID, bookmarkID int, thumbUp bool) error
	DeleteVote(ctx context.Context, exec SQLExecutor, userID, bookmarkID int) (deleted bool, err error)
	AddThumbs(ctx context.Context, exec SQLExecutor, bookmarkID, upDelta, downDelta int) error

	BookmarksBy(userID int) pagination.Source[models.Bookmark]
	BookmarksOfVideo(videoID int) pagination.Source[models.Bookmark]
}

type postgresVideoRepository struct {
	db *sql.DB
}

func NewPostgresVideoRepository(db *sql.DB) VideoRepository {
	return &postgresVideoRepository{db: db}
}

func (r *postgresVideoRepository) UpsertByExternalID(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (title, url, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE
			SET title = EXCLUDED.title, url = EXCLUDED.url
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, video.Title, video.URL, video.ExternalID).Scan(&video.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert video %q: %w", video.ExternalID, err)
	}
	return nil
}

func (r *postgresVideoRepository) GetByID(ctx context.Context, id int) (*models.Video, error) {
	var video models.Video
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, url, external_id FROM videos WHERE id = $1`, id).
		Scan(&video.ID, &video.Title, &video.URL, &video.ExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to scan video by id %d: %w", id, err)
	}
	return &video, nil
}

func (r *postgresVideoRepository) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	query := `
		INSERT INTO bookmarks (user_id, video_id, title, comment, start_seconds, added)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		bookmark.UserID,
		bookmark.VideoID,
		bookmark.Title,
		bookmark.Comment,
		bookmark.StartSeconds,
		bookmark.Added,
	).Scan(&bookmark.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

func (r *postgresVideoRepository) GetBookmarkByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bookmark, error) {
	query := `
		SELECT b.id, b.user_id, b.video_id, b.title, b.comment, b.start_seconds,
		       b.num_thumbs_up, b.num_thumbs_down, b.added
		FROM bookmarks b
		WHERE b.id = $1`

	bookmark := &models.Bookmark{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&bookmark.ID,
		&bookmark.UserID,
		&bookmark.VideoID,
		&bookmark.Title,
		&bookmark.Comment,
		&bookmark.StartSeconds,
		&bookmark.NumThumbsUp,
		&bookmark.NumThumbsDown,
		&bookmark.Added,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookmarkNotFound
		}
		return nil, fmt.Errorf("failed to scan bookmark by id %d: %w", id, err)
	}
	return bookmark, nil
}

func (r *postgresVideoRepository) GetVoteForUpdate(ctx context.Context, exec SQLExecutor, userID, bookmarkID int) (*bool, error) {
	var thumbUp bool
	err := exec.QueryRowContext(ctx,
		`SELECT thumb_up FROM bookmark_votes WHERE user_id = $1 AND bookmark_id = $2 FOR UPDATE`,
		userID, bookmarkID).Scan(&thumbUp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmark vote: %w", err)
	}
	return &thumbUp, nil
}

func (r *postgresVideoRepository) InsertVote(ctx context.Context, exec SQLExecutor, vote *models.BookmarkVote) (bool, error) {
	query := `
		INSERT INTO bookmark_votes (user_id, bookmark_id, thumb_up, added)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, bookmark_id) DO NOTHING`

	result, err := exec.ExecContext(ctx, query, vote.UserID, vote.BookmarkID, vote.ThumbUp, vote.Added)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrBookmarkNotFound
		}
		return false, fmt.Errorf("failed to insert bookmark vote: %w", err)
	}
	rowsAffected, err := affectedRows(result)
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *postgresVideoRepository) UpdateVote(ctx context.Context, exec SQLExecutor, userID, bookmarkID int, thumbUp bool) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE bookmark_votes SET thumb_up = $1 WHERE user_id = $2 AND bookmark_id = $3`,
		thumbUp, userID, bookmarkID)
	if err != nil {
		return fmt.Errorf("failed to update bookmark vote: %w", err)
	}
	return checkAffectedRows(result, ErrBookmarkNotFound)
}

func (r *postgresVideoRepository) DeleteVote(ctx context.Context, exec SQLExecutor, userID, bookmarkID int) (bool, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM bookmark_votes WHERE user_id = $1 AND bookmark_id = $2`, userID, bookmarkID)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark vote: %w", err)
	}
	n, err := affectedRows(result)
	return n > 0, err
}

func (r *postgresVideoRepository) AddThumbs(ctx context.Context, exec SQLExecutor, bookmarkID, upDelta, downDelta int) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE bookmarks
		SET num_thumbs_up = num_thumbs_up + $1, num_thumbs_down = num_thumbs_down + $2
		WHERE id = $3`, upDelta, downDelta, bookmarkID)
	if err != nil {
		return fmt.Errorf("failed to adjust bookmark thumb counters: %w", err)
	}
	return checkAffectedRows(result, ErrBookmarkNotFound)
}

func (r *postgresVideoRepository) BookmarksBy(userID int) pagination.Source[models.Bookmark] {
	return &keysetSource[models.Bookmark]{
		db: r.db,
		selectCols: `b.id, b.user_id, b.video_id, b.title, b.comment, b.start_seconds,
		b.num_thumbs_up, b.num_thumbs_down, b.added`,
		from:        "bookmarks b",
		where:       "b.user_id = $1",
		args:        []interface{}{userID},
		primaryCol:  "b.added",
		primaryCast: "::timestamptz",
		idCol:       "b.id",
		scan:        scanBookmarkRow,
		key: func(b models.Bookmark) pagination.Cursor {
			return pagination.Cursor{Primary: b.Added.UTC().Format(time.RFC3339Nano), ID: b.ID}
		},
	}
}

func (r *postgresVideoRepository) BookmarksOfVideo(videoID int) pagination.Source[models.Bookmark] {
	return &keysetSource[models.Bookmark]{
		db: r.db,
		selectCols: `b.id, b.user_id, b.video_id, b.title, b.comment, b.start_seconds,
		b.num_thumbs_up, b.num_thumbs_down, b.added`,
		from:        "bookmarks b",
		where:       "b.video_id = $1",
		args:        []interface{}{videoID},
		primaryCol:  "b.added",
		primaryCast: "::timestamptz",
		idCol:       "b.id",
		scan:        scanBookmarkRow,
		key: func(b models.Bookmark) pagination.Cursor {
			return pagination.Cursor{Primary: b.Added.UTC().Format(time.RFC3339Nano), ID: b.ID}
		},
	}
}

func scanBookmarkRow(rows *sql.Rows) (models.Bookmark, error) {
	var b models.Bookmark
	err := rows.Scan(
		&b.ID,
		&b.UserID,
		&b.VideoID,
		&b.Title,
		&b.Comment,
		&b.StartSeconds,
		&b.NumThumbsUp,
		&b.NumThumbsDown,
		&b.Added,
	)
	return b, err
}
