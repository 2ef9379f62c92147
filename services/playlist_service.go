package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
)

type CreatePlaylistInput struct {
	Name string `json:"name"`
}

type AddVideoInput struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
}

type AddBookmarkInput struct {
	VideoID      int     `json:"video_id"`
	Title        string  `json:"title"`
	Comment      *string `json:"comment,omitempty"`
	StartSeconds int     `json:"start_seconds"`
}

// PlaylistView is the playlist page: the playlist, its owner, and the first
// page of bookmarks in insertion order.
type PlaylistView struct {
	Playlist  *models.Playlist                 `json:"playlist"`
	Owner     *models.User                     `json:"owner"`
	Bookmarks pagination.Page[models.Bookmark] `json:"bookmarks"`

	// ViewerVote is the signed-in viewer's thumb, nil when anonymous or
	// not voted.
	ViewerVote *bool `json:"viewer_vote,omitempty"`
}

// VideoView is the video page: the video and the first page of bookmarks
// pointing into it.
type VideoView struct {
	Video     *models.Video                    `json:"video"`
	Bookmarks pagination.Page[models.Bookmark] `json:"bookmarks"`
}

type PlaylistService interface {
	CreatePlaylist(ctx context.Context, ownerID int, input CreatePlaylistInput) (*models.Playlist, error)
	// AddBookmarkToPlaylist links an existing bookmark into the playlist.
	// Owner only; re-adding an already linked bookmark is a no-op and
	// leaves num_bookmarks untouched.
	AddBookmarkToPlaylist(ctx context.Context, userID, playlistID, bookmarkID int) error
	RemoveBookmarkFromPlaylist(ctx context.Context, userID, playlistID, bookmarkID int) error

	// AddVideo registers a video, dedup'd by its external id.
	AddVideo(ctx context.Context, input AddVideoInput) (*models.Video, error)
	AddBookmark(ctx context.Context, userID int, input AddBookmarkInput) (*models.Bookmark, error)

	GetDisplayedPlaylist(ctx context.Context, viewerID, playlistID int) (*PlaylistView, error)
	GetDisplayedVideo(ctx context.Context, videoID int) (*VideoView, error)
	ListPlaylists(ctx context.Context, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Playlist], error)
	ListBookmarksBy(ctx context.Context, userID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Bookmark], error)
}

type playlistService struct {
	db           *sql.DB
	playlistRepo repositories.PlaylistRepository
	videoRepo    repositories.VideoRepository
	userRepo     repositories.UserRepository
	logger       *slog.Logger
	pageSize     int
	now          func() time.Time
}

func NewPlaylistService(
	db *sql.DB,
	playlistRepo repositories.PlaylistRepository,
	videoRepo repositories.VideoRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
	pageSize int,
) PlaylistService {
	return &playlistService{
		db:           db,
		playlistRepo: playlistRepo,
		videoRepo:    videoRepo,
		userRepo:     userRepo,
		logger:       logger,
		pageSize:     pageSize,
		now:          time.Now,
	}
}

func (s *playlistService) CreatePlaylist(ctx context.Context, ownerID int, input CreatePlaylistInput) (*models.Playlist, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", ErrValidationFailed)
	}

	playlist := &models.Playlist{
		UserID:      ownerID,
		Name:        input.Name,
		IndexedName: indexName(input.Name),
		Created:     s.now(),
	}
	if err := s.playlistRepo.Create(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *playlistService) AddBookmarkToPlaylist(ctx context.Context, userID, playlistID, bookmarkID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		playlist, err := s.getOwnedPlaylist(ctx, tx, playlistID, userID)
		if err != nil {
			return err
		}

		if _, err := s.videoRepo.GetBookmarkByID(ctx, tx, bookmarkID); err != nil {
			if errors.Is(err, repositories.ErrBookmarkNotFound) {
				return ErrBookmarkNotFound
			}
			return err
		}

		inserted, err := s.playlistRepo.AddBookmarkLink(ctx, tx, &models.PlaylistBookmark{
			PlaylistID: playlist.ID,
			BookmarkID: bookmarkID,
			Added:      s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return s.playlistRepo.AddBookmarks(ctx, tx, playlist.ID, 1)
	})
}

func (s *playlistService) RemoveBookmarkFromPlaylist(ctx context.Context, userID, playlistID, bookmarkID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		playlist, err := s.getOwnedPlaylist(ctx, tx, playlistID, userID)
		if err != nil {
			return err
		}

		deleted, err := s.playlistRepo.RemoveBookmarkLink(ctx, tx, playlist.ID, bookmarkID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		return s.playlistRepo.AddBookmarks(ctx, tx, playlist.ID, -1)
	})
}

func (s *playlistService) getOwnedPlaylist(ctx context.Context, tx *sql.Tx, playlistID, userID int) (*models.Playlist, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, tx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlaylistNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, err
	}
	if playlist.UserID != userID {
		return nil, ErrPlaylistOwnerOnly
	}
	return playlist, nil
}

func (s *playlistService) AddVideo(ctx context.Context, input AddVideoInput) (*models.Video, error) {
	if input.URL == "" || input.ExternalID == "" {
		return nil, fmt.Errorf("%w: video url and external id are required", ErrValidationFailed)
	}

	video := &models.Video{
		Title:      input.Title,
		URL:        input.URL,
		ExternalID: input.ExternalID,
	}
	if err := s.videoRepo.UpsertByExternalID(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *playlistService) AddBookmark(ctx context.Context, userID int, input AddBookmarkInput) (*models.Bookmark, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: bookmark title is required", ErrValidationFailed)
	}
	if input.StartSeconds < 0 {
		return nil, fmt.Errorf("%w: start offset cannot be negative", ErrValidationFailed)
	}

	video, err := s.videoRepo.GetByID(ctx, input.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	bookmark := &models.Bookmark{
		UserID:       userID,
		VideoID:      video.ID,
		Title:        input.Title,
		Comment:      input.Comment,
		StartSeconds: input.StartSeconds,
		Added:        s.now(),
	}
	if err := s.videoRepo.CreateBookmark(ctx, bookmark); err != nil {
		return nil, err
	}
	bookmark.Video = video
	return bookmark, nil
}

func (s *playlistService) GetDisplayedPlaylist(ctx context.Context, viewerID, playlistID int) (*PlaylistView, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, s.db, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlaylistNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, playlist.UserID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load playlist owner: %w", err)
	}
	if owner != nil {
		owner.Email = nil
		owner.PasswordHash = nil
	}

	bookmarks, err := pagination.Paginate(ctx, s.playlistRepo.BookmarksOf(playlistID), nil, pagination.DirectionNext, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist bookmarks: %w", err)
	}

	var viewerVote *bool
	if viewerID != 0 {
		viewerVote, err = s.playlistRepo.GetVote(ctx, s.db, viewerID, playlistID)
		if err != nil {
			return nil, fmt.Errorf("failed to load viewer vote: %w", err)
		}
	}

	return &PlaylistView{Playlist: playlist, Owner: owner, Bookmarks: bookmarks, ViewerVote: viewerVote}, nil
}

func (s *playlistService) GetDisplayedVideo(ctx context.Context, videoID int) (*VideoView, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	bookmarks, err := pagination.Paginate(ctx, s.videoRepo.BookmarksOfVideo(videoID), nil, pagination.DirectionNext, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load video bookmarks: %w", err)
	}

	return &VideoView{Video: video, Bookmarks: bookmarks}, nil
}

func (s *playlistService) ListPlaylists(ctx context.Context, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Playlist], error) {
	return pagination.Paginate(ctx, s.playlistRepo.All(), cursor, dir, s.pageSize)
}

func (s *playlistService) ListBookmarksBy(ctx context.Context, userID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Bookmark], error) {
	return pagination.Paginate(ctx, s.videoRepo.BookmarksBy(userID), cursor, dir, s.pageSize)
}
