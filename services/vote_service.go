package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/repositories"
)

// VoteService handles the single-valued thumb votes on playlists and
// bookmarks. A user's vote for a target is up, down, or absent, never both;
// the num_thumbs_up/num_thumbs_down counters move in the same transaction as
// the vote row. Setting the same value twice is a no-op, switching the value
// moves one from the old bucket into the new one, and voting on your own
// content is forbidden.
type VoteService interface {
	SetPlaylistVote(ctx context.Context, userID, playlistID int, thumbUp bool) error
	RemovePlaylistVote(ctx context.Context, userID, playlistID int) error
	SetBookmarkVote(ctx context.Context, userID, bookmarkID int, thumbUp bool) error
	RemoveBookmarkVote(ctx context.Context, userID, bookmarkID int) error
}

type voteService struct {
	db           *sql.DB
	userRepo     repositories.UserRepository
	playlistRepo repositories.PlaylistRepository
	videoRepo    repositories.VideoRepository
	logger       *slog.Logger
	now          func() time.Time
}

func NewVoteService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	playlistRepo repositories.PlaylistRepository,
	videoRepo repositories.VideoRepository,
	logger *slog.Logger,
) VoteService {
	return &voteService{
		db:           db,
		userRepo:     userRepo,
		playlistRepo: playlistRepo,
		videoRepo:    videoRepo,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *voteService) SetPlaylistVote(ctx context.Context, userID, playlistID int, thumbUp bool) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		playlist, err := s.playlist(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		if playlist.UserID == userID {
			return ErrSelfVoteForbidden
		}
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}

		current, err := s.playlistRepo.GetVoteForUpdate(ctx, tx, userID, playlistID)
		if err != nil {
			return err
		}
		switch {
		case current == nil:
			vote := &models.PlaylistVote{UserID: userID, PlaylistID: playlistID, ThumbUp: thumbUp, Added: s.now()}
			inserted, err := s.playlistRepo.InsertVote(ctx, tx, vote)
			if err != nil {
				return err
			}
			if !inserted {
				// Проиграли гонку параллельному первому голосу того же
				// пользователя; счетчик уже увеличен победителем.
				return nil
			}
			if thumbUp {
				return s.playlistRepo.AddThumbs(ctx, tx, playlistID, 1, 0)
			}
			return s.playlistRepo.AddThumbs(ctx, tx, playlistID, 0, 1)
		case *current == thumbUp:
			return nil // same vote already recorded
		default:
			if err := s.playlistRepo.UpdateVote(ctx, tx, userID, playlistID, thumbUp); err != nil {
				return err
			}
			// One out of the old bucket, one into the new, atomically.
			if thumbUp {
				return s.playlistRepo.AddThumbs(ctx, tx, playlistID, 1, -1)
			}
			return s.playlistRepo.AddThumbs(ctx, tx, playlistID, -1, 1)
		}
	})
}

func (s *voteService) RemovePlaylistVote(ctx context.Context, userID, playlistID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.playlist(ctx, tx, playlistID); err != nil {
			return err
		}

		current, err := s.playlistRepo.GetVoteForUpdate(ctx, tx, userID, playlistID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil // nothing to remove
		}

		deleted, err := s.playlistRepo.DeleteVote(ctx, tx, userID, playlistID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		if *current {
			return s.playlistRepo.AddThumbs(ctx, tx, playlistID, -1, 0)
		}
		return s.playlistRepo.AddThumbs(ctx, tx, playlistID, 0, -1)
	})
}

func (s *voteService) SetBookmarkVote(ctx context.Context, userID, bookmarkID int, thumbUp bool) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		bookmark, err := s.bookmark(ctx, tx, bookmarkID)
		if err != nil {
			return err
		}
		if bookmark.UserID == userID {
			return ErrSelfVoteForbidden
		}
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}

		current, err := s.videoRepo.GetVoteForUpdate(ctx, tx, userID, bookmarkID)
		if err != nil {
			return err
		}
		switch {
		case current == nil:
			vote := &models.BookmarkVote{UserID: userID, BookmarkID: bookmarkID, ThumbUp: thumbUp, Added: s.now()}
			inserted, err := s.videoRepo.InsertVote(ctx, tx, vote)
			if err != nil {
				return err
			}
			if !inserted {
				return nil // гонка с параллельным первым голосом
			}
			if thumbUp {
				return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, 1, 0)
			}
			return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, 0, 1)
		case *current == thumbUp:
			return nil
		default:
			if err := s.videoRepo.UpdateVote(ctx, tx, userID, bookmarkID, thumbUp); err != nil {
				return err
			}
			if thumbUp {
				return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, 1, -1)
			}
			return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, -1, 1)
		}
	})
}

func (s *voteService) RemoveBookmarkVote(ctx context.Context, userID, bookmarkID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.bookmark(ctx, tx, bookmarkID); err != nil {
			return err
		}

		current, err := s.videoRepo.GetVoteForUpdate(ctx, tx, userID, bookmarkID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		deleted, err := s.videoRepo.DeleteVote(ctx, tx, userID, bookmarkID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		if *current {
			return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, -1, 0)
		}
		return s.videoRepo.AddThumbs(ctx, tx, bookmarkID, 0, -1)
	})
}

func (s *voteService) playlist(ctx context.Context, tx *sql.Tx, playlistID int) (*models.Playlist, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, tx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlaylistNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to load playlist %d: %w", playlistID, err)
	}
	return playlist, nil
}

func (s *voteService) bookmark(ctx context.Context, tx *sql.Tx, bookmarkID int) (*models.Bookmark, error) {
	bookmark, err := s.videoRepo.GetBookmarkByID(ctx, tx, bookmarkID)
	if err != nil {
		if errors.Is(err, repositories.ErrBookmarkNotFound) {
			return nil, ErrBookmarkNotFound
		}
		return nil, fmt.Errorf("failed to load bookmark %d: %w", bookmarkID, err)
	}
	return bookmark, nil
}

func (s *voteService) requireUser(ctx context.Context, tx *sql.Tx, userID int) error {
	exists, err := s.userRepo.Exists(ctx, tx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}
