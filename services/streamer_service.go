package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
)

// StreamerView is the public page of a streaming user: profile, the matches
// they currently stream, and the viewer's star state.
type StreamerView struct {
	Streamer        *models.User                          `json:"streamer"`
	Streams         pagination.Page[models.StreamedMatch] `json:"streams"`
	StarredByViewer bool                                  `json:"starred_by_viewer"`
}

type StreamerService interface {
	GetDisplayedStreamer(ctx context.Context, streamerID, viewerID int) (*StreamerView, error)
	ListStreamers(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.User], error)
}

type streamerService struct {
	userRepo   repositories.UserRepository
	streamRepo repositories.StreamRepository
	starRepo   repositories.StarRepository
	pageSize   int
}

func NewStreamerService(
	userRepo repositories.UserRepository,
	streamRepo repositories.StreamRepository,
	starRepo repositories.StarRepository,
	pageSize int,
) StreamerService {
	return &streamerService{
		userRepo:   userRepo,
		streamRepo: streamRepo,
		starRepo:   starRepo,
		pageSize:   pageSize,
	}
}

func (s *streamerService) GetDisplayedStreamer(ctx context.Context, streamerID, viewerID int) (*StreamerView, error) {
	streamer, err := s.userRepo.GetByID(ctx, streamerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrStreamerNotFound
		}
		return nil, err
	}
	streamer.Email = nil
	streamer.PasswordHash = nil

	view := &StreamerView{Streamer: streamer}

	view.Streams, err = pagination.Paginate(ctx, s.streamRepo.ByStreamer(streamerID), nil, pagination.DirectionNext, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load streams: %w", err)
	}

	if viewerID != 0 {
		view.StarredByViewer, err = s.starRepo.HasStreamerStar(ctx, viewerID, streamerID)
		if err != nil {
			return nil, fmt.Errorf("failed to check viewer star: %w", err)
		}
	}
	return view, nil
}

func (s *streamerService) ListStreamers(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.User], error) {
	var src pagination.Source[models.User]
	switch filter {
	case FilterStarred:
		if viewerID == 0 {
			return pagination.Page[models.User]{}, ErrStarredFilterNoViewer
		}
		src = s.userRepo.StreamersStarredBy(viewerID)
	default:
		src = s.userRepo.Streamers()
	}
	page, err := pagination.Paginate(ctx, src, cursor, dir, s.pageSize)
	if err != nil {
		return pagination.Page[models.User]{}, err
	}
	for i := range page.Items {
		page.Items[i].Email = nil
		page.Items[i].PasswordHash = nil
	}
	return page, nil
}
