package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
	"github.com/Dosada05/stream-follow/storage"
)

// UserView is the profile page: the user plus the first page of their
// personal calendar.
type UserView struct {
	User     *models.User                          `json:"user"`
	Calendar pagination.Page[models.CalendarEntry] `json:"calendar"`
}

type UserService interface {
	GetDisplayedUser(ctx context.Context, userID int) (*UserView, error)
	// GetCalendar pages over the user's personal calendar, ordered by
	// match time. The calendar itself is derived data; this only reads it.
	GetCalendar(ctx context.Context, userID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.CalendarEntry], error)
	// UploadAvatar stores the avatar image and repoints the user at it.
	// Only the user themselves may replace their avatar.
	UploadAvatar(ctx context.Context, userID, currentUserID int, file io.Reader, contentType string) (*models.User, error)
}

type userService struct {
	userRepo     repositories.UserRepository
	calendarRepo repositories.CalendarRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
	pageSize     int
	now          func() time.Time
}

func NewUserService(
	userRepo repositories.UserRepository,
	calendarRepo repositories.CalendarRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
	pageSize int,
) UserService {
	return &userService{
		userRepo:     userRepo,
		calendarRepo: calendarRepo,
		uploader:     uploader,
		logger:       logger,
		pageSize:     pageSize,
		now:          time.Now,
	}
}

func (s *userService) GetDisplayedUser(ctx context.Context, userID int) (*UserView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.populateAvatarURL(user)
	user.PasswordHash = nil

	calendar, err := pagination.Paginate(ctx, s.calendarRepo.ForUser(userID), nil, pagination.DirectionNext, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}

	return &UserView{User: user, Calendar: calendar}, nil
}

func (s *userService) GetCalendar(ctx context.Context, userID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.CalendarEntry], error) {
	return pagination.Paginate(ctx, s.calendarRepo.ForUser(userID), cursor, dir, s.pageSize)
}

func (s *userService) UploadAvatar(ctx context.Context, userID, currentUserID int, file io.Reader, contentType string) (*models.User, error) {
	if userID != currentUserID {
		return nil, ErrForbiddenOperation
	}
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("avatars/user_%d_%d%s", userID, s.now().UnixNano(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	oldKey := user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		// Роллбэка у объектного стора нет — подчищаем свежую загрузку.
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up avatar after db error",
				slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous avatar",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	user.AvatarKey = &result.Key
	s.populateAvatarURL(user)
	user.PasswordHash = nil
	return user, nil
}

// populateAvatarURL prefers a self-hosted avatar over the provider-supplied
// URLs captured at login.
func (s *userService) populateAvatarURL(user *models.User) {
	if user == nil || s.uploader == nil {
		return
	}
	if user.AvatarKey != nil && *user.AvatarKey != "" {
		url := s.uploader.GetPublicURL(*user.AvatarKey)
		if url != "" {
			user.AvatarURL = &url
			user.AvatarFullURL = &url
		}
	}
}
