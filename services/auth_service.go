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
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// ProviderLoginInput carries the profile a third-party login handed us.
type ProviderLoginInput struct {
	Provider      models.Provider
	ProviderID    string
	DisplayName   string
	AvatarURL     *string
	AvatarFullURL *string
	AccessToken   *string
}

type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthService resolves external identities to internal users and also keeps
// a plain local email/password path.
//
// LoginWithProvider is the upsert resolver: repeated logins with the same
// provider id update the existing user, never duplicate it, and the derived
// friendly URL (url_by_name) is taken over from any other user holding it —
// last login wins, the loser's field is cleared in the same transaction.
type AuthService interface {
	LoginWithProvider(ctx context.Context, input ProviderLoginInput) (*models.User, error)
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type authService struct {
	db       *sql.DB
	userRepo repositories.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(db *sql.DB, userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{
		db:       db,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) LoginWithProvider(ctx context.Context, input ProviderLoginInput) (*models.User, error) {
	if input.ProviderID == "" || input.DisplayName == "" {
		return nil, fmt.Errorf("%w: provider id and display name are required", ErrValidationFailed)
	}
	switch input.Provider {
	case models.ProviderSteam, models.ProviderTwitch:
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrValidationFailed, input.Provider)
	}

	var user *models.User
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		existing, err := s.lookupByProvider(ctx, tx, input.Provider, input.ProviderID)
		if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return err
		}

		now := s.now()
		urlByName := "/" + string(input.Provider) + "/" + slugify(input.DisplayName)

		if existing == nil {
			user = &models.User{
				DisplayName:   input.DisplayName,
				IndexedName:   indexName(input.DisplayName),
				AvatarURL:     input.AvatarURL,
				AvatarFullURL: input.AvatarFullURL,
				Created:       now,
				LastSeen:      now,
				URLByID:       "/" + string(input.Provider) + "/id/" + input.ProviderID,
				URLByName:     &urlByName,
			}
			// The friendly URL belongs to whoever logged in with the name
			// most recently; evict stale holders before taking it.
			if err := s.userRepo.ClearURLByName(ctx, tx, urlByName, 0); err != nil {
				return err
			}
			if err := s.userRepo.Create(ctx, tx, user); err != nil {
				return err
			}
		} else {
			user = existing
			user.DisplayName = input.DisplayName
			user.IndexedName = indexName(input.DisplayName)
			user.AvatarURL = input.AvatarURL
			user.AvatarFullURL = input.AvatarFullURL
			user.LastSeen = now
			user.URLByName = &urlByName
			if err := s.userRepo.ClearURLByName(ctx, tx, urlByName, user.ID); err != nil {
				return err
			}
			if err := s.userRepo.UpdateProfile(ctx, tx, user); err != nil {
				return err
			}
		}

		return s.upsertIdentity(ctx, tx, user.ID, input)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) lookupByProvider(ctx context.Context, tx *sql.Tx, provider models.Provider, providerID string) (*models.User, error) {
	if provider == models.ProviderSteam {
		return s.userRepo.GetBySteamID(ctx, tx, providerID)
	}
	return s.userRepo.GetByTwitchID(ctx, tx, providerID)
}

func (s *authService) upsertIdentity(ctx context.Context, tx *sql.Tx, userID int, input ProviderLoginInput) error {
	if input.Provider == models.ProviderSteam {
		return s.userRepo.UpsertSteamIdentity(ctx, tx, &models.SteamIdentity{
			UserID:      userID,
			SteamID:     input.ProviderID,
			AccessToken: input.AccessToken,
		})
	}
	return s.userRepo.UpsertTwitchIdentity(ctx, tx, &models.TwitchIdentity{
		UserID:      userID,
		TwitchID:    input.ProviderID,
		AccessToken: input.AccessToken,
	})
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.DisplayName == "" || input.Email == "" {
		return nil, fmt.Errorf("%w: display name and email are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	hash := string(hashedPassword)
	user := &models.User{
		DisplayName:  input.DisplayName,
		IndexedName:  indexName(input.DisplayName),
		Created:      now,
		LastSeen:     now,
		Email:        &input.Email,
		PasswordHash: &hash,
	}

	err = runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		// Постоянный URL выводим из id, а не из display name: имя можно
		// менять, и два одинаковых имени не должны делить один URL.
		user.URLByID = fmt.Sprintf("/local/id/%d", user.ID)
		return s.userRepo.UpdateURLByID(ctx, tx, user.ID, user.URLByID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, err
	}

	user.PasswordHash = nil
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = nil
	return user, nil
}
