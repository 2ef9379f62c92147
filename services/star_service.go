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

// StarService handles the star relations and keeps the denormalized
// num_stars counters and calendar entries in lockstep. Every operation runs
// its relation row mutation, counter update and fan-out in one transaction.
//
// Starring twice is a no-op, as is unstarring something never starred; the
// only errors raised for identifiers are for targets that do not exist.
type StarService interface {
	StarMatch(ctx context.Context, userID, matchID int) error
	UnstarMatch(ctx context.Context, userID, matchID int) error
	StarTeam(ctx context.Context, userID, teamID int) error
	UnstarTeam(ctx context.Context, userID, teamID int) error
	StarStreamer(ctx context.Context, userID, streamerID int) error
	UnstarStreamer(ctx context.Context, userID, streamerID int) error
}

type starService struct {
	db        *sql.DB
	userRepo  repositories.UserRepository
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
	starRepo  repositories.StarRepository
	calendar  *calendarMaintainer
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewStarService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	starRepo repositories.StarRepository,
	calendarRepo repositories.CalendarRepository,
	events EventPublisher,
	logger *slog.Logger,
) StarService {
	return &starService{
		db:        db,
		userRepo:  userRepo,
		teamRepo:  teamRepo,
		matchRepo: matchRepo,
		starRepo:  starRepo,
		calendar:  newCalendarMaintainer(calendarRepo, logger),
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *starService) StarMatch(ctx context.Context, userID, matchID int) error {
	var starred bool
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		match, err := s.matchForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}

		inserted, err := s.starRepo.AddMatchStar(ctx, tx, &models.StarredMatch{
			UserID:  userID,
			MatchID: matchID,
			Time:    match.Time,
			Added:   s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil // already starred
		}

		if err := s.matchRepo.AddStars(ctx, tx, matchID, 1); err != nil {
			return err
		}
		starred = true
		return s.calendar.matchStarAdded(ctx, tx, userID, match)
	})
	if err != nil {
		return err
	}

	if starred && s.events != nil {
		s.events.PublishMatch(matchID, EventMatchStarred, map[string]int{"match_id": matchID})
	}
	return nil
}

func (s *starService) UnstarMatch(ctx context.Context, userID, matchID int) error {
	var unstarred bool
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		match, err := s.matchForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}

		deleted, err := s.starRepo.RemoveMatchStar(ctx, tx, userID, matchID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil // never starred
		}

		if err := s.matchRepo.AddStars(ctx, tx, matchID, -1); err != nil {
			return err
		}
		unstarred = true
		return s.calendar.matchStarRemoved(ctx, tx, userID, match)
	})
	if err != nil {
		return err
	}

	if unstarred && s.events != nil {
		s.events.PublishMatch(matchID, EventMatchUnstarred, map[string]int{"match_id": matchID})
	}
	return nil
}

func (s *starService) StarTeam(ctx context.Context, userID, teamID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		team, err := s.teamForUpdate(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}

		inserted, err := s.starRepo.AddTeamStar(ctx, tx, &models.StarredTeam{
			UserID:      userID,
			TeamID:      teamID,
			IndexedName: team.IndexedName,
			Added:       s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if err := s.teamRepo.AddStars(ctx, tx, teamID, 1); err != nil {
			return err
		}
		return s.calendar.teamStarAdded(ctx, tx, userID, teamID)
	})
}

func (s *starService) UnstarTeam(ctx context.Context, userID, teamID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.teamForUpdate(ctx, tx, teamID); err != nil {
			return err
		}

		deleted, err := s.starRepo.RemoveTeamStar(ctx, tx, userID, teamID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}

		if err := s.teamRepo.AddStars(ctx, tx, teamID, -1); err != nil {
			return err
		}
		return s.calendar.teamStarRemoved(ctx, tx, userID, teamID)
	})
}

func (s *starService) StarStreamer(ctx context.Context, userID, streamerID int) error {
	if userID == streamerID {
		return ErrSelfStarForbidden
	}
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		streamer, err := s.streamerForUpdate(ctx, tx, streamerID)
		if err != nil {
			return err
		}
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}

		inserted, err := s.starRepo.AddStreamerStar(ctx, tx, &models.StarredStreamer{
			UserID:      userID,
			StreamerID:  streamerID,
			IndexedName: streamer.IndexedName,
			Added:       s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if err := s.userRepo.AddStars(ctx, tx, streamerID, 1); err != nil {
			return err
		}
		return s.calendar.streamerStarAdded(ctx, tx, userID, streamerID)
	})
}

func (s *starService) UnstarStreamer(ctx context.Context, userID, streamerID int) error {
	return runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.streamerForUpdate(ctx, tx, streamerID); err != nil {
			return err
		}

		deleted, err := s.starRepo.RemoveStreamerStar(ctx, tx, userID, streamerID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}

		if err := s.userRepo.AddStars(ctx, tx, streamerID, -1); err != nil {
			return err
		}
		return s.calendar.streamerStarRemoved(ctx, tx, userID, streamerID)
	})
}

// matchForUpdate locks the match row so stream start/stop and star fan-out
// on the same match serialize instead of racing.
func (s *starService) matchForUpdate(ctx context.Context, tx *sql.Tx, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return match, nil
}

// teamForUpdate and streamerForUpdate lock the star target row. Stream
// transitions on matches involving the target take the same lock, so the
// fan-out over streamed matches never observes a num_streams value that a
// concurrent transaction is about to change.
func (s *starService) teamForUpdate(ctx context.Context, tx *sql.Tx, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByIDForUpdate(ctx, tx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *starService) streamerForUpdate(ctx context.Context, tx *sql.Tx, streamerID int) (*models.User, error) {
	streamer, err := s.userRepo.GetByIDForUpdate(ctx, tx, streamerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrStreamerNotFound
		}
		return nil, fmt.Errorf("failed to load streamer %d: %w", streamerID, err)
	}
	return streamer, nil
}

func (s *starService) requireUser(ctx context.Context, tx *sql.Tx, userID int) error {
	exists, err := s.userRepo.Exists(ctx, tx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}
