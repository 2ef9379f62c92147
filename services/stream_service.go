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

const (
	EventStreamStarted  = "STREAM_STARTED"
	EventStreamStopped  = "STREAM_STOPPED"
	EventMatchStarred   = "MATCH_STARRED"
	EventMatchUnstarred = "MATCH_UNSTARRED"
)

// EventPublisher pushes live updates to connected websocket clients.
// Implemented by live.Hub; nil disables pushes. Publishing happens strictly
// after commit so clients never observe rolled-back state.
type EventPublisher interface {
	PublishMatch(matchID int, eventType string, payload interface{})
}

// StreamService handles stream start/stop, the num_streams counter, the
// is_streamed flags on the match and its opponent rows, and the calendar
// fan-out driven by streaming transitions.
type StreamService interface {
	AddStream(ctx context.Context, streamerID, matchID int, comment *string) error
	RemoveStream(ctx context.Context, streamerID, matchID int) error
}

type streamService struct {
	db         *sql.DB
	userRepo   repositories.UserRepository
	teamRepo   repositories.TeamRepository
	matchRepo  repositories.MatchRepository
	streamRepo repositories.StreamRepository
	calendar   *calendarMaintainer
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewStreamService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	streamRepo repositories.StreamRepository,
	calendarRepo repositories.CalendarRepository,
	events EventPublisher,
	logger *slog.Logger,
) StreamService {
	return &streamService{
		db:         db,
		userRepo:   userRepo,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		streamRepo: streamRepo,
		calendar:   newCalendarMaintainer(calendarRepo, logger),
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *streamService) AddStream(ctx context.Context, streamerID, matchID int, comment *string) error {
	var started bool
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		// The row lock serializes concurrent stream transitions on the
		// same match, so the 0→1 detection below cannot misfire.
		match, err := s.matchForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := s.lockFanOutTargets(ctx, tx, match, streamerID); err != nil {
			return err
		}

		inserted, err := s.streamRepo.Add(ctx, tx, &models.StreamedMatch{
			StreamerID: streamerID,
			MatchID:    matchID,
			Time:       match.Time,
			Added:      s.now(),
			Comment:    comment,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil // already streaming this match
		}

		numStreams, err := s.matchRepo.IncrementStreams(ctx, tx, matchID)
		if err != nil {
			return err
		}
		first := numStreams == 1
		if first {
			if err := s.matchRepo.SetStreamed(ctx, tx, matchID, true); err != nil {
				return err
			}
		}
		started = true
		return s.calendar.streamStarted(ctx, tx, match, streamerID, first)
	})
	if err != nil {
		return err
	}

	if started && s.events != nil {
		s.events.PublishMatch(matchID, EventStreamStarted, map[string]int{"match_id": matchID, "streamer_id": streamerID})
	}
	return nil
}

func (s *streamService) RemoveStream(ctx context.Context, streamerID, matchID int) error {
	var stopped bool
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		match, err := s.matchForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := s.lockFanOutTargets(ctx, tx, match, streamerID); err != nil {
			return err
		}

		deleted, err := s.streamRepo.Remove(ctx, tx, streamerID, matchID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil // was not streaming this match
		}

		numStreams, err := s.matchRepo.DecrementStreams(ctx, tx, matchID)
		if err != nil {
			return err
		}
		last := numStreams == 0
		if last {
			if err := s.matchRepo.SetStreamed(ctx, tx, matchID, false); err != nil {
				return err
			}
		}
		stopped = true
		return s.calendar.streamStopped(ctx, tx, match, streamerID, last)
	})
	if err != nil {
		return err
	}

	if stopped && s.events != nil {
		s.events.PublishMatch(matchID, EventStreamStopped, map[string]int{"match_id": matchID, "streamer_id": streamerID})
	}
	return nil
}

func (s *streamService) matchForUpdate(ctx context.Context, tx *sql.Tx, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return match, nil
}

// lockFanOutTargets locks the two team rows and the streamer's user row
// inside the stream transaction. Team and streamer star mutations lock the
// same rows, so their fan-out over streamed matches cannot interleave with
// this match's num_streams transition. Always match row first, then teams in
// ascending id order, then the user, to keep lock acquisition deadlock-free.
func (s *streamService) lockFanOutTargets(ctx context.Context, tx *sql.Tx, match *models.Match, streamerID int) error {
	first, second := match.Team1ID, match.Team2ID
	if second < first {
		first, second = second, first
	}
	for _, teamID := range []int{first, second} {
		if _, err := s.teamRepo.GetByIDForUpdate(ctx, tx, teamID); err != nil {
			return fmt.Errorf("failed to lock team %d: %w", teamID, err)
		}
	}
	if _, err := s.userRepo.GetByIDForUpdate(ctx, tx, streamerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to lock streamer %d: %w", streamerID, err)
	}
	return nil
}
