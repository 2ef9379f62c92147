package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/repositories"
)

// calendarMaintainer owns every calendar mutation. It runs inside the
// transaction of the star or stream operation that triggered it; callers
// never touch calendar_entries by any other path.
//
// The four trigger events and their fan-out:
//
//   - first stream of a match: credit direct match starrers, starrers of
//     either team, and starrers of the new streamer;
//   - each further stream: credit only the new streamer's starrers (the rest
//     was captured when streaming began);
//   - last stream gone: wipe the match off all calendars;
//   - a non-last stream gone: withdraw the departing streamer's credit.
//
// Star changes while something is streamed go through the single-user
// variants. A decrement that finds no row is a maintainer bug and surfaces
// as ErrCalendarInvariant, aborting the whole transaction.
type calendarMaintainer struct {
	calendar repositories.CalendarRepository
	logger   *slog.Logger
}

func newCalendarMaintainer(calendar repositories.CalendarRepository, logger *slog.Logger) *calendarMaintainer {
	return &calendarMaintainer{calendar: calendar, logger: logger}
}

func (m *calendarMaintainer) streamStarted(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, streamerID int, first bool) error {
	if first {
		if err := m.calendar.FanOutMatchStars(ctx, exec, match.ID, match.Time); err != nil {
			return err
		}
		if err := m.calendar.FanOutTeamStars(ctx, exec, match.ID, match.Team1ID, match.Team2ID, match.Time); err != nil {
			return err
		}
	}
	return m.calendar.FanOutStreamerStars(ctx, exec, match.ID, streamerID, match.Time)
}

func (m *calendarMaintainer) streamStopped(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, streamerID int, last bool) error {
	if last {
		// No longer streamed: the match belongs on no one's calendar,
		// whatever multiplicity the remaining rows carried.
		return m.calendar.DeleteAllForMatch(ctx, exec, match.ID)
	}
	return m.invariant(ctx, m.calendar.WithdrawStreamerStars(ctx, exec, match.ID, streamerID))
}

func (m *calendarMaintainer) matchStarAdded(ctx context.Context, exec repositories.SQLExecutor, userID int, match *models.Match) error {
	if !match.IsStreamed {
		return nil
	}
	return m.calendar.IncrementOne(ctx, exec, userID, match.ID, match.Time)
}

func (m *calendarMaintainer) matchStarRemoved(ctx context.Context, exec repositories.SQLExecutor, userID int, match *models.Match) error {
	if !match.IsStreamed {
		return nil
	}
	return m.invariant(ctx, m.calendar.DecrementOne(ctx, exec, userID, match.ID))
}

func (m *calendarMaintainer) teamStarAdded(ctx context.Context, exec repositories.SQLExecutor, userID, teamID int) error {
	return m.calendar.IncrementForTeamStar(ctx, exec, userID, teamID)
}

func (m *calendarMaintainer) teamStarRemoved(ctx context.Context, exec repositories.SQLExecutor, userID, teamID int) error {
	return m.invariant(ctx, m.calendar.DecrementForTeamStar(ctx, exec, userID, teamID))
}

func (m *calendarMaintainer) streamerStarAdded(ctx context.Context, exec repositories.SQLExecutor, userID, streamerID int) error {
	return m.calendar.IncrementForStreamerStar(ctx, exec, userID, streamerID)
}

func (m *calendarMaintainer) streamerStarRemoved(ctx context.Context, exec repositories.SQLExecutor, userID, streamerID int) error {
	return m.invariant(ctx, m.calendar.DecrementForStreamerStar(ctx, exec, userID, streamerID))
}

func (m *calendarMaintainer) invariant(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrCalendarEntryMissing) {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "calendar invariant violated", slog.Any("error", err))
		}
		return fmt.Errorf("%w: %v", ErrCalendarInvariant, err)
	}
	return err
}
