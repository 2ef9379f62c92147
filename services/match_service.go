package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
	"golang.org/x/sync/errgroup"
)

// ListFilter выбирает охват листинга: всё подряд или только то, что
// отметил звездой конкретный пользователь.
type ListFilter string

const (
	FilterAll     ListFilter = "all"
	FilterStarred ListFilter = "starred"
)

func ParseListFilter(raw string) (ListFilter, error) {
	switch ListFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterStarred:
		return FilterStarred, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidationFailed, raw)
	}
}

type AddMatchInput struct {
	Team1ID     int       `json:"team1_id"`
	Team2ID     int       `json:"team2_id"`
	Time        time.Time `json:"time"`
	Game        string    `json:"game"`
	Division    string    `json:"division"`
	Fingerprint string    `json:"fingerprint"`
}

// MatchView is the hydrated read model for a single match page: the match
// with both teams attached, its current streams, and whether the viewer has
// starred it.
type MatchView struct {
	Match           *models.Match           `json:"match"`
	Streams         []*models.StreamedMatch `json:"streams"`
	StarredByViewer bool                    `json:"starred_by_viewer"`
}

type MatchService interface {
	// AddMatch inserts a match keyed by its external fingerprint. Feeding
	// the same fingerprint twice resolves to the existing match.
	AddMatch(ctx context.Context, input AddMatchInput) (*models.Match, error)
	// GetDisplayedMatch assembles the match page. viewerID 0 means an
	// anonymous viewer.
	GetDisplayedMatch(ctx context.Context, matchID, viewerID int) (*MatchView, error)
	// ListMatches pages over all matches or, with FilterStarred, over the
	// viewer's starred ones, in both cases ordered by match time.
	ListMatches(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Match], error)
	// ListMatchesByTeam pages over one team's matches.
	ListMatchesByTeam(ctx context.Context, teamID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Match], error)
}

type matchService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	teamRepo   repositories.TeamRepository
	streamRepo repositories.StreamRepository
	starRepo   repositories.StarRepository
	logger     *slog.Logger
	pageSize   int
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	streamRepo repositories.StreamRepository,
	starRepo repositories.StarRepository,
	logger *slog.Logger,
	pageSize int,
) MatchService {
	return &matchService{
		db:         db,
		matchRepo:  matchRepo,
		teamRepo:   teamRepo,
		streamRepo: streamRepo,
		starRepo:   starRepo,
		logger:     logger,
		pageSize:   pageSize,
	}
}

func (s *matchService) AddMatch(ctx context.Context, input AddMatchInput) (*models.Match, error) {
	if input.Fingerprint == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", ErrValidationFailed)
	}
	if input.Team1ID == input.Team2ID {
		return nil, fmt.Errorf("%w: a match needs two distinct teams", ErrValidationFailed)
	}
	if input.Time.IsZero() {
		return nil, fmt.Errorf("%w: match time is required", ErrValidationFailed)
	}

	match := &models.Match{
		Team1ID:     input.Team1ID,
		Team2ID:     input.Team2ID,
		Time:        input.Time,
		Game:        input.Game,
		Division:    input.Division,
		Fingerprint: input.Fingerprint,
	}

	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		for _, teamID := range []int{input.Team1ID, input.Team2ID} {
			if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
				if errors.Is(err, repositories.ErrTeamNotFound) {
					return fmt.Errorf("%w: team %d", ErrTeamNotFound, teamID)
				}
				return err
			}
		}

		created, err := s.matchRepo.CreateWithFingerprint(ctx, tx, match)
		if err != nil {
			return err
		}
		if !created {
			s.logger.InfoContext(ctx, "match fingerprint already known",
				slog.String("fingerprint", input.Fingerprint),
				slog.Int("match_id", match.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) GetDisplayedMatch(ctx context.Context, matchID, viewerID int) (*MatchView, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	view := &MatchView{Match: match}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		team, err := s.teamRepo.GetByID(gctx, match.Team1ID)
		if err != nil {
			return fmt.Errorf("failed to load team1: %w", err)
		}
		match.Team1 = team
		return nil
	})
	g.Go(func() error {
		team, err := s.teamRepo.GetByID(gctx, match.Team2ID)
		if err != nil {
			return fmt.Errorf("failed to load team2: %w", err)
		}
		match.Team2 = team
		return nil
	})
	g.Go(func() error {
		streams, err := s.streamRepo.ListByMatch(gctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load streams: %w", err)
		}
		view.Streams = streams
		return nil
	})
	if viewerID != 0 {
		g.Go(func() error {
			starred, err := s.starRepo.HasMatchStar(gctx, viewerID, matchID)
			if err != nil {
				return fmt.Errorf("failed to check viewer star: %w", err)
			}
			view.StarredByViewer = starred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Match], error) {
	var src pagination.Source[models.Match]
	switch filter {
	case FilterStarred:
		if viewerID == 0 {
			return pagination.Page[models.Match]{}, ErrStarredFilterNoViewer
		}
		src = s.matchRepo.StarredBy(viewerID)
	default:
		src = s.matchRepo.All()
	}
	return pagination.Paginate(ctx, src, cursor, dir, s.pageSize)
}

func (s *matchService) ListMatchesByTeam(ctx context.Context, teamID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Match], error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return pagination.Page[models.Match]{}, ErrTeamNotFound
		}
		return pagination.Page[models.Match]{}, err
	}
	return pagination.Paginate(ctx, s.matchRepo.ByTeam(teamID), cursor, dir, s.pageSize)
}
