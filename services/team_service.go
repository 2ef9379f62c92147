package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
)

type AddTeamInput struct {
	Name        string `json:"name"`
	Game        string `json:"game"`
	Division    string `json:"division"`
	Fingerprint string `json:"fingerprint"`
}

// TeamView is the team page: the team plus a first page of its matches and
// the viewer's star state.
type TeamView struct {
	Team            *models.Team                  `json:"team"`
	Matches         pagination.Page[models.Match] `json:"matches"`
	StarredByViewer bool                          `json:"starred_by_viewer"`
}

type TeamService interface {
	// AddTeam creates the team or refreshes the names of the existing row
	// sharing the fingerprint.
	AddTeam(ctx context.Context, input AddTeamInput) (*models.Team, error)
	GetDisplayedTeam(ctx context.Context, teamID, viewerID int) (*TeamView, error)
	ListTeams(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Team], error)
}

type teamService struct {
	db        *sql.DB
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
	starRepo  repositories.StarRepository
	logger    *slog.Logger
	pageSize  int
}

func NewTeamService(
	db *sql.DB,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	starRepo repositories.StarRepository,
	logger *slog.Logger,
	pageSize int,
) TeamService {
	return &teamService{
		db:        db,
		teamRepo:  teamRepo,
		matchRepo: matchRepo,
		starRepo:  starRepo,
		logger:    logger,
		pageSize:  pageSize,
	}
}

func (s *teamService) AddTeam(ctx context.Context, input AddTeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidationFailed)
	}
	if input.Fingerprint == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", ErrValidationFailed)
	}

	team := &models.Team{
		Name:        input.Name,
		IndexedName: indexName(input.Name),
		Game:        input.Game,
		Division:    input.Division,
		Fingerprint: input.Fingerprint,
	}

	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return s.teamRepo.UpsertByFingerprint(ctx, tx, team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetDisplayedTeam(ctx context.Context, teamID, viewerID int) (*TeamView, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	view := &TeamView{Team: team}

	view.Matches, err = pagination.Paginate(ctx, s.matchRepo.ByTeam(teamID), nil, pagination.DirectionNext, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load team matches: %w", err)
	}

	if viewerID != 0 {
		view.StarredByViewer, err = s.starRepo.HasTeamStar(ctx, viewerID, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to check viewer star: %w", err)
		}
	}
	return view, nil
}

func (s *teamService) ListTeams(ctx context.Context, filter ListFilter, viewerID int, cursor *pagination.Cursor, dir pagination.Direction) (pagination.Page[models.Team], error) {
	var src pagination.Source[models.Team]
	switch filter {
	case FilterStarred:
		if viewerID == 0 {
			return pagination.Page[models.Team]{}, ErrStarredFilterNoViewer
		}
		src = s.teamRepo.StarredBy(viewerID)
	default:
		src = s.teamRepo.All()
	}
	return pagination.Paginate(ctx, src, cursor, dir, s.pageSize)
}
