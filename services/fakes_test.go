package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
	"github.com/Dosada05/stream-follow/repositories"
)

// newTxDB builds a *sql.DB whose transactions trivially succeed. The fake
// repositories below hold all state in memory and never touch the executor,
// so only begin/commit/rollback need to work.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 128; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type pair [2]int

// memStore is one in-memory backing for every fake repository, so the
// calendar fan-out can see the star and stream relations exactly as the SQL
// does.
type memStore struct {
	users    map[int]*models.User
	teams    map[int]*models.Team
	matches  map[int]*models.Match
	nextID   int
	byEmail  map[string]int
	bySteam  map[string]int
	byTwitch map[string]int

	// Relation maps are keyed (userID, targetID); streams are keyed
	// (streamerID, matchID), playlist links (playlistID, bookmarkID).
	starredMatches   map[pair]models.StarredMatch
	starredTeams     map[pair]models.StarredTeam
	starredStreamers map[pair]models.StarredStreamer
	streams          map[pair]models.StreamedMatch
	calendar         map[pair]*models.CalendarEntry

	playlists     map[int]*models.Playlist
	videos        map[int]*models.Video
	bookmarks     map[int]*models.Bookmark
	playlistLinks map[pair]models.PlaylistBookmark
	playlistVotes map[pair]*models.PlaylistVote
	bookmarkVotes map[pair]*models.BookmarkVote

	// Row ids locked via GetByIDForUpdate, in acquisition order.
	lockedTeams []int
	lockedUsers []int
}

func newMemStore() *memStore {
	return &memStore{
		users:            make(map[int]*models.User),
		teams:            make(map[int]*models.Team),
		matches:          make(map[int]*models.Match),
		nextID:           1,
		byEmail:          make(map[string]int),
		bySteam:          make(map[string]int),
		byTwitch:         make(map[string]int),
		starredMatches:   make(map[pair]models.StarredMatch),
		starredTeams:     make(map[pair]models.StarredTeam),
		starredStreamers: make(map[pair]models.StarredStreamer),
		streams:          make(map[pair]models.StreamedMatch),
		calendar:         make(map[pair]*models.CalendarEntry),
		playlists:        make(map[int]*models.Playlist),
		videos:           make(map[int]*models.Video),
		bookmarks:        make(map[int]*models.Bookmark),
		playlistLinks:    make(map[pair]models.PlaylistBookmark),
		playlistVotes:    make(map[pair]*models.PlaylistVote),
		bookmarkVotes:    make(map[pair]*models.BookmarkVote),
	}
}

func (s *memStore) id() int {
	id := s.nextID
	s.nextID++
	return id
}

// Seeding helpers.

func (s *memStore) addUser(name string) *models.User {
	u := &models.User{ID: s.id(), DisplayName: name, IndexedName: indexName(name)}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addTeam(name string) *models.Team {
	t := &models.Team{ID: s.id(), Name: name, IndexedName: indexName(name), Fingerprint: "fp:" + name}
	s.teams[t.ID] = t
	return t
}

func (s *memStore) addMatch(team1, team2 *models.Team, at time.Time) *models.Match {
	m := &models.Match{ID: s.id(), Team1ID: team1.ID, Team2ID: team2.ID, Time: at, Fingerprint: "fp:match"}
	s.matches[m.ID] = m
	return m
}

func (s *memStore) addPlaylist(owner *models.User, name string) *models.Playlist {
	p := &models.Playlist{ID: s.id(), UserID: owner.ID, Name: name, IndexedName: indexName(name), Created: time.Now()}
	s.playlists[p.ID] = p
	return p
}

func (s *memStore) addVideo(title string) *models.Video {
	v := &models.Video{ID: s.id(), Title: title, URL: "https://youtube.com/watch?v=" + title, ExternalID: "youtube:" + title}
	s.videos[v.ID] = v
	return v
}

func (s *memStore) addBookmark(owner *models.User, video *models.Video, title string) *models.Bookmark {
	b := &models.Bookmark{ID: s.id(), UserID: owner.ID, VideoID: video.ID, Title: title, Added: time.Now()}
	s.bookmarks[b.ID] = b
	return b
}

func streamFor(streamerID int, match *models.Match) models.StreamedMatch {
	return models.StreamedMatch{StreamerID: streamerID, MatchID: match.ID, Time: match.Time, Added: time.Now()}
}

func (s *memStore) calendarCount(userID, matchID int) int {
	entry, ok := s.calendar[pair{userID, matchID}]
	if !ok {
		return 0
	}
	return entry.NumUserStars
}

func (s *memStore) bumpCalendar(userID, matchID, delta int, matchTime time.Time) {
	key := pair{userID, matchID}
	if entry, ok := s.calendar[key]; ok {
		entry.NumUserStars += delta
		if entry.NumUserStars <= 0 {
			delete(s.calendar, key)
		}
		return
	}
	if delta > 0 {
		s.calendar[key] = &models.CalendarEntry{UserID: userID, MatchID: matchID, Time: matchTime, NumUserStars: delta}
	}
}

// --- UserRepository ---

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(_ context.Context, _ repositories.SQLExecutor, user *models.User) error {
	if user.Email != nil {
		if _, taken := r.s.byEmail[*user.Email]; taken {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.s.id()
	copied := *user
	r.s.users[user.ID] = &copied
	if user.Email != nil {
		r.s.byEmail[*user.Email] = user.ID
	}
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.s.lockedUsers = append(r.s.lockedUsers, id)
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *r.s.users[id]
	return &copied, nil
}

func (r *fakeUserRepo) GetBySteamID(_ context.Context, _ repositories.SQLExecutor, steamID string) (*models.User, error) {
	id, ok := r.s.bySteam[steamID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *r.s.users[id]
	return &copied, nil
}

func (r *fakeUserRepo) GetByTwitchID(_ context.Context, _ repositories.SQLExecutor, twitchID string) (*models.User, error) {
	id, ok := r.s.byTwitch[twitchID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *r.s.users[id]
	return &copied, nil
}

func (r *fakeUserRepo) UpsertSteamIdentity(_ context.Context, _ repositories.SQLExecutor, identity *models.SteamIdentity) error {
	r.s.bySteam[identity.SteamID] = identity.UserID
	return nil
}

func (r *fakeUserRepo) UpsertTwitchIdentity(_ context.Context, _ repositories.SQLExecutor, identity *models.TwitchIdentity) error {
	r.s.byTwitch[identity.TwitchID] = identity.UserID
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, _ repositories.SQLExecutor, user *models.User) error {
	stored, ok := r.s.users[user.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	stored.DisplayName = user.DisplayName
	stored.IndexedName = user.IndexedName
	stored.AvatarURL = user.AvatarURL
	stored.AvatarFullURL = user.AvatarFullURL
	stored.LastSeen = user.LastSeen
	stored.URLByName = user.URLByName
	return nil
}

func (r *fakeUserRepo) ClearURLByName(_ context.Context, _ repositories.SQLExecutor, urlByName string, keepUserID int) error {
	for _, user := range r.s.users {
		if user.ID != keepUserID && user.URLByName != nil && *user.URLByName == urlByName {
			user.URLByName = nil
		}
	}
	return nil
}

func (r *fakeUserRepo) UpdateURLByID(_ context.Context, _ repositories.SQLExecutor, userID int, urlByID string) error {
	user, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.URLByID = urlByID
	return nil
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, userID int, key *string) error {
	user, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.AvatarKey = key
	return nil
}

func (r *fakeUserRepo) AddStars(_ context.Context, _ repositories.SQLExecutor, userID, delta int) error {
	user, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.NumStars += delta
	return nil
}

func (r *fakeUserRepo) Exists(_ context.Context, _ repositories.SQLExecutor, id int) (bool, error) {
	_, ok := r.s.users[id]
	return ok, nil
}

func (r *fakeUserRepo) Streamers() pagination.Source[models.User]             { return nil }
func (r *fakeUserRepo) StreamersStarredBy(int) pagination.Source[models.User] { return nil }

// --- TeamRepository ---

type fakeTeamRepo struct{ s *memStore }

func (r *fakeTeamRepo) UpsertByFingerprint(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	for _, existing := range r.s.teams {
		if existing.Fingerprint == team.Fingerprint {
			existing.Name = team.Name
			existing.IndexedName = team.IndexedName
			team.ID = existing.ID
			team.NumStars = existing.NumStars
			return nil
		}
	}
	team.ID = r.s.id()
	copied := *team
	r.s.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	team, ok := r.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	r.s.lockedTeams = append(r.s.lockedTeams, id)
	return r.GetByID(ctx, id)
}

func (r *fakeTeamRepo) AddStars(_ context.Context, _ repositories.SQLExecutor, teamID, delta int) error {
	team, ok := r.s.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.NumStars += delta
	return nil
}

func (r *fakeTeamRepo) All() pagination.Source[models.Team]          { return nil }
func (r *fakeTeamRepo) StarredBy(int) pagination.Source[models.Team] { return nil }

// --- MatchRepository ---

type fakeMatchRepo struct{ s *memStore }

func (r *fakeMatchRepo) CreateWithFingerprint(_ context.Context, _ repositories.SQLExecutor, match *models.Match) (bool, error) {
	for _, existing := range r.s.matches {
		if existing.Fingerprint == match.Fingerprint {
			*match = *existing
			return false, nil
		}
	}
	match.ID = r.s.id()
	copied := *match
	r.s.matches[match.ID] = &copied
	return true, nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	match, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) AddStars(_ context.Context, _ repositories.SQLExecutor, matchID, delta int) error {
	match, ok := r.s.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.NumStars += delta
	return nil
}

func (r *fakeMatchRepo) IncrementStreams(_ context.Context, _ repositories.SQLExecutor, matchID int) (int, error) {
	match, ok := r.s.matches[matchID]
	if !ok {
		return 0, repositories.ErrMatchNotFound
	}
	match.NumStreams++
	return match.NumStreams, nil
}

func (r *fakeMatchRepo) DecrementStreams(_ context.Context, _ repositories.SQLExecutor, matchID int) (int, error) {
	match, ok := r.s.matches[matchID]
	if !ok {
		return 0, repositories.ErrMatchNotFound
	}
	match.NumStreams--
	return match.NumStreams, nil
}

func (r *fakeMatchRepo) SetStreamed(_ context.Context, _ repositories.SQLExecutor, matchID int, streamed bool) error {
	match, ok := r.s.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.IsStreamed = streamed
	return nil
}

func (r *fakeMatchRepo) All() pagination.Source[models.Match]          { return nil }
func (r *fakeMatchRepo) StarredBy(int) pagination.Source[models.Match] { return nil }
func (r *fakeMatchRepo) ByTeam(int) pagination.Source[models.Match]    { return nil }

// --- StarRepository ---

type fakeStarRepo struct{ s *memStore }

func (r *fakeStarRepo) AddMatchStar(_ context.Context, _ repositories.SQLExecutor, star *models.StarredMatch) (bool, error) {
	key := pair{star.UserID, star.MatchID}
	if _, ok := r.s.starredMatches[key]; ok {
		return false, nil
	}
	r.s.starredMatches[key] = *star
	return true, nil
}

func (r *fakeStarRepo) RemoveMatchStar(_ context.Context, _ repositories.SQLExecutor, userID, matchID int) (bool, error) {
	key := pair{userID, matchID}
	if _, ok := r.s.starredMatches[key]; !ok {
		return false, nil
	}
	delete(r.s.starredMatches, key)
	return true, nil
}

func (r *fakeStarRepo) HasMatchStar(_ context.Context, userID, matchID int) (bool, error) {
	_, ok := r.s.starredMatches[pair{userID, matchID}]
	return ok, nil
}

func (r *fakeStarRepo) AddTeamStar(_ context.Context, _ repositories.SQLExecutor, star *models.StarredTeam) (bool, error) {
	key := pair{star.UserID, star.TeamID}
	if _, ok := r.s.starredTeams[key]; ok {
		return false, nil
	}
	r.s.starredTeams[key] = *star
	return true, nil
}

func (r *fakeStarRepo) RemoveTeamStar(_ context.Context, _ repositories.SQLExecutor, userID, teamID int) (bool, error) {
	key := pair{userID, teamID}
	if _, ok := r.s.starredTeams[key]; !ok {
		return false, nil
	}
	delete(r.s.starredTeams, key)
	return true, nil
}

func (r *fakeStarRepo) HasTeamStar(_ context.Context, userID, teamID int) (bool, error) {
	_, ok := r.s.starredTeams[pair{userID, teamID}]
	return ok, nil
}

func (r *fakeStarRepo) AddStreamerStar(_ context.Context, _ repositories.SQLExecutor, star *models.StarredStreamer) (bool, error) {
	key := pair{star.UserID, star.StreamerID}
	if _, ok := r.s.starredStreamers[key]; ok {
		return false, nil
	}
	r.s.starredStreamers[key] = *star
	return true, nil
}

func (r *fakeStarRepo) RemoveStreamerStar(_ context.Context, _ repositories.SQLExecutor, userID, streamerID int) (bool, error) {
	key := pair{userID, streamerID}
	if _, ok := r.s.starredStreamers[key]; !ok {
		return false, nil
	}
	delete(r.s.starredStreamers, key)
	return true, nil
}

func (r *fakeStarRepo) HasStreamerStar(_ context.Context, userID, streamerID int) (bool, error) {
	_, ok := r.s.starredStreamers[pair{userID, streamerID}]
	return ok, nil
}

// --- StreamRepository ---

type fakeStreamRepo struct{ s *memStore }

func (r *fakeStreamRepo) Add(_ context.Context, _ repositories.SQLExecutor, stream *models.StreamedMatch) (bool, error) {
	key := pair{stream.StreamerID, stream.MatchID}
	if _, ok := r.s.streams[key]; ok {
		return false, nil
	}
	r.s.streams[key] = *stream
	return true, nil
}

func (r *fakeStreamRepo) Remove(_ context.Context, _ repositories.SQLExecutor, streamerID, matchID int) (bool, error) {
	key := pair{streamerID, matchID}
	if _, ok := r.s.streams[key]; !ok {
		return false, nil
	}
	delete(r.s.streams, key)
	return true, nil
}

func (r *fakeStreamRepo) ListByMatch(_ context.Context, matchID int) ([]*models.StreamedMatch, error) {
	var out []*models.StreamedMatch
	for key, stream := range r.s.streams {
		if key[1] == matchID {
			copied := stream
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Added.Before(out[j].Added) })
	return out, nil
}

func (r *fakeStreamRepo) ByStreamer(int) pagination.Source[models.StreamedMatch] { return nil }

// --- CalendarRepository ---

// fakeCalendarRepo mirrors the set-based SQL fan-out against the in-memory
// relations, including the missing-row detection on decrements.
type fakeCalendarRepo struct{ s *memStore }

func (r *fakeCalendarRepo) FanOutMatchStars(_ context.Context, _ repositories.SQLExecutor, matchID int, matchTime time.Time) error {
	for key := range r.s.starredMatches {
		if key[1] == matchID {
			r.s.bumpCalendar(key[0], matchID, 1, matchTime)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) FanOutTeamStars(_ context.Context, _ repositories.SQLExecutor, matchID, team1ID, team2ID int, matchTime time.Time) error {
	for key := range r.s.starredTeams {
		if key[1] == team1ID || key[1] == team2ID {
			r.s.bumpCalendar(key[0], matchID, 1, matchTime)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) FanOutStreamerStars(_ context.Context, _ repositories.SQLExecutor, matchID, streamerID int, matchTime time.Time) error {
	for key := range r.s.starredStreamers {
		if key[1] == streamerID {
			r.s.bumpCalendar(key[0], matchID, 1, matchTime)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) WithdrawStreamerStars(_ context.Context, _ repositories.SQLExecutor, matchID, streamerID int) error {
	for key := range r.s.starredStreamers {
		if key[1] != streamerID {
			continue
		}
		if _, ok := r.s.calendar[pair{key[0], matchID}]; !ok {
			return repositories.ErrCalendarEntryMissing
		}
		r.s.bumpCalendar(key[0], matchID, -1, time.Time{})
	}
	return nil
}

func (r *fakeCalendarRepo) DeleteAllForMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) error {
	for key := range r.s.calendar {
		if key[1] == matchID {
			delete(r.s.calendar, key)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) IncrementOne(_ context.Context, _ repositories.SQLExecutor, userID, matchID int, matchTime time.Time) error {
	r.s.bumpCalendar(userID, matchID, 1, matchTime)
	return nil
}

func (r *fakeCalendarRepo) DecrementOne(_ context.Context, _ repositories.SQLExecutor, userID, matchID int) error {
	if _, ok := r.s.calendar[pair{userID, matchID}]; !ok {
		return repositories.ErrCalendarEntryMissing
	}
	r.s.bumpCalendar(userID, matchID, -1, time.Time{})
	return nil
}

func (r *fakeCalendarRepo) IncrementForTeamStar(_ context.Context, _ repositories.SQLExecutor, userID, teamID int) error {
	for _, match := range r.s.matches {
		if match.IsStreamed && (match.Team1ID == teamID || match.Team2ID == teamID) {
			r.s.bumpCalendar(userID, match.ID, 1, match.Time)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) DecrementForTeamStar(_ context.Context, _ repositories.SQLExecutor, userID, teamID int) error {
	for _, match := range r.s.matches {
		if match.IsStreamed && (match.Team1ID == teamID || match.Team2ID == teamID) {
			if _, ok := r.s.calendar[pair{userID, match.ID}]; !ok {
				return repositories.ErrCalendarEntryMissing
			}
			r.s.bumpCalendar(userID, match.ID, -1, time.Time{})
		}
	}
	return nil
}

func (r *fakeCalendarRepo) IncrementForStreamerStar(_ context.Context, _ repositories.SQLExecutor, userID, streamerID int) error {
	for key, stream := range r.s.streams {
		if key[0] == streamerID {
			r.s.bumpCalendar(userID, stream.MatchID, 1, stream.Time)
		}
	}
	return nil
}

func (r *fakeCalendarRepo) DecrementForStreamerStar(_ context.Context, _ repositories.SQLExecutor, userID, streamerID int) error {
	for key, stream := range r.s.streams {
		if key[0] == streamerID {
			if _, ok := r.s.calendar[pair{userID, stream.MatchID}]; !ok {
				return repositories.ErrCalendarEntryMissing
			}
			r.s.bumpCalendar(userID, stream.MatchID, -1, time.Time{})
		}
	}
	return nil
}

func (r *fakeCalendarRepo) ForUser(int) pagination.Source[models.CalendarEntry] { return nil }

// --- PlaylistRepository ---

type fakePlaylistRepo struct{ s *memStore }

func (r *fakePlaylistRepo) Create(_ context.Context, playlist *models.Playlist) error {
	playlist.ID = r.s.id()
	copied := *playlist
	r.s.playlists[playlist.ID] = &copied
	return nil
}

func (r *fakePlaylistRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Playlist, error) {
	playlist, ok := r.s.playlists[id]
	if !ok {
		return nil, repositories.ErrPlaylistNotFound
	}
	copied := *playlist
	return &copied, nil
}

func (r *fakePlaylistRepo) AddBookmarkLink(_ context.Context, _ repositories.SQLExecutor, link *models.PlaylistBookmark) (bool, error) {
	key := pair{link.PlaylistID, link.BookmarkID}
	if _, ok := r.s.playlistLinks[key]; ok {
		return false, nil
	}
	r.s.playlistLinks[key] = *link
	return true, nil
}

func (r *fakePlaylistRepo) RemoveBookmarkLink(_ context.Context, _ repositories.SQLExecutor, playlistID, bookmarkID int) (bool, error) {
	key := pair{playlistID, bookmarkID}
	if _, ok := r.s.playlistLinks[key]; !ok {
		return false, nil
	}
	delete(r.s.playlistLinks, key)
	return true, nil
}

func (r *fakePlaylistRepo) AddBookmarks(_ context.Context, _ repositories.SQLExecutor, playlistID, delta int) error {
	playlist, ok := r.s.playlists[playlistID]
	if !ok {
		return repositories.ErrPlaylistNotFound
	}
	playlist.NumBookmarks += delta
	return nil
}

func (r *fakePlaylistRepo) GetVoteForUpdate(_ context.Context, _ repositories.SQLExecutor, userID, playlistID int) (*bool, error) {
	vote, ok := r.s.playlistVotes[pair{userID, playlistID}]
	if !ok {
		return nil, nil
	}
	thumbUp := vote.ThumbUp
	return &thumbUp, nil
}

func (r *fakePlaylistRepo) GetVote(ctx context.Context, exec repositories.SQLExecutor, userID, playlistID int) (*bool, error) {
	return r.GetVoteForUpdate(ctx, exec, userID, playlistID)
}

func (r *fakePlaylistRepo) InsertVote(_ context.Context, _ repositories.SQLExecutor, vote *models.PlaylistVote) (bool, error) {
	key := pair{vote.UserID, vote.PlaylistID}
	if _, ok := r.s.playlistVotes[key]; ok {
		return false, nil
	}
	r.s.playlistVotes[key] = vote
	return true, nil
}

func (r *fakePlaylistRepo) UpdateVote(_ context.Context, _ repositories.SQLExecutor, userID, playlistID int, thumbUp bool) error {
	vote, ok := r.s.playlistVotes[pair{userID, playlistID}]
	if !ok {
		return sql.ErrNoRows
	}
	vote.ThumbUp = thumbUp
	return nil
}

func (r *fakePlaylistRepo) DeleteVote(_ context.Context, _ repositories.SQLExecutor, userID, playlistID int) (bool, error) {
	key := pair{userID, playlistID}
	if _, ok := r.s.playlistVotes[key]; !ok {
		return false, nil
	}
	delete(r.s.playlistVotes, key)
	return true, nil
}

func (r *fakePlaylistRepo) AddThumbs(_ context.Context, _ repositories.SQLExecutor, playlistID, upDelta, downDelta int) error {
	playlist, ok := r.s.playlists[playlistID]
	if !ok {
		return repositories.ErrPlaylistNotFound
	}
	playlist.NumThumbsUp += upDelta
	playlist.NumThumbsDown += downDelta
	return nil
}

func (r *fakePlaylistRepo) All() pagination.Source[models.Playlist]            { return nil }
func (r *fakePlaylistRepo) BookmarksOf(int) pagination.Source[models.Bookmark] { return nil }

// --- VideoRepository ---

type fakeVideoRepo struct{ s *memStore }

func (r *fakeVideoRepo) UpsertByExternalID(_ context.Context, video *models.Video) error {
	for _, existing := range r.s.videos {
		if existing.ExternalID == video.ExternalID {
			existing.Title = video.Title
			existing.URL = video.URL
			video.ID = existing.ID
			return nil
		}
	}
	video.ID = r.s.id()
	copied := *video
	r.s.videos[video.ID] = &copied
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id int) (*models.Video, error) {
	video, ok := r.s.videos[id]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (r *fakeVideoRepo) CreateBookmark(_ context.Context, bookmark *models.Bookmark) error {
	bookmark.ID = r.s.id()
	copied := *bookmark
	r.s.bookmarks[bookmark.ID] = &copied
	return nil
}

func (r *fakeVideoRepo) GetBookmarkByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Bookmark, error) {
	bookmark, ok := r.s.bookmarks[id]
	if !ok {
		return nil, repositories.ErrBookmarkNotFound
	}
	copied := *bookmark
	return &copied, nil
}

func (r *fakeVideoRepo) GetVoteForUpdate(_ context.Context, _ repositories.SQLExecutor, userID, bookmarkID int) (*bool, error) {
	vote, ok := r.s.bookmarkVotes[pair{userID, bookmarkID}]
	if !ok {
		return nil, nil
	}
	thumbUp := vote.ThumbUp
	return &thumbUp, nil
}

func (r *fakeVideoRepo) InsertVote(_ context.Context, _ repositories.SQLExecutor, vote *models.BookmarkVote) (bool, error) {
	key := pair{vote.UserID, vote.BookmarkID}
	if _, ok := r.s.bookmarkVotes[key]; ok {
		return false, nil
	}
	r.s.bookmarkVotes[key] = vote
	return true, nil
}

func (r *fakeVideoRepo) UpdateVote(_ context.Context, _ repositories.SQLExecutor, userID, bookmarkID int, thumbUp bool) error {
	vote, ok := r.s.bookmarkVotes[pair{userID, bookmarkID}]
	if !ok {
		return sql.ErrNoRows
	}
	vote.ThumbUp = thumbUp
	return nil
}

func (r *fakeVideoRepo) DeleteVote(_ context.Context, _ repositories.SQLExecutor, userID, bookmarkID int) (bool, error) {
	key := pair{userID, bookmarkID}
	if _, ok := r.s.bookmarkVotes[key]; !ok {
		return false, nil
	}
	delete(r.s.bookmarkVotes, key)
	return true, nil
}

func (r *fakeVideoRepo) AddThumbs(_ context.Context, _ repositories.SQLExecutor, bookmarkID, upDelta, downDelta int) error {
	bookmark, ok := r.s.bookmarks[bookmarkID]
	if !ok {
		return repositories.ErrBookmarkNotFound
	}
	bookmark.NumThumbsUp += upDelta
	bookmark.NumThumbsDown += downDelta
	return nil
}

func (r *fakeVideoRepo) BookmarksBy(int) pagination.Source[models.Bookmark] { return nil }

func (r *fakeVideoRepo) BookmarksOfVideo(videoID int) pagination.Source[models.Bookmark] {
	return &memBookmarkSource{s: r.s, videoID: videoID}
}

// memBookmarkSource is an in-memory Source over a video's bookmarks ordered
// by (added, id), matching the SQL source's ordering.
type memBookmarkSource struct {
	s       *memStore
	videoID int
}

func (src *memBookmarkSource) sorted() []models.Bookmark {
	var items []models.Bookmark
	for _, b := range src.s.bookmarks {
		if b.VideoID == src.videoID {
			items = append(items, *b)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Added.Equal(items[j].Added) {
			return items[i].Added.Before(items[j].Added)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (src *memBookmarkSource) FetchAfter(_ context.Context, after *pagination.Cursor, limit int) ([]models.Bookmark, error) {
	var out []models.Bookmark
	for _, b := range src.sorted() {
		key := src.Key(b)
		if after != nil && (key.Primary < after.Primary || (key.Primary == after.Primary && key.ID <= after.ID)) {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (src *memBookmarkSource) FetchBefore(_ context.Context, before pagination.Cursor, limit int) ([]models.Bookmark, error) {
	items := src.sorted()
	var out []models.Bookmark
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		key := src.Key(items[i])
		if key.Primary > before.Primary || (key.Primary == before.Primary && key.ID >= before.ID) {
			continue
		}
		out = append(out, items[i])
	}
	return out, nil
}

func (src *memBookmarkSource) Bounds(_ context.Context) (int, int, bool, error) {
	items := src.sorted()
	if len(items) == 0 {
		return 0, 0, false, nil
	}
	return items[0].ID, items[len(items)-1].ID, true, nil
}

func (src *memBookmarkSource) Key(b models.Bookmark) pagination.Cursor {
	return pagination.Cursor{Primary: b.Added.UTC().Format(time.RFC3339Nano), ID: b.ID}
}

// --- EventPublisher ---

type publishedEvent struct {
	MatchID int
	Type    string
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishMatch(matchID int, eventType string, _ interface{}) {
	p.events = append(p.events, publishedEvent{MatchID: matchID, Type: eventType})
}
