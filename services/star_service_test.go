package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStarFixture(t *testing.T) (*memStore, StarService) {
	t.Helper()
	store := newMemStore()
	svc := NewStarService(
		newTxDB(t),
		&fakeUserRepo{s: store},
		&fakeTeamRepo{s: store},
		&fakeMatchRepo{s: store},
		&fakeStarRepo{s: store},
		&fakeCalendarRepo{s: store},
		&fakePublisher{},
		testLogger(),
	)
	return store, svc
}

func TestStarMatch_IncrementsCounterOnce(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))

	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))
	assert.Equal(t, 1, store.matches[match.ID].NumStars)

	// Повторная звезда — no-op, счетчик не двигается.
	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))
	assert.Equal(t, 1, store.matches[match.ID].NumStars)
}

func TestUnstarMatch_NeverStarredIsNoOp(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))

	require.NoError(t, svc.UnstarMatch(ctx, user.ID, match.ID))
	assert.Equal(t, 0, store.matches[match.ID].NumStars)
}

func TestStarMatch_NotFound(t *testing.T) {
	store, svc := newStarFixture(t)
	user := store.addUser("alice")

	err := svc.StarMatch(context.Background(), user.ID, 999)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestStarMatch_UnknownUser(t *testing.T) {
	store, svc := newStarFixture(t)
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))

	err := svc.StarMatch(context.Background(), 999, match.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStarTeam_Counter(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	team := store.addTeam("navi")

	require.NoError(t, svc.StarTeam(ctx, user.ID, team.ID))
	assert.Equal(t, 1, store.teams[team.ID].NumStars)

	require.NoError(t, svc.UnstarTeam(ctx, user.ID, team.ID))
	assert.Equal(t, 0, store.teams[team.ID].NumStars)

	// Второй unstar ничего не трогает.
	require.NoError(t, svc.UnstarTeam(ctx, user.ID, team.ID))
	assert.Equal(t, 0, store.teams[team.ID].NumStars)
}

func TestStarStreamer_SelfForbidden(t *testing.T) {
	store, svc := newStarFixture(t)
	user := store.addUser("alice")

	err := svc.StarStreamer(context.Background(), user.ID, user.ID)
	assert.ErrorIs(t, err, ErrSelfStarForbidden)
	assert.Equal(t, 0, store.users[user.ID].NumStars)
}

func TestStarStreamer_Counter(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	fan := store.addUser("alice")
	streamer := store.addUser("bob")

	require.NoError(t, svc.StarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, 1, store.users[streamer.ID].NumStars)

	require.NoError(t, svc.UnstarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, 0, store.users[streamer.ID].NumStars)
}

func TestStarMatch_PublishesEventOnlyOnChange(t *testing.T) {
	store := newMemStore()
	publisher := &fakePublisher{}
	svc := NewStarService(
		newTxDB(t),
		&fakeUserRepo{s: store},
		&fakeTeamRepo{s: store},
		&fakeMatchRepo{s: store},
		&fakeStarRepo{s: store},
		&fakeCalendarRepo{s: store},
		publisher,
		testLogger(),
	)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))

	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))
	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID)) // no-op, no event
	require.NoError(t, svc.UnstarMatch(ctx, user.ID, match.ID))

	require.Len(t, publisher.events, 2)
	assert.Equal(t, publishedEvent{MatchID: match.ID, Type: EventMatchStarred}, publisher.events[0])
	assert.Equal(t, publishedEvent{MatchID: match.ID, Type: EventMatchUnstarred}, publisher.events[1])
}

func TestStarMatch_WhileStreamedTouchesCalendar(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))
	match.IsStreamed = true
	match.NumStreams = 1

	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))
	assert.Equal(t, 1, store.calendarCount(user.ID, match.ID))

	require.NoError(t, svc.UnstarMatch(ctx, user.ID, match.ID))
	assert.Equal(t, 0, store.calendarCount(user.ID, match.ID))
}

func TestStarMatch_NotStreamedLeavesCalendarAlone(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))

	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))
	assert.Empty(t, store.calendar)
}

func TestUnstarMatch_MissingCalendarRowViolatesInvariant(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	user := store.addUser("alice")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))
	match.IsStreamed = true
	match.NumStreams = 1

	require.NoError(t, svc.StarMatch(ctx, user.ID, match.ID))

	// Симулируем порчу: запись календаря исчезла, а звезда осталась.
	delete(store.calendar, pair{user.ID, match.ID})

	err := svc.UnstarMatch(ctx, user.ID, match.ID)
	assert.ErrorIs(t, err, ErrCalendarInvariant)
}

func TestStarStreamer_WhileStreamingTouchesCalendar(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	fan := store.addUser("alice")
	streamer := store.addUser("bob")
	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	match := store.addMatch(t1, t2, time.Now().Add(time.Hour))
	match.IsStreamed = true
	match.NumStreams = 1
	store.streams[pair{streamer.ID, match.ID}] = streamFor(streamer.ID, match)

	require.NoError(t, svc.StarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, 1, store.calendarCount(fan.ID, match.ID))

	require.NoError(t, svc.UnstarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, 0, store.calendarCount(fan.ID, match.ID))
}

func TestStarTargets_LockTheirRows(t *testing.T) {
	store, svc := newStarFixture(t)
	ctx := context.Background()

	fan := store.addUser("alice")
	streamer := store.addUser("bob")
	team := store.addTeam("navi")

	require.NoError(t, svc.StarTeam(ctx, fan.ID, team.ID))
	assert.Equal(t, []int{team.ID}, store.lockedTeams)

	require.NoError(t, svc.StarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, []int{streamer.ID}, store.lockedUsers)

	store.lockedTeams, store.lockedUsers = nil, nil
	require.NoError(t, svc.UnstarTeam(ctx, fan.ID, team.ID))
	require.NoError(t, svc.UnstarStreamer(ctx, fan.ID, streamer.ID))
	assert.Equal(t, []int{team.ID}, store.lockedTeams)
	assert.Equal(t, []int{streamer.ID}, store.lockedUsers)
}
