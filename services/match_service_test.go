package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatchFixture(t *testing.T) (*memStore, MatchService) {
	t.Helper()
	store := newMemStore()
	svc := NewMatchService(
		newTxDB(t),
		&fakeMatchRepo{s: store},
		&fakeTeamRepo{s: store},
		&fakeStreamRepo{s: store},
		&fakeStarRepo{s: store},
		testLogger(),
		20,
	)
	return store, svc
}

func TestAddMatch_FingerprintDedup(t *testing.T) {
	store, svc := newMatchFixture(t)
	ctx := context.Background()

	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")
	input := AddMatchInput{
		Team1ID:     t1.ID,
		Team2ID:     t2.ID,
		Time:        time.Now().Add(time.Hour),
		Fingerprint: "esea:940821",
	}

	first, err := svc.AddMatch(ctx, input)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// Тот же fingerprint разрешается в существующий матч, новой строки нет.
	second, err := svc.AddMatch(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.matches, 1)
}

func TestAddMatch_Validation(t *testing.T) {
	store, svc := newMatchFixture(t)
	ctx := context.Background()

	t1 := store.addTeam("navi")
	t2 := store.addTeam("faze")

	_, err := svc.AddMatch(ctx, AddMatchInput{Team1ID: t1.ID, Team2ID: t2.ID, Time: time.Now()})
	assert.ErrorIs(t, err, ErrValidationFailed) // no fingerprint

	_, err = svc.AddMatch(ctx, AddMatchInput{Team1ID: t1.ID, Team2ID: t1.ID, Time: time.Now(), Fingerprint: "fp"})
	assert.ErrorIs(t, err, ErrValidationFailed) // same team twice

	_, err = svc.AddMatch(ctx, AddMatchInput{Team1ID: t1.ID, Team2ID: t2.ID, Fingerprint: "fp"})
	assert.ErrorIs(t, err, ErrValidationFailed) // zero time
}

func TestAddMatch_UnknownTeam(t *testing.T) {
	store, svc := newMatchFixture(t)

	t1 := store.addTeam("navi")
	_, err := svc.AddMatch(context.Background(), AddMatchInput{
		Team1ID:     t1.ID,
		Team2ID:     999,
		Time:        time.Now().Add(time.Hour),
		Fingerprint: "fp",
	})
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.Empty(t, store.matches)
}
