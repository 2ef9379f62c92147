package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlaylistFixture(t *testing.T) (*memStore, PlaylistService) {
	t.Helper()
	store := newMemStore()
	svc := NewPlaylistService(
		newTxDB(t),
		&fakePlaylistRepo{s: store},
		&fakeVideoRepo{s: store},
		&fakeUserRepo{s: store},
		testLogger(),
		20,
	)
	return store, svc
}

func TestCreatePlaylist(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	owner := store.addUser("alice")

	playlist, err := svc.CreatePlaylist(context.Background(), owner.ID, CreatePlaylistInput{Name: "Best of 2026"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, playlist.UserID)
	assert.Equal(t, "best of 2026", playlist.IndexedName)

	_, err = svc.CreatePlaylist(context.Background(), owner.ID, CreatePlaylistInput{})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAddBookmarkToPlaylist_Counter(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	ctx := context.Background()

	owner := store.addUser("alice")
	playlist := store.addPlaylist(owner, "highlights")
	video := store.addVideo("abc123")
	bookmark := store.addBookmark(owner, video, "ace round")

	require.NoError(t, svc.AddBookmarkToPlaylist(ctx, owner.ID, playlist.ID, bookmark.ID))
	assert.Equal(t, 1, store.playlists[playlist.ID].NumBookmarks)

	// Повторное добавление той же закладки — no-op.
	require.NoError(t, svc.AddBookmarkToPlaylist(ctx, owner.ID, playlist.ID, bookmark.ID))
	assert.Equal(t, 1, store.playlists[playlist.ID].NumBookmarks)

	require.NoError(t, svc.RemoveBookmarkFromPlaylist(ctx, owner.ID, playlist.ID, bookmark.ID))
	assert.Equal(t, 0, store.playlists[playlist.ID].NumBookmarks)

	require.NoError(t, svc.RemoveBookmarkFromPlaylist(ctx, owner.ID, playlist.ID, bookmark.ID))
	assert.Equal(t, 0, store.playlists[playlist.ID].NumBookmarks)
}

func TestAddBookmarkToPlaylist_OwnerOnly(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	ctx := context.Background()

	owner := store.addUser("alice")
	intruder := store.addUser("mallory")
	playlist := store.addPlaylist(owner, "highlights")
	video := store.addVideo("abc123")
	bookmark := store.addBookmark(owner, video, "ace round")

	err := svc.AddBookmarkToPlaylist(ctx, intruder.ID, playlist.ID, bookmark.ID)
	assert.ErrorIs(t, err, ErrPlaylistOwnerOnly)
}

func TestAddBookmarkToPlaylist_BookmarkNotFound(t *testing.T) {
	store, svc := newPlaylistFixture(t)

	owner := store.addUser("alice")
	playlist := store.addPlaylist(owner, "highlights")

	err := svc.AddBookmarkToPlaylist(context.Background(), owner.ID, playlist.ID, 999)
	assert.ErrorIs(t, err, ErrBookmarkNotFound)
}

func TestAddVideo_DedupsByExternalID(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	ctx := context.Background()

	first, err := svc.AddVideo(ctx, AddVideoInput{Title: "Grand final", URL: "https://youtube.com/watch?v=abc", ExternalID: "youtube:abc"})
	require.NoError(t, err)

	second, err := svc.AddVideo(ctx, AddVideoInput{Title: "Grand final (re-upload)", URL: "https://youtube.com/watch?v=abc", ExternalID: "youtube:abc"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.videos, 1)
	assert.Equal(t, "Grand final (re-upload)", store.videos[first.ID].Title)
}

func TestGetDisplayedVideo(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	ctx := context.Background()

	owner := store.addUser("alice")
	video := store.addVideo("abc123")
	other := store.addVideo("zzz999")
	first := store.addBookmark(owner, video, "pistol round")
	second := store.addBookmark(owner, video, "ace round")
	store.addBookmark(owner, other, "unrelated")

	view, err := svc.GetDisplayedVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, video.ID, view.Video.ID)

	require.Len(t, view.Bookmarks.Items, 2)
	ids := []int{view.Bookmarks.Items[0].ID, view.Bookmarks.Items[1].ID}
	assert.ElementsMatch(t, []int{first.ID, second.ID}, ids)
	assert.Nil(t, view.Bookmarks.Next)

	_, err = svc.GetDisplayedVideo(ctx, 999)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestAddBookmark(t *testing.T) {
	store, svc := newPlaylistFixture(t)
	ctx := context.Background()

	owner := store.addUser("alice")
	video := store.addVideo("abc123")

	bookmark, err := svc.AddBookmark(ctx, owner.ID, AddBookmarkInput{VideoID: video.ID, Title: "clutch", StartSeconds: 754})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, bookmark.UserID)
	require.NotNil(t, bookmark.Video)
	assert.Equal(t, video.ID, bookmark.Video.ID)

	_, err = svc.AddBookmark(ctx, owner.ID, AddBookmarkInput{VideoID: 999, Title: "ghost"})
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
