package routes

import (
	"github.com/Dosada05/stream-follow/handlers"
	"github.com/Dosada05/stream-follow/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes вешает все маршруты на router. Чтение публично (с опциональной
// персонализацией), любая мутация требует токен.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	streamerHandler *handlers.StreamerHandler,
	starHandler *handlers.StarHandler,
	streamHandler *handlers.StreamHandler,
	playlistHandler *handlers.PlaylistHandler,
	voteHandler *handlers.VoteHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	maybeAuthenticate := middleware.MaybeAuthenticate(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Post("/auth/provider/callback", authHandler.ProviderCallback)

	router.Route("/matches", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(maybeAuthenticate)
			r.Get("/", matchHandler.ListMatches)
			r.Get("/{matchID}", matchHandler.GetMatch)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", matchHandler.CreateMatch)
			r.Put("/{matchID}/star", starHandler.StarMatch)
			r.Delete("/{matchID}/star", starHandler.UnstarMatch)
			r.Put("/{matchID}/stream", streamHandler.AddStream)
			r.Delete("/{matchID}/stream", streamHandler.RemoveStream)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(maybeAuthenticate)
			r.Get("/", teamHandler.ListTeams)
			r.Get("/{teamID}", teamHandler.GetTeam)
			r.Get("/{teamID}/matches", matchHandler.ListMatchesByTeam)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", teamHandler.CreateTeam)
			r.Put("/{teamID}/star", starHandler.StarTeam)
			r.Delete("/{teamID}/star", starHandler.UnstarTeam)
		})
	})

	router.Route("/streamers", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(maybeAuthenticate)
			r.Get("/", streamerHandler.ListStreamers)
			r.Get("/{streamerID}", streamerHandler.GetStreamer)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Put("/{streamerID}/star", starHandler.StarStreamer)
			r.Delete("/{streamerID}/star", starHandler.UnstarStreamer)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", userHandler.GetUser)
		r.Get("/{userID}/calendar", userHandler.GetCalendar)
		r.Get("/{userID}/bookmarks", playlistHandler.ListBookmarksBy)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{userID}/avatar", userHandler.UploadAvatar)
		})
	})

	router.Route("/playlists", func(r chi.Router) {
		r.Get("/", playlistHandler.ListPlaylists)
		r.With(maybeAuthenticate).Get("/{playlistID}", playlistHandler.GetPlaylist)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", playlistHandler.CreatePlaylist)
			r.Put("/{playlistID}/bookmarks/{bookmarkID}", playlistHandler.AddBookmarkToPlaylist)
			r.Delete("/{playlistID}/bookmarks/{bookmarkID}", playlistHandler.RemoveBookmarkFromPlaylist)
			r.Put("/{playlistID}/vote", voteHandler.SetPlaylistVote)
			r.Delete("/{playlistID}/vote", voteHandler.RemovePlaylistVote)
		})
	})

	router.Route("/videos", func(r chi.Router) {
		r.Get("/{videoID}", playlistHandler.GetVideo)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", playlistHandler.AddVideo)
		})
	})

	router.Route("/bookmarks", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", playlistHandler.AddBookmark)
			r.Put("/{bookmarkID}/vote", voteHandler.SetBookmarkVote)
			r.Delete("/{bookmarkID}/vote", voteHandler.RemoveBookmarkVote)
		})
	})

	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeMatch)
}
