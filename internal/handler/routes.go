package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/middleware"
	"github.com/BaGreal2/cinematch-server/internal/realtime"
	"github.com/BaGreal2/cinematch-server/internal/tmdb"
)

// Users is the account, profile and favorites storage behind the user routes.
type Users interface {
	Accounts
	Profiles
	Favorites
}

type Deps struct {
	Users   Users
	Tokens  TokenIssuer
	Auth    middleware.Verifier
	TMDB    *tmdb.Client
	Lobbies *lobby.Service
	Hub     *realtime.Hub
	Log     *zap.Logger
}

// NewRouter registers every route and wraps the mux with CORS and request
// logging.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	secured := middleware.AuthMiddleware(d.Auth)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", RegisterHandler(d.Users, log))
	mux.HandleFunc("POST /login", LoginHandler(d.Users, d.Tokens, log))
	mux.HandleFunc("GET /me", secured(MeHandler(d.Users, log)))

	mux.HandleFunc("GET /profile", secured(GetProfileHandler(d.Users, log)))
	mux.HandleFunc("PUT /profile", secured(UpdateProfileHandler(d.Users, log)))

	mux.HandleFunc("GET /favorites", secured(ListFavoritesHandler(d.Users, log)))
	mux.HandleFunc("POST /favorites/{id}", secured(AddFavoriteHandler(d.Users, log)))
	mux.HandleFunc("DELETE /favorites/{id}", secured(RemoveFavoriteHandler(d.Users, log)))

	mux.HandleFunc("GET /movies/trending", secured(TrendingHandler(d.TMDB, log)))
	mux.HandleFunc("GET /movies/popular", secured(PopularHandler(d.TMDB, log)))
	mux.HandleFunc("GET /movies/top_rated", secured(TopRatedHandler(d.TMDB, log)))
	mux.HandleFunc("GET /movies/{id}", secured(MovieDetailsHandler(d.TMDB, log)))
	mux.HandleFunc("GET /movies/{id}/videos", secured(MovieVideosHandler(d.TMDB)))

	mux.HandleFunc("POST /lobbies", secured(CreateLobbyHandler(d.Lobbies, d.Users, log)))
	mux.HandleFunc("GET /lobbies/{code}", secured(GetLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("GET /lobbies/{code}/members", secured(MembersHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/join", secured(JoinLobbyHandler(d.Lobbies, d.Users, log)))
	mux.HandleFunc("POST /lobbies/{code}/leave", secured(LeaveLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/start", secured(StartLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/more", secured(LoadMoreHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/votes", secured(VoteHandler(d.Lobbies, log)))
	mux.HandleFunc("GET /lobbies/{code}/votes/{movieID}", secured(VotersHandler(d.Lobbies, log)))
	mux.HandleFunc("GET /lobbies/{code}/page", secured(GetPageHandler(d.Lobbies, log)))
	mux.HandleFunc("PUT /lobbies/{code}/page", secured(SetPageHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/restart", secured(RestartLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/play", secured(PlayLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("POST /lobbies/{code}/complete", secured(CompleteLobbyHandler(d.Lobbies, log)))
	mux.HandleFunc("GET /lobbies/{code}/match", secured(MatchHandler(d.Lobbies, log)))
	mux.HandleFunc("GET /lobbies/{code}/events", secured(LobbyEventsHandler(d.Lobbies, d.Hub, log)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.Logging(log)(middleware.WithCORS(mux))
}
