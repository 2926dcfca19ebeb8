package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
	"github.com/BaGreal2/cinematch-server/internal/realtime"
	"github.com/BaGreal2/cinematch-server/internal/tmdb"
)

type memberRequest struct {
	Username string `json:"username"`
	Gender   string `json:"gender"`
}

type voteRequest struct {
	MovieID int  `json:"movieId"`
	Liked   bool `json:"liked"`
}

type pageRequest struct {
	Page int `json:"page"`
}

// identity fills in the member name and gender from the stored profile when
// the request leaves them out.
func identity(ctx context.Context, profiles Profiles, uid string, r *http.Request) (memberRequest, error) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, errBadBody
	}
	if req.Username != "" && req.Gender != "" {
		return req, nil
	}

	p, err := profiles.Profile(ctx, uid)
	if err != nil {
		return req, err
	}
	if p != nil {
		if req.Username == "" {
			req.Username = p.Name
		}
		if req.Gender == "" {
			req.Gender = p.Gender
		}
	}
	if req.Username == "" {
		req.Username = uid
	}
	return req, nil
}

var errBadBody = errors.New("invalid request body")

func CreateLobbyHandler(svc *lobby.Service, profiles Profiles, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		who, err := identity(r.Context(), profiles, uid, r)
		if errors.Is(err, errBadBody) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err != nil {
			fail(w, log, err)
			return
		}

		l, err := svc.Create(r.Context(), uid, who.Username, who.Gender)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

// memberLobby loads the lobby for a member of it; anyone else gets 403.
func memberLobby(w http.ResponseWriter, r *http.Request, svc *lobby.Service, log *zap.Logger) (*model.Lobby, string, bool) {
	uid, ok := currentUser(w, r)
	if !ok {
		return nil, "", false
	}
	code, ok := roomCode(w, r)
	if !ok {
		return nil, "", false
	}
	l, err := svc.Get(r.Context(), code)
	if err != nil {
		fail(w, log, err)
		return nil, "", false
	}
	if !l.IsMember(uid) {
		fail(w, log, lobby.ErrNotMember)
		return nil, "", false
	}
	return l, uid, true
}

func GetLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, _, ok := memberLobby(w, r, svc, log)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

type memberView struct {
	UID string `json:"uid"`
	model.LobbyMember
}

// MembersHandler lists the lobby members in join order.
func MembersHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		members, err := svc.Members(r.Context(), code)
		if err != nil {
			fail(w, log, err)
			return
		}
		if _, ok := members[uid]; !ok {
			fail(w, log, lobby.ErrNotMember)
			return
		}

		ordered := (&model.Lobby{Members: members}).MemberIDs()
		out := make([]memberView, 0, len(ordered))
		for _, id := range ordered {
			out = append(out, memberView{UID: id, LobbyMember: members[id]})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"members": out,
			"count":   len(out),
		})
	}
}

func JoinLobbyHandler(svc *lobby.Service, profiles Profiles, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		who, err := identity(r.Context(), profiles, uid, r)
		if errors.Is(err, errBadBody) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err != nil {
			fail(w, log, err)
			return
		}

		l, err := svc.Join(r.Context(), code, uid, who.Username, who.Gender)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func LeaveLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		if err := svc.Leave(r.Context(), code, uid); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// hostAction covers the host-only transitions that take no body.
func hostAction(action func(ctx context.Context, code, uid string) (*model.Lobby, error), log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		l, err := action(r.Context(), code, uid)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func StartLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return hostAction(svc.Start, log)
}

func RestartLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return hostAction(svc.Restart, log)
}

func PlayLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return hostAction(svc.Play, log)
}

func CompleteLobbyHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return hostAction(svc.Complete, log)
}

func LoadMoreHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		l, added, err := svc.LoadMore(r.Context(), code, uid)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lobby": l,
			"added": added,
		})
	}
}

func VoteHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		var req voteRequest
		if !decode(w, r, &req) {
			return
		}
		if req.MovieID <= 0 {
			http.Error(w, "Invalid movie id", http.StatusBadRequest)
			return
		}

		res, err := svc.Vote(r.Context(), code, uid, req.MovieID, req.Liked)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func VotersHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, _, ok := memberLobby(w, r, svc, log)
		if !ok {
			return
		}
		code := l.RoomCode
		movieID, ok := intParam(w, r.PathValue("movieID"), "movie id")
		if !ok {
			return
		}
		voters, err := svc.Voters(r.Context(), code, movieID)
		if err != nil {
			fail(w, log, err)
			return
		}
		if voters == nil {
			voters = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"movieId": movieID,
			"voters":  voters,
			"count":   len(voters),
		})
	}
}

func SetPageHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		var req pageRequest
		if !decode(w, r, &req) {
			return
		}
		l, err := svc.SetPage(r.Context(), code, uid, req.Page)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"page": l.CurrentPage})
	}
}

func GetPageHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		if _, err := svc.Member(r.Context(), code, uid); err != nil {
			fail(w, log, err)
			return
		}
		page, err := svc.Page(r.Context(), code)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"page": page})
	}
}

// MatchHandler returns the matched movie with what the match screen shows:
// poster, genre names and the TMDB page.
func MatchHandler(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, _, ok := memberLobby(w, r, svc, log)
		if !ok {
			return
		}
		details, err := svc.Matched(r.Context(), l.RoomCode)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"movie":     details,
			"posterUrl": tmdb.ImageURL(details.PosterPath),
			"genres":    matchGenres(l, details),
			"watchUrl":  tmdb.WatchURL(details.ID),
		})
	}
}

// matchGenres prefers the detail genres and falls back to the deck card's
// genre ids.
func matchGenres(l *model.Lobby, details *model.MovieDetails) []string {
	names := make([]string, 0, len(details.Genres))
	for _, g := range details.Genres {
		names = append(names, g.Name)
	}
	if len(names) > 0 {
		return names
	}
	for _, m := range l.Movies {
		if m.ID == details.ID {
			names = append(names, tmdb.GenreNames(m.GenreIDs)...)
			break
		}
	}
	return names
}

// LobbyEventsHandler upgrades members to a websocket that receives every
// lobby change until the lobby is deleted or they leave it.
func LobbyEventsHandler(svc *lobby.Service, hub *realtime.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		code, ok := roomCode(w, r)
		if !ok {
			return
		}
		if _, err := svc.Member(r.Context(), code, uid); err != nil {
			fail(w, log, err)
			return
		}
		l, err := svc.Get(r.Context(), code)
		if err != nil {
			fail(w, log, err)
			return
		}

		conn, err := realtime.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade", zap.String("code", code), zap.Error(err))
			return
		}
		hub.Serve(r.Context(), conn, code, uid, l)
	}
}
