package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/middleware"
	"github.com/BaGreal2/cinematch-server/internal/roomcode"
	"github.com/BaGreal2/cinematch-server/internal/store/sqlstore"
	"github.com/BaGreal2/cinematch-server/internal/tmdb"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// statusOf maps domain errors to HTTP statuses; anything unknown is a 500.
func statusOf(err error) int {
	var se *tmdb.StatusError
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound),
		errors.Is(err, lobby.ErrNoMatch),
		errors.Is(err, tmdb.ErrNotFound),
		errors.Is(err, sqlstore.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrNotHost),
		errors.Is(err, lobby.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, lobby.ErrSessionStarted),
		errors.Is(err, lobby.ErrLobbyFull),
		errors.Is(err, lobby.ErrLobbyExists),
		errors.Is(err, lobby.ErrWrongStatus),
		errors.Is(err, sqlstore.ErrEmailTaken),
		errors.Is(err, sqlstore.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, lobby.ErrUnknownMovie):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrEmptyQueue),
		errors.Is(err, lobby.ErrRoomCodeExhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &se):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return uid, ok
}

func roomCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code, ok := roomcode.Normalize(r.PathValue("code"))
	if !ok {
		http.Error(w, "Invalid room code", http.StatusBadRequest)
	}
	return code, ok
}

func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// pageQuery reads ?page=, defaulting to 1.
func pageQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	return intParam(w, raw, "page")
}
