package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

type Profiles interface {
	Profile(ctx context.Context, uid string) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, p model.UserProfile) error
}

func GetProfileHandler(profiles Profiles, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		p, err := profiles.Profile(r.Context(), uid)
		if err != nil {
			fail(w, log, err)
			return
		}
		if p == nil {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdateProfileHandler applies the fields present in the body and keeps the
// rest, creating the profile on first use.
func UpdateProfileHandler(profiles Profiles, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		var req model.ProfileRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Birthday != nil && *req.Birthday != "" {
			if _, err := time.Parse(time.DateOnly, *req.Birthday); err != nil {
				http.Error(w, "Birthday must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		p, err := profiles.Profile(r.Context(), uid)
		if err != nil {
			fail(w, log, err)
			return
		}
		if p == nil {
			p = &model.UserProfile{UID: uid}
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Gender != nil {
			p.Gender = *req.Gender
		}
		if req.Birthday != nil {
			p.Birthday = *req.Birthday
		}

		if err := profiles.SaveProfile(r.Context(), *p); err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
