package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

type Accounts interface {
	Register(ctx context.Context, req model.RegisterRequest, hashedPassword string) (*model.User, error)
	Credentials(ctx context.Context, identifier string) (*model.User, string, error)
	User(ctx context.Context, id int) (*model.User, error)
}

type TokenIssuer interface {
	Issue(userID int) (string, error)
}

func RegisterHandler(accounts Accounts, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		req.Username = strings.TrimSpace(req.Username)
		if req.Email == "" || req.Username == "" || req.Password == "" {
			http.Error(w, "Email, username and password are required", http.StatusBadRequest)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Invalid password", http.StatusBadRequest)
			return
		}

		if _, err := accounts.Register(r.Context(), req, string(hashedPassword)); err != nil {
			fail(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
	}
}

func LoginHandler(accounts Accounts, tokens TokenIssuer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		if !decode(w, r, &req) {
			return
		}

		user, hashed, err := accounts.Credentials(r.Context(), req.Identifier)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)) != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			fail(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user":  user,
			"token": token,
		})
	}
}

func MeHandler(accounts Accounts, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, err := strconv.Atoi(uid)
		if err != nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}

		user, err := accounts.User(r.Context(), id)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
