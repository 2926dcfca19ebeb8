package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/BaGreal2/cinematch-server/internal/db"
	"github.com/BaGreal2/cinematch-server/internal/model"
)

var (
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
	ErrUserNotFound  = errors.New("user not found")
)

// Users keeps credentials, profiles and favorites.
type Users struct {
	db *db.DB
}

func NewUsers(database *db.DB) *Users {
	return &Users{db: database}
}

// Register inserts a user with an already hashed password and seeds its profile.
func (s *Users) Register(ctx context.Context, req model.RegisterRequest, hashedPassword string) (*model.User, error) {
	var existing int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM users WHERE email = ?"), req.Email).Scan(&existing); err == nil {
		return nil, ErrEmailTaken
	}
	if err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM users WHERE username = ?"), req.Username).Scan(&existing); err == nil {
		return nil, ErrUsernameTaken
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var user model.User
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		"INSERT INTO users (email, username, password) VALUES (?, ?, ?) RETURNING id, email, username, created_at"),
		req.Email, req.Username, hashedPassword).
		Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt)
	if s.db.IsUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	profile := model.UserProfile{
		UID:      strconv.Itoa(user.ID),
		Name:     req.Name,
		Gender:   req.Gender,
		Birthday: req.Birthday,
		Email:    req.Email,
	}
	if err := saveProfile(ctx, tx, s.db, profile); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &user, nil
}

// Credentials looks a user up by email or username and returns the password hash.
func (s *Users) Credentials(ctx context.Context, identifier string) (*model.User, string, error) {
	var user model.User
	var hashed string
	query := "SELECT id, email, username, password, created_at FROM users WHERE email = ? OR username = ?"
	err := s.db.QueryRowContext(ctx, s.db.Rebind(query), identifier, identifier).
		Scan(&user.ID, &user.Email, &user.Username, &hashed, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &user, hashed, nil
}

func (s *Users) User(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id, email, username, created_at FROM users WHERE id = ?"), id).
		Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile returns the profile for uid, or nil when none is stored.
func (s *Users) Profile(ctx context.Context, uid string) (*model.UserProfile, error) {
	p := model.UserProfile{UID: uid}
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT name, gender, birthday, email FROM profiles WHERE uid = ?"), uid).
		Scan(&p.Name, &p.Gender, &p.Birthday, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Users) SaveProfile(ctx context.Context, p model.UserProfile) error {
	if p.UID == "" {
		return errors.New("user id is required")
	}
	return saveProfile(ctx, s.db, s.db, p)
}

func saveProfile(ctx context.Context, q querier, d *db.DB, p model.UserProfile) error {
	_, err := q.ExecContext(ctx, d.Rebind(
		`INSERT INTO profiles (uid, name, gender, birthday, email) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET name = excluded.name, gender = excluded.gender,
			birthday = excluded.birthday, email = excluded.email`),
		p.UID, p.Name, p.Gender, p.Birthday, p.Email)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.UID, err)
	}
	return nil
}

func (s *Users) AddFavorite(ctx context.Context, uid string, movieID int) error {
	var err error
	if s.db.Name == "postgres" {
		_, err = s.db.ExecContext(ctx, s.db.Rebind("INSERT INTO user_favorites (uid, movie_id) VALUES (?, ?) ON CONFLICT DO NOTHING"), uid, movieID)
	} else {
		_, err = s.db.ExecContext(ctx, "INSERT OR IGNORE INTO user_favorites (uid, movie_id) VALUES (?, ?)", uid, movieID)
	}
	return err
}

func (s *Users) RemoveFavorite(ctx context.Context, uid string, movieID int) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM user_favorites WHERE uid = ? AND movie_id = ?"), uid, movieID)
	return err
}

func (s *Users) Favorites(ctx context.Context, uid string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind("SELECT movie_id FROM user_favorites WHERE uid = ? ORDER BY added_at, movie_id"), uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		favorites = append(favorites, id)
	}
	return favorites, rows.Err()
}
