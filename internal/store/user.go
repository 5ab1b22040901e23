package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dvanbeek/boodschap/internal/model"
)

// ErrBadCredentials is returned by Authenticate on a name/PIN mismatch.
var ErrBadCredentials = errors.New("invalid name or PIN")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var sessionID sql.NullString
	err := scanner.Scan(&u.ID, &u.Name, &u.Color, &sessionID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		u.SessionID = &sessionID.String
	}
	return &u, nil
}

const userCols = `id, name, color, session_id, created_at`

// Create provisions a user with a bcrypt-hashed PIN. Provisioning is an
// out-of-band step; there is no HTTP surface for it.
func (s *UserStore) Create(name, pin, color string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (name, pin, color) VALUES (?, ?, ?)`,
		name, string(hash), color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Authenticate checks the name/PIN pair and, on success, rotates the user's
// session token. The rotation is what enforces one active session per user:
// any token issued earlier stops matching the persisted one.
func (s *UserStore) Authenticate(name, pin string) (*model.User, string, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(`SELECT id, pin FROM users WHERE name = ?`, name).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return nil, "", ErrBadCredentials
	}

	token, err := s.RotateSession(id)
	if err != nil {
		return nil, "", err
	}

	u, err := s.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// RotateSession writes a fresh crypto-random token onto the user row and
// returns it, invalidating whatever token was there before.
func (s *UserStore) RotateSession(userID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	if _, err := s.db.Exec(`UPDATE users SET session_id = ? WHERE id = ?`, token, userID); err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return token, nil
}

// GetBySessionToken resolves a presented token to its user, or nil when the
// token no longer matches any user's current session.
func (s *UserStore) GetBySessionToken(token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE session_id = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by session: %w", err)
	}
	return u, nil
}
