package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Masterjii/CodesForTomorrow/internal/infrastructure/database"
)

// UserRepository is the persistence boundary for user accounts.
//
// Handlers and the Authenticator depend on this interface; SQLiteUserRepository
// is the production implementation.
type UserRepository interface {
	// Create inserts a new user. Returns ErrEmailExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID returns the user with the given ID, or ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail returns the user with the given email, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateSessionID overwrites the user's current session ID. This is the
	// only mutation of current_session_id; it runs exactly once per login.
	UpdateSessionID(ctx context.Context, id, sessionID string) error
}

// SQLiteUserRepository stores users in SQLite.
type SQLiteUserRepository struct {
	db *database.DB
}

// NewSQLiteUserRepository creates a user repository backed by the given database.
func NewSQLiteUserRepository(db *database.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, role, current_session_id, created_at, updated_at`

// Create inserts a new user row. The ID is generated here if unset.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns the user with the given ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail returns the user with the given email.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return user, nil
}

// UpdateSessionID overwrites the user's current session ID.
func (r *SQLiteUserRepository) UpdateSessionID(ctx context.Context, id, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET current_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating session for user %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session for user %s: %w", id, err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// scanUser scans a user row. current_session_id is nullable; NULL scans
// to the empty string (never logged in).
func scanUser(row *sql.Row) (*User, error) {
	var (
		user      User
		role      string
		sessionID sql.NullString
		createdAt string
		updatedAt string
	)

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&role, &sessionID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	user.Role = Role(role)
	user.CurrentSessionID = sessionID.String

	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. Matched on message text to avoid importing the driver's error
// types outside the database package.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
