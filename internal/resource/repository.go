package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Masterjii/CodesForTomorrow/internal/infrastructure/database"
)

// Repository is the persistence boundary for resources.
type Repository interface {
	// Create inserts a new resource, assigning an ID if unset.
	Create(ctx context.Context, res *Resource) error

	// List returns all resources ordered by creation time.
	List(ctx context.Context) ([]*Resource, error)

	// GetByID returns the resource with the given ID, or ErrResourceNotFound.
	GetByID(ctx context.Context, id string) (*Resource, error)

	// Update overwrites name and description. Returns ErrResourceNotFound
	// if no row matches.
	Update(ctx context.Context, res *Resource) error
}

// SQLiteRepository stores resources in SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a resource repository backed by the given database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const resourceColumns = `id, name, description, created_at, updated_at`

// Create inserts a new resource row.
func (r *SQLiteRepository) Create(ctx context.Context, res *Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		res.ID, res.Name, res.Description,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating resource: %w", err)
	}
	return nil
}

// List returns all resources, oldest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	resources := []*Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("listing resources: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	return resources, nil
}

// GetByID returns the resource with the given ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)

	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("getting resource %s: %w", id, err)
	}
	return res, nil
}

// Update overwrites the resource's name and description.
func (r *SQLiteRepository) Update(ctx context.Context, res *Resource) error {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE resources SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		res.Name, res.Description, now.Format(time.RFC3339), res.ID,
	)
	if err != nil {
		return fmt.Errorf("updating resource %s: %w", res.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating resource %s: %w", res.ID, err)
	}
	if rows == 0 {
		return ErrResourceNotFound
	}

	res.UpdatedAt = now
	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*Resource, error) {
	var (
		res       Resource
		createdAt string
		updatedAt string
	)

	if err := row.Scan(&res.ID, &res.Name, &res.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if res.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if res.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &res, nil
}
