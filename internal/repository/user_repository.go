package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"videotube/api/internal/ids"
	"videotube/api/internal/models"
	"videotube/api/internal/security"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const uniqueViolation = "23505"

// DBTX is the slice of pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewUser carries a registration. Password is plaintext; the repository
// hashes it on save.
type NewUser struct {
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

type UserRepository struct {
	db   DBTX
	hash security.Hasher
}

func NewUserRepository(db DBTX, hash security.Hasher) *UserRepository {
	if hash == nil {
		hash = security.HashPassword
	}
	return &UserRepository{db: db, hash: hash}
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, input NewUser) (models.User, error) {
	passwordHash, err := r.hash(input.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	const query = `
		INSERT INTO users (
			id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		ids.New(),
		input.Username,
		input.Email,
		input.FullName,
		input.AvatarURL,
		input.CoverImageURL,
		passwordHash,
	)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// FindByLogin returns the first user whose username or email matches. Empty
// identifiers never match.
func (r *UserRepository) FindByLogin(ctx context.Context, username string, email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		ORDER BY created_at
		LIMIT 1
	`
	return r.queryOne(ctx, query, username, email)
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// SetRefreshToken overwrites the single stored refresh token; nil clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const query = `UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, token)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, password string) error {
	passwordHash, err := r.hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *UserRepository) UpdateDetails(ctx context.Context, id string, fullName string, email string) (models.User, error) {
	const query = `
		UPDATE users SET full_name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := r.queryOne(ctx, query, id, fullName, email)
	if err != nil && isUniqueViolation(err) {
		return models.User{}, ErrUserExists
	}
	return user, err
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id string, url string) (models.User, error) {
	const query = `
		UPDATE users SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return r.queryOne(ctx, query, id, url)
}

func (r *UserRepository) UpdateCoverImage(ctx context.Context, id string, url string) (models.User, error) {
	const query = `
		UPDATE users SET cover_image_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return r.queryOne(ctx, query, id, url)
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...any) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
