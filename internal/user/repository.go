package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/calculator-api/internal/database"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrTokenExpired      = errors.New("token has expired")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The caller supplies the password hash and the
// initial verification token; the user starts unverified.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := &database.User{
		Username:              u.Username,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		IsActive:              true,
		IsVerified:            false,
		VerificationToken:     u.VerificationToken,
		VerificationExpiresAt: u.VerificationExpiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			if strings.Contains(err.Error(), "users_username") {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByIdentifier retrieves a user by username or email. Login accepts either.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("username = ?", identifier).
		WhereOr("email = ?", identifier).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by identifier: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// ConsumeVerificationToken marks the matching user as verified and clears the
// token, all within one transaction so a consumed token can never be replayed.
// An expired token is left in place and ErrTokenExpired is returned.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, token string) (*User, error) {
	var verified *User

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		dbUser := new(database.User)
		err := tx.NewSelect().
			Model(dbUser).
			Where("verification_token = ?", token).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find user by verification token: %w", err)
		}

		if dbUser.VerificationExpiresAt == nil || time.Now().After(*dbUser.VerificationExpiresAt) {
			return ErrTokenExpired
		}

		_, err = tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("is_verified = ?", true).
			Set("verification_token = NULL").
			Set("verification_expires_at = NULL").
			Set("updated_at = NOW()").
			Where("id = ?", dbUser.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark email as verified: %w", err)
		}

		dbUser.IsVerified = true
		dbUser.VerificationToken = nil
		dbUser.VerificationExpiresAt = nil
		verified = mapDBUserToModel(dbUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return verified, nil
}

// SetVerificationToken replaces the verification token on an unverified user
func (r *Repository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verification_token = ?", token).
		Set("verification_expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("is_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetResetToken stores a password reset token and its expiry on the user
func (r *Repository) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_token = ?", token).
		Set("reset_expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ConsumeResetToken updates the password of the user holding the reset token
// and clears the token in the same transaction. Like verification tokens,
// expired reset tokens are reported but not cleared.
func (r *Repository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*User, error) {
	var updated *User

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		dbUser := new(database.User)
		err := tx.NewSelect().
			Model(dbUser).
			Where("reset_token = ?", token).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find user by reset token: %w", err)
		}

		if dbUser.ResetExpiresAt == nil || time.Now().After(*dbUser.ResetExpiresAt) {
			return ErrTokenExpired
		}

		_, err = tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("password_hash = ?", passwordHash).
			Set("reset_token = NULL").
			Set("reset_expires_at = NULL").
			Set("updated_at = NOW()").
			Where("id = ?", dbUser.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		dbUser.PasswordHash = passwordHash
		dbUser.ResetToken = nil
		dbUser.ResetExpiresAt = nil
		updated = mapDBUserToModel(dbUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                    dbu.ID,
		Username:              dbu.Username,
		Email:                 dbu.Email,
		PasswordHash:          dbu.PasswordHash,
		FirstName:             dbu.FirstName,
		LastName:              dbu.LastName,
		IsActive:              dbu.IsActive,
		IsVerified:            dbu.IsVerified,
		VerificationToken:     dbu.VerificationToken,
		VerificationExpiresAt: dbu.VerificationExpiresAt,
		ResetToken:            dbu.ResetToken,
		ResetExpiresAt:        dbu.ResetExpiresAt,
		CreatedAt:             dbu.CreatedAt,
		UpdatedAt:             dbu.UpdatedAt,
	}
}
