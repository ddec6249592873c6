package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model backing the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                    uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username              string     `bun:"username,notnull"`
	Email                 string     `bun:"email,notnull"`
	PasswordHash          string     `bun:"password_hash,notnull"`
	FirstName             *string    `bun:"first_name"`
	LastName              *string    `bun:"last_name"`
	IsActive              bool       `bun:"is_active,notnull,default:true"`
	IsVerified            bool       `bun:"is_verified,notnull,default:false"`
	VerificationToken     *string    `bun:"verification_token"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at"`
	ResetToken            *string    `bun:"reset_token"`
	ResetExpiresAt        *time.Time `bun:"reset_expires_at"`
	CreatedAt             time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull,default:now()"`
}

// Calculation is the bun model backing the calculations table
type Calculation struct {
	bun.BaseModel `bun:"table:calculations,alias:c"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Operation string    `bun:"operation,notnull"`
	Operand1  float64   `bun:"operand1,notnull"`
	Operand2  float64   `bun:"operand2,notnull"`
	Result    float64   `bun:"result,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()"`
}

// RefreshToken is the bun model backing the refresh_tokens table.
// Tokens are stored hashed; the raw value never touches the database.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64      `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	TokenHash string     `bun:"token_hash,notnull"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:now()"`
	RevokedAt *time.Time `bun:"revoked_at"`
}
