package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCreator Role = "CREATOR"
	RoleVoter   Role = "VOTER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(upper(s)); r {
	case RoleAdmin, RoleCreator, RoleVoter:
		return r, nil
	}
	return "", ErrInvalidRole
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the resolved caller of an operation. It is always passed explicitly.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanManage reports whether the identity may close or delete a poll created by creatorID.
func (i Identity) CanManage(creatorID uuid.UUID) bool {
	return i.IsAdmin() || i.UserID == creatorID
}

func (i Identity) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
