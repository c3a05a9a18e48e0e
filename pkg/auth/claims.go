package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

var (
	ErrMissingSubject  = errors.New("token missing user id")
	ErrSubjectMismatch = errors.New("token subject does not match user id")
)

// AccessTokenPayload is what the caller supplies when minting. JTI is generated when empty.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the signed body of an access token.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return ErrMissingSubject
	}
	if c.Subject != c.UserID.String() {
		return ErrSubjectMismatch
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries invalid role %q", c.Role)
	}
	return nil
}
